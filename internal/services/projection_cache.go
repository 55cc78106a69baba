package services

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

// CachedEngine decorates an Engine with a projection read cache. The engine
// itself stays pure; invalidation is keyed on a per-user generation that is
// bumped by every mutation, so stale entries simply become unreachable and
// age out via TTL.
type CachedEngine struct {
	*Engine
	projections *cache.LRU[core.ProjectionResult]

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedEngine(engine *Engine, projections *cache.LRU[core.ProjectionResult]) *CachedEngine {
	return &CachedEngine{
		Engine:      engine,
		projections: projections,
		generations: make(map[string]uint64),
	}
}

func (c *CachedEngine) key(userID string, p core.Period) string {
	c.mu.Lock()
	gen := c.generations[userID]
	c.mu.Unlock()
	return fmt.Sprintf("%s@%d|%s", userID, gen, p.Key())
}

func (c *CachedEngine) invalidate(userID string) {
	c.mu.Lock()
	c.generations[userID]++
	c.mu.Unlock()
}

// Project serves from cache when possible.
func (c *CachedEngine) Project(ctx context.Context, userID string, p core.Period) (core.ProjectionResult, error) {
	key := c.key(userID, p)
	if result, ok := c.projections.Get(key); ok {
		return result, nil
	}
	result, err := c.Engine.Project(ctx, userID, p)
	if err != nil {
		return core.ProjectionResult{}, err
	}
	c.projections.Set(key, result)
	return result, nil
}

// SetInitialBalance invalidates the user's cached projections after the
// cascade, including on partial failure, where some periods were rewritten.
func (c *CachedEngine) SetInitialBalance(ctx context.Context, userID string, p core.Period, value core.Money) error {
	err := c.Engine.SetInitialBalance(ctx, userID, p, value)
	c.invalidate(userID)
	return err
}

// Confirm invalidates cached projections: paid status feeds dashboards.
func (c *CachedEngine) Confirm(ctx context.Context, userID, occurrenceID, transactionID, note string) (core.ReconciledEvent, error) {
	event, err := c.Engine.Confirm(ctx, userID, occurrenceID, transactionID, note)
	if err == nil {
		c.invalidate(userID)
	}
	return event, err
}

// Unreconcile invalidates cached projections.
func (c *CachedEngine) Unreconcile(ctx context.Context, userID, eventID string) error {
	err := c.Engine.Unreconcile(ctx, userID, eventID)
	if err == nil {
		c.invalidate(userID)
	}
	return err
}

package services_test

import (
	"context"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/storage/memory"
)

func TestCachedEngine_InvalidatesOnBalanceEdit(t *testing.T) {
	store := memory.New()
	seedCommitments(store, 300000)
	engine := services.NewCachedEngine(
		services.NewEngine(store, services.WithClock(fixedNow)),
		cache.NewLRU[core.ProjectionResult](16, time.Minute),
	)
	ctx := context.Background()
	period := core.NewPeriod(9, 2024)

	first, err := engine.Project(ctx, testUser, period)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if first.InitialBalance.Cents != 0 {
		t.Fatalf("InitialBalance = %d, want 0", first.InitialBalance.Cents)
	}

	if err := engine.SetInitialBalance(ctx, testUser, period, core.Money{Cents: 100000}); err != nil {
		t.Fatalf("SetInitialBalance() error = %v", err)
	}

	second, err := engine.Project(ctx, testUser, period)
	if err != nil {
		t.Fatalf("Project() after edit error = %v", err)
	}
	if second.InitialBalance.Cents != 100000 {
		t.Errorf("cached projection survived invalidation: InitialBalance = %d, want 100000", second.InitialBalance.Cents)
	}
}

func TestCachedEngine_ServesRepeatReadsFromCache(t *testing.T) {
	store := memory.New()
	seedCommitments(store, 300000)
	lru := cache.NewLRU[core.ProjectionResult](16, time.Minute)
	engine := services.NewCachedEngine(services.NewEngine(store, services.WithClock(fixedNow)), lru)
	ctx := context.Background()

	if _, err := engine.Project(ctx, testUser, core.NewPeriod(9, 2024)); err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if lru.Size() != 1 {
		t.Errorf("cache size = %d, want 1 after first read", lru.Size())
	}
	if _, err := engine.Project(ctx, testUser, core.NewPeriod(9, 2024)); err != nil {
		t.Fatalf("repeat Project() error = %v", err)
	}
	if lru.Size() != 1 {
		t.Errorf("cache size = %d, want 1 after repeat read", lru.Size())
	}
}

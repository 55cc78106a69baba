package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// Engine is the public surface of the reconciliation and projection engine.
// Every entry point is request-scoped and synchronous; there is no background
// scheduler.
type Engine struct {
	repo      Repository
	matcher   *Matcher
	cascade   *Cascade
	projector *Projector
	publisher EventPublisher
	now       func() time.Time
}

// Option tunes an Engine at construction time.
type Option func(*options)

type options struct {
	matcherCfg MatcherConfig
	horizon    int
	publisher  EventPublisher
	now        func() time.Time
}

// WithMatcherConfig overrides the stock scoring policy.
func WithMatcherConfig(cfg MatcherConfig) Option {
	return func(o *options) { o.matcherCfg = cfg }
}

// WithCascadeHorizon overrides the forward walk bound.
func WithCascadeHorizon(horizon int) Option {
	return func(o *options) { o.horizon = horizon }
}

// WithPublisher streams engine mutations to an event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	o := options{
		matcherCfg: DefaultMatcherConfig(),
		horizon:    DefaultCascadeHorizon,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		repo:      repo,
		matcher:   NewMatcher(o.matcherCfg),
		cascade:   NewCascade(repo, repo, o.horizon),
		projector: NewProjector(repo, o.now),
		publisher: o.publisher,
		now:       o.now,
	}
}

// Project computes the outlook for one period.
func (e *Engine) Project(ctx context.Context, userID string, p core.Period) (core.ProjectionResult, error) {
	return e.projector.Project(ctx, userID, p)
}

// ProjectRange computes count consecutive periods, all-or-nothing.
func (e *Engine) ProjectRange(ctx context.Context, userID string, start core.Period, count int) ([]core.ProjectionResult, error) {
	return e.projector.ProjectRange(ctx, userID, start, count)
}

// SetInitialBalance pins a period's balance and cascades it forward.
func (e *Engine) SetInitialBalance(ctx context.Context, userID string, p core.Period, value core.Money) error {
	if err := e.cascade.SetInitialBalance(ctx, userID, p, value); err != nil {
		return err
	}
	e.publishBalanceEdited(ctx, userID, p)
	return nil
}

// Suggest ranks candidate transactions for an occurrence. Candidates are
// fetched from storage within the matcher's date window around the expected
// date; direction filtering happens in the matcher.
func (e *Engine) Suggest(ctx context.Context, userID, occurrenceID string) ([]Suggestion, error) {
	occ, err := e.findOccurrence(ctx, userID, occurrenceID)
	if err != nil {
		return nil, err
	}
	window := time.Duration(e.matcher.cfg.WindowDays) * 24 * time.Hour
	from := occ.ExpectedDate.Add(-window)
	to := occ.ExpectedDate.Add(window + 24*time.Hour)
	candidates, err := e.repo.ListTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list candidate transactions: %w", err)
	}
	return e.matcher.Suggest(occ, candidates), nil
}

// Confirm persists a reconciliation link at the user's explicit request. The
// confidence recorded is the matcher's score at confirmation time. Fails with
// ErrAlreadyReconciled or ErrTransactionAlreadyLinked on conflict, enforced
// atomically by the store.
func (e *Engine) Confirm(ctx context.Context, userID, occurrenceID, transactionID, note string) (core.ReconciledEvent, error) {
	occ, err := e.findOccurrence(ctx, userID, occurrenceID)
	if err != nil {
		return core.ReconciledEvent{}, err
	}
	txn, err := e.repo.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return core.ReconciledEvent{}, fmt.Errorf("transaction %s: %w", transactionID, err)
	}

	event := core.ReconciledEvent{
		ID:            uuid.NewString(),
		OccurrenceID:  occ.OccurrenceID,
		TransactionID: txn.ID,
		Confidence:    e.matcher.Score(occ, txn),
		Note:          note,
		ConfirmedAt:   e.now().UTC(),
	}
	if err := event.Validate(); err != nil {
		return core.ReconciledEvent{}, err
	}
	if err := e.repo.InsertReconciledEvent(ctx, userID, event); err != nil {
		return core.ReconciledEvent{}, err
	}

	slog.InfoContext(ctx, "Reconciliation confirmed",
		"user_id", userID,
		"occurrence_id", event.OccurrenceID,
		"transaction_id", event.TransactionID,
		"confidence", event.Confidence)

	if e.publisher != nil {
		if err := e.publisher.PublishReconciliationConfirmed(ctx, userID, event); err != nil {
			slog.WarnContext(ctx, "Failed to publish reconciliation event",
				"event_id", event.ID, "error", err)
		}
	}
	return event, nil
}

// Unreconcile deletes a confirmed link by event ID. Re-confirming afterwards
// creates a fresh event, preserving the audit trail semantics.
func (e *Engine) Unreconcile(ctx context.Context, userID, eventID string) error {
	if err := e.repo.DeleteReconciledEvent(ctx, userID, eventID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Reconciliation removed", "user_id", userID, "event_id", eventID)
	return nil
}

// StatusFor resolves a commitment's status in a period via the single status
// resolver.
func (e *Engine) StatusFor(ctx context.Context, userID, commitmentID string, p core.Period) (core.PeriodStatus, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	commitments, err := e.repo.ListCommitments(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list commitments: %w", err)
	}
	commitment, err := NewCatalog(commitments).Find(commitmentID)
	if err != nil {
		return "", err
	}
	events, err := e.repo.ListReconciledEvents(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list reconciled events: %w", err)
	}
	resolver := NewStatusResolver(NewLinkSet(events), e.now)
	return resolver.StatusFor(commitment, p), nil
}

// ObligationSummaries reports payoff state for the user's installment plans.
func (e *Engine) ObligationSummaries(ctx context.Context, userID string) ([]core.ObligationSummary, error) {
	commitments, err := e.repo.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return NewCatalog(commitments).ObligationSummaries(), nil
}

func (e *Engine) findOccurrence(ctx context.Context, userID, occurrenceID string) (core.CommitmentOccurrence, error) {
	commitments, err := e.repo.ListCommitments(ctx, userID)
	if err != nil {
		return core.CommitmentOccurrence{}, fmt.Errorf("list commitments: %w", err)
	}
	return NewCatalog(commitments).FindOccurrence(occurrenceID)
}

func (e *Engine) publishBalanceEdited(ctx context.Context, userID string, p core.Period) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishBalanceEdited(ctx, userID, p); err != nil {
		slog.WarnContext(ctx, "Failed to publish balance event",
			"user_id", userID, "period", p.String(), "error", err)
	}
}

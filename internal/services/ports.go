// Package services implements the commitment reconciliation and cascading
// projection engine: catalog, status resolution, balance cascade, monthly
// projections and the fuzzy transaction matcher, assembled behind Engine.
package services

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// Ports for the storage collaborator. The engine is storage-agnostic and
// consumes plain data records through these interfaces.
type (
	CommitmentReader interface {
		// ListCommitments returns all commitments for the user, inactive
		// ones included (activity is the catalog's concern, not storage's).
		ListCommitments(ctx context.Context, userID string) ([]core.Commitment, error)
	}

	TransactionReader interface {
		// ListTransactions returns transactions dated in [from, to).
		ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]core.TransactionRecord, error)

		// GetTransaction returns a single record or ErrNotFound.
		GetTransaction(ctx context.Context, userID, transactionID string) (core.TransactionRecord, error)
	}

	BudgetStore interface {
		// GetOrCreateBudget lazily creates the row with a zero initial
		// balance the first time a period is touched.
		GetOrCreateBudget(ctx context.Context, userID string, p core.Period) (core.MonthlyBudget, error)

		// UpsertInitialBalance writes the balance and the pin flag for one
		// period, preserving any savings goal already stored.
		UpsertInitialBalance(ctx context.Context, userID string, p core.Period, balance core.Money, manuallyEdited bool) error
	}

	ReconciliationStore interface {
		// InsertReconciledEvent persists a confirmed link. Returns
		// ErrAlreadyReconciled when the occurrence already has a link and
		// ErrTransactionAlreadyLinked when the transaction does, enforced
		// atomically by the store (uniqueness constraint, not readback).
		InsertReconciledEvent(ctx context.Context, userID string, event core.ReconciledEvent) error

		// DeleteReconciledEvent removes a link by event ID; ErrNotFound if
		// no such event exists.
		DeleteReconciledEvent(ctx context.Context, userID, eventID string) error

		ListReconciledEvents(ctx context.Context, userID string) ([]core.ReconciledEvent, error)
	}

	// Repository is the full storage surface the engine needs.
	Repository interface {
		CommitmentReader
		TransactionReader
		BudgetStore
		ReconciliationStore
	}

	// EventPublisher receives engine mutations for downstream consumers.
	// Optional: a nil publisher disables the event stream.
	EventPublisher interface {
		PublishBalanceEdited(ctx context.Context, userID string, p core.Period) error
		PublishReconciliationConfirmed(ctx context.Context, userID string, event core.ReconciledEvent) error
	}
)

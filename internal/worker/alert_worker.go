// Package worker consumes engine events and surfaces the alerts the new
// projections raise.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// ProjectionEngine is the slice of the engine the worker needs.
type ProjectionEngine interface {
	ProjectRange(ctx context.Context, userID string, start core.Period, count int) ([]core.ProjectionResult, error)
}

// AlertWorker recomputes projections after a balance edit and logs every
// alert the new outlook carries. Reconciliation events only affect period
// status, not balances, so they are acknowledged without recomputation.
type AlertWorker struct {
	engine  ProjectionEngine
	horizon int
}

func NewAlertWorker(engine ProjectionEngine, horizon int) *AlertWorker {
	if horizon < 1 {
		horizon = 1
	}
	return &AlertWorker{engine: engine, horizon: horizon}
}

// HandleEvent processes one engine event from the queue.
func (w *AlertWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	switch msg.Kind {
	case amqp.EventBalanceEdited:
		return w.handleBalanceEdited(ctx, msg)
	case amqp.EventReconciliationConfirmed:
		slog.InfoContext(ctx, "Reconciliation confirmed",
			"user_id", msg.UserID,
			"occurrence_id", msg.OccurrenceID,
			"transaction_id", msg.TransactionID,
			"confidence", msg.Confidence)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", "kind", msg.Kind)
		return nil
	}
}

func (w *AlertWorker) handleBalanceEdited(ctx context.Context, msg *amqp.EventMessage) error {
	period, err := core.ParsePeriodKey(msg.Period)
	if err != nil {
		// Bad period means a malformed message; requeueing will not fix it.
		slog.ErrorContext(ctx, "Dropping balance event with bad period",
			"user_id", msg.UserID, "period", msg.Period, "error", err)
		return nil
	}

	results, err := w.engine.ProjectRange(ctx, msg.UserID, period, w.horizon)
	if err != nil {
		return fmt.Errorf("project range after balance edit: %w", err)
	}

	alertCount := 0
	for _, result := range results {
		for _, alert := range result.Alerts {
			alertCount++
			slog.WarnContext(ctx, "Projection alert",
				"user_id", msg.UserID,
				"period", alert.Period.Key(),
				"kind", alert.Kind,
				"priority", alert.Priority,
				"message", alert.Message)
		}
	}

	slog.InfoContext(ctx, "Recomputed projections after balance edit",
		"user_id", msg.UserID,
		"from", period.Key(),
		"periods", len(results),
		"alerts", alertCount)
	return nil
}

// Package feeds defines the ports for external transaction sources and the
// importer that pulls their records into the engine's storage.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

type (
	// TransactionSource fetches the raw transaction records an external feed
	// currently holds. Fetching is read-only and best-effort: malformed rows
	// are skipped at the source, not surfaced as errors.
	TransactionSource interface {
		FetchTransactions(ctx context.Context) ([]core.TransactionRecord, error)
	}

	// TransactionSink receives imported records. Implemented by both storage
	// backends.
	TransactionSink interface {
		AddTransaction(ctx context.Context, userID string, t core.TransactionRecord) (string, error)
	}
)

// Importer copies records from a source into a sink for one user. Records the
// sink rejects (duplicates, validation failures) are logged and skipped so a
// re-run of the same feed stays safe.
type Importer struct {
	source TransactionSource
	sink   TransactionSink
	userID string
}

func NewImporter(source TransactionSource, sink TransactionSink, userID string) (*Importer, error) {
	if source == nil || sink == nil {
		return nil, errors.New("importer requires a source and a sink")
	}
	if userID == "" {
		return nil, errors.New("importer requires a user id")
	}
	return &Importer{source: source, sink: sink, userID: userID}, nil
}

// Run fetches the feed and stores its records, returning how many were
// imported.
func (i *Importer) Run(ctx context.Context) (int, error) {
	records, err := i.source.FetchTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch transactions: %w", err)
	}

	imported := 0
	for _, record := range records {
		if _, err := i.sink.AddTransaction(ctx, i.userID, record); err != nil {
			slog.WarnContext(ctx, "Skipping transaction from feed",
				"transaction_id", record.ID, "origin", record.Origin, "error", err)
			continue
		}
		imported++
	}

	slog.InfoContext(ctx, "Feed import complete",
		"user_id", i.userID, "fetched", len(records), "imported", imported)
	return imported, nil
}

package services

import (
	"errors"
	"fmt"

	"bilancio/internal/core"
)

var (
	// ErrNotFound reports an unknown commitment, occurrence or transaction.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyReconciled reports a confirm on an occurrence that already
	// has a confirmed link.
	ErrAlreadyReconciled = errors.New("occurrence already reconciled")

	// ErrTransactionAlreadyLinked reports a confirm with a transaction that
	// already satisfies another occurrence.
	ErrTransactionAlreadyLinked = errors.New("transaction already linked")
)

// CascadeError reports a balance cascade that failed mid-walk. Periods
// written before the failure remain committed; the caller decides whether to
// re-invoke SetInitialBalance, which recomputes from scratch.
type CascadeError struct {
	Failed      core.Period
	LastWritten core.Period
	Err         error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade failed at %s (last written %s): %v", e.Failed, e.LastWritten, e.Err)
}

func (e *CascadeError) Unwrap() error {
	return e.Err
}

package core

import (
	"errors"
	"strings"
	"time"
)

// TransactionRecord is an actual money movement reported by the user or an
// import feed. Immutable once created; the engine never mutates it.
type TransactionRecord struct {
	ID                 string
	Date               time.Time
	Amount             Money
	Direction          Direction
	Category           string
	EstablishmentLabel string
	FreeText           string
	Origin             string // e.g. "manual", "sheets-import"
}

func (t TransactionRecord) Validate() error {
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Direction.Valid() {
		return errors.New("invalid transaction direction")
	}
	if len(t.EstablishmentLabel) > 200 {
		return errors.New("establishment label too long (max 200 characters)")
	}
	if len(t.FreeText) > 500 {
		return errors.New("free text too long (max 500 characters)")
	}
	if strings.TrimSpace(t.Origin) == "" {
		return errors.New("empty transaction origin")
	}
	return nil
}

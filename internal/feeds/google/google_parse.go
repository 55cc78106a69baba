package google

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"
)

// errSkipRow marks rows that are structurally not transactions (headers,
// blank lines) rather than malformed ones.
var errSkipRow = errors.New("not a transaction row")

const feedOrigin = "google_sheets"

// Columns of the transactions tab.
const (
	colID = iota
	colDate
	colAmount
	colDirection
	colCategory
	colEstablishment
	colNotes
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006"}

// parseTransactionRow turns one sheet row into a record. A negative amount
// implies an outflow when the direction column is empty.
func parseTransactionRow(cols []string) (core.TransactionRecord, error) {
	if len(cols) <= colAmount {
		return core.TransactionRecord{}, errSkipRow
	}

	date, err := parseDate(safeGet(cols, colDate))
	if err != nil {
		if safeGet(cols, colDate) == "" || looksLikeHeader(cols) {
			return core.TransactionRecord{}, errSkipRow
		}
		return core.TransactionRecord{}, err
	}

	raw := safeGet(cols, colAmount)
	direction := parseDirection(safeGet(cols, colDirection))
	if strings.HasPrefix(raw, "-") {
		raw = strings.TrimPrefix(raw, "-")
		if direction == "" {
			direction = core.Outflow
		}
	}
	if direction == "" {
		direction = core.Outflow
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("amount %q: %w", safeGet(cols, colAmount), err)
	}

	record := core.TransactionRecord{
		ID:                 safeGet(cols, colID),
		Date:               date,
		Amount:             amount,
		Direction:          direction,
		Category:           safeGet(cols, colCategory),
		EstablishmentLabel: safeGet(cols, colEstablishment),
		FreeText:           safeGet(cols, colNotes),
		Origin:             feedOrigin,
	}
	if err := record.Validate(); err != nil {
		return core.TransactionRecord{}, err
	}
	return record, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDirection(s string) core.Direction {
	switch strings.ToLower(s) {
	case "in", "inflow", "income", "credit":
		return core.Inflow
	case "out", "outflow", "expense", "debit":
		return core.Outflow
	default:
		return ""
	}
}

// looksLikeHeader reports rows whose amount column is non-numeric text, the
// usual shape of a header line.
func looksLikeHeader(cols []string) bool {
	if _, err := core.ParseAmount(safeGet(cols, colAmount)); err != nil {
		return true
	}
	return false
}

func safeGet(cols []string, idx int) string {
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return cols[idx]
}

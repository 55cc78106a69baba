package google

import (
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestParseTransactionRow(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want core.TransactionRecord
	}{
		{
			name: "full row",
			cols: []string{"tx-1", "2024-03-15", "12,50", "out", "groceries", "Esselunga", "weekly shop"},
			want: core.TransactionRecord{
				ID:                 "tx-1",
				Date:               time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				Amount:             core.Money{Cents: 1250},
				Direction:          core.Outflow,
				Category:           "groceries",
				EstablishmentLabel: "Esselunga",
				FreeText:           "weekly shop",
				Origin:             "google_sheets",
			},
		},
		{
			name: "negative amount implies outflow",
			cols: []string{"", "2024-03-02", "-45.00", "", "", "Enel", ""},
			want: core.TransactionRecord{
				Date:               time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				Amount:             core.Money{Cents: 4500},
				Direction:          core.Outflow,
				EstablishmentLabel: "Enel",
				Origin:             "google_sheets",
			},
		},
		{
			name: "income row with slash date",
			cols: []string{"", "27/03/2024", "1800", "in", "income", "ACME Srl", "salary"},
			want: core.TransactionRecord{
				Date:               time.Date(2024, 3, 27, 0, 0, 0, 0, time.UTC),
				Amount:             core.Money{Cents: 180000},
				Direction:          core.Inflow,
				Category:           "income",
				EstablishmentLabel: "ACME Srl",
				FreeText:           "salary",
				Origin:             "google_sheets",
			},
		},
		{
			name: "missing direction defaults to outflow",
			cols: []string{"", "2024-01-10", "9.99", "", "subscriptions", "Netflix", ""},
			want: core.TransactionRecord{
				Date:               time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				Amount:             core.Money{Cents: 999},
				Direction:          core.Outflow,
				Category:           "subscriptions",
				EstablishmentLabel: "Netflix",
				Origin:             "google_sheets",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTransactionRow(tt.cols)
			if err != nil {
				t.Fatalf("parseTransactionRow() error = %v", err)
			}
			if !got.Date.Equal(tt.want.Date) {
				t.Errorf("Date = %v, want %v", got.Date, tt.want.Date)
			}
			got.Date = tt.want.Date
			if got != tt.want {
				t.Errorf("parseTransactionRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseTransactionRow_SkipsNonDataRows(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{name: "header", cols: []string{"ID", "Date", "Amount", "Direction", "Category", "Establishment", "Notes"}},
		{name: "blank", cols: []string{"", "", "", "", "", "", ""}},
		{name: "too short", cols: []string{"tx-1", "2024-03-15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTransactionRow(tt.cols)
			if !errors.Is(err, errSkipRow) {
				t.Errorf("parseTransactionRow() error = %v, want errSkipRow", err)
			}
		})
	}
}

func TestParseTransactionRow_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{name: "bad date with numeric amount", cols: []string{"", "March 15", "12.50", "out", "", "", ""}},
		{name: "zero amount", cols: []string{"", "2024-03-15", "0", "out", "", "Bar", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTransactionRow(tt.cols)
			if err == nil || errors.Is(err, errSkipRow) {
				t.Errorf("parseTransactionRow() error = %v, want malformed-row error", err)
			}
		})
	}
}

// Package storage provides the SQLite repository behind the engine's storage
// ports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

var _ services.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := applyMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveCommitment upserts a commitment and its status overrides.
func (r *SQLiteRepository) SaveCommitment(ctx context.Context, userID string, c core.Commitment) error {
	row := commitmentRow{userID: userID}
	switch v := c.(type) {
	case core.FixedExpense:
		if err := v.Validate(); err != nil {
			return err
		}
		row.id, row.kind, row.name, row.category = v.ID, core.KindFixedExpense, v.Name, v.Category
		row.amountCents, row.active = v.MonthlyAmount.Cents, v.Active
		row.startDate, row.overrides = v.StartDate, v.Overrides
	case core.InstallmentObligation:
		if err := v.Validate(); err != nil {
			return err
		}
		row.id, row.kind, row.name, row.category = v.ID, core.KindInstallment, v.Name, v.Category
		row.amountCents, row.active = v.InstallmentAmount.Cents, v.Active
		row.startDate, row.overrides = v.FirstInstallmentDate, v.Overrides
		row.totalInstallments, row.paidInstallments = v.TotalInstallments, v.PaidInstallments
		row.interestRate = v.InterestRatePerMonth.String()
	case core.IncomeSource:
		if err := v.Validate(); err != nil {
			return err
		}
		row.id, row.kind, row.name = v.ID, core.KindIncome, v.Label
		row.amountCents, row.active = v.Amount.Cents, v.Active
		row.receiptDay, row.overrides = v.ReceiptDay, v.Overrides
	default:
		return fmt.Errorf("unsupported commitment type %T", c)
	}
	if row.interestRate == "" {
		row.interestRate = "0"
	}
	if row.receiptDay == 0 {
		row.receiptDay = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save commitment: %w", err)
	}
	defer tx.Rollback()

	var startDate any
	if !row.startDate.IsZero() {
		startDate = row.startDate.UTC().Format(dateLayout)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO commitments (id, user_id, kind, name, category, amount_cents, active,
			start_date, total_installments, paid_installments, interest_rate, receipt_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, category = excluded.category,
			amount_cents = excluded.amount_cents, active = excluded.active,
			start_date = excluded.start_date,
			total_installments = excluded.total_installments,
			paid_installments = excluded.paid_installments,
			interest_rate = excluded.interest_rate,
			receipt_day = excluded.receipt_day`,
		row.id, row.userID, string(row.kind), row.name, row.category, row.amountCents,
		row.active, startDate, row.totalInstallments, row.paidInstallments,
		row.interestRate, row.receiptDay)
	if err != nil {
		return fmt.Errorf("upsert commitment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM status_overrides WHERE commitment_id = ?", row.id); err != nil {
		return fmt.Errorf("clear status overrides: %w", err)
	}
	for period, status := range row.overrides {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO status_overrides (commitment_id, period, status) VALUES (?, ?, ?)",
			row.id, period, string(status)); err != nil {
			return fmt.Errorf("insert status override: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save commitment: %w", err)
	}

	slog.InfoContext(ctx, "Commitment saved", "id", row.id, "kind", row.kind, "user_id", userID)
	return nil
}

// DeleteCommitment removes a commitment and, via cascade, its overrides.
func (r *SQLiteRepository) DeleteCommitment(ctx context.Context, userID, commitmentID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM commitments WHERE id = ? AND user_id = ?", commitmentID, userID)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("commitment %s: %w", commitmentID, services.ErrNotFound)
	}
	return nil
}

type commitmentRow struct {
	id                string
	userID            string
	kind              core.CommitmentKind
	name              string
	category          string
	amountCents       int64
	active            bool
	startDate         time.Time
	totalInstallments int
	paidInstallments  int
	interestRate      string
	receiptDay        int
	overrides         core.StatusOverrides
}

func (r *SQLiteRepository) ListCommitments(ctx context.Context, userID string) ([]core.Commitment, error) {
	overrides, err := r.loadOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, name, category, amount_cents, active, start_date,
			total_installments, paid_installments, interest_rate, receipt_day
		FROM commitments WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query commitments: %w", err)
	}
	defer rows.Close()

	var out []core.Commitment
	for rows.Next() {
		var row commitmentRow
		var kind string
		var startDate sql.NullString
		if err := rows.Scan(&row.id, &kind, &row.name, &row.category, &row.amountCents,
			&row.active, &startDate, &row.totalInstallments, &row.paidInstallments,
			&row.interestRate, &row.receiptDay); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		if startDate.Valid {
			row.startDate, err = time.Parse(dateLayout, startDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse start date for %s: %w", row.id, err)
			}
		}
		commitment, err := row.toCommitment(core.CommitmentKind(kind), overrides[row.id])
		if err != nil {
			return nil, err
		}
		out = append(out, commitment)
	}
	return out, rows.Err()
}

func (row commitmentRow) toCommitment(kind core.CommitmentKind, overrides core.StatusOverrides) (core.Commitment, error) {
	switch kind {
	case core.KindFixedExpense:
		return core.FixedExpense{
			ID: row.id, Name: row.name, Category: row.category,
			MonthlyAmount: core.Money{Cents: row.amountCents},
			Active:        row.active, StartDate: row.startDate, Overrides: overrides,
		}, nil
	case core.KindInstallment:
		rate, err := decimal.NewFromString(row.interestRate)
		if err != nil {
			return nil, fmt.Errorf("parse interest rate for %s: %w", row.id, err)
		}
		return core.InstallmentObligation{
			ID: row.id, Name: row.name, Category: row.category,
			InstallmentAmount:    core.Money{Cents: row.amountCents},
			TotalInstallments:    row.totalInstallments,
			PaidInstallments:     row.paidInstallments,
			FirstInstallmentDate: row.startDate,
			Active:               row.active,
			InterestRatePerMonth: rate,
			Overrides:            overrides,
		}, nil
	case core.KindIncome:
		return core.IncomeSource{
			ID: row.id, Label: row.name,
			Amount: core.Money{Cents: row.amountCents},
			Active: row.active, ReceiptDay: row.receiptDay, Overrides: overrides,
		}, nil
	default:
		return nil, fmt.Errorf("unknown commitment kind %q", kind)
	}
}

func (r *SQLiteRepository) loadOverrides(ctx context.Context, userID string) (map[string]core.StatusOverrides, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.commitment_id, o.period, o.status
		FROM status_overrides o
		JOIN commitments c ON c.id = o.commitment_id
		WHERE c.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query status overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.StatusOverrides)
	for rows.Next() {
		var commitmentID, period, status string
		if err := rows.Scan(&commitmentID, &period, &status); err != nil {
			return nil, fmt.Errorf("scan status override: %w", err)
		}
		if out[commitmentID] == nil {
			out[commitmentID] = make(core.StatusOverrides)
		}
		out[commitmentID][period] = core.PeriodStatus(status)
	}
	return out, rows.Err()
}

// AddTransaction stores a record, assigning an ID when the caller left it
// empty, and returns the ID.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID string, t core.TransactionRecord) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, date, amount_cents, direction, category, establishment, free_text, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.Date.UTC().Format(dateLayout), t.Amount.Cents,
		string(t.Direction), t.Category, t.EstablishmentLabel, t.FreeText, t.Origin)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return t.ID, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]core.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, amount_cents, direction, category, establishment, free_text, origin
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date, id`,
		userID, from.UTC().Format(dateLayout), to.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionRecord
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, transactionID string) (core.TransactionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, amount_cents, direction, category, establishment, free_text, origin
		FROM transactions WHERE user_id = ? AND id = ?`, userID, transactionID)
	record, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionRecord{}, fmt.Errorf("transaction %s: %w", transactionID, services.ErrNotFound)
	}
	return record, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.TransactionRecord, error) {
	var t core.TransactionRecord
	var date, direction string
	if err := row.Scan(&t.ID, &date, &t.Amount.Cents, &direction, &t.Category,
		&t.EstablishmentLabel, &t.FreeText, &t.Origin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.TransactionRecord{}, err
		}
		return core.TransactionRecord{}, fmt.Errorf("scan transaction: %w", err)
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = parsed
	t.Direction = core.Direction(direction)
	return t, nil
}

func (r *SQLiteRepository) GetOrCreateBudget(ctx context.Context, userID string, p core.Period) (core.MonthlyBudget, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO monthly_budgets (user_id, month, year) VALUES (?, ?, ?)`,
		userID, p.Month, p.Year); err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("create budget row: %w", err)
	}

	budget := core.MonthlyBudget{UserID: userID, Period: p}
	err := r.db.QueryRowContext(ctx, `
		SELECT initial_balance_cents, manually_edited, savings_goal_cents
		FROM monthly_budgets WHERE user_id = ? AND month = ? AND year = ?`,
		userID, p.Month, p.Year).
		Scan(&budget.InitialBalance.Cents, &budget.ManuallyEdited, &budget.SavingsGoal.Cents)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("read budget row: %w", err)
	}
	return budget, nil
}

func (r *SQLiteRepository) UpsertInitialBalance(ctx context.Context, userID string, p core.Period, balance core.Money, manuallyEdited bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_budgets (user_id, month, year, initial_balance_cents, manually_edited)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			initial_balance_cents = excluded.initial_balance_cents,
			manually_edited = excluded.manually_edited`,
		userID, p.Month, p.Year, balance.Cents, manuallyEdited)
	if err != nil {
		return fmt.Errorf("upsert initial balance: %w", err)
	}
	return nil
}

// SetSavingsGoal stores a savings goal on the period's budget row.
func (r *SQLiteRepository) SetSavingsGoal(ctx context.Context, userID string, p core.Period, goal core.Money) error {
	if goal.IsNegative() {
		return core.ErrInvalidAmount
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_budgets (user_id, month, year, savings_goal_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			savings_goal_cents = excluded.savings_goal_cents`,
		userID, p.Month, p.Year, goal.Cents)
	if err != nil {
		return fmt.Errorf("upsert savings goal: %w", err)
	}
	return nil
}

// InsertReconciledEvent relies on the unique indexes over occurrence and
// transaction to enforce the at-most-one-link invariants atomically.
func (r *SQLiteRepository) InsertReconciledEvent(ctx context.Context, userID string, event core.ReconciledEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconciled_events (id, user_id, occurrence_id, transaction_id, confidence, note, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, userID, event.OccurrenceID, event.TransactionID,
		event.Confidence, event.Note, event.ConfirmedAt.UTC().Format(time.RFC3339))
	if err != nil {
		// UNIQUE violations name the index columns, not the index:
		// "UNIQUE constraint failed: reconciled_events.user_id,
		// reconciled_events.occurrence_id".
		switch {
		case strings.Contains(err.Error(), "reconciled_events.occurrence_id"):
			return services.ErrAlreadyReconciled
		case strings.Contains(err.Error(), "reconciled_events.transaction_id"):
			return services.ErrTransactionAlreadyLinked
		}
		return fmt.Errorf("insert reconciled event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteReconciledEvent(ctx context.Context, userID, eventID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM reconciled_events WHERE user_id = ? AND id = ?", userID, eventID)
	if err != nil {
		return fmt.Errorf("delete reconciled event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("reconciled event %s: %w", eventID, services.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListReconciledEvents(ctx context.Context, userID string) ([]core.ReconciledEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, occurrence_id, transaction_id, confidence, note, confirmed_at
		FROM reconciled_events WHERE user_id = ? ORDER BY confirmed_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reconciled events: %w", err)
	}
	defer rows.Close()

	var out []core.ReconciledEvent
	for rows.Next() {
		var event core.ReconciledEvent
		var confirmedAt string
		if err := rows.Scan(&event.ID, &event.OccurrenceID, &event.TransactionID,
			&event.Confidence, &event.Note, &confirmedAt); err != nil {
			return nil, fmt.Errorf("scan reconciled event: %w", err)
		}
		event.ConfirmedAt, err = time.Parse(time.RFC3339, confirmedAt)
		if err != nil {
			return nil, fmt.Errorf("parse confirmed_at: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_CommitmentRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rent := core.FixedExpense{
		ID:            "rent",
		Name:          "Rent",
		Category:      "housing",
		MonthlyAmount: core.Money{Cents: 80000},
		Active:        true,
		StartDate:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Overrides:     core.StatusOverrides{"2024-03": core.StatusNotApplicable},
	}
	laptop := core.InstallmentObligation{
		ID:                   "laptop",
		Name:                 "Laptop",
		Category:             "electronics",
		InstallmentAmount:    core.Money{Cents: 10000},
		TotalInstallments:    10,
		PaidInstallments:     4,
		FirstInstallmentDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Active:               true,
		InterestRatePerMonth: decimal.RequireFromString("0.015"),
	}
	salary := core.IncomeSource{
		ID:         "salary",
		Label:      "Salary",
		Amount:     core.Money{Cents: 200000},
		Active:     true,
		ReceiptDay: 27,
	}
	for _, c := range []core.Commitment{rent, laptop, salary} {
		if err := repo.SaveCommitment(ctx, "alice", c); err != nil {
			t.Fatalf("SaveCommitment(%s) error = %v", c.CommitmentID(), err)
		}
	}

	commitments, err := repo.ListCommitments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCommitments() error = %v", err)
	}
	if len(commitments) != 3 {
		t.Fatalf("ListCommitments() = %d commitments, want 3", len(commitments))
	}

	byID := make(map[string]core.Commitment, len(commitments))
	for _, c := range commitments {
		byID[c.CommitmentID()] = c
	}

	gotRent, ok := byID["rent"].(core.FixedExpense)
	if !ok {
		t.Fatalf("rent reloaded as %T, want FixedExpense", byID["rent"])
	}
	if gotRent.MonthlyAmount.Cents != 80000 || !gotRent.StartDate.Equal(rent.StartDate) {
		t.Errorf("rent = %+v, want amount 80000 on %s", gotRent, rent.StartDate)
	}
	if status, found := gotRent.ManualStatus(core.NewPeriod(3, 2024)); !found || status != core.StatusNotApplicable {
		t.Errorf("rent override = %v/%v, want not_applicable", status, found)
	}

	gotLaptop, ok := byID["laptop"].(core.InstallmentObligation)
	if !ok {
		t.Fatalf("laptop reloaded as %T, want InstallmentObligation", byID["laptop"])
	}
	if gotLaptop.PaidInstallments != 4 || gotLaptop.TotalInstallments != 10 {
		t.Errorf("laptop installments = %d/%d, want 4/10", gotLaptop.PaidInstallments, gotLaptop.TotalInstallments)
	}
	if !gotLaptop.InterestRatePerMonth.Equal(laptop.InterestRatePerMonth) {
		t.Errorf("laptop rate = %s, want %s", gotLaptop.InterestRatePerMonth, laptop.InterestRatePerMonth)
	}

	gotSalary, ok := byID["salary"].(core.IncomeSource)
	if !ok {
		t.Fatalf("salary reloaded as %T, want IncomeSource", byID["salary"])
	}
	if gotSalary.ReceiptDay != 27 || gotSalary.Amount.Cents != 200000 {
		t.Errorf("salary = %+v, want 200000 on day 27", gotSalary)
	}

	// Saving again replaces the row and its overrides, not duplicates them.
	rent.MonthlyAmount = core.Money{Cents: 85000}
	rent.Overrides = core.StatusOverrides{"2024-05": core.StatusPaid}
	if err := repo.SaveCommitment(ctx, "alice", rent); err != nil {
		t.Fatalf("SaveCommitment(update) error = %v", err)
	}
	commitments, err = repo.ListCommitments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCommitments() error = %v", err)
	}
	if len(commitments) != 3 {
		t.Fatalf("after update ListCommitments() = %d commitments, want 3", len(commitments))
	}
	for _, c := range commitments {
		updated, ok := c.(core.FixedExpense)
		if !ok || updated.ID != "rent" {
			continue
		}
		if updated.MonthlyAmount.Cents != 85000 {
			t.Errorf("updated rent cents = %d, want 85000", updated.MonthlyAmount.Cents)
		}
		if _, found := updated.ManualStatus(core.NewPeriod(3, 2024)); found {
			t.Error("stale override survived the update")
		}
		if status, found := updated.ManualStatus(core.NewPeriod(5, 2024)); !found || status != core.StatusPaid {
			t.Errorf("updated override = %v/%v, want paid", status, found)
		}
	}
}

func TestSQLiteRepository_DeleteCommitment(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveCommitment(ctx, "alice", core.IncomeSource{
		ID: "salary", Label: "Salary", Amount: core.Money{Cents: 200000}, Active: true,
	}); err != nil {
		t.Fatalf("SaveCommitment() error = %v", err)
	}

	if err := repo.DeleteCommitment(ctx, "alice", "salary"); err != nil {
		t.Fatalf("DeleteCommitment() error = %v", err)
	}
	commitments, err := repo.ListCommitments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListCommitments() error = %v", err)
	}
	if len(commitments) != 0 {
		t.Errorf("ListCommitments() = %d commitments after delete, want 0", len(commitments))
	}

	if err := repo.DeleteCommitment(ctx, "alice", "salary"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("repeat delete error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_BudgetUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	period := core.NewPeriod(3, 2024)

	budget, err := repo.GetOrCreateBudget(ctx, "alice", period)
	if err != nil {
		t.Fatalf("GetOrCreateBudget() error = %v", err)
	}
	if !budget.InitialBalance.IsZero() || budget.ManuallyEdited {
		t.Errorf("fresh budget = %+v, want zero unpinned balance", budget)
	}

	if err := repo.SetSavingsGoal(ctx, "alice", period, core.Money{Cents: 50000}); err != nil {
		t.Fatalf("SetSavingsGoal() error = %v", err)
	}
	// Writing the balance must not clobber the goal, and vice versa.
	if err := repo.UpsertInitialBalance(ctx, "alice", period, core.Money{Cents: 120000}, true); err != nil {
		t.Fatalf("UpsertInitialBalance() error = %v", err)
	}

	budget, err = repo.GetOrCreateBudget(ctx, "alice", period)
	if err != nil {
		t.Fatalf("GetOrCreateBudget() error = %v", err)
	}
	if budget.InitialBalance.Cents != 120000 || !budget.ManuallyEdited {
		t.Errorf("budget = %+v, want pinned 120000", budget)
	}
	if budget.SavingsGoal.Cents != 50000 {
		t.Errorf("savings goal = %d, want 50000", budget.SavingsGoal.Cents)
	}

	if err := repo.UpsertInitialBalance(ctx, "alice", period, core.Money{Cents: 90000}, false); err != nil {
		t.Fatalf("UpsertInitialBalance(overwrite) error = %v", err)
	}
	budget, err = repo.GetOrCreateBudget(ctx, "alice", period)
	if err != nil {
		t.Fatalf("GetOrCreateBudget() error = %v", err)
	}
	if budget.InitialBalance.Cents != 90000 || budget.ManuallyEdited {
		t.Errorf("budget = %+v, want unpinned 90000", budget)
	}

	if err := repo.SetSavingsGoal(ctx, "alice", period, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative goal error = %v, want ErrInvalidAmount", err)
	}
}

func TestSQLiteRepository_ConfirmExclusivity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	confirmedAt := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

	first := core.ReconciledEvent{
		ID:            "evt-1",
		OccurrenceID:  "rent:2024-03",
		TransactionID: "txn-1",
		Confidence:    92,
		ConfirmedAt:   confirmedAt,
	}
	if err := repo.InsertReconciledEvent(ctx, "alice", first); err != nil {
		t.Fatalf("InsertReconciledEvent() error = %v", err)
	}

	dupOccurrence := core.ReconciledEvent{
		ID:            "evt-2",
		OccurrenceID:  "rent:2024-03",
		TransactionID: "txn-2",
		Confidence:    70,
		ConfirmedAt:   confirmedAt,
	}
	if err := repo.InsertReconciledEvent(ctx, "alice", dupOccurrence); !errors.Is(err, services.ErrAlreadyReconciled) {
		t.Errorf("duplicate occurrence error = %v, want ErrAlreadyReconciled", err)
	}

	dupTransaction := core.ReconciledEvent{
		ID:            "evt-3",
		OccurrenceID:  "internet:2024-03",
		TransactionID: "txn-1",
		Confidence:    70,
		ConfirmedAt:   confirmedAt,
	}
	if err := repo.InsertReconciledEvent(ctx, "alice", dupTransaction); !errors.Is(err, services.ErrTransactionAlreadyLinked) {
		t.Errorf("duplicate transaction error = %v, want ErrTransactionAlreadyLinked", err)
	}

	// Another user's links do not collide.
	bobEvent := first
	bobEvent.ID = "evt-bob"
	if err := repo.InsertReconciledEvent(ctx, "bob", bobEvent); err != nil {
		t.Errorf("other user insert error = %v", err)
	}

	// Unreconciling frees both sides for a new link.
	if err := repo.DeleteReconciledEvent(ctx, "alice", "evt-1"); err != nil {
		t.Fatalf("DeleteReconciledEvent() error = %v", err)
	}
	if err := repo.InsertReconciledEvent(ctx, "alice", dupOccurrence); err != nil {
		t.Errorf("insert after unreconcile error = %v", err)
	}

	if err := repo.DeleteReconciledEvent(ctx, "alice", "evt-1"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("repeat delete error = %v, want ErrNotFound", err)
	}

	events, err := repo.ListReconciledEvents(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReconciledEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-2" {
		t.Errorf("events = %+v, want exactly evt-2", events)
	}
	if !events[0].ConfirmedAt.Equal(confirmedAt) {
		t.Errorf("confirmed at = %s, want %s", events[0].ConfirmedAt, confirmedAt)
	}
}

func TestSQLiteRepository_TransactionWindow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if _, err := repo.AddTransaction(ctx, "alice", core.TransactionRecord{
			Date:      d,
			Amount:    core.Money{Cents: 1000},
			Direction: core.Outflow,
			Origin:    "manual",
		}); err != nil {
			t.Fatalf("AddTransaction(%s) error = %v", d, err)
		}
	}

	period := core.NewPeriod(3, 2024)
	records, err := repo.ListTransactions(ctx, "alice", period.Start(), period.End())
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListTransactions() = %d records, want 2 (half-open window)", len(records))
	}
	if !records[0].Date.Equal(dates[1]) || !records[1].Date.Equal(dates[2]) {
		t.Errorf("window = %s..%s, want %s..%s", records[0].Date, records[1].Date, dates[1], dates[2])
	}

	got, err := repo.GetTransaction(ctx, "alice", records[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Amount.Cents != 1000 || got.Direction != core.Outflow {
		t.Errorf("GetTransaction() = %+v, want 1000 outflow", got)
	}

	if _, err := repo.GetTransaction(ctx, "alice", "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("unknown transaction error = %v, want ErrNotFound", err)
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"bilancio/internal/core"
)

// DefaultCascadeHorizon bounds how many periods a single balance edit may
// rewrite.
const DefaultCascadeHorizon = 12

// Cascade maintains the invariant chain of monthly balances: for every
// unpinned period between an edited one and the stop point,
// initialBalance(p+1) == finalBalance(p) exactly.
type Cascade struct {
	budgets      BudgetStore
	transactions TransactionReader
	horizon      int

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewCascade(budgets BudgetStore, transactions TransactionReader, horizon int) *Cascade {
	if horizon <= 0 {
		horizon = DefaultCascadeHorizon
	}
	return &Cascade{
		budgets:      budgets,
		transactions: transactions,
		horizon:      horizon,
		locks:        make(map[string]*semaphore.Weighted),
	}
}

// userLock returns the per-user advisory lock, creating it on first use.
// Cascades for one user are serialized; different users never contend.
func (c *Cascade) userLock(userID string) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[userID]
	if !ok {
		lock = semaphore.NewWeighted(1)
		c.locks[userID] = lock
	}
	return lock
}

// SetInitialBalance pins the period's initial balance and walks forward,
// recomputing finalBalance(p) = initialBalance(p) + actualIncome(p) -
// actualExpenses(p) and carrying it into the next period's initial balance.
// The walk stops at the first manually edited period (left untouched) or
// after the horizon. A failed intermediate write aborts the walk and is
// reported as a *CascadeError; earlier writes remain committed.
func (c *Cascade) SetInitialBalance(ctx context.Context, userID string, p core.Period, value core.Money) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("empty user id")
	}

	lock := c.userLock(userID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire cascade lock: %w", err)
	}
	defer lock.Release(1)

	if err := c.budgets.UpsertInitialBalance(ctx, userID, p, value, true); err != nil {
		return fmt.Errorf("write edited period %s: %w", p, err)
	}

	slog.InfoContext(ctx, "Balance cascade started",
		"user_id", userID,
		"period", p.String(),
		"initial_balance", value.String())

	current, balance := p, value
	lastWritten := p
	for step := 0; step < c.horizon; step++ {
		next := current.Next()

		nextBudget, err := c.budgets.GetOrCreateBudget(ctx, userID, next)
		if err != nil {
			return &CascadeError{Failed: next, LastWritten: lastWritten, Err: err}
		}
		if nextBudget.ManuallyEdited {
			slog.InfoContext(ctx, "Balance cascade stopped at pinned period",
				"user_id", userID, "period", next.String())
			return nil
		}

		final, err := c.finalBalance(ctx, userID, current, balance)
		if err != nil {
			return &CascadeError{Failed: next, LastWritten: lastWritten, Err: err}
		}
		if err := c.budgets.UpsertInitialBalance(ctx, userID, next, final, false); err != nil {
			return &CascadeError{Failed: next, LastWritten: lastWritten, Err: err}
		}

		current, balance = next, final
		lastWritten = next
	}

	slog.InfoContext(ctx, "Balance cascade completed",
		"user_id", userID,
		"from", p.String(),
		"to", lastWritten.String())
	return nil
}

// finalBalance computes a period's closing balance from its initial balance
// and the actual transactions dated inside it.
func (c *Cascade) finalBalance(ctx context.Context, userID string, p core.Period, initial core.Money) (core.Money, error) {
	income, expenses, err := actualTotals(ctx, c.transactions, userID, p)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions for %s: %w", p, err)
	}
	return initial.Add(income).Sub(expenses), nil
}

// actualTotals sums inflows and outflows recorded inside the period.
func actualTotals(ctx context.Context, reader TransactionReader, userID string, p core.Period) (income, expenses core.Money, err error) {
	records, err := reader.ListTransactions(ctx, userID, p.Start(), p.End())
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	for _, record := range records {
		switch record.Direction {
		case core.Inflow:
			income = income.Add(record.Amount)
		case core.Outflow:
			expenses = expenses.Add(record.Amount)
		}
	}
	return income, expenses, nil
}

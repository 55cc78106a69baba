// Package memory provides an in-memory repository. It backs tests and the
// zero-configuration backend; semantics mirror the SQLite repository,
// including the at-most-one-link-per-transaction constraint.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type Store struct {
	mu           sync.Mutex
	commitments  map[string][]core.Commitment
	transactions map[string][]core.TransactionRecord
	budgets      map[string]core.MonthlyBudget
	events       map[string][]core.ReconciledEvent
}

var _ services.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		commitments:  make(map[string][]core.Commitment),
		transactions: make(map[string][]core.TransactionRecord),
		budgets:      make(map[string]core.MonthlyBudget),
		events:       make(map[string][]core.ReconciledEvent),
	}
}

func budgetKey(userID string, p core.Period) string {
	return userID + "|" + p.Key()
}

// AddCommitment registers a commitment for the user.
func (s *Store) AddCommitment(userID string, c core.Commitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[userID] = append(s.commitments[userID], c)
}

// SaveCommitment validates and upserts a commitment by ID.
func (s *Store) SaveCommitment(_ context.Context, userID string, c core.Commitment) error {
	if err := validateCommitment(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.commitments[userID]
	for i, e := range existing {
		if e.CommitmentID() == c.CommitmentID() {
			existing[i] = c
			return nil
		}
	}
	s.commitments[userID] = append(existing, c)
	return nil
}

// DeleteCommitment removes a commitment, ErrNotFound when absent.
func (s *Store) DeleteCommitment(_ context.Context, userID, commitmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.commitments[userID]
	for i, e := range existing {
		if e.CommitmentID() == commitmentID {
			s.commitments[userID] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("commitment %s: %w", commitmentID, services.ErrNotFound)
}

func validateCommitment(c core.Commitment) error {
	switch v := c.(type) {
	case core.FixedExpense:
		return v.Validate()
	case core.InstallmentObligation:
		return v.Validate()
	case core.IncomeSource:
		return v.Validate()
	default:
		return fmt.Errorf("unsupported commitment type %T", c)
	}
}

// AddTransaction stores a record, assigning an ID when the caller left it
// empty, and returns the ID.
func (s *Store) AddTransaction(_ context.Context, userID string, t core.TransactionRecord) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[userID] = append(s.transactions[userID], t)
	return t.ID, nil
}

// SetSavingsGoal stores a savings goal on the period's budget row.
func (s *Store) SetSavingsGoal(_ context.Context, userID string, p core.Period, goal core.Money) error {
	if goal.IsNegative() {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey(userID, p)
	budget, ok := s.budgets[key]
	if !ok {
		budget = core.MonthlyBudget{UserID: userID, Period: p}
	}
	budget.SavingsGoal = goal
	s.budgets[key] = budget
	return nil
}

func (s *Store) ListCommitments(_ context.Context, userID string) ([]core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Commitment(nil), s.commitments[userID]...), nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, from, to time.Time) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TransactionRecord
	for _, t := range s.transactions[userID] {
		if !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, transactionID string) (core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions[userID] {
		if t.ID == transactionID {
			return t, nil
		}
	}
	return core.TransactionRecord{}, fmt.Errorf("transaction %s: %w", transactionID, services.ErrNotFound)
}

func (s *Store) GetOrCreateBudget(_ context.Context, userID string, p core.Period) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey(userID, p)
	if budget, ok := s.budgets[key]; ok {
		return budget, nil
	}
	budget := core.MonthlyBudget{UserID: userID, Period: p}
	s.budgets[key] = budget
	return budget, nil
}

func (s *Store) UpsertInitialBalance(_ context.Context, userID string, p core.Period, balance core.Money, manuallyEdited bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey(userID, p)
	budget, ok := s.budgets[key]
	if !ok {
		budget = core.MonthlyBudget{UserID: userID, Period: p}
	}
	budget.InitialBalance = balance
	budget.ManuallyEdited = manuallyEdited
	s.budgets[key] = budget
	return nil
}

func (s *Store) InsertReconciledEvent(_ context.Context, userID string, event core.ReconciledEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events[userID] {
		if existing.OccurrenceID == event.OccurrenceID {
			return services.ErrAlreadyReconciled
		}
		if existing.TransactionID == event.TransactionID {
			return services.ErrTransactionAlreadyLinked
		}
	}
	s.events[userID] = append(s.events[userID], event)
	return nil
}

func (s *Store) DeleteReconciledEvent(_ context.Context, userID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[userID]
	for i, ev := range events {
		if ev.ID == eventID {
			s.events[userID] = append(events[:i], events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("reconciled event %s: %w", eventID, services.ErrNotFound)
}

func (s *Store) ListReconciledEvents(_ context.Context, userID string) ([]core.ReconciledEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ReconciledEvent(nil), s.events[userID]...), nil
}

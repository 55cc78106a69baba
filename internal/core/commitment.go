package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindFixedExpense CommitmentKind = "fixed_expense"
	KindInstallment  CommitmentKind = "installment"
	KindIncome       CommitmentKind = "income"
)

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

const (
	StatusPaid          PeriodStatus = "paid"
	StatusPending       PeriodStatus = "pending"
	StatusLate          PeriodStatus = "late"
	StatusNotApplicable PeriodStatus = "not_applicable"
)

type (
	CommitmentKind string
	Direction      string
	PeriodStatus   string

	// StatusOverrides maps a period key ("YYYY-MM") to a manually assigned
	// status. A manual override always wins over inferred status.
	StatusOverrides map[string]PeriodStatus

	// CommitmentOccurrence is the instance of a commitment expected within
	// one specific period.
	CommitmentOccurrence struct {
		OccurrenceID      string
		CommitmentID      string
		Kind              CommitmentKind
		Name              string
		Category          string
		Amount            Money
		Direction         Direction
		ExpectedDate      time.Time
		InstallmentIndex  int // 1-based, installments only
		TotalInstallments int // installments only
	}

	// FixedExpense is a recurring monthly outflow of a constant amount.
	FixedExpense struct {
		ID            string
		Name          string
		Category      string
		MonthlyAmount Money
		Active        bool
		StartDate     time.Time
		Overrides     StatusOverrides
	}

	// InstallmentObligation is a financing plan paid in a fixed number of
	// monthly installments, optionally accruing monthly interest on the
	// outstanding amount.
	InstallmentObligation struct {
		ID                   string
		Name                 string
		Category             string
		InstallmentAmount    Money
		TotalInstallments    int
		PaidInstallments     int
		FirstInstallmentDate time.Time
		Active               bool
		InterestRatePerMonth decimal.Decimal // zero means no interest
		Overrides            StatusOverrides
	}

	// IncomeSource is a recurring monthly inflow.
	IncomeSource struct {
		ID         string
		Label      string
		Amount     Money
		Active     bool
		ReceiptDay int // day of month the income is expected, defaults to 1
		Overrides  StatusOverrides
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidInstallments = errors.New("total installments must be positive")
	ErrInvalidStartDate    = errors.New("start date cannot be zero")
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusLate, StatusNotApplicable:
		return true
	default:
		return false
	}
}

func (d Direction) Valid() bool {
	return d == Inflow || d == Outflow
}

// Commitment is the normalized view over the three commitment kinds. Each
// kind exposes a per-period occurrence predicate through OccurrenceIn.
type Commitment interface {
	CommitmentID() string
	CommitmentKind() CommitmentKind
	IsActive() bool

	// OccurrenceIn returns the commitment's occurrence for the period, or
	// false when the commitment does not occur in it. Pure: depends only on
	// commitment state and the period.
	OccurrenceIn(p Period) (CommitmentOccurrence, bool)

	// ManualStatus returns the manual override for the period, if any.
	ManualStatus(p Period) (PeriodStatus, bool)
}

// OccurrenceID builds the deterministic identity of a commitment's occurrence
// in a period: "<commitmentID>:<YYYY-MM>".
func OccurrenceID(commitmentID string, p Period) string {
	return commitmentID + ":" + p.Key()
}

// ParseOccurrenceID splits an occurrence ID back into commitment ID and
// period.
func ParseOccurrenceID(id string) (string, Period, error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 || i == len(id)-1 {
		return "", Period{}, fmt.Errorf("malformed occurrence id %q", id)
	}
	p, err := ParsePeriodKey(id[i+1:])
	if err != nil {
		return "", Period{}, fmt.Errorf("malformed occurrence id %q: %w", id, err)
	}
	return id[:i], p, nil
}

func (o StatusOverrides) lookup(p Period) (PeriodStatus, bool) {
	if o == nil {
		return "", false
	}
	s, ok := o[p.Key()]
	return s, ok
}

// FixedExpense

func (f FixedExpense) CommitmentID() string           { return f.ID }
func (f FixedExpense) CommitmentKind() CommitmentKind { return KindFixedExpense }
func (f FixedExpense) IsActive() bool                 { return f.Active }

func (f FixedExpense) ManualStatus(p Period) (PeriodStatus, bool) {
	return f.Overrides.lookup(p)
}

// OccurrenceIn reports a fixed expense for every period from its start date
// onward, due on the start date's day of month (clamped).
func (f FixedExpense) OccurrenceIn(p Period) (CommitmentOccurrence, bool) {
	if !f.Active {
		return CommitmentOccurrence{}, false
	}
	if !f.StartDate.IsZero() && p.Before(PeriodOf(f.StartDate)) {
		return CommitmentOccurrence{}, false
	}
	day := 1
	if !f.StartDate.IsZero() {
		day = f.StartDate.Day()
	}
	return CommitmentOccurrence{
		OccurrenceID: OccurrenceID(f.ID, p),
		CommitmentID: f.ID,
		Kind:         KindFixedExpense,
		Name:         f.Name,
		Category:     f.Category,
		Amount:       f.MonthlyAmount,
		Direction:    Outflow,
		ExpectedDate: p.DateAt(day),
	}, true
}

func (f FixedExpense) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(f.Category) == "" {
		return ErrEmptyCategory
	}
	if err := f.MonthlyAmount.Validate(); err != nil {
		return err
	}
	if f.StartDate.IsZero() {
		return ErrInvalidStartDate
	}
	return nil
}

// InstallmentObligation

func (i InstallmentObligation) CommitmentID() string           { return i.ID }
func (i InstallmentObligation) CommitmentKind() CommitmentKind { return KindInstallment }
func (i InstallmentObligation) IsActive() bool                 { return i.Active }

func (i InstallmentObligation) ManualStatus(p Period) (PeriodStatus, bool) {
	return i.Overrides.lookup(p)
}

// installmentIndex returns the 1-based installment number due in p, or false
// when p falls outside the [first, first+total) window. Payment progress does
// not affect the window: a user who fell behind still sees the obligation.
func (i InstallmentObligation) installmentIndex(p Period) (int, bool) {
	elapsed := p.MonthsSince(PeriodOf(i.FirstInstallmentDate))
	if elapsed < 0 || elapsed >= i.TotalInstallments {
		return 0, false
	}
	return elapsed + 1, true
}

func (i InstallmentObligation) OccurrenceIn(p Period) (CommitmentOccurrence, bool) {
	if !i.Active {
		return CommitmentOccurrence{}, false
	}
	idx, ok := i.installmentIndex(p)
	if !ok {
		return CommitmentOccurrence{}, false
	}
	return CommitmentOccurrence{
		OccurrenceID:      OccurrenceID(i.ID, p),
		CommitmentID:      i.ID,
		Kind:              KindInstallment,
		Name:              i.Name,
		Category:          i.Category,
		Amount:            i.InstallmentAmount,
		Direction:         Outflow,
		ExpectedDate:      p.DateAt(i.FirstInstallmentDate.Day()),
		InstallmentIndex:  idx,
		TotalInstallments: i.TotalInstallments,
	}, true
}

// RemainingInstallments counts installments not yet paid.
func (i InstallmentObligation) RemainingInstallments() int {
	remaining := i.TotalInstallments - i.PaidInstallments
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OutstandingAmount is the sum of unpaid installments, compounded monthly at
// the obligation's interest rate when one is set.
func (i InstallmentObligation) OutstandingAmount() Money {
	remaining := i.RemainingInstallments()
	if remaining == 0 {
		return Money{}
	}
	if i.InterestRatePerMonth.IsZero() {
		return i.InstallmentAmount.MulInt(remaining)
	}
	total := decimal.Zero
	for n := 0; n < remaining; n++ {
		total = total.Add(i.InstallmentAmount.CompoundMonthly(i.InterestRatePerMonth, n).Decimal())
	}
	return Money{Cents: total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}
}

// TotalPayable is the nominal cost of the whole plan, ignoring interest.
func (i InstallmentObligation) TotalPayable() Money {
	return i.InstallmentAmount.MulInt(i.TotalInstallments)
}

func (i InstallmentObligation) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(i.Category) == "" {
		return ErrEmptyCategory
	}
	if err := i.InstallmentAmount.Validate(); err != nil {
		return err
	}
	if i.TotalInstallments <= 0 {
		return ErrInvalidInstallments
	}
	if i.PaidInstallments < 0 || i.PaidInstallments > i.TotalInstallments {
		return fmt.Errorf("paid installments %d outside [0,%d]", i.PaidInstallments, i.TotalInstallments)
	}
	if i.FirstInstallmentDate.IsZero() {
		return ErrInvalidStartDate
	}
	if i.InterestRatePerMonth.IsNegative() {
		return errors.New("negative interest rate")
	}
	return nil
}

// IncomeSource

func (s IncomeSource) CommitmentID() string           { return s.ID }
func (s IncomeSource) CommitmentKind() CommitmentKind { return KindIncome }
func (s IncomeSource) IsActive() bool                 { return s.Active }

func (s IncomeSource) ManualStatus(p Period) (PeriodStatus, bool) {
	return s.Overrides.lookup(p)
}

func (s IncomeSource) OccurrenceIn(p Period) (CommitmentOccurrence, bool) {
	if !s.Active {
		return CommitmentOccurrence{}, false
	}
	day := s.ReceiptDay
	if day < 1 {
		day = 1
	}
	return CommitmentOccurrence{
		OccurrenceID: OccurrenceID(s.ID, p),
		CommitmentID: s.ID,
		Kind:         KindIncome,
		Name:         s.Label,
		Category:     "income",
		Amount:       s.Amount,
		Direction:    Inflow,
		ExpectedDate: p.DateAt(day),
	}, true
}

func (s IncomeSource) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return ErrEmptyName
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if s.ReceiptDay < 0 || s.ReceiptDay > 31 {
		return errors.New("receipt day outside [0,31]")
	}
	return nil
}

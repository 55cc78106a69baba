package core

import (
	"errors"
	"time"
)

const (
	ProjectionPositive  ProjectionStatus = "positive"
	ProjectionAttention ProjectionStatus = "attention"
	ProjectionDeficit   ProjectionStatus = "deficit"
)

const (
	AlertDeficit     AlertKind = "deficit"
	AlertAttention   AlertKind = "attention"
	AlertSavingsGoal AlertKind = "savings_goal"
)

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
)

type (
	ProjectionStatus string
	AlertKind        string
	AlertPriority    string

	// MonthlyBudget is the persisted balance anchor for one (user, period).
	// ManuallyEdited pins InitialBalance against cascade overwrite.
	MonthlyBudget struct {
		UserID         string
		Period         Period
		InitialBalance Money
		ManuallyEdited bool
		SavingsGoal    Money
	}

	// ReconciledEvent is a confirmed link between an expected occurrence and
	// an actual transaction. Created only by explicit user confirmation and
	// never updated in place; re-confirming deletes and recreates, keeping
	// the confidence recorded at confirmation time as an audit trail.
	ReconciledEvent struct {
		ID            string
		OccurrenceID  string
		TransactionID string
		Confidence    int // 0-100 at confirmation time
		Note          string
		ConfirmedAt   time.Time
	}

	// Alert is derived data, recomputed on every projection call.
	Alert struct {
		Period   Period
		Kind     AlertKind
		Priority AlertPriority
		Message  string
	}

	// ProjectionResult is the derived monthly outlook. For historical
	// periods actual income/expenses from transaction records are exposed
	// side by side with the expectations; HasActuals marks them valid.
	ProjectionResult struct {
		Period           Period
		ExpectedIncome   Money
		ExpectedExpenses Money
		InitialBalance   Money
		ProjectedBalance Money
		Status           ProjectionStatus
		ActualIncome     Money
		ActualExpenses   Money
		HasActuals       bool
		Alerts           []Alert
	}

	// ObligationSummary is the dashboard view of one installment plan.
	ObligationSummary struct {
		CommitmentID          string
		Name                  string
		PaidInstallments      int
		TotalInstallments     int
		RemainingInstallments int
		Outstanding           Money
		TotalPayable          Money
	}
)

func (b MonthlyBudget) Validate() error {
	if b.UserID == "" {
		return errors.New("empty user id")
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.SavingsGoal.IsNegative() {
		return errors.New("negative savings goal")
	}
	return nil
}

func (e ReconciledEvent) Validate() error {
	if e.OccurrenceID == "" {
		return errors.New("empty occurrence id")
	}
	if e.TransactionID == "" {
		return errors.New("empty transaction id")
	}
	if e.Confidence < 0 || e.Confidence > 100 {
		return errors.New("confidence outside [0,100]")
	}
	return nil
}

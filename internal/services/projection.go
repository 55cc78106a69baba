package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
)

// MaxProjectionRange bounds ProjectRange requests.
const MaxProjectionRange = 60

// Projector aggregates commitment occurrences and actual transactions into
// per-period income/expense/balance views with status classification and
// derived alerts. Results are recomputed on every call, never persisted.
type Projector struct {
	repo Repository
	now  func() time.Time
}

func NewProjector(repo Repository, now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{repo: repo, now: now}
}

// Project computes the outlook for a single period.
func (pr *Projector) Project(ctx context.Context, userID string, p core.Period) (core.ProjectionResult, error) {
	if err := p.Validate(); err != nil {
		return core.ProjectionResult{}, err
	}
	commitments, err := pr.repo.ListCommitments(ctx, userID)
	if err != nil {
		return core.ProjectionResult{}, fmt.Errorf("list commitments: %w", err)
	}
	return pr.project(ctx, userID, p, NewCatalog(commitments))
}

// ProjectRange computes count consecutive periods starting at start. Periods
// are computed concurrently but published all-or-nothing: callers see the
// full range or an error, never a partial result.
func (pr *Projector) ProjectRange(ctx context.Context, userID string, start core.Period, count int) ([]core.ProjectionResult, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if count < 1 || count > MaxProjectionRange {
		return nil, fmt.Errorf("projection range %d outside [1,%d]", count, MaxProjectionRange)
	}
	commitments, err := pr.repo.ListCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	catalog := NewCatalog(commitments)

	results := make([]core.ProjectionResult, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			result, err := pr.project(gctx, userID, start.AddMonths(i), catalog)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *Projector) project(ctx context.Context, userID string, p core.Period, catalog *Catalog) (core.ProjectionResult, error) {
	budget, err := pr.repo.GetOrCreateBudget(ctx, userID, p)
	if err != nil {
		return core.ProjectionResult{}, fmt.Errorf("budget for %s: %w", p, err)
	}

	var expectedIncome, expectedExpenses core.Money
	for _, occ := range catalog.OccurrencesFor(p) {
		switch occ.Kind {
		case core.KindIncome:
			expectedIncome = expectedIncome.Add(occ.Amount)
		case core.KindFixedExpense, core.KindInstallment:
			expectedExpenses = expectedExpenses.Add(occ.Amount)
		}
	}

	result := core.ProjectionResult{
		Period:           p,
		ExpectedIncome:   expectedIncome,
		ExpectedExpenses: expectedExpenses,
		InitialBalance:   budget.InitialBalance,
		ProjectedBalance: budget.InitialBalance.Add(expectedIncome).Sub(expectedExpenses),
	}
	result.Status = classify(result.ProjectedBalance, expectedIncome)

	if !p.After(core.PeriodOf(pr.now())) {
		income, expenses, err := actualTotals(ctx, pr.repo, userID, p)
		if err != nil {
			return core.ProjectionResult{}, fmt.Errorf("actual totals for %s: %w", p, err)
		}
		result.ActualIncome = income
		result.ActualExpenses = expenses
		result.HasActuals = true
	}

	result.Alerts = buildAlerts(result, budget.SavingsGoal)
	return result, nil
}

// classify applies the margin rule exactly: deficit below zero, attention when
// the balance is non-negative but under 20% of expected income, positive
// otherwise.
func classify(projected, expectedIncome core.Money) core.ProjectionStatus {
	if projected.IsNegative() {
		return core.ProjectionDeficit
	}
	if projected.Cents*5 < expectedIncome.Cents {
		return core.ProjectionAttention
	}
	return core.ProjectionPositive
}

func buildAlerts(result core.ProjectionResult, savingsGoal core.Money) []core.Alert {
	var alerts []core.Alert
	switch result.Status {
	case core.ProjectionDeficit:
		alerts = append(alerts, core.Alert{
			Period:   result.Period,
			Kind:     core.AlertDeficit,
			Priority: core.PriorityHigh,
			Message:  fmt.Sprintf("projected balance %s is negative", result.ProjectedBalance),
		})
	case core.ProjectionAttention:
		alerts = append(alerts, core.Alert{
			Period:   result.Period,
			Kind:     core.AlertAttention,
			Priority: core.PriorityMedium,
			Message:  fmt.Sprintf("projected balance %s is under 20%% of expected income %s", result.ProjectedBalance, result.ExpectedIncome),
		})
	}
	if savingsGoal.Cents > 0 && result.ProjectedBalance.Cents < savingsGoal.Cents {
		alerts = append(alerts, core.Alert{
			Period:   result.Period,
			Kind:     core.AlertSavingsGoal,
			Priority: core.PriorityMedium,
			Message:  fmt.Sprintf("projected balance %s misses savings goal %s", result.ProjectedBalance, savingsGoal),
		})
	}
	return alerts
}

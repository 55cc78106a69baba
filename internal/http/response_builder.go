// JSON response construction and service error to status code mapping.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// JSONResponseBuilder provides a fluent API for building API responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Body(payload any) *JSONResponseBuilder {
	b.payload = payload
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response. Encoding failures fall back to a plain 500
// since headers are already committed after the first byte.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

// ErrorResponse builds an error envelope with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorPayload{Error: message})
}

// serviceErrorResponse maps engine errors onto API statuses: missing entities
// are 404, reconciliation conflicts 409, validation failures 422 and cascade
// failures 500 with the failed period attached.
func serviceErrorResponse(err error) *JSONResponseBuilder {
	var cascadeErr *services.CascadeError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyReconciled),
		errors.Is(err, services.ErrTransactionAlreadyLinked):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.As(err, &cascadeErr):
		return NewJSONResponse().
			Status(http.StatusInternalServerError).
			Body(struct {
				Error        string `json:"error"`
				FailedPeriod string `json:"failed_period"`
				LastWritten  string `json:"last_written,omitempty"`
			}{
				Error:        cascadeErr.Error(),
				FailedPeriod: cascadeErr.Failed.Key(),
				LastWritten:  cascadeErr.LastWritten.Key(),
			})
	case errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrInvalidAmount):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	default:
		return ErrorResponse(http.StatusInternalServerError, err.Error())
	}
}

// API payload shapes. Amounts are carried both as integer cents and as a
// formatted decimal string.

type moneyPayload struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func toMoneyPayload(m core.Money) moneyPayload {
	return moneyPayload{Cents: m.Cents, Amount: m.String()}
}

type alertPayload struct {
	Period   string `json:"period"`
	Kind     string `json:"kind"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

type projectionPayload struct {
	Period           string         `json:"period"`
	ExpectedIncome   moneyPayload   `json:"expected_income"`
	ExpectedExpenses moneyPayload   `json:"expected_expenses"`
	InitialBalance   moneyPayload   `json:"initial_balance"`
	ProjectedBalance moneyPayload   `json:"projected_balance"`
	Status           string         `json:"status"`
	ActualIncome     *moneyPayload  `json:"actual_income,omitempty"`
	ActualExpenses   *moneyPayload  `json:"actual_expenses,omitempty"`
	Alerts           []alertPayload `json:"alerts"`
}

func toProjectionPayload(r core.ProjectionResult) projectionPayload {
	p := projectionPayload{
		Period:           r.Period.Key(),
		ExpectedIncome:   toMoneyPayload(r.ExpectedIncome),
		ExpectedExpenses: toMoneyPayload(r.ExpectedExpenses),
		InitialBalance:   toMoneyPayload(r.InitialBalance),
		ProjectedBalance: toMoneyPayload(r.ProjectedBalance),
		Status:           string(r.Status),
		Alerts:           make([]alertPayload, 0, len(r.Alerts)),
	}
	if r.HasActuals {
		income := toMoneyPayload(r.ActualIncome)
		expenses := toMoneyPayload(r.ActualExpenses)
		p.ActualIncome = &income
		p.ActualExpenses = &expenses
	}
	for _, a := range r.Alerts {
		p.Alerts = append(p.Alerts, alertPayload{
			Period:   a.Period.Key(),
			Kind:     string(a.Kind),
			Priority: string(a.Priority),
			Message:  a.Message,
		})
	}
	return p
}

type suggestionPayload struct {
	TransactionID string `json:"transaction_id"`
	Confidence    int    `json:"confidence"`
	Reason        string `json:"reason"`
}

func toSuggestionPayloads(suggestions []services.Suggestion) []suggestionPayload {
	out := make([]suggestionPayload, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, suggestionPayload{
			TransactionID: s.TransactionID,
			Confidence:    s.Confidence,
			Reason:        s.Reason,
		})
	}
	return out
}

type reconciledEventPayload struct {
	ID            string `json:"id"`
	OccurrenceID  string `json:"occurrence_id"`
	TransactionID string `json:"transaction_id"`
	Confidence    int    `json:"confidence"`
	Note          string `json:"note,omitempty"`
	ConfirmedAt   string `json:"confirmed_at"`
}

func toReconciledEventPayload(e core.ReconciledEvent) reconciledEventPayload {
	return reconciledEventPayload{
		ID:            e.ID,
		OccurrenceID:  e.OccurrenceID,
		TransactionID: e.TransactionID,
		Confidence:    e.Confidence,
		Note:          e.Note,
		ConfirmedAt:   e.ConfirmedAt.Format(time.RFC3339),
	}
}

type commitmentPayload struct {
	ID                string            `json:"id"`
	Kind              string            `json:"kind"`
	Name              string            `json:"name"`
	Category          string            `json:"category,omitempty"`
	Amount            moneyPayload      `json:"amount"`
	Active            bool              `json:"active"`
	StartDate         string            `json:"start_date,omitempty"`
	TotalInstallments int               `json:"total_installments,omitempty"`
	PaidInstallments  int               `json:"paid_installments,omitempty"`
	InterestRate      string            `json:"interest_rate,omitempty"`
	ReceiptDay        int               `json:"receipt_day,omitempty"`
	Overrides         map[string]string `json:"overrides,omitempty"`
}

func toCommitmentPayload(c core.Commitment) commitmentPayload {
	switch v := c.(type) {
	case core.FixedExpense:
		return commitmentPayload{
			ID:        v.ID,
			Kind:      string(core.KindFixedExpense),
			Name:      v.Name,
			Category:  v.Category,
			Amount:    toMoneyPayload(v.MonthlyAmount),
			Active:    v.Active,
			StartDate: v.StartDate.Format("2006-01-02"),
			Overrides: toOverridePayload(v.Overrides),
		}
	case core.InstallmentObligation:
		p := commitmentPayload{
			ID:                v.ID,
			Kind:              string(core.KindInstallment),
			Name:              v.Name,
			Category:          v.Category,
			Amount:            toMoneyPayload(v.InstallmentAmount),
			Active:            v.Active,
			StartDate:         v.FirstInstallmentDate.Format("2006-01-02"),
			TotalInstallments: v.TotalInstallments,
			PaidInstallments:  v.PaidInstallments,
			Overrides:         toOverridePayload(v.Overrides),
		}
		if !v.InterestRatePerMonth.IsZero() {
			p.InterestRate = v.InterestRatePerMonth.String()
		}
		return p
	case core.IncomeSource:
		return commitmentPayload{
			ID:         v.ID,
			Kind:       string(core.KindIncome),
			Name:       v.Label,
			Amount:     toMoneyPayload(v.Amount),
			Active:     v.Active,
			ReceiptDay: v.ReceiptDay,
			Overrides:  toOverridePayload(v.Overrides),
		}
	default:
		return commitmentPayload{ID: c.CommitmentID(), Kind: string(c.CommitmentKind())}
	}
}

func toCommitmentPayloads(commitments []core.Commitment) []commitmentPayload {
	out := make([]commitmentPayload, 0, len(commitments))
	for _, c := range commitments {
		out = append(out, toCommitmentPayload(c))
	}
	return out
}

func toOverridePayload(o core.StatusOverrides) map[string]string {
	if len(o) == 0 {
		return nil
	}
	out := make(map[string]string, len(o))
	for k, v := range o {
		out[k] = string(v)
	}
	return out
}

type obligationPayload struct {
	CommitmentID          string       `json:"commitment_id"`
	Name                  string       `json:"name"`
	PaidInstallments      int          `json:"paid_installments"`
	TotalInstallments     int          `json:"total_installments"`
	RemainingInstallments int          `json:"remaining_installments"`
	Outstanding           moneyPayload `json:"outstanding"`
	TotalPayable          moneyPayload `json:"total_payable"`
}

func toObligationPayloads(summaries []core.ObligationSummary) []obligationPayload {
	out := make([]obligationPayload, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, obligationPayload{
			CommitmentID:          s.CommitmentID,
			Name:                  s.Name,
			PaidInstallments:      s.PaidInstallments,
			TotalInstallments:     s.TotalInstallments,
			RemainingInstallments: s.RemainingInstallments,
			Outstanding:           toMoneyPayload(s.Outstanding),
			TotalPayable:          toMoneyPayload(s.TotalPayable),
		})
	}
	return out
}

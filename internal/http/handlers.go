package http

import (
	"log/slog"
	"net/http"
	"strings"
)

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r.URL.Query(), "period")
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	result, err := s.engine.Project(r.Context(), s.userID(r), period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Projection failed", "period", period.Key(), "error", err)
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(toProjectionPayload(result)).Write(w)
}

func (s *Server) handleProjectionRange(w http.ResponseWriter, r *http.Request) {
	from, err := parsePeriodParam(r.URL.Query(), "from")
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	months, err := parseCountParam(r.URL.Query(), "months", 12)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	results, err := s.engine.ProjectRange(r.Context(), s.userID(r), from, months)
	if err != nil {
		slog.ErrorContext(r.Context(), "Projection range failed",
			"from", from.Key(), "months", months, "error", err)
		serviceErrorResponse(err).Write(w)
		return
	}

	payloads := make([]projectionPayload, 0, len(results))
	for _, result := range results {
		payloads = append(payloads, toProjectionPayload(result))
	}
	NewJSONResponse().Body(struct {
		Projections []projectionPayload `json:"projections"`
	}{Projections: payloads}).Write(w)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	period, amount, err := req.parse()
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}

	if err := s.engine.SetInitialBalance(r.Context(), s.userID(r), period, amount); err != nil {
		slog.ErrorContext(r.Context(), "Balance update failed",
			"period", period.Key(), "error", err)
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		Period  string       `json:"period"`
		Balance moneyPayload `json:"balance"`
	}{Period: period.Key(), Balance: toMoneyPayload(amount)}).Write(w)
}

func (s *Server) handleSetSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	period, goal, err := req.parse()
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	// A zero goal clears it; negative goals make no sense.
	if goal.IsNegative() {
		ErrorResponse(http.StatusUnprocessableEntity, "savings goal cannot be negative").Write(w)
		return
	}

	if err := s.catalog.SetSavingsGoal(r.Context(), s.userID(r), period, goal); err != nil {
		slog.ErrorContext(r.Context(), "Savings goal update failed",
			"period", period.Key(), "error", err)
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		Period      string       `json:"period"`
		SavingsGoal moneyPayload `json:"savings_goal"`
	}{Period: period.Key(), SavingsGoal: toMoneyPayload(goal)}).Write(w)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	occurrenceID := strings.TrimSpace(r.URL.Query().Get("occurrence_id"))
	if occurrenceID == "" {
		ErrorResponse(http.StatusBadRequest, "missing occurrence_id").Write(w)
		return
	}

	suggestions, err := s.engine.Suggest(r.Context(), s.userID(r), occurrenceID)
	if err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		OccurrenceID string              `json:"occurrence_id"`
		Suggestions  []suggestionPayload `json:"suggestions"`
	}{OccurrenceID: occurrenceID, Suggestions: toSuggestionPayloads(suggestions)}).Write(w)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	if err := req.validate(); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	event, err := s.engine.Confirm(r.Context(), s.userID(r), req.OccurrenceID, req.TransactionID, req.Note)
	if err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toReconciledEventPayload(event)).Write(w)
}

func (s *Server) handleUnreconcile(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		ErrorResponse(http.StatusBadRequest, "missing event id").Write(w)
		return
	}

	if err := s.engine.Unreconcile(r.Context(), s.userID(r), eventID); err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	commitmentID := r.PathValue("id")
	period, err := parsePeriodParam(r.URL.Query(), "period")
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	status, err := s.engine.StatusFor(r.Context(), s.userID(r), commitmentID, period)
	if err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		CommitmentID string `json:"commitment_id"`
		Period       string `json:"period"`
		Status       string `json:"status"`
	}{CommitmentID: commitmentID, Period: period.Key(), Status: string(status)}).Write(w)
}

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	commitments, err := s.catalog.ListCommitments(r.Context(), s.userID(r))
	if err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		Commitments []commitmentPayload `json:"commitments"`
	}{Commitments: toCommitmentPayloads(commitments)}).Write(w)
}

func (s *Server) handleSaveCommitment(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	commitment, err := req.parse()
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}

	if err := s.catalog.SaveCommitment(r.Context(), s.userID(r), commitment); err != nil {
		slog.ErrorContext(r.Context(), "Commitment save failed",
			"commitment_id", commitment.CommitmentID(), "error", err)
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toCommitmentPayload(commitment)).Write(w)
}

func (s *Server) handleDeleteCommitment(w http.ResponseWriter, r *http.Request) {
	commitmentID := r.PathValue("id")
	if commitmentID == "" {
		ErrorResponse(http.StatusBadRequest, "missing commitment id").Write(w)
		return
	}

	if err := s.catalog.DeleteCommitment(r.Context(), s.userID(r), commitmentID); err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleObligations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.engine.ObligationSummaries(r.Context(), s.userID(r))
	if err != nil {
		serviceErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Body(struct {
		Obligations []obligationPayload `json:"obligations"`
	}{Obligations: toObligationPayloads(summaries)}).Write(w)
}

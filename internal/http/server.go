// Package http exposes the engine over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// EngineAPI is the slice of the engine the server serves. Satisfied by both
// services.Engine and services.CachedEngine.
type EngineAPI interface {
	Project(ctx context.Context, userID string, p core.Period) (core.ProjectionResult, error)
	ProjectRange(ctx context.Context, userID string, start core.Period, count int) ([]core.ProjectionResult, error)
	SetInitialBalance(ctx context.Context, userID string, p core.Period, value core.Money) error
	Suggest(ctx context.Context, userID, occurrenceID string) ([]services.Suggestion, error)
	Confirm(ctx context.Context, userID, occurrenceID, transactionID, note string) (core.ReconciledEvent, error)
	Unreconcile(ctx context.Context, userID, eventID string) error
	StatusFor(ctx context.Context, userID, commitmentID string, p core.Period) (core.PeriodStatus, error)
	ObligationSummaries(ctx context.Context, userID string) ([]core.ObligationSummary, error)
}

// CatalogStore is the directly edited storage surface: commitment rows and
// per-period budget settings. The engine reads these but never writes them.
type CatalogStore interface {
	ListCommitments(ctx context.Context, userID string) ([]core.Commitment, error)
	SaveCommitment(ctx context.Context, userID string, c core.Commitment) error
	DeleteCommitment(ctx context.Context, userID, commitmentID string) error
	SetSavingsGoal(ctx context.Context, userID string, p core.Period, goal core.Money) error
}

type Server struct {
	http.Server
	engine        EngineAPI
	catalog       CatalogStore
	defaultUserID string
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, engine EngineAPI, catalog CatalogStore, defaultUserID string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine:        engine,
		catalog:       catalog,
		defaultUserID: defaultUserID,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/projection", s.withRequestLog(s.handleProjection))
	mux.HandleFunc("GET /api/projections", s.withRequestLog(s.handleProjectionRange))
	mux.HandleFunc("PUT /api/budget/balance", s.withRequestLog(s.handleSetBalance))
	mux.HandleFunc("PUT /api/budget/savings-goal", s.withRequestLog(s.handleSetSavingsGoal))
	mux.HandleFunc("GET /api/suggestions", s.withRequestLog(s.handleSuggestions))
	mux.HandleFunc("POST /api/reconciliations", s.withRequestLog(s.handleConfirm))
	mux.HandleFunc("DELETE /api/reconciliations/{id}", s.withRequestLog(s.handleUnreconcile))
	mux.HandleFunc("GET /api/commitments", s.withRequestLog(s.handleListCommitments))
	mux.HandleFunc("POST /api/commitments", s.withRequestLog(s.handleSaveCommitment))
	mux.HandleFunc("DELETE /api/commitments/{id}", s.withRequestLog(s.handleDeleteCommitment))
	mux.HandleFunc("GET /api/commitments/{id}/status", s.withRequestLog(s.handleStatus))
	mux.HandleFunc("GET /api/obligations", s.withRequestLog(s.handleObligations))

	return s
}

// withRequestLog adds a request ID, access logging and baseline security
// headers around a handler.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/storage/memory"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	store.AddCommitment("local", core.FixedExpense{
		ID:            "rent",
		Name:          "Rent",
		Category:      "housing",
		MonthlyAmount: core.Money{Cents: 80000},
		Active:        true,
		StartDate:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	store.AddCommitment("local", core.IncomeSource{
		ID:         "salary",
		Label:      "Salary",
		Amount:     core.Money{Cents: 200000},
		Active:     true,
		ReceiptDay: 27,
	})
	store.AddCommitment("local", core.InstallmentObligation{
		ID:                   "laptop",
		Name:                 "Laptop",
		Category:             "electronics",
		InstallmentAmount:    core.Money{Cents: 10000},
		TotalInstallments:    10,
		PaidInstallments:     4,
		FirstInstallmentDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Active:               true,
	})

	engine := services.NewEngine(store, services.WithClock(fixedNow))
	srv := NewServer(":0", engine, store, "local")

	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var parsed map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, parsed
}

func TestServer_SetBalanceAndProject(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/budget/balance",
		map[string]string{"period": "2024-03", "amount": "1000.00"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set balance status = %d, body = %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/projection?period=2024-03", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("projection status = %d, body = %v", resp.StatusCode, body)
	}

	initial := body["initial_balance"].(map[string]any)
	if initial["cents"].(float64) != 100000 {
		t.Errorf("initial balance cents = %v, want 100000", initial["cents"])
	}
	// 1000.00 + 2000.00 - (800.00 rent + 100.00 installment)
	projected := body["projected_balance"].(map[string]any)
	if projected["cents"].(float64) != 210000 {
		t.Errorf("projected balance cents = %v, want 210000", projected["cents"])
	}
	if body["status"] != "positive" {
		t.Errorf("status = %v, want positive", body["status"])
	}
}

func TestServer_ProjectionRange(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/projections?from=2024-01&months=4", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	projections := body["projections"].([]any)
	if len(projections) != 4 {
		t.Fatalf("projections = %d, want 4", len(projections))
	}
	first := projections[0].(map[string]any)
	if first["period"] != "2024-01" {
		t.Errorf("first period = %v, want 2024-01", first["period"])
	}
}

func TestServer_ReconciliationFlow(t *testing.T) {
	ts, store := newTestServer(t)

	txnID, err := store.AddTransaction(context.Background(), "local", core.TransactionRecord{
		Date:               time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Amount:             core.Money{Cents: 80000},
		Direction:          core.Outflow,
		EstablishmentLabel: "Rent March",
		Origin:             "manual",
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	otherID, err := store.AddTransaction(context.Background(), "local", core.TransactionRecord{
		Date:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Amount:    core.Money{Cents: 80000},
		Direction: core.Outflow,
		Origin:    "manual",
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet,
		ts.URL+"/api/suggestions?occurrence_id=rent:2024-03", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggestions status = %d, body = %v", resp.StatusCode, body)
	}
	if suggestions := body["suggestions"].([]any); len(suggestions) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(suggestions))
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/reconciliations",
		map[string]string{"occurrence_id": "rent:2024-03", "transaction_id": txnID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("confirm status = %d, body = %v", resp.StatusCode, body)
	}
	eventID := body["id"].(string)

	// The occurrence is now linked; a second confirmation must conflict.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/reconciliations",
		map[string]string{"occurrence_id": "rent:2024-03", "transaction_id": otherID})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("re-confirm status = %d, want 409", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet,
		ts.URL+"/api/commitments/rent/status?period=2024-03", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "paid" {
		t.Errorf("status = %v, want paid", body["status"])
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/reconciliations/"+eventID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("unreconcile status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/reconciliations/"+eventID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("repeat unreconcile status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Obligations(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/obligations", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	obligations := body["obligations"].([]any)
	if len(obligations) != 1 {
		t.Fatalf("obligations = %d, want 1", len(obligations))
	}
	laptop := obligations[0].(map[string]any)
	if laptop["remaining_installments"].(float64) != 6 {
		t.Errorf("remaining = %v, want 6", laptop["remaining_installments"])
	}
	outstanding := laptop["outstanding"].(map[string]any)
	if outstanding["cents"].(float64) != 60000 {
		t.Errorf("outstanding cents = %v, want 60000", outstanding["cents"])
	}
}

func TestServer_SetSavingsGoal(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/budget/savings-goal",
		map[string]string{"period": "2024-03", "amount": "2000.00"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set goal status = %d, body = %v", resp.StatusCode, body)
	}
	goal := body["savings_goal"].(map[string]any)
	if goal["cents"].(float64) != 200000 {
		t.Errorf("goal cents = %v, want 200000", goal["cents"])
	}

	// Projected balance (0 + 2000 - 900 = 1100) falls short of the 2000 goal.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/projection?period=2024-03", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("projection status = %d, body = %v", resp.StatusCode, body)
	}
	found := false
	for _, raw := range body["alerts"].([]any) {
		if raw.(map[string]any)["kind"] == "savings_goal" {
			found = true
		}
	}
	if !found {
		t.Errorf("alerts = %v, want a savings_goal alert", body["alerts"])
	}

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/budget/savings-goal",
		map[string]string{"period": "2024-03", "amount": "-5.00"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("negative goal status = %d, want 422", resp.StatusCode)
	}
}

func TestServer_CommitmentCatalog(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/commitments", map[string]any{
		"kind":       "fixed_expense",
		"name":       "Gym",
		"category":   "health",
		"amount":     "45.00",
		"start_date": "2024-02-01",
		"overrides":  map[string]string{"2024-04": "not_applicable"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", resp.StatusCode, body)
	}
	gymID := body["id"].(string)
	if gymID == "" {
		t.Fatal("created commitment has no id")
	}
	if amount := body["amount"].(map[string]any); amount["cents"].(float64) != 4500 {
		t.Errorf("amount cents = %v, want 4500", amount["cents"])
	}

	// The override round-trips straight into the status resolver.
	resp, body = doJSON(t, http.MethodGet,
		ts.URL+"/api/commitments/"+gymID+"/status?period=2024-04", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "not_applicable" {
		t.Errorf("status = %v, want not_applicable", body["status"])
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/commitments", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, body = %v", resp.StatusCode, body)
	}
	if commitments := body["commitments"].([]any); len(commitments) != 4 {
		t.Fatalf("commitments = %d, want 4", len(commitments))
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/commitments/"+gymID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/commitments/"+gymID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		url    string
		body   any
		want   int
	}{
		{
			name:   "bad period",
			method: http.MethodGet,
			url:    "/api/projection?period=banana",
			want:   http.StatusBadRequest,
		},
		{
			name:   "bad months",
			method: http.MethodGet,
			url:    "/api/projections?from=2024-01&months=zero",
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown occurrence",
			method: http.MethodGet,
			url:    "/api/suggestions?occurrence_id=ghost:2024-03",
			want:   http.StatusNotFound,
		},
		{
			name:   "bad balance amount",
			method: http.MethodPut,
			url:    "/api/budget/balance",
			body:   map[string]string{"period": "2024-03", "amount": "lots"},
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "commitment unknown kind",
			method: http.MethodPost,
			url:    "/api/commitments",
			body:   map[string]string{"kind": "loan", "name": "x", "amount": "10.00"},
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "commitment missing start date",
			method: http.MethodPost,
			url:    "/api/commitments",
			body:   map[string]string{"kind": "fixed_expense", "name": "x", "category": "c", "amount": "10.00"},
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "confirm missing fields",
			method: http.MethodPost,
			url:    "/api/reconciliations",
			body:   map[string]string{"occurrence_id": "rent:2024-03"},
			want:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, tt.method, ts.URL+tt.url, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bursar/internal/services"
	"bursar/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	t.Cleanup(func() { ledger.Close() })
	return NewServer(":0", ledger)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode created response: %v (%s)", err, rec.Body.String())
	}
	return body.ID
}

// isoDate formats an offset from today, so the seeded fiscal year always
// contains the test run's clock.
func isoDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t)

	// Seed reference data through the API itself.
	rec := doJSON(t, s, http.MethodPost, "/api/fiscal-years",
		fmt.Sprintf(`{"number": 2027, "start": %q, "end": %q}`, isoDate(-30), isoDate(300)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create fiscal year: %d %s", rec.Code, rec.Body.String())
	}
	fyID := decodeID(t, rec)

	rec = doJSON(t, s, http.MethodPost, "/api/accounts",
		`{"name": "Checking", "initial_balance": "1000.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/budgets",
		fmt.Sprintf(`{"name": "Social", "fiscal_year_id": %d, "starting_amount": "500.00"}`, fyID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: %d %s", rec.Code, rec.Body.String())
	}
	budgetID := decodeID(t, rec)

	rec = doJSON(t, s, http.MethodPost, "/api/payees", `{"name": "Acme Supplies"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payee: %d %s", rec.Code, rec.Body.String())
	}
	payeeID := decodeID(t, rec)

	// The seeded year is the current one.
	rec = doJSON(t, s, http.MethodGet, "/api/fiscal-year/current", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("current fiscal year: %d %s", rec.Code, rec.Body.String())
	}

	// Record an unpaid expense and find it in the debt report.
	rec = doJSON(t, s, http.MethodPost, "/api/expenses",
		fmt.Sprintf(`{"budget_id": %d, "date_incurred": %q, "description": "Cleaning supplies", "cost": "45.00", "payee_id": %d}`,
			budgetID, isoDate(-5), payeeID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payees/unpaid", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unpaid: %d %s", rec.Code, rec.Body.String())
	}
	var debts []struct {
		PayeeID int64  `json:"payee_id"`
		Total   string `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &debts); err != nil {
		t.Fatalf("decode debts: %v", err)
	}
	if len(debts) != 1 || debts[0].PayeeID != payeeID || debts[0].Total != "45.00" {
		t.Fatalf("debts = %+v, want payee %d owing 45.00", debts, payeeID)
	}

	// Pay the debt with a check, mark it, post it.
	rec = doJSON(t, s, http.MethodPost, "/api/payments",
		fmt.Sprintf(`{"account_id": 1, "type": "Check", "amount": "45.00", "date_written": %q, "payee_id": %d, "check_no": "205"}`,
			isoDate(-2), payeeID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment: %d %s", rec.Code, rec.Body.String())
	}
	paymentID := decodeID(t, rec)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/payees/%d/mark-paid", payeeID),
		fmt.Sprintf(`{"payment_id": %d}`, paymentID))
	if rec.Code != http.StatusOK {
		t.Fatalf("mark paid: %d %s", rec.Code, rec.Body.String())
	}
	var marked struct {
		ExpensesUpdated int64 `json:"expenses_updated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &marked); err != nil {
		t.Fatalf("decode mark-paid response: %v", err)
	}
	if marked.ExpensesUpdated != 1 {
		t.Fatalf("expenses_updated = %d, want 1", marked.ExpensesUpdated)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payees/unpaid", "")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("unpaid after mark = %s, want empty list", body)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/payments/%d/post", paymentID),
		fmt.Sprintf(`{"date_posted": %q}`, isoDate(0)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("post payment: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/summary", "")
	var summary []struct {
		Name    string `json:"name"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary) != 1 || summary[0].Balance != "955.00" {
		t.Fatalf("summary = %+v, want balance 955.00", summary)
	}

	// Void the payment: balance restored, debt is back.
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/payments/%d/void", paymentID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("void payment: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/summary", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary[0].Balance != "1000.00" {
		t.Fatalf("balance after void = %s, want 1000.00", summary[0].Balance)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payees/unpaid", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &debts); err != nil {
		t.Fatalf("decode debts: %v", err)
	}
	if len(debts) != 1 || debts[0].Total != "45.00" {
		t.Fatalf("debts after void = %+v, want the 45.00 back", debts)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{
			name:   "no fiscal year configured",
			method: http.MethodGet,
			path:   "/api/fiscal-year/current",
			want:   http.StatusNotFound,
		},
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/api/payees",
			body:   `{not json`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "empty payee name",
			method: http.MethodPost,
			path:   "/api/payees",
			body:   `{"name": ""}`,
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "bad amount",
			method: http.MethodPost,
			path:   "/api/accounts",
			body:   `{"name": "Checking", "initial_balance": "-10"}`,
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown payment type",
			method: http.MethodPost,
			path:   "/api/payments",
			body:   `{"account_id": 1, "type": "Bitcoin", "amount": "5.00", "date_written": "2026-08-01", "payee_id": 1}`,
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "post missing payment",
			method: http.MethodPost,
			path:   "/api/payments/9999/post",
			body:   `{"date_posted": "2026-08-01"}`,
			want:   http.StatusNotFound,
		},
		{
			name:   "non-numeric path id",
			method: http.MethodPost,
			path:   "/api/payments/abc/void",
			body:   "",
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown route",
			method: http.MethodGet,
			path:   "/api/nothing",
			want:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, rec.Code)
		}
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bursar/internal/core"
	applog "bursar/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors to status codes: missing references are
// 404, rejected input is 422, a failed void transaction is 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName):
		status = http.StatusUnprocessableEntity
	}

	if status >= 500 {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// ==== fiscal years ====

func (s *Server) handleCurrentFiscalYear(w http.ResponseWriter, r *http.Request) {
	fy, err := s.ledger.CurrentFiscalYear(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fiscalYearToView(fy))
}

func (s *Server) handleCreateFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number int    `json:"number"`
		Start  string `json:"start"`
		End    string `json:"end"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	start, err := core.ParseDate(req.Start)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := core.ParseDate(req.End)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.RecordFiscalYear(r.Context(), req.Number, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

// ==== accounts ====

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsToView(accounts))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		InitialBalance string `json:"initial_balance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	balance, err := core.ParseAmount(req.InitialBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.RecordAccount(r.Context(), req.Name, balance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.AccountSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountSummaryToView(summary))
}

// ==== budgets ====

// fiscalYearParam resolves the fiscal_year_id query parameter, falling
// back to the fiscal year containing today.
func (s *Server) fiscalYearParam(r *http.Request) (int64, error) {
	if v := r.URL.Query().Get("fiscal_year_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, core.ErrInvalidArgument
		}
		return id, nil
	}
	fy, err := s.ledger.CurrentFiscalYear(r.Context())
	if err != nil {
		return 0, err
	}
	return fy.ID, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	fyID, err := s.fiscalYearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), fyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetsToView(budgets))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		FiscalYearID   int64  `json:"fiscal_year_id"`
		StartingAmount string `json:"starting_amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.StartingAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.RecordBudget(r.Context(), req.Name, req.FiscalYearID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	fyID, err := s.fiscalYearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.BudgetSummary(r.Context(), fyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetSummaryToView(summary))
}

// ==== payees ====

func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := s.ledger.ListPayees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payeesToView(payees))
}

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.ledger.RecordPayee(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

func (s *Server) handleUnpaidByPayee(w http.ResponseWriter, r *http.Request) {
	debts, err := s.ledger.UnpaidByPayee(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debtsToView(debts))
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	payeeID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentID int64 `json:"payment_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := s.ledger.MarkPaid(r.Context(), payeeID, req.PaymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ExpensesUpdated int64 `json:"expenses_updated"`
	}{ExpensesUpdated: n})
}

// ==== expenses ====

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expensesToView(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BudgetID     int64  `json:"budget_id"`
		DateIncurred string `json:"date_incurred"`
		Description  string `json:"description"`
		Cost         string `json:"cost"`
		PayeeID      int64  `json:"payee_id"`
		PaymentID    *int64 `json:"payment_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	incurred, err := core.ParseDate(req.DateIncurred)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cost, err := core.ParseAmount(req.Cost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.RecordExpense(r.Context(), core.Expense{
		BudgetID:     req.BudgetID,
		DateIncurred: incurred,
		Description:  req.Description,
		Cost:         cost,
		PaymentID:    req.PaymentID,
		PayeeID:      req.PayeeID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

// ==== payments ====

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsToView(payments))
}

func (s *Server) handleUnpostedPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.UnpostedPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsToView(payments))
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   int64  `json:"account_id"`
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		DateWritten string `json:"date_written"`
		DatePosted  string `json:"date_posted"`
		PayeeID     int64  `json:"payee_id"`
		CheckNo     string `json:"check_no"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ptype, err := core.ParsePaymentType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	written, err := core.ParseDate(req.DateWritten)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var posted core.Date
	if req.DatePosted != "" {
		if posted, err = core.ParseDate(req.DatePosted); err != nil {
			writeError(w, r, err)
			return
		}
	}

	id, err := s.ledger.RecordPayment(r.Context(), core.Payment{
		AccountID:   req.AccountID,
		Type:        ptype,
		Amount:      amount,
		DateWritten: written,
		DatePosted:  posted,
		PayeeID:     req.PayeeID,
		CheckNo:     req.CheckNo,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdView{ID: id})
}

func (s *Server) handlePostPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		DatePosted string `json:"date_posted"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	posted, err := core.ParseDate(req.DatePosted)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.PostPayment(r.Context(), paymentID, posted); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoidPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.VoidPayment(r.Context(), paymentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import "bursar/internal/core"

// Response shapes. Amounts travel as decimal strings, dates as
// YYYY-MM-DD; an unset optional date is null.

type fiscalYearView struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type accountView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
}

type accountStatusView struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type budgetView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FiscalYearID   int64  `json:"fiscal_year_id"`
	StartingAmount string `json:"starting_amount"`
}

type budgetStatusView struct {
	Name           string `json:"name"`
	StartingAmount string `json:"starting_amount"`
	Spent          string `json:"spent"`
	Remaining      string `json:"remaining"`
}

type payeeView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type expenseView struct {
	ID           int64  `json:"id"`
	BudgetID     int64  `json:"budget_id"`
	Budget       string `json:"budget,omitempty"`
	FiscalYear   int    `json:"fiscal_year,omitempty"`
	DateIncurred string `json:"date_incurred"`
	Description  string `json:"description"`
	Cost         string `json:"cost"`
	PaymentID    *int64 `json:"payment_id"`
	PayeeID      int64  `json:"payee_id"`
	Payee        string `json:"payee,omitempty"`
}

type paymentView struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"account_id"`
	Account     string  `json:"account,omitempty"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	DateWritten string  `json:"date_written"`
	DatePosted  *string `json:"date_posted"`
	PayeeID     int64   `json:"payee_id"`
	Payee       string  `json:"payee,omitempty"`
	CheckNo     string  `json:"check_no,omitempty"`
}

type payeeDebtView struct {
	PayeeID  int64         `json:"payee_id"`
	Payee    string        `json:"payee"`
	Total    string        `json:"total"`
	Expenses []expenseView `json:"expenses"`
}

type createdView struct {
	ID int64 `json:"id"`
}

func dateString(d core.Date) string {
	return d.Format("2006-01-02")
}

func optionalDateString(d core.Date) *string {
	if d.IsEmpty() {
		return nil
	}
	s := dateString(d)
	return &s
}

func fiscalYearToView(fy core.FiscalYear) fiscalYearView {
	return fiscalYearView{
		ID:     fy.ID,
		Number: fy.Number,
		Start:  dateString(fy.Start),
		End:    dateString(fy.End),
	}
}

func accountsToView(accounts []core.Account) []accountView {
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{
			ID:             a.ID,
			Name:           a.Name,
			InitialBalance: a.InitialBalance.String(),
		})
	}
	return views
}

func accountSummaryToView(summary []core.AccountStatus) []accountStatusView {
	views := make([]accountStatusView, 0, len(summary))
	for _, s := range summary {
		views = append(views, accountStatusView{Name: s.Name, Balance: s.Balance.String()})
	}
	return views
}

func budgetsToView(budgets []core.Budget) []budgetView {
	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, budgetView{
			ID:             b.ID,
			Name:           b.Name,
			FiscalYearID:   b.FiscalYearID,
			StartingAmount: b.StartingAmount.String(),
		})
	}
	return views
}

func budgetSummaryToView(summary []core.BudgetStatus) []budgetStatusView {
	views := make([]budgetStatusView, 0, len(summary))
	for _, s := range summary {
		views = append(views, budgetStatusView{
			Name:           s.Name,
			StartingAmount: s.StartingAmount.String(),
			Spent:          s.Spent.String(),
			Remaining:      s.Remaining.String(),
		})
	}
	return views
}

func payeesToView(payees []core.Payee) []payeeView {
	views := make([]payeeView, 0, len(payees))
	for _, p := range payees {
		views = append(views, payeeView{ID: p.ID, Name: p.Name})
	}
	return views
}

func expenseToView(e core.ExpenseDetail) expenseView {
	return expenseView{
		ID:           e.ID,
		BudgetID:     e.BudgetID,
		Budget:       e.BudgetName,
		FiscalYear:   e.FiscalYearNumber,
		DateIncurred: dateString(e.DateIncurred),
		Description:  e.Description,
		Cost:         e.Cost.String(),
		PaymentID:    e.PaymentID,
		PayeeID:      e.PayeeID,
		Payee:        e.PayeeName,
	}
}

func expensesToView(expenses []core.ExpenseDetail) []expenseView {
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, expenseToView(e))
	}
	return views
}

func paymentsToView(payments []core.PaymentDetail) []paymentView {
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, paymentView{
			ID:          p.ID,
			AccountID:   p.AccountID,
			Account:     p.AccountName,
			Type:        p.Type.String(),
			Amount:      p.Amount.String(),
			DateWritten: dateString(p.DateWritten),
			DatePosted:  optionalDateString(p.DatePosted),
			PayeeID:     p.PayeeID,
			Payee:       p.PayeeName,
			CheckNo:     p.CheckNo,
		})
	}
	return views
}

func debtsToView(debts []core.PayeeDebt) []payeeDebtView {
	views := make([]payeeDebtView, 0, len(debts))
	for _, d := range debts {
		views = append(views, payeeDebtView{
			PayeeID:  d.PayeeID,
			Payee:    d.PayeeName,
			Total:    d.Total.String(),
			Expenses: expensesToView(d.Expenses),
		})
	}
	return views
}

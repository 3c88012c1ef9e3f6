package core

// AccountStatus is one row of the account summary. Balance is the
// initial balance minus all posted payments on the account.
type AccountStatus struct {
	Name    string
	Balance Money
}

// BudgetStatus is one row of the per-fiscal-year budget summary. Spent
// counts every expense under the budget, paid or not.
type BudgetStatus struct {
	Name           string
	StartingAmount Money
	Spent          Money
	Remaining      Money
}

// ExpenseDetail is an expense annotated with the names a reader wants
// next to it.
type ExpenseDetail struct {
	Expense
	BudgetName       string
	FiscalYearNumber int
	PayeeName        string
}

// PaymentDetail is a payment annotated with account and payee names.
type PaymentDetail struct {
	Payment
	AccountName string
	PayeeName   string
}

// PayeeDebt groups a payee's unpaid expenses with the total owed.
// Payees with no unpaid expenses never appear.
type PayeeDebt struct {
	PayeeID   int64
	PayeeName string
	Total     Money
	Expenses  []ExpenseDetail
}

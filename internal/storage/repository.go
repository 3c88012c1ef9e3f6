package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bursar/internal/core"

	_ "modernc.org/sqlite"
)

// dateFormat is the column encoding for calendar dates. ISO dates
// compare correctly as text, which the fiscal-year lookup relies on.
const dateFormat = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func encodeDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.Format(dateFormat)
}

func decodeDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dateFormat, s.String)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s.String, err)
	}
	return core.Date{Time: t}, nil
}

// ==== fiscal years ====

// CurrentFiscalYear returns the fiscal year whose range contains now.
// Returns core.ErrNotFound when no range matches; callers should treat
// that as a prompt to configure the year, not a fatal error.
func (r *SQLiteRepository) CurrentFiscalYear(ctx context.Context, now time.Time) (core.FiscalYear, error) {
	day := now.Format(dateFormat)
	row := r.db.QueryRowContext(ctx, `
		SELECT id, num, start_date, end_date
		FROM fiscal_years
		WHERE ? BETWEEN start_date AND end_date
	`, day)

	var fy core.FiscalYear
	var start, end sql.NullString
	err := row.Scan(&fy.ID, &fy.Number, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FiscalYear{}, fmt.Errorf("fiscal year containing %s: %w", day, core.ErrNotFound)
	}
	if err != nil {
		return core.FiscalYear{}, fmt.Errorf("current fiscal year: %w", err)
	}
	if fy.Start, err = decodeDate(start); err != nil {
		return core.FiscalYear{}, err
	}
	if fy.End, err = decodeDate(end); err != nil {
		return core.FiscalYear{}, err
	}
	return fy, nil
}

// CreateFiscalYear inserts a fiscal year. Reference data; used by
// administrative tooling and tests.
func (r *SQLiteRepository) CreateFiscalYear(ctx context.Context, number int, start, end core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fiscal_years (num, start_date, end_date)
		VALUES (?, ?, ?)
	`, number, encodeDate(start), encodeDate(end))
	if err != nil {
		return 0, fmt.Errorf("create fiscal year: %w", err)
	}
	return res.LastInsertId()
}

// ==== accounts ====

func (r *SQLiteRepository) CreateAccount(ctx context.Context, name string, initialBalance core.Money) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (name, initial_balance_cents)
		VALUES (?, ?)
	`, name, initialBalance.Cents)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, initial_balance_cents FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.InitialBalance.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, initial_balance_cents FROM accounts ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.InitialBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountSummary computes the live balance of every account. The
// posted-payment filter sits in the join condition, not a WHERE clause:
// an account with no posted payments must still show up with its
// initial balance.
func (r *SQLiteRepository) AccountSummary(ctx context.Context) ([]core.AccountStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.name,
		       a.initial_balance_cents - IFNULL(SUM(p.amount_cents), 0)
		FROM accounts a
		LEFT JOIN payments p
		       ON p.account_id = a.id AND p.date_posted IS NOT NULL
		GROUP BY a.id
		ORDER BY a.name
	`)
	if err != nil {
		return nil, fmt.Errorf("account summary: %w", err)
	}
	defer rows.Close()

	var summary []core.AccountStatus
	for rows.Next() {
		var s core.AccountStatus
		if err := rows.Scan(&s.Name, &s.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan account status: %w", err)
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// ==== budgets ====

func (r *SQLiteRepository) CreateBudget(ctx context.Context, name string, fiscalYearID int64, startingAmount core.Money) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (name, fiscal_year_id, starting_amount_cents)
		VALUES (?, ?, ?)
	`, name, fiscalYearID, startingAmount.Cents)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, fiscal_year_id, starting_amount_cents
		FROM budgets WHERE id = ?
	`, id).Scan(&b.ID, &b.Name, &b.FiscalYearID, &b.StartingAmount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, fiscalYearID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, fiscal_year_id, starting_amount_cents
		FROM budgets
		WHERE fiscal_year_id = ?
		ORDER BY name
	`, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Name, &b.FiscalYearID, &b.StartingAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// BudgetSummary reports spend against every budget in the fiscal year.
// Spent counts all expenses under the budget, paid or unpaid; budgets
// with no expenses appear with spent = 0.
func (r *SQLiteRepository) BudgetSummary(ctx context.Context, fiscalYearID int64) ([]core.BudgetStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.name, b.starting_amount_cents, IFNULL(SUM(e.cost_cents), 0)
		FROM budgets b
		LEFT JOIN expenses e ON e.budget_id = b.id
		WHERE b.fiscal_year_id = ?
		GROUP BY b.id
		ORDER BY b.name
	`, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("budget summary: %w", err)
	}
	defer rows.Close()

	var summary []core.BudgetStatus
	for rows.Next() {
		var s core.BudgetStatus
		if err := rows.Scan(&s.Name, &s.StartingAmount.Cents, &s.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan budget status: %w", err)
		}
		s.Remaining = s.StartingAmount.Sub(s.Spent)
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// ==== payees ====

// CreatePayee inserts a payee and returns its id. No uniqueness check:
// callers search before creating to avoid duplicates.
func (r *SQLiteRepository) CreatePayee(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO payees (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create payee: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetPayee(ctx context.Context, id int64) (core.Payee, error) {
	var p core.Payee
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM payees WHERE id = ?`, id).
		Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payee{}, fmt.Errorf("payee %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Payee{}, fmt.Errorf("get payee: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPayees(ctx context.Context) ([]core.Payee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM payees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	defer rows.Close()

	var payees []core.Payee
	for rows.Next() {
		var p core.Payee
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		payees = append(payees, p)
	}
	return payees, rows.Err()
}

// ==== expenses ====

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	var paymentID any
	if e.PaymentID != nil {
		paymentID = *e.PaymentID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (budget_id, date_incurred, description, cost_cents, payment_id, payee_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.BudgetID, encodeDate(e.DateIncurred), e.Description, e.Cost.Cents, paymentID, e.PayeeID)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", id,
		"budget_id", e.BudgetID,
		"cost_cents", e.Cost.Cents,
		"payee_id", e.PayeeID,
		"paid", e.PaymentID != nil)

	return id, nil
}

const expenseDetailColumns = `
	e.id, e.budget_id, e.date_incurred, e.description, e.cost_cents,
	e.payment_id, e.payee_id, b.name, f.num, y.name`

// ListExpenses returns every expense with its budget, fiscal year and
// payee names attached, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+expenseDetailColumns+`
		FROM expenses e
		JOIN budgets b ON b.id = e.budget_id
		JOIN fiscal_years f ON f.id = b.fiscal_year_id
		JOIN payees y ON y.id = e.payee_id
		ORDER BY e.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenseDetails(rows)
}

func scanExpenseDetails(rows *sql.Rows) ([]core.ExpenseDetail, error) {
	var expenses []core.ExpenseDetail
	for rows.Next() {
		var d core.ExpenseDetail
		var incurred sql.NullString
		var paymentID sql.NullInt64
		if err := rows.Scan(&d.ID, &d.BudgetID, &incurred, &d.Description, &d.Cost.Cents,
			&paymentID, &d.PayeeID, &d.BudgetName, &d.FiscalYearNumber, &d.PayeeName); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		var err error
		if d.DateIncurred, err = decodeDate(incurred); err != nil {
			return nil, err
		}
		if paymentID.Valid {
			id := paymentID.Int64
			d.PaymentID = &id
		}
		expenses = append(expenses, d)
	}
	return expenses, rows.Err()
}

// ==== payments ====

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (int64, error) {
	var checkNo any
	if p.CheckNo != "" {
		checkNo = p.CheckNo
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (account_id, payment_type, amount_cents, date_written, date_posted, payee_id, check_no)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.AccountID, int(p.Type), p.Amount.Cents, encodeDate(p.DateWritten), encodeDate(p.DatePosted), p.PayeeID, checkNo)
	if err != nil {
		return 0, fmt.Errorf("create payment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment id: %w", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"id", id,
		"account_id", p.AccountID,
		"type", p.Type.String(),
		"amount_cents", p.Amount.Cents,
		"posted", p.Posted())

	return id, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, payment_type, amount_cents, date_written, date_posted, payee_id, check_no
		FROM payments WHERE id = ?
	`, id)
	p, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func scanPayment(scan func(...any) error) (core.Payment, error) {
	var p core.Payment
	var ptype int
	var written, posted, checkNo sql.NullString
	if err := scan(&p.ID, &p.AccountID, &ptype, &p.Amount.Cents, &written, &posted, &p.PayeeID, &checkNo); err != nil {
		return core.Payment{}, err
	}
	p.Type = core.PaymentType(ptype)
	p.CheckNo = checkNo.String
	var err error
	if p.DateWritten, err = decodeDate(written); err != nil {
		return core.Payment{}, err
	}
	if p.DatePosted, err = decodeDate(posted); err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

const paymentDetailQuery = `
	SELECT p.id, p.account_id, p.payment_type, p.amount_cents,
	       p.date_written, p.date_posted, p.payee_id, p.check_no,
	       a.name, y.name
	FROM payments p
	JOIN accounts a ON a.id = p.account_id
	JOIN payees y ON y.id = p.payee_id`

// ListPayments returns every payment with account and payee names
// attached, newest first.
func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.PaymentDetail, error) {
	rows, err := r.db.QueryContext(ctx, paymentDetailQuery+`
		ORDER BY p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	return scanPaymentDetails(rows)
}

// UnpostedPayments returns payments that haven't cleared yet, newest
// first.
func (r *SQLiteRepository) UnpostedPayments(ctx context.Context) ([]core.PaymentDetail, error) {
	rows, err := r.db.QueryContext(ctx, paymentDetailQuery+`
		WHERE p.date_posted IS NULL
		ORDER BY p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("unposted payments: %w", err)
	}
	defer rows.Close()
	return scanPaymentDetails(rows)
}

func scanPaymentDetails(rows *sql.Rows) ([]core.PaymentDetail, error) {
	var payments []core.PaymentDetail
	for rows.Next() {
		var d core.PaymentDetail
		var ptype int
		var written, posted, checkNo sql.NullString
		if err := rows.Scan(&d.ID, &d.AccountID, &ptype, &d.Amount.Cents,
			&written, &posted, &d.PayeeID, &checkNo, &d.AccountName, &d.PayeeName); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		d.Type = core.PaymentType(ptype)
		d.CheckNo = checkNo.String
		var err error
		if d.DateWritten, err = decodeDate(written); err != nil {
			return nil, err
		}
		if d.DatePosted, err = decodeDate(posted); err != nil {
			return nil, err
		}
		payments = append(payments, d)
	}
	return payments, rows.Err()
}

// PostPayment stamps the posted date on a payment. Last write wins: an
// already-posted payment is simply overwritten, no history kept.
func (r *SQLiteRepository) PostPayment(ctx context.Context, id int64, datePosted core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET date_posted = ? WHERE id = ?
	`, encodeDate(datePosted), id)
	if err != nil {
		return fmt.Errorf("post payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("post payment rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Payment posted", "id", id, "date_posted", datePosted.Format(dateFormat))
	return nil
}

// ==== reconciliation ====

// UnpaidByPayee groups every unpaid expense under its payee, with the
// total owed. Payees with nothing outstanding are excluded; the
// account and budget summaries deliberately do the opposite.
func (r *SQLiteRepository) UnpaidByPayee(ctx context.Context) ([]core.PayeeDebt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+expenseDetailColumns+`
		FROM expenses e
		JOIN budgets b ON b.id = e.budget_id
		JOIN fiscal_years f ON f.id = b.fiscal_year_id
		JOIN payees y ON y.id = e.payee_id
		WHERE e.payment_id IS NULL
		ORDER BY y.name, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("unpaid expenses: %w", err)
	}
	defer rows.Close()

	unpaid, err := scanExpenseDetails(rows)
	if err != nil {
		return nil, err
	}

	totals, err := r.db.QueryContext(ctx, `
		SELECT y.id, y.name, SUM(e.cost_cents)
		FROM payees y
		JOIN expenses e ON e.payee_id = y.id
		WHERE e.payment_id IS NULL
		GROUP BY y.id
		ORDER BY y.name
	`)
	if err != nil {
		return nil, fmt.Errorf("unpaid totals: %w", err)
	}
	defer totals.Close()

	var debts []core.PayeeDebt
	for totals.Next() {
		var d core.PayeeDebt
		if err := totals.Scan(&d.PayeeID, &d.PayeeName, &d.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan payee debt: %w", err)
		}
		for _, e := range unpaid {
			if e.PayeeID == d.PayeeID {
				d.Expenses = append(d.Expenses, e)
			}
		}
		debts = append(debts, d)
	}
	return debts, totals.Err()
}

// MarkPaid assigns the payment to every unpaid expense of the payee and
// returns how many rows changed. Rows already covered by a payment are
// never touched. No check that the payment amount matches the total:
// that reconciliation is the caller's responsibility.
func (r *SQLiteRepository) MarkPaid(ctx context.Context, payeeID, paymentID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET payment_id = ?
		WHERE payment_id IS NULL AND payee_id = ?
	`, paymentID, payeeID)
	if err != nil {
		return 0, fmt.Errorf("mark paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark paid rows: %w", err)
	}

	slog.InfoContext(ctx, "Expenses marked paid",
		"payee_id", payeeID,
		"payment_id", paymentID,
		"expenses", n)

	return n, nil
}

// VoidPayment deletes a payment and resets every expense it covered
// back to unpaid, in one transaction. Either both take effect or
// neither does; a reader can never observe an expense referencing a
// deleted payment. Voiding an id that no longer exists succeeds.
func (r *SQLiteRepository) VoidPayment(ctx context.Context, paymentID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin void: %v", core.ErrTransactionFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE expenses SET payment_id = NULL WHERE payment_id = ?
	`, paymentID); err != nil {
		return fmt.Errorf("%w: reset expenses for payment %d: %v", core.ErrTransactionFailure, paymentID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM payments WHERE id = ?
	`, paymentID); err != nil {
		return fmt.Errorf("%w: delete payment %d: %v", core.ErrTransactionFailure, paymentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit void of payment %d: %v", core.ErrTransactionFailure, paymentID, err)
	}

	slog.InfoContext(ctx, "Payment voided", "payment_id", paymentID)
	return nil
}

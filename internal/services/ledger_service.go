package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bursar/internal/amqp"
	"bursar/internal/core"
	"bursar/internal/storage"
)

// LedgerService orchestrates ledger operations across SQLite and AMQP.
// Writes go to the store first; lifecycle events are published
// afterwards and never fail the operation.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// ==== read side ====

func (s *LedgerService) CurrentFiscalYear(ctx context.Context) (core.FiscalYear, error) {
	return s.storage.CurrentFiscalYear(ctx, time.Now())
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx)
}

func (s *LedgerService) AccountSummary(ctx context.Context) ([]core.AccountStatus, error) {
	return s.storage.AccountSummary(ctx)
}

func (s *LedgerService) ListBudgets(ctx context.Context, fiscalYearID int64) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx, fiscalYearID)
}

func (s *LedgerService) BudgetSummary(ctx context.Context, fiscalYearID int64) ([]core.BudgetStatus, error) {
	return s.storage.BudgetSummary(ctx, fiscalYearID)
}

func (s *LedgerService) ListPayees(ctx context.Context) ([]core.Payee, error) {
	return s.storage.ListPayees(ctx)
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.ExpenseDetail, error) {
	return s.storage.ListExpenses(ctx)
}

func (s *LedgerService) ListPayments(ctx context.Context) ([]core.PaymentDetail, error) {
	return s.storage.ListPayments(ctx)
}

func (s *LedgerService) UnpaidByPayee(ctx context.Context) ([]core.PayeeDebt, error) {
	return s.storage.UnpaidByPayee(ctx)
}

func (s *LedgerService) UnpostedPayments(ctx context.Context) ([]core.PaymentDetail, error) {
	return s.storage.UnpostedPayments(ctx)
}

// ==== write side ====

// RecordExpense validates the referenced budget and payee exist, then
// creates the expense. A supplied payment id means the expense is born
// already paid.
func (s *LedgerService) RecordExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if _, err := s.storage.GetBudget(ctx, e.BudgetID); err != nil {
		return 0, err
	}
	if _, err := s.storage.GetPayee(ctx, e.PayeeID); err != nil {
		return 0, err
	}
	if e.PaymentID != nil {
		if _, err := s.storage.GetPayment(ctx, *e.PaymentID); err != nil {
			return 0, err
		}
	}
	return s.storage.CreateExpense(ctx, e)
}

// RecordPayment validates the referenced account and payee exist,
// creates the payment and publishes a recorded event. The payment may
// carry a posted date already, or be posted later.
func (s *LedgerService) RecordPayment(ctx context.Context, p core.Payment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if _, err := s.storage.GetAccount(ctx, p.AccountID); err != nil {
		return 0, err
	}
	if _, err := s.storage.GetPayee(ctx, p.PayeeID); err != nil {
		return 0, err
	}

	id, err := s.storage.CreatePayment(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("save payment: %w", err)
	}

	s.publishEvent(ctx, amqp.PaymentRecorded, id)
	return id, nil
}

// RecordPayee creates a payee. Duplicate names are not rejected here:
// callers search before creating.
func (s *LedgerService) RecordPayee(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, core.ErrEmptyName
	}
	return s.storage.CreatePayee(ctx, name)
}

// RecordFiscalYear creates a fiscal year. Ranges are expected not to
// overlap; that is an administrative concern, not enforced here.
func (s *LedgerService) RecordFiscalYear(ctx context.Context, number int, start, end core.Date) (int64, error) {
	if number <= 0 {
		return 0, fmt.Errorf("%w: fiscal year number", core.ErrInvalidArgument)
	}
	if start.IsEmpty() || end.IsEmpty() || end.Before(start.Time) {
		return 0, fmt.Errorf("%w: fiscal year range", core.ErrInvalidArgument)
	}
	return s.storage.CreateFiscalYear(ctx, number, start, end)
}

// RecordAccount creates an account with its opening balance.
func (s *LedgerService) RecordAccount(ctx context.Context, name string, initialBalance core.Money) (int64, error) {
	if name == "" {
		return 0, core.ErrEmptyName
	}
	return s.storage.CreateAccount(ctx, name, initialBalance)
}

// RecordBudget creates a budget under a fiscal year.
func (s *LedgerService) RecordBudget(ctx context.Context, name string, fiscalYearID int64, startingAmount core.Money) (int64, error) {
	if name == "" {
		return 0, core.ErrEmptyName
	}
	if err := startingAmount.Validate(); err != nil {
		return 0, err
	}
	return s.storage.CreateBudget(ctx, name, fiscalYearID, startingAmount)
}

// PostPayment stamps a posted date on the payment. Re-posting simply
// overwrites the date.
func (s *LedgerService) PostPayment(ctx context.Context, paymentID int64, datePosted core.Date) error {
	if datePosted.IsEmpty() {
		return fmt.Errorf("%w: posted date required", core.ErrInvalidArgument)
	}
	if err := s.storage.PostPayment(ctx, paymentID, datePosted); err != nil {
		return err
	}
	s.publishEvent(ctx, amqp.PaymentPosted, paymentID)
	return nil
}

// MarkPaid assigns the payment to every unpaid expense of the payee.
// The payment must exist; no check that its amount covers the total.
func (s *LedgerService) MarkPaid(ctx context.Context, payeeID, paymentID int64) (int64, error) {
	if _, err := s.storage.GetPayment(ctx, paymentID); err != nil {
		return 0, err
	}
	if _, err := s.storage.GetPayee(ctx, payeeID); err != nil {
		return 0, err
	}
	return s.storage.MarkPaid(ctx, payeeID, paymentID)
}

// VoidPayment atomically detaches and deletes the payment, then
// publishes a voided event. Failures surface as
// core.ErrTransactionFailure with the cause attached; nothing is
// swallowed.
func (s *LedgerService) VoidPayment(ctx context.Context, paymentID int64) error {
	if err := s.storage.VoidPayment(ctx, paymentID); err != nil {
		return err
	}
	s.publishEvent(ctx, amqp.PaymentVoided, paymentID)
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, kind amqp.EventKind, paymentID int64) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "kind", string(kind), "payment_id", paymentID)
		return
	}
	if err := s.amqpClient.PublishPaymentEvent(ctx, kind, paymentID); err != nil {
		// Events feed the export worker only; the ledger write already
		// succeeded, so don't fail the request.
		slog.ErrorContext(ctx, "Failed to publish payment event",
			"kind", string(kind), "payment_id", paymentID, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

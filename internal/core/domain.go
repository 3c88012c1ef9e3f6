package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a referenced fiscal year, account,
	// budget, payee or payment does not exist. Callers should treat it
	// as recoverable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed ids, enum values or
	// amounts before anything touches the store.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransactionFailure is returned when the void transaction could
	// not complete. The store is rolled back; no partial state remains.
	ErrTransactionFailure = errors.New("transaction failure")

	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
)

type (
	// Date is a calendar date. The zero value stands in for SQL NULL on
	// optional columns (date_posted).
	Date struct {
		time.Time
	}

	// FiscalYear is the accounting year; exactly one range should
	// contain any given date. Overlaps are a configuration error and
	// are not handled defensively.
	FiscalYear struct {
		ID     int64
		Number int
		Start  Date
		End    Date
	}

	// Account is a real-world bank account. Balance is derived, never
	// stored: initial balance minus the sum of posted payments.
	Account struct {
		ID             int64
		Name           string
		InitialBalance Money
	}

	// Payee is created on demand the first time a new name is used.
	Payee struct {
		ID   int64
		Name string
	}

	// Budget belongs to exactly one fiscal year.
	Budget struct {
		ID             int64
		Name           string
		FiscalYearID   int64
		StartingAmount Money
	}

	// Expense is a cost charged against a budget. A nil PaymentID means
	// the expense is unpaid; a set PaymentID means it is covered by
	// that payment.
	Expense struct {
		ID           int64
		BudgetID     int64
		DateIncurred Date
		Description  string
		Cost         Money
		PaymentID    *int64
		PayeeID      int64
	}

	// Payment is money leaving an account. A zero DatePosted means the
	// payment is written but not yet posted.
	Payment struct {
		ID          int64
		AccountID   int64
		Type        PaymentType
		Amount      Money
		DateWritten Date
		DatePosted  Date
		PayeeID     int64
		CheckNo     string
	}
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is unset (maps to NULL in storage).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Contains reports whether t falls within [d, end], inclusive on both
// ends, comparing calendar days.
func (d Date) Contains(end Date, t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(d.Time) && !day.After(end.Time)
}

// Posted reports whether the payment has cleared the account.
func (p Payment) Posted() bool {
	return !p.DatePosted.IsEmpty()
}

// Paid reports whether the expense is covered by a payment.
func (e Expense) Paid() bool {
	return e.PaymentID != nil
}

func (e Expense) Validate() error {
	if e.BudgetID <= 0 || e.PayeeID <= 0 {
		return ErrInvalidArgument
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if e.DateIncurred.IsEmpty() {
		return errors.New("date incurred cannot be zero")
	}
	return e.Cost.Validate()
}

func (p Payment) Validate() error {
	if p.AccountID <= 0 || p.PayeeID <= 0 {
		return ErrInvalidArgument
	}
	if !p.Type.Valid() {
		return ErrInvalidArgument
	}
	if p.DateWritten.IsEmpty() {
		return errors.New("date written cannot be zero")
	}
	return p.Amount.Validate()
}

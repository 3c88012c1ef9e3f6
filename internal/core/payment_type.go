package core

import "fmt"

// PaymentType identifies how a payment was made. Ordinal values 1-6 are
// part of the stored schema and must not be reordered.
type PaymentType int

const (
	Cash PaymentType = iota + 1
	Check
	Debit
	Online
	Transfer
	Other
)

// PaymentTypes lists all variants in ordinal order, for menus.
func PaymentTypes() []PaymentType {
	return []PaymentType{Cash, Check, Debit, Online, Transfer, Other}
}

// Valid reports whether t is one of the six known variants.
func (t PaymentType) Valid() bool {
	return t >= Cash && t <= Other
}

// String returns the display label carried by the variant.
func (t PaymentType) String() string {
	switch t {
	case Cash:
		return "Cash"
	case Check:
		return "Check"
	case Debit:
		return "Debit"
	case Online:
		return "Online"
	case Transfer:
		return "Transfer"
	case Other:
		return "Other"
	}
	return fmt.Sprintf("PaymentType(%d)", int(t))
}

// ParsePaymentType resolves a display label back to its variant.
func ParsePaymentType(s string) (PaymentType, error) {
	for _, t := range PaymentTypes() {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown payment type %q", ErrInvalidArgument, s)
}

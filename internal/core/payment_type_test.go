package core

import (
	"errors"
	"testing"
)

func TestPaymentType_Ordinals(t *testing.T) {
	// Ordinals are stored in the database; they must stay stable.
	want := map[PaymentType]int{
		Cash:     1,
		Check:    2,
		Debit:    3,
		Online:   4,
		Transfer: 5,
		Other:    6,
	}
	for pt, ord := range want {
		if int(pt) != ord {
			t.Errorf("%s = %d, want %d", pt, int(pt), ord)
		}
	}
	if len(PaymentTypes()) != 6 {
		t.Errorf("PaymentTypes() has %d entries, want 6", len(PaymentTypes()))
	}
}

func TestPaymentType_Valid(t *testing.T) {
	for _, pt := range PaymentTypes() {
		if !pt.Valid() {
			t.Errorf("%s.Valid() = false", pt)
		}
	}
	for _, bad := range []PaymentType{0, 7, -1} {
		if bad.Valid() {
			t.Errorf("PaymentType(%d).Valid() = true", int(bad))
		}
	}
}

func TestParsePaymentType(t *testing.T) {
	for _, pt := range PaymentTypes() {
		got, err := ParsePaymentType(pt.String())
		if err != nil {
			t.Errorf("ParsePaymentType(%q) error = %v", pt.String(), err)
			continue
		}
		if got != pt {
			t.Errorf("ParsePaymentType(%q) = %v, want %v", pt.String(), got, pt)
		}
	}

	if _, err := ParsePaymentType("Bitcoin"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParsePaymentType(unknown) error = %v, want ErrInvalidArgument", err)
	}
}

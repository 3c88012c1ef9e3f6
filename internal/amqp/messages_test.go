package amqp

import (
	"testing"
	"time"
)

func TestPaymentEventMessage_RoundTrip(t *testing.T) {
	for _, kind := range []EventKind{PaymentRecorded, PaymentPosted, PaymentVoided} {
		t.Run(string(kind), func(t *testing.T) {
			msg := NewPaymentEventMessage(kind, 42)

			data, err := msg.ToJSON()
			if err != nil {
				t.Fatalf("ToJSON: %v", err)
			}

			decoded, err := PaymentEventMessageFromJSON(data)
			if err != nil {
				t.Fatalf("FromJSON: %v", err)
			}
			if decoded.Kind != kind {
				t.Errorf("kind = %q, want %q", decoded.Kind, kind)
			}
			if decoded.PaymentID != 42 {
				t.Errorf("payment id = %d, want 42", decoded.PaymentID)
			}
			if decoded.Timestamp.IsZero() {
				t.Error("timestamp is zero")
			}
		})
	}
}

func TestPaymentEventMessage_Timestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	msg := NewPaymentEventMessage(PaymentRecorded, 1)
	if msg.Timestamp.Before(before) {
		t.Errorf("timestamp %v predates construction", msg.Timestamp)
	}
}

func TestPaymentEventMessageFromJSON_Malformed(t *testing.T) {
	if _, err := PaymentEventMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("FromJSON(malformed) = nil, want error")
	}
}

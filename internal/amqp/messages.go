package amqp

import (
	"encoding/json"
	"time"
)

// EventKind names a payment lifecycle transition.
type EventKind string

const (
	PaymentRecorded EventKind = "payment.recorded"
	PaymentPosted   EventKind = "payment.posted"
	PaymentVoided   EventKind = "payment.voided"
)

// PaymentEventMessage is a lightweight notification: consumers fetch
// the full payment from the database by id. A voided payment no longer
// has a row, which is exactly the information the consumer needs.
type PaymentEventMessage struct {
	Kind      EventKind `json:"kind"`
	PaymentID int64     `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPaymentEventMessage(kind EventKind, paymentID int64) *PaymentEventMessage {
	return &PaymentEventMessage{
		Kind:      kind,
		PaymentID: paymentID,
		Timestamp: time.Now(),
	}
}

func (m *PaymentEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentEventMessageFromJSON(data []byte) (*PaymentEventMessage, error) {
	var msg PaymentEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

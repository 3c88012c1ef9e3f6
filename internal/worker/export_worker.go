package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bursar/internal/amqp"
	"bursar/internal/core"
	"bursar/internal/export"
	"bursar/internal/storage"
)

// ExportWorker mirrors payment lifecycle events into the board-report
// spreadsheet. The sheet is append-only, so a void shows up as its own
// row rather than removing the earlier one.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	writer  export.RowWriter
}

func NewExportWorker(storage *storage.SQLiteRepository, writer export.RowWriter) *ExportWorker {
	return &ExportWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandlePaymentEvent processes a single payment event from AMQP.
func (w *ExportWorker) HandlePaymentEvent(ctx context.Context, msg *amqp.PaymentEventMessage) error {
	slog.InfoContext(ctx, "Processing payment event",
		"kind", string(msg.Kind),
		"payment_id", msg.PaymentID)

	if msg.Kind == amqp.PaymentVoided {
		return w.appendVoidRow(ctx, msg.PaymentID)
	}

	payment, err := w.storage.GetPayment(ctx, msg.PaymentID)
	if errors.Is(err, core.ErrNotFound) {
		// Recorded, then voided before we got to it. The void event
		// will write its own row; nothing to export here.
		slog.WarnContext(ctx, "Payment gone before export, skipping",
			"payment_id", msg.PaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment from storage: %w", err)
	}

	account, err := w.storage.GetAccount(ctx, payment.AccountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	payee, err := w.storage.GetPayee(ctx, payment.PayeeID)
	if err != nil {
		return fmt.Errorf("get payee: %w", err)
	}

	status := "unposted"
	date := payment.DateWritten
	if payment.Posted() {
		status = "posted"
		date = payment.DatePosted
	}

	row := export.ReportRow{
		Date:    date.Format("2006-01-02"),
		Account: account.Name,
		Payee:   payee.Name,
		Type:    payment.Type.String(),
		Amount:  payment.Amount.String(),
		Status:  status,
	}

	if err := w.writer.Append(ctx, row); err != nil {
		return fmt.Errorf("export payment %d: %w", msg.PaymentID, err)
	}

	return nil
}

func (w *ExportWorker) appendVoidRow(ctx context.Context, paymentID int64) error {
	row := export.ReportRow{
		Payee:  fmt.Sprintf("payment #%d", paymentID),
		Status: "voided",
	}
	if err := w.writer.Append(ctx, row); err != nil {
		return fmt.Errorf("export void of payment %d: %w", paymentID, err)
	}
	return nil
}

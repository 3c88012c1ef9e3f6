// Package export defines the outbound report ports. The ledger core
// never talks to a spreadsheet directly; the worker feeds rows through
// these interfaces.
package export

import "context"

// ReportRow is one line of the treasurer's board report.
type ReportRow struct {
	Date    string
	Account string
	Payee   string
	Type    string
	Amount  string
	Status  string // posted, unposted or voided
}

// RowWriter appends report rows to an external destination.
type RowWriter interface {
	Append(ctx context.Context, row ReportRow) error
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the canonical kind of a money movement.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"
)

// DateFormat is the calendar-date layout used for drafts and journal rows.
const DateFormat = "2006-01-02"

// TransactionDraft is the canonical double-entry form of one statement record.
// Amount is always a non-negative magnitude; direction is carried by which
// side the local account is on.
type TransactionDraft struct {
	UserID        int
	Type          TransactionType
	Date          time.Time // calendar date, UTC midnight
	Description   string
	CurrencyCode  string
	Amount        decimal.Decimal
	SourceID      int
	DestinationID int
	Counterparty  string
	Fingerprint   string

	// Enrichment fields, left unset by the importer.
	BudgetID          *int
	CategoryID        *int
	Tags              []string
	ExternalID        *string
	InternalReference *string
	Notes             *string
}

// DateString renders the draft date as YYYY-MM-DD.
func (d TransactionDraft) DateString() string {
	return d.Date.Format(DateFormat)
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

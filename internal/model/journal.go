package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusPendingReview EntryStatus = "pending-review"
	StatusUserConfirmed EntryStatus = "user-confirmed"
	StatusUserCorrected EntryStatus = "user-corrected"
	StatusVoided        EntryStatus = "voided"
)

// Leg is a single row in journal.csv (one side of a double-entry).
type Leg struct {
	EntryID      string          // "YYYY-MM-NNNx" where x = a,b,c...
	Date         time.Time       //nolint:revive // plain field name is clearest
	AccountID    int             //nolint:revive
	Description  string          //nolint:revive
	Debit        decimal.Decimal // zero if credit side
	Credit       decimal.Decimal // zero if debit side
	Currency     string
	Type         TransactionType
	Counterparty string
	Reference    string
	Status       EntryStatus
	Tags         string // semicolon-separated
	Notes        string
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the credit/debit flag of a statement line.
type Direction string

const (
	Credit Direction = "credit" // money into the statement account
	Debit  Direction = "debit"  // money out of the statement account
)

// StatementRecord is one line item of a fetched bank statement.
type StatementRecord struct {
	Amount                 decimal.Decimal // unsigned magnitude
	Direction              Direction
	ValueDate              time.Time
	BookingDate            time.Time // zero when the format has none
	Description            string
	CounterpartyIdentifier string
	CounterpartyName       string
	Currency               string // empty = job default
	BankReference          string
}

// SignedAmount returns the amount with the sign implied by the direction:
// positive for credits, negative for debits.
func (r StatementRecord) SignedAmount() decimal.Decimal {
	if r.Direction == Credit {
		return r.Amount
	}
	return r.Amount.Neg()
}

// Date returns the value date, falling back to the booking date.
func (r StatementRecord) Date() time.Time {
	if r.ValueDate.IsZero() {
		return r.BookingDate
	}
	return r.ValueDate
}

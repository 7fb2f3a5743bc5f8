package bank

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/model"
)

// StatementHeader is the header of the generic statement CSV format.
const StatementHeader = "value_date,booking_date,amount,credit_debit,currency,description,counterparty_identifier,counterparty_name,reference"

const (
	stmtNumFields   = 9
	stmtDateFormat  = "2006-01-02"
	stmtColValue    = 0
	stmtColBooking  = 1
	stmtColAmount   = 2
	stmtColCD       = 3
	stmtColCurrency = 4
	stmtColDesc     = 5
	stmtColIdent    = 6
	stmtColName     = 7
	stmtColRef      = 8
)

// StatementCSVParser parses the generic statement CSV: unsigned amounts with
// an explicit C/D column.
type StatementCSVParser struct{}

// Format returns the parser name.
func (p *StatementCSVParser) Format() string { return "statement" }

// Parse reads a statement CSV and returns statement records.
func (p *StatementCSVParser) Parse(r io.Reader) ([]model.StatementRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = stmtNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var recs []model.StatementRecord
	for i, row := range rows[1:] {
		rec, err := parseStatementRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseStatementRow(row []string) (model.StatementRecord, error) {
	value, err := time.Parse(stmtDateFormat, row[stmtColValue])
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing value_date %q: %w", row[stmtColValue], err)
	}

	var booking time.Time
	if row[stmtColBooking] != "" {
		booking, err = time.Parse(stmtDateFormat, row[stmtColBooking])
		if err != nil {
			return model.StatementRecord{}, fmt.Errorf("parsing booking_date %q: %w", row[stmtColBooking], err)
		}
	}

	amount, err := decimal.NewFromString(row[stmtColAmount])
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing amount %q: %w", row[stmtColAmount], err)
	}
	if amount.IsNegative() {
		return model.StatementRecord{}, fmt.Errorf("amount %q must be unsigned", row[stmtColAmount])
	}

	dir, err := parseDirection(row[stmtColCD])
	if err != nil {
		return model.StatementRecord{}, err
	}

	return model.StatementRecord{
		Amount:                 amount,
		Direction:              dir,
		ValueDate:              value,
		BookingDate:            booking,
		Description:            row[stmtColDesc],
		CounterpartyIdentifier: strings.TrimSpace(row[stmtColIdent]),
		CounterpartyName:       strings.TrimSpace(row[stmtColName]),
		Currency:               strings.ToUpper(strings.TrimSpace(row[stmtColCurrency])),
		BankReference:          row[stmtColRef],
	}, nil
}

func parseDirection(s string) (model.Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "C", "CR", "CREDIT":
		return model.Credit, nil
	case "D", "DR", "DEBIT":
		return model.Debit, nil
	}
	return "", fmt.Errorf("parsing credit_debit %q: want C or D", s)
}

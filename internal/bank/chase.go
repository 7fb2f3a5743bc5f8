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

// ChaseParser parses Chase bank checking CSV exports. Chase amounts are
// signed; negative rows become debits.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns statement records.
func (p *ChaseParser) Parse(r io.Reader) ([]model.StatementRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var recs []model.StatementRecord
	for i, row := range records[1:] {
		rec, err := parseChaseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseChaseRow(row []string) (model.StatementRecord, error) {
	date, err := time.Parse(chaseDateFormat, row[chaseColDate])
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing date %q: %w", row[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(row[chaseColAmount])
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing amount %q: %w", row[chaseColAmount], err)
	}

	dir := model.Credit
	if amount.IsNegative() {
		dir = model.Debit
	}

	desc := row[chaseColDesc]
	return model.StatementRecord{
		Amount:           amount.Abs(),
		Direction:        dir,
		ValueDate:        date,
		BookingDate:      date,
		Description:      desc,
		CounterpartyName: chasePayee(desc),
		BankReference:    makeChaseRef(date, desc),
	}, nil
}

// chasePayee takes the merchant part of a card description:
// "GITHUB *PRO SUBSCRIPTION" -> "GITHUB".
func chasePayee(desc string) string {
	name, _, _ := strings.Cut(desc, "*")
	return strings.TrimSpace(name)
}

// makeChaseRef creates a reference like chase_20250103_GITHUB.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}

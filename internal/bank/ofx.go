package bank

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/model"
)

// OFXParser parses OFX/QFX downloads (bank and credit card statements).
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

// Parse reads an OFX response and returns the transactions of every
// statement in it.
func (p *OFXParser) Parse(r io.Reader) ([]model.StatementRecord, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}

	var recs []model.StatementRecord
	for _, msg := range append(resp.Bank, resp.CreditCard...) {
		var (
			list     *ofxgo.TransactionList
			currency string
		)
		switch stmt := msg.(type) {
		case *ofxgo.StatementResponse:
			list, currency = stmt.BankTranList, ofxCurrency(stmt.CurDef)
		case *ofxgo.CCStatementResponse:
			list, currency = stmt.BankTranList, ofxCurrency(stmt.CurDef)
		default:
			continue
		}
		if list == nil {
			continue
		}
		for i, t := range list.Transactions {
			rec, err := convertOFX(t, currency)
			if err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i+1, err)
			}
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func convertOFX(t ofxgo.Transaction, currency string) (model.StatementRecord, error) {
	amount, err := exactDecimal(&t.TrnAmt.Rat)
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing amount: %w", err)
	}
	dir := model.Credit
	if amount.IsNegative() {
		dir = model.Debit
	}

	name := strings.TrimSpace(string(t.Name))
	if t.Payee != nil && name == "" {
		name = strings.TrimSpace(string(t.Payee.Name))
	}

	var ident string
	if t.BankAcctTo != nil {
		ident = strings.TrimSpace(string(t.BankAcctTo.AcctID))
	}

	if t.Currency != nil {
		if c := ofxCurrency(t.Currency.CurSym); c != "" {
			currency = c
		}
	}

	desc := strings.TrimSpace(string(t.Memo))
	if desc == "" {
		desc = name
	}

	value := t.DtPosted.Time
	if t.DtUser != nil && !t.DtUser.IsZero() {
		value = t.DtUser.Time
	}

	return model.StatementRecord{
		Amount:                 amount.Abs(),
		Direction:              dir,
		ValueDate:              value,
		BookingDate:            t.DtPosted.Time,
		Description:            desc,
		CounterpartyIdentifier: ident,
		CounterpartyName:       name,
		Currency:               currency,
		BankReference:          string(t.FiTID),
	}, nil
}

// ofxCurrency returns the ISO code, or "" for an unset symbol.
func ofxCurrency(c ofxgo.CurrSymbol) string {
	s := c.String()
	if s == "XXX" {
		return ""
	}
	return s
}

// exactDecimal converts a rational parsed from decimal text without rounding.
// Such a rational's denominator has no prime factors other than 2 and 5.
func exactDecimal(r *big.Rat) (decimal.Decimal, error) {
	den := new(big.Int).Set(r.Denom())
	var scale int32
	for _, p := range []int64{2, 5} {
		var n int32
		prime := big.NewInt(p)
		for {
			q, m := new(big.Int).QuoRem(den, prime, new(big.Int))
			if m.Sign() != 0 {
				break
			}
			den = q
			n++
		}
		scale = max(scale, n)
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return decimal.Decimal{}, fmt.Errorf("amount %s has no exact decimal form", r.RatString())
	}
	return decimal.NewFromBigRat(r, scale), nil
}

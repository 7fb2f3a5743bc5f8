package bank

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/model"
)

// MT940Parser parses SWIFT MT940 account statements, the format FinTS/HBCI
// servers return for statement downloads. Structured :86: fields use the
// German ?NN subfield layout.
type MT940Parser struct{}

const mt940DateFormat = "060102"

// SEPA purpose keywords found inside :86: ?20..?29 text.
var sepaKeywords = []string{"EREF+", "KREF+", "MREF+", "CRED+", "DEBT+", "SVWZ+", "ABWA+", "ABWE+", "COAM+", "OAMT+"}

// Format returns the parser name.
func (p *MT940Parser) Format() string { return "mt940" }

type mt940Field struct {
	tag   string
	value string
}

// Parse reads one or more MT940 statements and returns their records in file order.
func (p *MT940Parser) Parse(r io.Reader) ([]model.StatementRecord, error) {
	fields, err := splitMT940(r)
	if err != nil {
		return nil, err
	}

	var (
		recs     []model.StatementRecord
		currency string
		pending  *model.StatementRecord
	)
	flush := func() {
		if pending != nil {
			recs = append(recs, *pending)
			pending = nil
		}
	}

	for i, f := range fields {
		switch f.tag {
		case "60F", "60M":
			flush()
			if len(f.value) >= 10 {
				currency = f.value[7:10]
			}
		case "61":
			flush()
			rec, err := parseMT940Entry(f.value)
			if err != nil {
				return nil, fmt.Errorf("field %d :61:: %w", i+1, err)
			}
			rec.Currency = currency
			pending = &rec
		case "86":
			if pending == nil {
				continue
			}
			desc, ident, name := parseMT940Info(f.value)
			pending.Description = desc
			pending.CounterpartyIdentifier = ident
			pending.CounterpartyName = name
		case "62F", "62M", "-":
			flush()
		}
	}
	flush()
	return recs, nil
}

// splitMT940 groups lines into tagged fields, joining continuation lines.
func splitMT940(r io.Reader) ([]mt940Field, error) {
	var fields []mt940Field
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "-" || strings.HasPrefix(line, "-}"):
			fields = append(fields, mt940Field{tag: "-"})
		case strings.HasPrefix(line, ":"):
			tag, value, ok := strings.Cut(line[1:], ":")
			if !ok {
				return nil, fmt.Errorf("malformed MT940 line %q", line)
			}
			fields = append(fields, mt940Field{tag: tag, value: value})
		case len(fields) > 0 && fields[len(fields)-1].tag != "-":
			fields[len(fields)-1].value += line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading MT940: %w", err)
	}
	return fields, nil
}

// parseMT940Entry parses a :61: statement line such as
// "2303010301C50,00NTRFNONREF//B3A01".
func parseMT940Entry(v string) (model.StatementRecord, error) {
	if len(v) < 6 {
		return model.StatementRecord{}, fmt.Errorf("line too short: %q", v)
	}
	value, err := time.Parse(mt940DateFormat, v[:6])
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing value date %q: %w", v[:6], err)
	}
	rest := v[6:]

	booking := value
	if len(rest) >= 4 && isDigits(rest[:4]) {
		booking, err = bookingDate(value, rest[:4])
		if err != nil {
			return model.StatementRecord{}, err
		}
		rest = rest[4:]
	}

	var dir model.Direction
	switch {
	case strings.HasPrefix(rest, "RC"):
		dir, rest = model.Debit, rest[2:]
	case strings.HasPrefix(rest, "RD"):
		dir, rest = model.Credit, rest[2:]
	case strings.HasPrefix(rest, "C"):
		dir, rest = model.Credit, rest[1:]
	case strings.HasPrefix(rest, "D"):
		dir, rest = model.Debit, rest[1:]
	default:
		return model.StatementRecord{}, fmt.Errorf("missing credit/debit mark in %q", v)
	}

	// Optional funds code (third letter of the currency code).
	if rest != "" && rest[0] >= 'A' && rest[0] <= 'Z' {
		rest = rest[1:]
	}

	n := 0
	for n < len(rest) && (isDigit(rest[n]) || rest[n] == ',') {
		n++
	}
	raw := strings.Replace(rest[:n], ",", ".", 1)
	if strings.HasSuffix(raw, ".") {
		raw += "0"
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.StatementRecord{}, fmt.Errorf("parsing amount %q: %w", rest[:n], err)
	}
	rest = rest[n:]

	// Transaction type code (e.g. NTRF), then references.
	if len(rest) >= 4 {
		rest = rest[4:]
	}
	customerRef, bankRef, _ := strings.Cut(rest, "//")
	ref := strings.TrimSpace(customerRef)
	if ref == "" || ref == "NONREF" {
		ref = strings.TrimSpace(bankRef)
	}

	return model.StatementRecord{
		Amount:        amount,
		Direction:     dir,
		ValueDate:     value,
		BookingDate:   booking,
		BankReference: ref,
	}, nil
}

// bookingDate places an MMDD entry date in the year of the value date,
// adjusting across a year boundary.
func bookingDate(value time.Time, mmdd string) (time.Time, error) {
	d, err := time.Parse("0102", mmdd)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing entry date %q: %w", mmdd, err)
	}
	year := value.Year()
	switch {
	case d.Month() == time.January && value.Month() == time.December:
		year++
	case d.Month() == time.December && value.Month() == time.January:
		year--
	}
	return time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseMT940Info splits a :86: field into purpose text, counterparty
// identifier and counterparty name. Unstructured fields are all purpose.
func parseMT940Info(v string) (desc, ident, name string) {
	if !strings.Contains(v, "?") {
		return strings.TrimSpace(v), "", ""
	}

	var purpose, names strings.Builder
	var postingText string
	for _, part := range strings.Split(v, "?")[1:] {
		if len(part) < 2 {
			continue
		}
		code, val := part[:2], part[2:]
		switch {
		case code == "00":
			postingText = val
		case code >= "20" && code <= "29", code >= "60" && code <= "63":
			purpose.WriteString(val)
		case code == "31":
			ident = strings.TrimSpace(val)
		case code == "32", code == "33":
			names.WriteString(val)
		}
	}

	desc = sepaPurpose(purpose.String())
	if desc == "" {
		desc = strings.TrimSpace(postingText)
	}
	return desc, ident, strings.TrimSpace(names.String())
}

// sepaPurpose returns the SVWZ+ remittance text when the purpose carries SEPA
// keywords, otherwise the purpose as is.
func sepaPurpose(s string) string {
	i := strings.Index(s, "SVWZ+")
	if i < 0 {
		return strings.TrimSpace(s)
	}
	text := s[i+len("SVWZ+"):]
	end := len(text)
	for _, kw := range sepaKeywords {
		if j := strings.Index(text, kw); j >= 0 && j < end {
			end = j
		}
	}
	return strings.TrimSpace(text[:end])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

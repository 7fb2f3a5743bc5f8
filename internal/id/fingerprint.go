package id

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bankfeed/bankfeed/internal/model"
)

const fingerprintLen = 16

// Fingerprint returns a stable content hash of a statement record. Two
// records with the same date, direction, amount, currency, counterparty,
// description and bank reference share a fingerprint.
func Fingerprint(rec model.StatementRecord) string {
	parts := []string{
		rec.Date().Format(model.DateFormat),
		string(rec.Direction),
		rec.Amount.StringFixed(2),
		strings.ToUpper(rec.Currency),
		NormalizeIdentifier(rec.CounterpartyIdentifier),
		strings.TrimSpace(rec.CounterpartyName),
		strings.TrimSpace(rec.Description),
		rec.BankReference,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// NormalizeIdentifier strips whitespace and upper-cases an IBAN or account
// number so "de12 3456" and "DE123456" compare equal.
func NormalizeIdentifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, s)
}

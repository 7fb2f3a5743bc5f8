package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/id"
	"github.com/bankfeed/bankfeed/internal/model"
	"github.com/bankfeed/bankfeed/internal/resolve"
)

// OpposingResolver finds or creates the account on the other side of a
// statement record.
type OpposingResolver interface {
	Resolve(ctx context.Context, explicitID *int, amount decimal.Decimal, hints resolve.Hints) (model.Account, error)
}

// Converter turns statement records into transaction drafts.
type Converter struct {
	resolver OpposingResolver
	userID   int
	currency string
}

// NewConverter creates a Converter. currency is used for records that do not
// name their own.
func NewConverter(resolver OpposingResolver, userID int, currency string) *Converter {
	return &Converter{resolver: resolver, userID: userID, currency: currency}
}

// ErrSameAccount is returned when a record's counterparty resolves to the
// local account itself.
var ErrSameAccount = errors.New("opposing account is the local account")

// Convert maps one statement record against the local account. Resolver
// failures are returned as is; a counterparty equal to the local account
// yields ErrSameAccount.
func (c *Converter) Convert(ctx context.Context, rec model.StatementRecord, local model.Account) (model.TransactionDraft, error) {
	amount := rec.SignedAmount()

	opposing, err := c.resolver.Resolve(ctx, nil, amount, resolve.Hints{
		Identifier: rec.CounterpartyIdentifier,
		Name:       rec.CounterpartyName,
	})
	if err != nil {
		return model.TransactionDraft{}, err
	}
	if opposing.ID == local.ID {
		return model.TransactionDraft{}, ErrSameAccount
	}

	source, destination := local, opposing
	if rec.Direction == model.Credit {
		source, destination = destination, source
	}

	currency := strings.ToUpper(strings.TrimSpace(rec.Currency))
	if currency == "" {
		currency = c.currency
	}

	return model.TransactionDraft{
		UserID:        c.userID,
		Type:          Classify(rec.Direction, source.Type, destination.Type),
		Date:          model.CalendarDate(rec.Date()),
		Description:   rec.Description,
		CurrencyCode:  currency,
		Amount:        amount.Abs(),
		SourceID:      source.ID,
		DestinationID: destination.ID,
		Counterparty:  opposing.Name,
		Fingerprint:   id.Fingerprint(rec),
	}, nil
}

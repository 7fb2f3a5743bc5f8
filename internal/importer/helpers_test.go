package importer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/accounts"
	"github.com/bankfeed/bankfeed/internal/model"
	"github.com/bankfeed/bankfeed/internal/resolve"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ledger returns a store with local asset account A (id 1) and its sibling
// asset account B (id 2), both owned by user 1.
func ledger() *accounts.Service {
	return accounts.NewService([]model.Account{
		{ID: 1, Name: "A", Type: model.AccountTypeAsset, Identifier: "DE001", UserID: 1},
		{ID: 2, Name: "B", Type: model.AccountTypeAsset, Identifier: "DE002", UserID: 1},
		{ID: 3, Name: "Card", Type: model.AccountTypeLiability, UserID: 1},
		{ID: 9, Name: "Other user", Type: model.AccountTypeAsset, UserID: 2},
	})
}

type fakeClient struct {
	records []model.StatementRecord
	err     error
	calls   int

	gotSelector string
	gotFrom     time.Time
	gotTo       time.Time
}

func (c *fakeClient) FetchStatement(_ context.Context, selector string, from, to time.Time) ([]model.StatementRecord, error) {
	c.calls++
	c.gotSelector, c.gotFrom, c.gotTo = selector, from, to
	return c.records, c.err
}

type failingResolver struct {
	err   error
	after int // succeed this many times first
	inner OpposingResolver
}

func (r *failingResolver) Resolve(ctx context.Context, explicitID *int, amount decimal.Decimal, hints resolve.Hints) (model.Account, error) {
	if r.after > 0 {
		r.after--
		return r.inner.Resolve(ctx, explicitID, amount, hints)
	}
	return model.Account{}, r.err
}

func refund() model.StatementRecord {
	return model.StatementRecord{
		Amount:                 dec("50.00"),
		Direction:              model.Credit,
		ValueDate:              time.Date(2023, 3, 1, 14, 30, 0, 0, time.UTC),
		Description:            "Refund",
		CounterpartyIdentifier: "DE123",
		CounterpartyName:       "Alice",
	}
}

func toSavings() model.StatementRecord {
	return model.StatementRecord{
		Amount:                 dec("20.00"),
		Direction:              model.Debit,
		ValueDate:              date(2023, 3, 2),
		Description:            "Move to savings",
		CounterpartyIdentifier: "DE002",
		CounterpartyName:       "B",
	}
}

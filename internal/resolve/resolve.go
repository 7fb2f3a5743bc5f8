// Package resolve finds or creates the opposing account of a bank
// transaction in the local ledger.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/id"
	"github.com/bankfeed/bankfeed/internal/model"
)

// UnknownName names counterparties created without any hint.
const UnknownName = "Unknown counterparty"

// Store is the account lookup and creation collaborator.
type Store interface {
	FindByID(ctx context.Context, accountID int) (model.Account, error)
	FindByIdentifier(ctx context.Context, identifier string, userID int) ([]model.Account, error)
	FindByName(ctx context.Context, name string, userID int) ([]model.Account, error)
	Create(ctx context.Context, params model.NewAccount) (model.Account, error)
}

// Hints identify a counterparty as the bank reports it.
type Hints struct {
	Identifier string // IBAN or account number
	Name       string
}

// Resolver maps counterparty hints to accounts owned by one user. Results
// are memoized, so the same hints resolve to the same account for the
// lifetime of the resolver.
type Resolver struct {
	store  Store
	userID int
	memo   *cache.Cache
	locks  *Locks
	log    zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLocks shares a per-user lock table between resolvers, so concurrent
// imports for the same user do not race to create the same counterparty.
func WithLocks(l *Locks) Option {
	return func(r *Resolver) { r.locks = l }
}

// WithLogger sets the resolver logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a Resolver for userID.
func New(store Store, userID int, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		userID: userID,
		memo:   cache.New(cache.NoExpiration, 0),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locks == nil {
		r.locks = NewLocks()
	}
	return r
}

// Resolve returns the account for explicitID when set. Otherwise it searches
// the user's accounts by hints and creates a counterparty account if none
// matches. amount only breaks ties between several matching accounts.
func (r *Resolver) Resolve(ctx context.Context, explicitID *int, amount decimal.Decimal, hints Hints) (model.Account, error) {
	if explicitID != nil {
		acct, err := r.store.FindByID(ctx, *explicitID)
		if err != nil {
			return model.Account{}, fmt.Errorf("resolving account %d: %w", *explicitID, err)
		}
		if acct.UserID != r.userID {
			return model.Account{}, fmt.Errorf("resolving account %d for user %d: %w", *explicitID, r.userID, model.ErrAccountNotFound)
		}
		return acct, nil
	}

	key := r.memoKey(hints)
	if v, ok := r.memo.Get(key); ok {
		return v.(model.Account), nil
	}

	acct, ok, err := r.lookup(ctx, amount, hints)
	if err != nil {
		return model.Account{}, err
	}
	if !ok {
		acct, err = r.create(ctx, amount, hints)
		if err != nil {
			return model.Account{}, err
		}
	}

	r.memo.Set(key, acct, cache.NoExpiration)
	return acct, nil
}

func (r *Resolver) create(ctx context.Context, amount decimal.Decimal, hints Hints) (model.Account, error) {
	unlock := r.locks.Lock(r.userID)
	defer unlock()

	// Another resolver for this user may have created it while we waited.
	if acct, ok, err := r.lookup(ctx, amount, hints); err != nil || ok {
		return acct, err
	}

	params := model.NewAccount{
		Name:       displayName(hints),
		Type:       model.AccountTypeCounterparty,
		Identifier: strings.TrimSpace(hints.Identifier),
		UserID:     r.userID,
	}
	acct, err := r.store.Create(ctx, params)
	if errors.Is(err, model.ErrDuplicateAccount) {
		// Lost a race outside our lock table; the winner's row is the answer.
		if found, ok, lerr := r.lookup(ctx, amount, hints); lerr == nil && ok {
			return found, nil
		}
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("creating counterparty %q: %w", params.Name, err)
	}

	r.log.Info().
		Int("account_id", acct.ID).
		Str("name", acct.Name).
		Str("identifier", acct.Identifier).
		Int("user_id", r.userID).
		Msg("created counterparty account")
	return acct, nil
}

type candidate struct {
	acct  model.Account
	match int // 0 exact identifier, 1 normalized identifier, 2 name
}

func (r *Resolver) lookup(ctx context.Context, amount decimal.Decimal, hints Hints) (model.Account, bool, error) {
	var cands []candidate

	ident := strings.TrimSpace(hints.Identifier)
	if ident != "" {
		accts, err := r.store.FindByIdentifier(ctx, ident, r.userID)
		if err != nil {
			return model.Account{}, false, fmt.Errorf("finding account by identifier %q: %w", ident, err)
		}
		for _, a := range accts {
			match := 1
			if strings.TrimSpace(a.Identifier) == ident {
				match = 0
			}
			cands = append(cands, candidate{acct: a, match: match})
		}
	}

	name := strings.TrimSpace(hints.Name)
	if len(cands) == 0 && name != "" {
		accts, err := r.store.FindByName(ctx, name, r.userID)
		if err != nil {
			return model.Account{}, false, fmt.Errorf("finding account by name %q: %w", name, err)
		}
		for _, a := range accts {
			// A name match that carries a different bank identifier is a
			// different party.
			if ident != "" && a.Identifier != "" {
				continue
			}
			cands = append(cands, candidate{acct: a, match: 2})
		}
	}

	if len(cands) == 0 {
		return model.Account{}, false, nil
	}
	return best(cands, amount), true, nil
}

// best orders candidates by match quality, then by type preference for the
// amount's sign, then by id.
func best(cands []candidate, amount decimal.Decimal) model.Account {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.match != b.match {
			return a.match < b.match
		}
		ta, tb := typeRank(a.acct.Type, amount), typeRank(b.acct.Type, amount)
		if ta != tb {
			return ta < tb
		}
		return a.acct.ID < b.acct.ID
	})
	return cands[0].acct
}

func typeRank(t model.AccountType, amount decimal.Decimal) int {
	switch {
	case t.IsAsset():
		return 0
	case t == model.AccountTypeExpense && amount.IsNegative():
		return 1
	case t == model.AccountTypeRevenue && amount.IsPositive():
		return 1
	case t == model.AccountTypeCounterparty:
		return 2
	default:
		return 3
	}
}

func displayName(h Hints) string {
	if n := strings.TrimSpace(h.Name); n != "" {
		return n
	}
	if i := strings.TrimSpace(h.Identifier); i != "" {
		return i
	}
	return UnknownName
}

func (r *Resolver) memoKey(h Hints) string {
	return fmt.Sprintf("%d|%s|%s", r.userID, id.NormalizeIdentifier(h.Identifier), strings.ToLower(strings.TrimSpace(h.Name)))
}

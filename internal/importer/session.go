// Package importer converts bank statements into canonical double-entry
// transaction drafts.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bankfeed/bankfeed/internal/bank"
	"github.com/bankfeed/bankfeed/internal/logger"
	"github.com/bankfeed/bankfeed/internal/model"
)

// DefaultCurrency is used when neither the job nor the record names one.
const DefaultCurrency = "EUR"

// AccountFinder looks up the job's local account.
type AccountFinder interface {
	FindByID(ctx context.Context, accountID int) (model.Account, error)
}

// Session runs import jobs: fetch, convert, accumulate. It never persists.
type Session struct {
	client   bank.Client
	accounts AccountFinder
	resolver OpposingResolver
	currency string
	log      *zerolog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Without it, Run logs to the logger
// carried by its context.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = &l }
}

// WithCurrency sets the currency for jobs and records that name none.
func WithCurrency(code string) Option {
	return func(s *Session) { s.currency = code }
}

// NewSession creates a Session over its collaborators.
func NewSession(client bank.Client, accounts AccountFinder, resolver OpposingResolver, opts ...Option) *Session {
	s := &Session{
		client:   client,
		accounts: accounts,
		resolver: resolver,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fetches the job's statement and converts every record in order. The
// drafts are appended to the job only when the whole statement converts;
// the first failing record aborts the run. Running a job twice without Reset
// accumulates duplicates.
func (s *Session) Run(ctx context.Context, job *Job) error {
	base := logger.FromContext(ctx)
	if s.log != nil {
		base = *s.log
	}
	log := base.With().Str("job", job.Name).Str("job_id", job.ID).Logger()

	if err := job.Validate(); err != nil {
		return err
	}

	local, err := s.accounts.FindByID(ctx, job.LocalAccountID)
	if err != nil {
		return &ConfigurationError{Job: job.Name, Reason: fmt.Sprintf("local account %d", job.LocalAccountID), Err: err}
	}
	if local.UserID != job.UserID {
		return &ConfigurationError{Job: job.Name, Reason: fmt.Sprintf("local account %d belongs to user %d, not %d", local.ID, local.UserID, job.UserID)}
	}

	log.Info().
		Str("remote_account", job.RemoteAccount).
		Str("from", job.From.Format(model.DateFormat)).
		Str("to", job.To.Format(model.DateFormat)).
		Msg("fetching statement")

	records, err := s.client.FetchStatement(ctx, job.RemoteAccount, job.From, job.To)
	if err != nil {
		return &FetchError{Job: job.Name, Err: err}
	}

	currency := job.Currency
	if currency == "" {
		currency = s.currency
	}
	conv := NewConverter(s.resolver, job.UserID, currency)

	drafts := make([]model.TransactionDraft, 0, len(records))
	for i, rec := range records {
		log.Debug().
			Int("index", i).
			Str("description", rec.Description).
			Str("amount", rec.Amount.String()).
			Str("direction", string(rec.Direction)).
			Msg("converting record")

		draft, err := conv.Convert(ctx, rec, local)
		if errors.Is(err, ErrSameAccount) {
			return &ConsistencyError{Index: i, Record: rec, Reason: fmt.Sprintf("counterparty resolves to local account %d", local.ID)}
		}
		if err != nil {
			return &ResolutionError{Index: i, Record: rec, Err: err}
		}
		drafts = append(drafts, draft)
	}

	job.append(drafts)
	log.Info().Int("records", len(records)).Int("drafts", len(drafts)).Msg("statement converted")
	return nil
}

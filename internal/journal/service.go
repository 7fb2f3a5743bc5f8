// Package journal persists balanced double-entry legs in monthly
// journal.csv files.
package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed/bankfeed/internal/id"
	"github.com/bankfeed/bankfeed/internal/model"
)

// FingerprintPrefix marks leg references that carry a statement fingerprint.
const FingerprintPrefix = "fp:"

// Service provides business logic for journal entries.
type Service struct {
	repoRoot string
	accounts AccountChecker
}

// NewService creates a journal Service.
func NewService(repoRoot string, accounts AccountChecker) *Service {
	return &Service{repoRoot: repoRoot, accounts: accounts}
}

// entryParams describes one balanced two-leg entry.
type entryParams struct {
	Date          time.Time
	Description   string
	DebitAccount  int
	CreditAccount int
	Amount        decimal.Decimal
	Currency      string
	Type          model.TransactionType
	Counterparty  string
	Reference     string
	Status        model.EntryStatus
	Tags          string
	Notes         string
}

// CommitResult summarizes a Commit.
type CommitResult struct {
	EntryIDs   []string // in draft order
	Duplicates int      // drafts matched to an already journaled entry
	ZeroAmount int      // drafts skipped for a zero amount
}

// Commit writes each draft as a pending-review entry, debiting the
// destination and crediting the source. Fingerprints are matched as a
// multiset: if a month already holds n entries with a fingerprint, the first
// n drafts carrying it are skipped and the rest are written. Identical
// records within one statement therefore all land on the first import and
// none on a re-run. Every affected month is validated before anything is
// written, so a failing batch leaves the journal untouched.
func (s *Service) Commit(drafts []model.TransactionDraft) (CommitResult, error) {
	type monthKey struct{ year, month int }
	type pending struct {
		existing  []model.Leg
		journaled map[string]int
		seq       int
		legs      []model.Leg
	}

	var res CommitResult
	months := make(map[monthKey]*pending)
	var order []monthKey

	for _, d := range drafts {
		if d.Amount.IsZero() {
			res.ZeroAmount++
			continue
		}

		k := monthKey{d.Date.Year(), int(d.Date.Month())}
		p, ok := months[k]
		if !ok {
			existing, err := s.ReadMonth(k.year, k.month)
			if err != nil {
				return CommitResult{}, err
			}
			p = &pending{existing: existing, journaled: fingerprints(existing), seq: nextSeq(existing)}
			months[k] = p
			order = append(order, k)
		}

		if d.Fingerprint != "" && p.journaled[d.Fingerprint] > 0 {
			p.journaled[d.Fingerprint]--
			res.Duplicates++
			continue
		}

		entryID := id.FormatEntryID(k.year, k.month, p.seq)
		p.seq++
		p.legs = append(p.legs, entryLegs(entryID, draftParams(d))...)
		res.EntryIDs = append(res.EntryIDs, entryID)
	}

	for _, k := range order {
		p := months[k]
		if err := s.validate(p.existing, p.legs, k.year, k.month); err != nil {
			return CommitResult{}, fmt.Errorf("%04d-%02d: %w", k.year, k.month, err)
		}
	}
	for _, k := range order {
		p := months[k]
		if len(p.legs) == 0 {
			continue
		}
		if err := s.appendMonth(k.year, k.month, p.legs); err != nil {
			return res, err
		}
	}
	return res, nil
}

// ReadMonth reads all legs for a given year/month.
func (s *Service) ReadMonth(year, month int) ([]model.Leg, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	legs, err := ReadLegs(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return legs, nil
}

func (s *Service) validate(existing, newLegs []model.Leg, year, month int) error {
	all := make([]model.Leg, 0, len(existing)+len(newLegs))
	all = append(all, existing...)
	all = append(all, newLegs...)

	verrs := ValidateLegs(all, s.accounts, year, month)
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// appendMonth appends legs to the month's journal (create dir + header if new).
func (s *Service) appendMonth(year, month int, legs []model.Leg) error {
	journalPath := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(journalPath); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(journalPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendLegs(f, legs); err != nil {
		return fmt.Errorf("appending legs: %w", err)
	}
	return nil
}

func (s *Service) monthPath(year, month int) string {
	return filepath.Join(s.repoRoot, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "journal.csv")
}

func entryLegs(entryID string, params entryParams) []model.Leg {
	leg := model.Leg{
		Date:         params.Date,
		Description:  params.Description,
		Currency:     params.Currency,
		Type:         params.Type,
		Counterparty: params.Counterparty,
		Reference:    params.Reference,
		Status:       params.Status,
		Tags:         params.Tags,
		Notes:        params.Notes,
	}

	debit, credit := leg, leg
	debit.EntryID = id.FormatLegID(entryID, 0)
	debit.AccountID = params.DebitAccount
	debit.Debit = params.Amount
	credit.EntryID = id.FormatLegID(entryID, 1)
	credit.AccountID = params.CreditAccount
	credit.Credit = params.Amount
	return []model.Leg{debit, credit}
}

func draftParams(d model.TransactionDraft) entryParams {
	p := entryParams{
		Date:          model.CalendarDate(d.Date),
		Description:   d.Description,
		DebitAccount:  d.DestinationID,
		CreditAccount: d.SourceID,
		Amount:        d.Amount,
		Currency:      d.CurrencyCode,
		Type:          d.Type,
		Counterparty:  d.Counterparty,
		Status:        model.StatusPendingReview,
		Tags:          strings.Join(d.Tags, ";"),
	}
	if d.Fingerprint != "" {
		p.Reference = FingerprintPrefix + d.Fingerprint
	}
	if d.Notes != nil {
		p.Notes = *d.Notes
	}
	return p
}

// fingerprints counts the journaled entries per fingerprint. Both legs of an
// entry carry the reference, so entries are counted by group.
func fingerprints(legs []model.Leg) map[string]int {
	groups := make(map[string]map[string]bool)
	for _, leg := range legs {
		fp, ok := strings.CutPrefix(leg.Reference, FingerprintPrefix)
		if !ok || fp == "" {
			continue
		}
		if groups[fp] == nil {
			groups[fp] = make(map[string]bool)
		}
		groups[fp][id.EntryGroup(leg.EntryID)] = true
	}
	counts := make(map[string]int, len(groups))
	for fp, entries := range groups {
		counts[fp] = len(entries)
	}
	return counts
}

func nextSeq(legs []model.Leg) int {
	maxSeq := 0
	for _, leg := range legs {
		_, _, seq, err := id.ParseEntryID(leg.EntryID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

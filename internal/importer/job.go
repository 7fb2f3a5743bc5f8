package importer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bankfeed/bankfeed/internal/model"
)

// Job is the configuration and result accumulator of one import run.
type Job struct {
	ID             string
	Name           string
	UserID         int
	LocalAccountID int
	RemoteAccount  string // selector handed to the banking client
	From           time.Time
	To             time.Time
	Currency       string // empty = session default

	drafts []model.TransactionDraft
}

// NewJob creates a job with a fresh id.
func NewJob(name string, userID, localAccountID int, remoteAccount string, from, to time.Time) *Job {
	return &Job{
		ID:             uuid.NewString(),
		Name:           name,
		UserID:         userID,
		LocalAccountID: localAccountID,
		RemoteAccount:  remoteAccount,
		From:           from,
		To:             to,
	}
}

// Validate checks the job configuration.
func (j *Job) Validate() error {
	fail := func(reason string) error {
		return &ConfigurationError{Job: j.Name, Reason: reason}
	}
	switch {
	case j.LocalAccountID <= 0:
		return fail("local account id is required")
	case strings.TrimSpace(j.RemoteAccount) == "":
		return fail("remote account selector is required")
	case j.From.IsZero() || j.To.IsZero():
		return fail("date range is required")
	case model.CalendarDate(j.From).After(model.CalendarDate(j.To)):
		return fail("from date is after to date")
	}
	return nil
}

// Transactions returns a copy of the accumulated drafts in statement order.
func (j *Job) Transactions() []model.TransactionDraft {
	out := make([]model.TransactionDraft, len(j.drafts))
	copy(out, j.drafts)
	return out
}

// Reset clears the accumulator so the job can be run again without
// duplicating drafts.
func (j *Job) Reset() {
	j.drafts = nil
}

func (j *Job) append(drafts []model.TransactionDraft) {
	j.drafts = append(j.drafts, drafts...)
}

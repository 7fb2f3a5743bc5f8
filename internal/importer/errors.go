package importer

import (
	"fmt"

	"github.com/bankfeed/bankfeed/internal/model"
)

// ConfigurationError reports an invalid or incomplete import job. It is
// raised before anything is fetched.
type ConfigurationError struct {
	Job    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import job %q: %s: %v", e.Job, e.Reason, e.Err)
	}
	return fmt.Sprintf("import job %q: %s", e.Job, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FetchError reports that the banking client could not deliver a statement.
type FetchError struct {
	Job string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("import job %q: fetching statement: %v", e.Job, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ResolutionError reports the statement record whose opposing account could
// not be found or created. Index is the record's position in the statement.
type ResolutionError struct {
	Index  int
	Record model.StatementRecord
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("record %d (%s %s %s %q): resolving opposing account: %v",
		e.Index, e.Record.Date().Format(model.DateFormat), e.Record.Direction,
		e.Record.Amount.StringFixed(2), e.Record.Description, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ConsistencyError reports a violated invariant. It is not retried.
type ConsistencyError struct {
	Index  int
	Record model.StatementRecord
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("record %d (%q): %s", e.Index, e.Record.Description, e.Reason)
}

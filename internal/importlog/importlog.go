// Package importlog keeps an append-only CSV audit trail of import runs.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Actions recorded by the import command.
const (
	ActionImported = "imported"
	ActionFailed   = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	Job        string
	JobID      string
	Action     string
	Details    string
	Drafts     int // drafts produced by the session
	Entries    int // journal entries written
	CommitHash string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,job,job_id,action,details,drafts,entries,commit_hash"

const (
	numFields     = 8
	logDir        = "logs"
	logFile       = "logs/import-log.csv"
	colTimestamp  = 0
	colJob        = 1
	colJobID      = 2
	colAction     = 3
	colDetails    = 4
	colDrafts     = 5
	colEntries    = 6
	colCommitHash = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colJob] = e.Job
	row[colJobID] = e.JobID
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colDrafts] = strconv.Itoa(e.Drafts)
	row[colEntries] = strconv.Itoa(e.Entries)
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	drafts, err := atoi(record[colDrafts])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing drafts %q: %w", record[colDrafts], err)
	}
	entries, err := atoi(record[colEntries])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing entries %q: %w", record[colEntries], err)
	}

	return Entry{
		Timestamp:  ts,
		Job:        record[colJob],
		JobID:      record[colJobID],
		Action:     record[colAction],
		Details:    record[colDetails],
		Drafts:     drafts,
		Entries:    entries,
		CommitHash: record[colCommitHash],
	}, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Append writes entries to <repoRoot>/logs/import-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// ForJob returns the entries recorded for one job, oldest first.
func ForJob(repoRoot, job string) ([]Entry, error) {
	all, err := Read(repoRoot)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Job == job {
			out = append(out, e)
		}
	}
	return out, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

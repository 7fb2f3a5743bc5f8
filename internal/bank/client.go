// Package bank reads bank statements and exposes them through the Client
// interface consumed by the importer.
package bank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bankfeed/bankfeed/internal/model"
)

// ErrNoStatement is returned when no statement file matches a selector.
var ErrNoStatement = errors.New("no statement found")

// Client fetches the statement of a remote account for a date range. Records
// come back in the order the bank reports them.
type Client interface {
	FetchStatement(ctx context.Context, selector string, from, to time.Time) ([]model.StatementRecord, error)
}

// FileClient serves statements from files in a ledger repository's import
// directory. The selector is a file name prefix.
type FileClient struct {
	repoRoot string
	registry *Registry
	format   string
}

// NewFileClient creates a FileClient. format forces a parser; empty means
// pick by file extension.
func NewFileClient(repoRoot string, registry *Registry, format string) *FileClient {
	return &FileClient{repoRoot: repoRoot, registry: registry, format: format}
}

// Files returns the statement files a selector matches.
func (c *FileClient) Files(selector string) ([]FileInfo, error) {
	all, err := Scan(c.repoRoot)
	if err != nil {
		return nil, err
	}
	return Select(all, selector), nil
}

// FetchStatement parses every matching file and returns the records whose
// date falls within [from, to].
func (c *FileClient) FetchStatement(ctx context.Context, selector string, from, to time.Time) ([]model.StatementRecord, error) {
	files, err := c.Files(selector)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("selector %q: %w", selector, ErrNoStatement)
	}

	var recs []model.StatementRecord
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed, err := c.parseFile(fi)
		if err != nil {
			return nil, err
		}
		for _, rec := range parsed {
			if inWindow(rec, from, to) {
				recs = append(recs, rec)
			}
		}
	}
	return recs, nil
}

// SplitByWindow partitions the selector's files into those whose records
// all fall within [from, to] and those holding records outside it. Only the
// first group has been fully imported by a FetchStatement over that window.
func (c *FileClient) SplitByWindow(selector string, from, to time.Time) (covered, partial []FileInfo, err error) {
	files, err := c.Files(selector)
	if err != nil {
		return nil, nil, err
	}
	for _, fi := range files {
		parsed, err := c.parseFile(fi)
		if err != nil {
			return nil, nil, err
		}
		whole := true
		for _, rec := range parsed {
			if !inWindow(rec, from, to) {
				whole = false
				break
			}
		}
		if whole {
			covered = append(covered, fi)
		} else {
			partial = append(partial, fi)
		}
	}
	return covered, partial, nil
}

func inWindow(rec model.StatementRecord, from, to time.Time) bool {
	d := model.CalendarDate(rec.Date())
	return !d.Before(model.CalendarDate(from)) && !d.After(model.CalendarDate(to))
}

func (c *FileClient) parseFile(fi FileInfo) ([]model.StatementRecord, error) {
	p, err := c.registry.ForFile(fi.Name, c.format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fi.Path)
	if err != nil {
		return nil, fmt.Errorf("opening statement %s: %w", fi.Name, err)
	}
	defer f.Close()

	recs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", fi.Name, p.Format(), err)
	}
	return recs, nil
}

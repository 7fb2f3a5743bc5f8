package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bankfeed/bankfeed/internal/bank"
	"github.com/bankfeed/bankfeed/internal/config"
	"github.com/bankfeed/bankfeed/internal/gitops"
	"github.com/bankfeed/bankfeed/internal/importer"
	"github.com/bankfeed/bankfeed/internal/importlog"
	"github.com/bankfeed/bankfeed/internal/journal"
	"github.com/bankfeed/bankfeed/internal/logger"
	"github.com/bankfeed/bankfeed/internal/model"
	"github.com/bankfeed/bankfeed/internal/resolve"
)

// defaultLookback is the import window when neither the job nor --from sets
// a start date.
const defaultLookback = 90 * 24 * time.Hour

// maxConcurrentJobs bounds how many statements are fetched at once.
const maxConcurrentJobs = 4

type importOptions struct {
	repoDir string
	from    string
	to      string
	dryRun  bool
	archive bool
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [job...]",
		Short: "Import bank statements for the configured jobs",
		Long: "Fetches each job's statement, resolves counterparties and writes the\n" +
			"resulting transactions to the journal as pending-review entries.\n" +
			"Without arguments every configured job runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(opts.repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			opts.repoDir = absDir
			return runImport(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&opts.from, "from", "", "first statement date (YYYY-MM-DD), overrides the job")
	cmd.Flags().StringVar(&opts.to, "to", "", "last statement date (YYYY-MM-DD), overrides the job")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the transactions without writing anything")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "move imported statement files to import/processed")

	return cmd
}

// jobRun pairs a configured job with its session state.
type jobRun struct {
	job    *importer.Job
	client *bank.FileClient
	result journal.CommitResult
}

func runImport(ctx context.Context, out io.Writer, opts importOptions, names []string) error {
	l, err := openLedger(ctx, opts.repoDir, opts.dryRun)
	if err != nil {
		return err
	}
	defer l.accounts.Close()

	runs, err := planJobs(l, opts, names)
	if err != nil {
		return err
	}

	// One lock table for all jobs, so concurrent sessions create each
	// counterparty once.
	locks := resolve.NewLocks()
	log := l.log
	g, gctx := errgroup.WithContext(logger.WithContext(ctx, log))
	g.SetLimit(maxConcurrentJobs)
	for _, r := range runs {
		r := r
		g.Go(func() error {
			resolver := resolve.New(l.accounts, l.cfg.Ledger.UserID,
				resolve.WithLocks(locks),
				resolve.WithLogger(log.With().Str("job", r.job.Name).Logger()))
			session := importer.NewSession(r.client, l.accounts, resolver,
				importer.WithCurrency(l.cfg.Ledger.BaseCurrency))
			return session.Run(gctx, r.job)
		})
	}
	if err := g.Wait(); err != nil {
		if !opts.dryRun {
			logFailure(l, runs, err)
		}
		return err
	}

	if opts.dryRun {
		for _, r := range runs {
			printDrafts(out, r.job)
		}
		return nil
	}

	return commitRuns(l, out, runs, opts.archive)
}

// archiveStatements moves statement files into import/processed. A file
// holding records outside the job's window stays put, since those records
// were not imported.
func archiveStatements(l *ledger, out io.Writer, runs []*jobRun) error {
	for _, r := range runs {
		covered, partial, err := r.client.SplitByWindow(r.job.RemoteAccount, r.job.From, r.job.To)
		if err != nil {
			return fmt.Errorf("import job %q: archiving: %w", r.job.Name, err)
		}
		for _, f := range covered {
			if err := bank.MarkProcessed(l.root, f.Name); err != nil {
				return err
			}
		}
		for _, f := range partial {
			l.log.Warn().
				Str("job", r.job.Name).
				Str("file", f.Name).
				Msg("statement has records outside the import window, not archived")
			fmt.Fprintf(out, "%s: kept %s, it has records outside %s..%s\n",
				r.job.Name, f.Name, r.job.From.Format(model.DateFormat), r.job.To.Format(model.DateFormat))
		}
	}
	return nil
}

// planJobs builds one importer job per selected config entry.
func planJobs(l *ledger, opts importOptions, names []string) ([]*jobRun, error) {
	selected := l.cfg.ImportJobs
	if len(names) > 0 {
		selected = selected[:0:0]
		for _, name := range names {
			j, err := l.cfg.Job(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, j)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no import jobs configured in %s", config.FileName)
	}

	flagFrom, err := parseDay(opts.from)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	flagTo, err := parseDay(opts.to)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}

	registry := bank.DefaultRegistry()
	runs := make([]*jobRun, 0, len(selected))
	for _, jc := range selected {
		from, to, err := jc.Range()
		if err != nil {
			return nil, err
		}
		if !flagFrom.IsZero() {
			from = flagFrom
		}
		if !flagTo.IsZero() {
			to = flagTo
		}
		if to.IsZero() {
			to = model.CalendarDate(time.Now())
		}
		if from.IsZero() {
			from = to.Add(-defaultLookback)
		}

		job := importer.NewJob(jc.Name, l.cfg.Ledger.UserID, jc.LocalAccount, jc.RemoteAccount, from, to)
		job.Currency = strings.ToUpper(jc.Currency)
		runs = append(runs, &jobRun{
			job:    job,
			client: bank.NewFileClient(l.root, registry, jc.Format),
		})
	}
	return runs, nil
}

// commitRuns writes each job's drafts to the journal in job order, persists
// new counterparties, archives statements and records the run.
func commitRuns(l *ledger, out io.Writer, runs []*jobRun, archive bool) error {
	jr := journal.NewService(l.root, l.accounts)

	total := 0
	for _, r := range runs {
		res, err := jr.Commit(r.job.Transactions())
		if err != nil {
			return fmt.Errorf("import job %q: committing: %w", r.job.Name, err)
		}
		r.result = res
		total += len(res.EntryIDs)

		l.log.Info().
			Str("job", r.job.Name).
			Int("entries", len(res.EntryIDs)).
			Int("duplicates", res.Duplicates).
			Int("zero_amount", res.ZeroAmount).
			Msg("journal updated")
		fmt.Fprintf(out, "%s: %d transactions, %d new entries, %d duplicates skipped\n",
			r.job.Name, len(r.job.Transactions()), len(res.EntryIDs), res.Duplicates)
	}

	if err := l.accounts.Flush(); err != nil {
		return fmt.Errorf("saving accounts: %w", err)
	}

	if archive {
		if err := archiveStatements(l, out, runs); err != nil {
			return err
		}
	}

	hash, err := commitLedger(l, runs, total)
	if err != nil {
		return err
	}

	now := time.Now()
	entries := make([]importlog.Entry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, importlog.Entry{
			Timestamp:  now,
			Job:        r.job.Name,
			JobID:      r.job.ID,
			Action:     importlog.ActionImported,
			Details:    fmt.Sprintf("%s %s..%s", r.job.RemoteAccount, r.job.From.Format(model.DateFormat), r.job.To.Format(model.DateFormat)),
			Drafts:     len(r.job.Transactions()),
			Entries:    len(r.result.EntryIDs),
			CommitHash: hash,
		})
	}
	if err := importlog.Append(l.root, entries); err != nil {
		return fmt.Errorf("writing import log: %w", err)
	}
	return nil
}

// commitLedger makes the import commit when auto-commit is on. It returns
// the short hash, or "" when nothing was committed.
func commitLedger(l *ledger, runs []*jobRun, total int) (string, error) {
	if !l.cfg.Git.AutoCommit || !gitops.IsRepo(l.root) {
		return "", nil
	}
	changed, err := gitops.HasChanges(l.root)
	if err != nil || !changed {
		return "", err
	}

	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.job.Name
	}
	msg := fmt.Sprintf("import: %s (%d entries)", strings.Join(names, ", "), total)
	hash, err := gitops.CommitAll(l.root, msg, l.cfg.Git.AuthorName, l.cfg.Git.AuthorEmail)
	if err != nil {
		return "", fmt.Errorf("committing import: %w", err)
	}
	return hash, nil
}

// logFailure records a failed run. Jobs that were cancelled alongside the
// failing one are recorded too.
func logFailure(l *ledger, runs []*jobRun, cause error) {
	now := time.Now()
	entries := make([]importlog.Entry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, importlog.Entry{
			Timestamp: now,
			Job:       r.job.Name,
			JobID:     r.job.ID,
			Action:    importlog.ActionFailed,
			Details:   cause.Error(),
		})
	}
	if err := importlog.Append(l.root, entries); err != nil {
		l.log.Warn().Err(err).Msg("writing import log")
	}
}

func printDrafts(out io.Writer, job *importer.Job) {
	drafts := job.Transactions()
	fmt.Fprintf(out, "%s: %d transactions (dry run)\n", job.Name, len(drafts))
	for _, d := range drafts {
		fmt.Fprintf(out, "  %s  %-10s %12s %-3s  %d -> %d  %s\n",
			d.DateString(), d.Type, d.Amount.StringFixed(2), d.CurrencyCode,
			d.SourceID, d.DestinationID, d.Description)
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateFormat, s)
}

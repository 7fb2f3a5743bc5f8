package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed/bankfeed/internal/config"
	"github.com/bankfeed/bankfeed/internal/importlog"
	"github.com/bankfeed/bankfeed/internal/journal"
	"github.com/bankfeed/bankfeed/internal/model"
)

// newLedger initializes a ledger with the generic CSV statement staged for
// the default "checking" job.
func newLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)
	copyFixture(t, "statement.csv", filepath.Join(dir, "import", "checking-2023-03.csv"))
	return dir
}

func editConfig(t *testing.T, dir string, edit func(*config.Config)) {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	edit(cfg)
	require.NoError(t, config.Save(path, cfg))
}

func readMarch(t *testing.T, dir string) []model.Leg {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "2023", "03", "journal.csv"))
	require.NoError(t, err)
	defer f.Close()

	legs, err := journal.ReadLegs(f)
	require.NoError(t, err)
	return legs
}

func march(dir string, extra ...string) []string {
	return append([]string{"import", "--repo", dir, "--from", "2023-03-01", "--to", "2023-03-31"}, extra...)
}

func TestImport(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, march(dir)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 4 transactions, 3 new entries, 0 duplicates skipped")

	legs := readMarch(t, dir)
	require.Len(t, legs, 6)

	// Refund from Alice: Alice is credited, checking is debited.
	assert.Equal(t, "2023-03-001a", legs[0].EntryID)
	assert.Equal(t, 1010, legs[0].AccountID)
	assert.True(t, legs[0].Debit.Equal(dec("50.00")))
	assert.Equal(t, model.TypeDeposit, legs[0].Type)
	assert.Equal(t, model.StatusPendingReview, legs[0].Status)
	assert.True(t, strings.HasPrefix(legs[0].Reference, journal.FingerprintPrefix))

	// Move to savings: a transfer between two asset accounts.
	assert.Equal(t, 1020, legs[2].AccountID)
	assert.Equal(t, 1010, legs[3].AccountID)
	assert.Equal(t, model.TypeTransfer, legs[2].Type)
	assert.Equal(t, "EUR", legs[2].Currency, "base currency fills the gap")

	assert.Equal(t, model.TypeWithdrawal, legs[4].Type)

	// Alice, REWE Markt and Bank were created as counterparties.
	chart := readChart(t, dir)
	require.Len(t, chart, 14)
	var names []string
	for _, a := range chart[11:] {
		assert.Equal(t, model.AccountTypeCounterparty, a.Type)
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"Alice", "REWE Markt", "Bank"}, names)

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importlog.ActionImported, entries[0].Action)
	assert.Equal(t, 4, entries[0].Drafts)
	assert.Equal(t, 3, entries[0].Entries)
	assert.NotEmpty(t, entries[0].CommitHash)

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	gitOut, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(gitOut), "import: checking (3 entries)")
}

func TestImport_RerunSkipsDuplicates(t *testing.T) {
	dir := newLedger(t)

	_, err := runBankfeed(t, march(dir)...)
	require.NoError(t, err)

	out, err := runBankfeed(t, march(dir)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 4 transactions, 0 new entries, 3 duplicates skipped")

	assert.Len(t, readMarch(t, dir), 6)
	assert.Len(t, readChart(t, dir), 14, "counterparties are reused")
}

func TestImport_DryRun(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, march(dir, "--dry-run")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 4 transactions (dry run)")
	assert.Contains(t, out, "2023-03-01  deposit")
	assert.Contains(t, out, "Move to savings")

	_, err = os.Stat(filepath.Join(dir, "2023"))
	assert.True(t, os.IsNotExist(err), "dry run writes no journal")
	assert.Len(t, readChart(t, dir), 11, "dry run creates no accounts")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImport_DateRangeFromFlags(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, "import", "--repo", dir, "--from", "2023-04-01", "--to", "2023-04-30")
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 1 transactions, 1 new entries")

	_, err = os.Stat(filepath.Join(dir, "2023", "04", "journal.csv"))
	require.NoError(t, err)
}

func TestImport_Archive(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, "import", "--repo", dir, "--from", "2023-03-01", "--to", "2023-04-30", "--archive")
	require.NoError(t, err, out)

	_, err = os.Stat(filepath.Join(dir, "import", "checking-2023-03.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "checking-2023-03.csv"))
	assert.NoError(t, err)
}

func TestImport_ArchiveKeepsPartlyImportedStatement(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, march(dir, "--archive")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: kept checking-2023-03.csv, it has records outside 2023-03-01..2023-03-31")

	_, err = os.Stat(filepath.Join(dir, "import", "checking-2023-03.csv"))
	assert.NoError(t, err)

	// The April record is picked up by a later run.
	out, err = runBankfeed(t, "import", "--repo", dir, "--from", "2023-04-01", "--to", "2023-04-30", "--archive")
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 1 transactions, 1 new entries")
}

func TestImport_UnknownJob(t *testing.T) {
	dir := newLedger(t)

	out, err := runBankfeed(t, march(dir, "brokerage")...)
	require.Error(t, err)
	assert.Contains(t, out, `import job "brokerage" not configured`)
}

func TestImport_MissingStatementIsLogged(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	out, err := runBankfeed(t, march(dir)...)
	require.Error(t, err)
	assert.Contains(t, out, "fetching statement")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importlog.ActionFailed, entries[0].Action)
	assert.Contains(t, entries[0].Details, "no statement")
}

func TestImport_ConcurrentJobsShareCounterparties(t *testing.T) {
	dir := newLedger(t)
	copyFixture(t, "statement.ofx", filepath.Join(dir, "import", "card-2023-03.ofx"))
	editConfig(t, dir, func(cfg *config.Config) {
		cfg.ImportJobs = append(cfg.ImportJobs, config.ImportJob{
			Name: "card", LocalAccount: 2010, RemoteAccount: "card",
		})
	})

	out, err := runBankfeed(t, march(dir)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 4 transactions, 3 new entries")
	assert.Contains(t, out, "card: 2 transactions, 2 new entries")

	assert.Len(t, readMarch(t, dir), 10)

	chart := readChart(t, dir)
	assert.Len(t, chart, 14, "Alice and REWE Markt are created once")
}

func TestImport_SQLiteBackend(t *testing.T) {
	dir := newLedger(t)
	editConfig(t, dir, func(cfg *config.Config) {
		cfg.Accounts.Backend = config.BackendSQLite
		cfg.Accounts.SQLitePath = "accounts.db"
	})

	out, err := runBankfeed(t, march(dir)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "checking: 4 transactions, 3 new entries")

	assert.Len(t, readChart(t, dir), 11, "the CSV chart only seeds the database")

	out, err = runBankfeed(t, "accounts", "list", "--repo", dir, "--type", "counterparty")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "REWE Markt")
	assert.NotContains(t, out, "Checking")
}

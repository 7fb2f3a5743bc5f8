package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household", "EUR")
	cfg.Accounts = AccountsConfig{Backend: BackendSQLite, SQLitePath: "accounts.db"}
	cfg.ImportJobs = []ImportJob{
		{
			Name:          "checking",
			LocalAccount:  1010,
			RemoteAccount: "DE89370400440532013000",
			Format:        "mt940",
			FromDate:      "2023-03-01",
			ToDate:        "2023-03-31",
		},
	}

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Ledger, got.Ledger)
	assert.Equal(t, cfg.Accounts, got.Accounts)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Git, got.Git)
	require.Len(t, got.ImportJobs, 1)
	assert.Equal(t, cfg.ImportJobs[0], got.ImportJobs[0])
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Ledger", "EUR")

	assert.Equal(t, "My Ledger", cfg.Ledger.Name)
	assert.Equal(t, 1, cfg.Ledger.UserID)
	assert.Equal(t, "EUR", cfg.Ledger.BaseCurrency)
	assert.Equal(t, BackendCSV, cfg.Accounts.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Equal(t, "bankfeed", cfg.Git.AuthorName)
	assert.Empty(t, cfg.ImportJobs)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Ledger", "CHF")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Ledger")
	assert.Contains(t, contents, "base_currency: CHF")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "auto_commit: true")
	assert.NotContains(t, contents, "import_jobs")
}

func TestJob(t *testing.T) {
	cfg := Default("L", "EUR")
	cfg.ImportJobs = []ImportJob{{Name: "checking"}, {Name: "savings"}}

	j, err := cfg.Job("savings")
	require.NoError(t, err)
	assert.Equal(t, "savings", j.Name)

	_, err = cfg.Job("brokerage")
	assert.EqualError(t, err, `import job "brokerage" not configured`)
}

func TestImportJobRange(t *testing.T) {
	j := ImportJob{Name: "checking", FromDate: "2023-03-01", ToDate: "2023-03-31"}
	from, to, err := j.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), to)

	from, to, err = ImportJob{Name: "open"}.Range()
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = ImportJob{Name: "bad", ToDate: "31.03.2023"}.Range()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to_date")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BANKFEED_LOG_LEVEL", "debug")
	t.Setenv("BANKFEED_LOG_FORMAT", "json")
	t.Setenv("BANKFEED_BASE_CURRENCY", "usd")
	t.Setenv("BANKFEED_USER_ID", "7")

	cfg := Default("L", "EUR")
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "USD", cfg.Ledger.BaseCurrency)
	assert.Equal(t, 7, cfg.Ledger.UserID)
}

func TestApplyEnv_BadUserID(t *testing.T) {
	t.Setenv("BANKFEED_USER_ID", "seven")
	cfg := Default("L", "EUR")
	assert.Error(t, cfg.ApplyEnv())
	assert.Equal(t, 1, cfg.Ledger.UserID)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BANKFEED_LOG_LEVEL=warn\nBANKFEED_BASE_CURRENCY=GBP\n"), 0o644))

	// Registered so t.Setenv restores the original state after the test.
	t.Setenv("BANKFEED_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("BANKFEED_LOG_LEVEL"))
	t.Setenv("BANKFEED_BASE_CURRENCY", "JPY")

	require.NoError(t, LoadEnvFile(dir))
	assert.Equal(t, "warn", os.Getenv("BANKFEED_LOG_LEVEL"))
	assert.Equal(t, "JPY", os.Getenv("BANKFEED_BASE_CURRENCY"), "existing variables win")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(t.TempDir()))
}

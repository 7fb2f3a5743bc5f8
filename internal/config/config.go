package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a ledger repo.
const FileName = "bankfeed.yaml"

// Backend values for AccountsConfig.Backend.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Ledger     LedgerConfig   `yaml:"ledger"`
	Accounts   AccountsConfig `yaml:"accounts"`
	ImportJobs []ImportJob    `yaml:"import_jobs,omitempty"`
	Log        LogConfig      `yaml:"log"`
	Git        GitConfig      `yaml:"git"`
}

// LedgerConfig identifies the ledger and its owner.
type LedgerConfig struct {
	Name         string `yaml:"name"`
	UserID       int    `yaml:"user_id"`
	BaseCurrency string `yaml:"base_currency"`
}

// AccountsConfig selects where the chart of accounts lives.
type AccountsConfig struct {
	Backend    string `yaml:"backend"`               // csv or sqlite
	SQLitePath string `yaml:"sqlite_path,omitempty"` // relative to the repo root
}

// ImportJob maps a bank statement source to a local account.
type ImportJob struct {
	Name          string `yaml:"name"`
	LocalAccount  int    `yaml:"local_account"`
	RemoteAccount string `yaml:"remote_account"`      // statement file prefix
	Format        string `yaml:"format,omitempty"`    // empty = by extension
	FromDate      string `yaml:"from_date,omitempty"` // YYYY-MM-DD
	ToDate        string `yaml:"to_date,omitempty"`   // YYYY-MM-DD
	Currency      string `yaml:"currency,omitempty"`  // empty = ledger base currency
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a bankfeed.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(ledgerName, baseCurrency string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:         ledgerName,
			UserID:       1,
			BaseCurrency: baseCurrency,
		},
		Accounts: AccountsConfig{
			Backend: BackendCSV,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "bankfeed",
			AuthorEmail: "bankfeed@localhost",
		},
	}
}

// Job returns the import job with the given name.
func (c *Config) Job(name string) (ImportJob, error) {
	for _, j := range c.ImportJobs {
		if j.Name == name {
			return j, nil
		}
	}
	return ImportJob{}, fmt.Errorf("import job %q not configured", name)
}

// Range parses the job's date range. Missing bounds are returned as the zero
// time.
func (j ImportJob) Range() (from, to time.Time, err error) {
	if from, err = parseDate(j.FromDate); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("import job %q: from_date: %w", j.Name, err)
	}
	if to, err = parseDate(j.ToDate); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("import job %q: to_date: %w", j.Name, err)
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// LoadEnvFile reads dir/.env into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadEnvFile(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overlays BANKFEED_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("BANKFEED_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BANKFEED_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("BANKFEED_BASE_CURRENCY"); v != "" {
		c.Ledger.BaseCurrency = strings.ToUpper(v)
	}
	if v := os.Getenv("BANKFEED_USER_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BANKFEED_USER_ID %q: %w", v, err)
		}
		c.Ledger.UserID = id
	}
	return nil
}

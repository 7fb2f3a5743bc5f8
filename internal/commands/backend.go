package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bankfeed/bankfeed/internal/accounts"
	"github.com/bankfeed/bankfeed/internal/accounts/sqlstore"
	"github.com/bankfeed/bankfeed/internal/config"
	"github.com/bankfeed/bankfeed/internal/logger"
	"github.com/bankfeed/bankfeed/internal/model"
	"github.com/bankfeed/bankfeed/internal/resolve"
)

// ledger is a loaded repo: its config, logger and chart of accounts.
type ledger struct {
	root     string
	cfg      *config.Config
	log      zerolog.Logger
	accounts accountBackend
}

// accountBackend is a chart of accounts the import pipeline can resolve
// against, validate with and persist.
type accountBackend interface {
	resolve.Store
	Exists(accountID int) bool
	List(ctx context.Context) ([]model.Account, error)
	// Flush persists accounts created since open.
	Flush() error
	Close() error
}

// openLedger loads <root>/.env and bankfeed.yaml and opens the configured
// account backend. A read-only ledger never writes accounts back.
func openLedger(ctx context.Context, root string, readOnly bool) (*ledger, error) {
	if err := config.LoadEnvFile(root); err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	log := logger.New(os.Stderr, cfg.Log.Level, logger.Format(cfg.Log.Format)).
		With().Str("ledger", cfg.Ledger.Name).Logger()

	var backend accountBackend
	switch cfg.Accounts.Backend {
	case "", config.BackendCSV:
		svc, err := accounts.Load(root)
		if err != nil {
			return nil, err
		}
		backend = &csvBackend{Service: svc, root: root, readOnly: readOnly}
	case config.BackendSQLite:
		backend, err = openSQLite(ctx, root, cfg, readOnly)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown accounts backend %q", cfg.Accounts.Backend)
	}

	return &ledger{root: root, cfg: cfg, log: log, accounts: backend}, nil
}

func openSQLite(ctx context.Context, root string, cfg *config.Config, readOnly bool) (accountBackend, error) {
	path := cfg.Accounts.SQLitePath
	if path == "" {
		path = "accounts.db"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	store, err := sqlstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := seedFromChart(ctx, root, store); err != nil {
		store.Close()
		return nil, err
	}
	if !readOnly {
		return &sqliteBackend{Store: store}, nil
	}

	// Resolve against an in-memory snapshot so created accounts are discarded.
	all, err := store.All(ctx)
	store.Close()
	if err != nil {
		return nil, err
	}
	return &csvBackend{Service: accounts.NewService(all), root: root, readOnly: true}, nil
}

// seedFromChart copies the CSV chart into an empty database.
func seedFromChart(ctx context.Context, root string, store *sqlstore.Store) error {
	existing, err := store.All(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	svc, err := accounts.Load(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return store.Seed(ctx, svc.All())
}

type csvBackend struct {
	*accounts.Service
	root     string
	readOnly bool
}

func (b *csvBackend) List(context.Context) ([]model.Account, error) {
	return b.All(), nil
}

func (b *csvBackend) Flush() error {
	if b.readOnly || !b.Dirty() {
		return nil
	}
	return b.Save(b.root)
}

func (b *csvBackend) Close() error { return nil }

type sqliteBackend struct {
	*sqlstore.Store
}

func (b *sqliteBackend) List(ctx context.Context) ([]model.Account, error) {
	return b.All(ctx)
}

// Flush is a no-op: every Create is already committed.
func (b *sqliteBackend) Flush() error { return nil }

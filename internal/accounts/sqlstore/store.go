// Package sqlstore keeps the chart of accounts in a SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bankfeed/bankfeed/internal/id"
	"github.com/bankfeed/bankfeed/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createdIDBase = 9000

const selectColumns = "id, name, type, parent_id, identifier, user_id, description"

// Store is a SQLite-backed account store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening account database %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging account database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed inserts accounts with their given ids, skipping ids that already exist.
func (s *Store) Seed(ctx context.Context, accounts []model.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range accounts {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO accounts (id, name, type, parent_id, identifier, norm_ident, user_id, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, string(a.Type), a.ParentID, a.Identifier, id.NormalizeIdentifier(a.Identifier), a.UserID, a.Description)
		if err != nil {
			return fmt.Errorf("seeding account %d: %w", a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// FindByID returns the account with the given id or model.ErrAccountNotFound.
func (s *Store) FindByID(ctx context.Context, accountID int) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM accounts WHERE id = ?", accountID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %d: %w", accountID, model.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("querying account %d: %w", accountID, err)
	}
	return a, nil
}

// FindByIdentifier returns the user's accounts matching the normalized identifier.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string, userID int) ([]model.Account, error) {
	norm := id.NormalizeIdentifier(identifier)
	if norm == "" {
		return nil, nil
	}
	return s.query(ctx, "SELECT "+selectColumns+" FROM accounts WHERE user_id = ? AND norm_ident = ? ORDER BY id", userID, norm)
}

// FindByName returns the user's accounts with a case-insensitive name match.
func (s *Store) FindByName(ctx context.Context, name string, userID int) ([]model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	return s.query(ctx, "SELECT "+selectColumns+" FROM accounts WHERE user_id = ? AND name = ? COLLATE NOCASE ORDER BY id", userID, name)
}

// All returns every account ordered by id.
func (s *Store) All(ctx context.Context) ([]model.Account, error) {
	return s.query(ctx, "SELECT "+selectColumns+" FROM accounts ORDER BY id")
}

// Exists reports whether an account id exists.
func (s *Store) Exists(accountID int) bool {
	_, err := s.FindByID(context.Background(), accountID)
	return err == nil
}

// Create inserts a new account. A second account with the same non-empty
// identifier for the same user fails with model.ErrDuplicateAccount.
func (s *Store) Create(ctx context.Context, params model.NewAccount) (model.Account, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return model.Account{}, fmt.Errorf("creating account: name is required")
	}

	var next int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, name, type, identifier, norm_ident, user_id)
		 VALUES ((SELECT max(coalesce(max(id), 0), ?) + 1 FROM accounts), ?, ?, ?, ?, ?)
		 RETURNING id`,
		createdIDBase, name, string(params.Type), params.Identifier, id.NormalizeIdentifier(params.Identifier), params.UserID).Scan(&next)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, fmt.Errorf("identifier %q for user %d: %w", params.Identifier, params.UserID, model.ErrDuplicateAccount)
		}
		return model.Account{}, fmt.Errorf("inserting account: %w", err)
	}

	return model.Account{
		ID:         next,
		Name:       name,
		Type:       params.Type,
		Identifier: params.Identifier,
		UserID:     params.UserID,
	}, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var result []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (model.Account, error) {
	var a model.Account
	var typ string
	if err := row.Scan(&a.ID, &a.Name, &typ, &a.ParentID, &a.Identifier, &a.UserID, &a.Description); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	return a, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlitedrv.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

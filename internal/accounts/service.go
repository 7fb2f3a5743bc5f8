package accounts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bankfeed/bankfeed/internal/id"
	"github.com/bankfeed/bankfeed/internal/model"
)

// createdIDBase is the floor for ids assigned to accounts created at runtime,
// keeping them clear of the hand-numbered chart.
const createdIDBase = 9000

// Service provides in-memory lookup over the chart of accounts. It is safe
// for concurrent use.
type Service struct {
	mu       sync.RWMutex
	accounts []model.Account
	byID     map[int]int // id -> index into accounts
	dirty    bool
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	s := &Service{
		accounts: make([]model.Account, len(accounts)),
		byID:     make(map[int]int, len(accounts)),
	}
	copy(s.accounts, accounts)
	for i, a := range s.accounts {
		s.byID[a.ID] = i
	}
	return s
}

// Load reads chart-of-accounts.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	path := chartPath(repoRoot)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns a copy of all accounts.
func (s *Service) All() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Get returns an account by ID.
func (s *Service) Get(accountID int) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[accountID]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(accountID int) bool {
	_, ok := s.Get(accountID)
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// FindByID returns the account with the given id or model.ErrAccountNotFound.
func (s *Service) FindByID(_ context.Context, accountID int) (model.Account, error) {
	a, ok := s.Get(accountID)
	if !ok {
		return model.Account{}, fmt.Errorf("account %d: %w", accountID, model.ErrAccountNotFound)
	}
	return a, nil
}

// FindByIdentifier returns the user's accounts whose identifier matches after
// normalization. An empty identifier matches nothing.
func (s *Service) FindByIdentifier(_ context.Context, identifier string, userID int) ([]model.Account, error) {
	want := id.NormalizeIdentifier(identifier)
	if want == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Account
	for _, a := range s.accounts {
		if a.UserID == userID && id.NormalizeIdentifier(a.Identifier) == want {
			result = append(result, a)
		}
	}
	return result, nil
}

// FindByName returns the user's accounts whose name matches, ignoring case
// and surrounding whitespace.
func (s *Service) FindByName(_ context.Context, name string, userID int) ([]model.Account, error) {
	want := strings.TrimSpace(name)
	if want == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Account
	for _, a := range s.accounts {
		if a.UserID == userID && strings.EqualFold(strings.TrimSpace(a.Name), want) {
			result = append(result, a)
		}
	}
	return result, nil
}

// Create adds an account and assigns it the next free id. It fails with
// model.ErrDuplicateAccount if the user already owns an account with the same
// non-empty identifier.
func (s *Service) Create(_ context.Context, params model.NewAccount) (model.Account, error) {
	if strings.TrimSpace(params.Name) == "" {
		return model.Account{}, fmt.Errorf("creating account: name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := id.NormalizeIdentifier(params.Identifier)
	maxID := createdIDBase
	for _, a := range s.accounts {
		if norm != "" && a.UserID == params.UserID && id.NormalizeIdentifier(a.Identifier) == norm {
			return model.Account{}, fmt.Errorf("identifier %q for user %d: %w", params.Identifier, params.UserID, model.ErrDuplicateAccount)
		}
		if a.ID > maxID {
			maxID = a.ID
		}
	}

	acct := model.Account{
		ID:         maxID + 1,
		Name:       strings.TrimSpace(params.Name),
		Type:       params.Type,
		Identifier: params.Identifier,
		UserID:     params.UserID,
	}
	s.byID[acct.ID] = len(s.accounts)
	s.accounts = append(s.accounts, acct)
	s.dirty = true
	return acct, nil
}

// Dirty reports whether accounts were created since the last Save.
func (s *Service) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func (s *Service) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, "accounts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(chartPath(repoRoot))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	s.dirty = false
	return nil
}

func chartPath(repoRoot string) string {
	return filepath.Join(repoRoot, "accounts", "chart-of-accounts.csv")
}

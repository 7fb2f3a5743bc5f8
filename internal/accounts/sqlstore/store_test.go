package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankfeed/bankfeed/internal/accounts"
	"github.com/bankfeed/bankfeed/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), accounts.DefaultChart("personal", 1)))
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), accounts.DefaultChart("personal", 1)))
	require.NoError(t, s.Close())

	// Migrations are already applied on the second open.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Exists(1010))
}

func TestSeed_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, accounts.DefaultChart("personal", 1)))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(accounts.DefaultChart("personal", 1)))
}

func TestFindByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.FindByID(ctx, 1010)
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
	assert.Equal(t, model.AccountTypeAsset, a.Type)
	assert.Equal(t, 1, a.UserID)

	_, err = s.FindByID(ctx, 4242)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
	assert.False(t, s.Exists(4242))
}

func TestCreateAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, model.NewAccount{Name: "Alice", Type: model.AccountTypeCounterparty, Identifier: "DE12 5001 0517", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 9001, created.ID)

	byIdent, err := s.FindByIdentifier(ctx, "de1250010517", 1)
	require.NoError(t, err)
	require.Len(t, byIdent, 1)
	assert.Equal(t, created, byIdent[0])

	byName, err := s.FindByName(ctx, "ALICE", 1)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, created.ID, byName[0].ID)

	other, err := s.FindByIdentifier(ctx, "DE1250010517", 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreate_Duplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, model.NewAccount{Name: "Alice", Identifier: "DE123", UserID: 1})
	require.NoError(t, err)

	_, err = s.Create(ctx, model.NewAccount{Name: "Alice 2", Identifier: "de 123", UserID: 1})
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)

	// Empty identifiers are never unique-constrained.
	_, err = s.Create(ctx, model.NewAccount{Name: "Cash", UserID: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, model.NewAccount{Name: "Cash", UserID: 1})
	require.NoError(t, err)
}

func TestCreate_ConcurrentSameIdentifier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create(ctx, model.NewAccount{Name: "Bob", Identifier: "NL91ABNA0417164300", UserID: 1})
		}()
	}
	wg.Wait()

	got, err := s.FindByIdentifier(ctx, "NL91ABNA0417164300", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

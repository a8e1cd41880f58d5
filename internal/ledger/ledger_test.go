package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every operation
type failingStore struct {
	saves int
}

func (s *failingStore) Load(context.Context) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func (s *failingStore) Save(context.Context, []string) error {
	s.saves++
	return errors.New("disk full")
}

func TestLedger_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	once := New(NewFileStore(fs, "once/history.json"), nil)
	assert.True(t, once.Add("123"))
	require.NoError(t, once.Persist(ctx))

	twice := New(NewFileStore(fs, "twice/history.json"), nil)
	assert.True(t, twice.Add("123"))
	assert.False(t, twice.Add("123"))
	require.NoError(t, twice.Persist(ctx))

	assert.Equal(t, once.IDs(), twice.IDs())

	a, err := afero.ReadFile(fs, "once/history.json")
	require.NoError(t, err)
	b, err := afero.ReadFile(fs, "twice/history.json")
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestLedger_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "applications/history.json")

	l := New(store, nil)
	l.Load(ctx)
	assert.Equal(t, 0, l.Len())
	require.NoError(t, l.Record(ctx, "111"))
	require.NoError(t, l.Record(ctx, "222"))

	reloaded := New(store, nil)
	reloaded.Load(ctx)
	assert.True(t, reloaded.Contains("111"))
	assert.True(t, reloaded.Contains("222"))
	assert.False(t, reloaded.Contains("333"))
	assert.Equal(t, []string{"111", "222"}, reloaded.IDs())
}

func TestLedger_CorruptStorageLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "history.json", []byte("{not json"), 0o644))

	l := New(NewFileStore(fs, "history.json"), nil)
	l.Load(ctx)

	assert.Equal(t, 0, l.Len())
}

func TestLedger_UnreadableStoreLoadsEmpty(t *testing.T) {
	l := New(&failingStore{}, nil)
	l.Load(context.Background())
	assert.Equal(t, 0, l.Len())
}

func TestLedger_PersistFailureKeepsMemoryState(t *testing.T) {
	store := &failingStore{}
	l := New(store, nil)

	err := l.Record(context.Background(), "555")
	require.Error(t, err)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.True(t, l.Contains("555"))
	assert.Equal(t, 1, store.saves)
}

func TestLedger_IgnoresEmptyID(t *testing.T) {
	l := New(&failingStore{}, nil)
	assert.False(t, l.Add(""))
	assert.Equal(t, 0, l.Len())
}

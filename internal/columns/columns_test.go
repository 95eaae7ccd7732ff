package columns

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-crm-backend/internal/services"
)

func TestDefaults(t *testing.T) {
	cols := Defaults()
	require.Len(t, cols, 12)
	assert.Equal(t, "prenom", cols[0].ID)
	assert.Equal(t, "notes", cols[11].ID)

	visible := 0
	for _, c := range cols {
		if c.Visible {
			visible++
		}
	}
	assert.Equal(t, 8, visible)

	// Callers get their own copy.
	cols[0].Label = "changed"
	assert.Equal(t, "Prénom", Defaults()[0].Label)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
	require.NoError(t, Validate(nil))

	err := Validate([]Column{{ID: "nom"}, {ID: " "}, {ID: "nom"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrValidation)

	var ve *services.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 2)
	assert.Equal(t, "columns[1].id", ve.Errors[0].Field)
	assert.Equal(t, "columns[2].id", ve.Errors[1].Field)
}

func TestManager_DefaultsWhenUnset(t *testing.T) {
	m := NewManager(NewMemStore())
	cols, err := m.Columns(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cols)
}

func TestManager_SetColumnsReplacesWhole(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	m := NewManager(store)

	custom := []Column{
		{ID: "societe", Label: "Société", Visible: true, Width: "200px", Type: "text"},
		{ID: " nom ", Label: "Nom", Visible: true, Width: "150px", Type: "text"},
	}
	require.NoError(t, m.SetColumns(ctx, "alice", custom))

	got, err := m.Columns(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "societe", got[0].ID)
	assert.Equal(t, "nom", got[1].ID)

	// Persisted, so a fresh manager sees it too.
	got, err = NewManager(store).Columns(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Other clients are untouched.
	other, err := m.Columns(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, other, 12)
}

func TestManager_SetColumnsRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemStore())
	err := m.SetColumns(ctx, "alice", []Column{{ID: "nom"}, {ID: "nom"}})
	assert.ErrorIs(t, err, services.ErrValidation)

	cols, err := m.Columns(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cols, 12, "rejected config must not be applied")
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemStore())
	require.NoError(t, m.SetColumns(ctx, "alice", []Column{{ID: "nom"}}))
	require.NoError(t, m.Reset(ctx, "alice"))

	cols, err := m.Columns(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cols)
}

type brokenStore struct{ *MemStore }

func (brokenStore) Save(context.Context, string, []Column) error { return errors.New("disk full") }

func TestManager_SaveFailure(t *testing.T) {
	ctx := context.Background()
	m := NewManager(brokenStore{NewMemStore()})
	err := m.SetColumns(ctx, "alice", []Column{{ID: "nom"}})
	assert.ErrorIs(t, err, services.ErrStore)

	cols, err := m.Columns(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cols, 12)
}

// blockingStore parks the first Load until release is closed.
type blockingStore struct {
	*MemStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Load(ctx context.Context, client string) ([]Column, bool, error) {
	cols, found, err := s.MemStore.Load(ctx, client)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return cols, found, err
}

func TestManager_SetColumnsDuringLoadIsNotLost(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{MemStore: NewMemStore(), entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(store)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := m.Columns(ctx, "alice")
		assert.NoError(t, err)
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		assert.NoError(t, m.SetColumns(ctx, "alice", []Column{{ID: "nom"}}))
	}()
	close(store.release)
	wg.Wait()

	got, err := m.Columns(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "nom", got[0].ID)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "prefs")
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	_, found, err := fs.Load(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, fs.Save(ctx, "alice", Defaults()))
	_, err = os.Stat(filepath.Join(dir, "alice.contacts-columns.json"))
	require.NoError(t, err)

	cols, found, err := fs.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, Defaults(), cols)

	require.NoError(t, fs.Delete(ctx, "alice"))
	require.NoError(t, fs.Delete(ctx, "alice"))
	_, found, err = fs.Load(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStore_AcceptsCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	body := `[
  // hand edited
  {"id": "nom", "label": "Nom", "visible": true, "width": "150px", "type": "text",},
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.contacts-columns.json"), []byte(body), 0o644))

	cols, found, err := fs.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, cols, 1)
	assert.Equal(t, "nom", cols[0].ID)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "alice-1_b", safeName("alice-1_b"))
	assert.Equal(t, "%2e%2e%2fetc", safeName("../etc"))
	assert.Equal(t, "_", safeName(""))
}

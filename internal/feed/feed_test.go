package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// fakeStore is an in-memory notification store recording every update.
type fakeStore struct {
	mu      sync.Mutex
	items   []domain.Notification
	fetches int
	updates []string
	failOn  map[int]bool   // 1-based update call numbers that fail
	fetchFn func()         // runs inside Filter before returning
	writeFn func(call int) // runs at the start of each Update, unlocked
}

func (s *fakeStore) Filter(ctx context.Context, where map[string]any, _ string, limit int) ([]domain.Notification, error) {
	if s.fetchFn != nil {
		s.fetchFn()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	var out []domain.Notification
	for _, n := range s.items {
		if n.UserID == where["user_id"] {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, id string, patch *domain.Notification, _ ...string) (*domain.Notification, error) {
	if s.writeFn != nil {
		s.mu.Lock()
		call := len(s.updates) + 1
		s.mu.Unlock()
		s.writeFn(call)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, id)
	if s.failOn[len(s.updates)] {
		return nil, errors.New("store unavailable")
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = patch.Read
			n := s.items[i]
			return &n, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func newStore(user string, unread, read int) *fakeStore {
	s := &fakeStore{failOn: map[int]bool{}}
	for i := 0; i < unread; i++ {
		s.items = append(s.items, domain.Notification{ID: fmt.Sprintf("u%d", i), UserID: user})
	}
	for i := 0; i < read; i++ {
		s.items = append(s.items, domain.Notification{ID: fmt.Sprintf("r%d", i), UserID: user, Read: true})
	}
	return s
}

func startedFeed(t *testing.T, store *fakeStore, opts Options) *Feed {
	t.Helper()
	s := NewSession(context.Background(), "alice")
	t.Cleanup(s.End)
	f := New(store, s, opts)
	require.NoError(t, f.Start())
	t.Cleanup(f.Stop)
	return f
}

func TestFeed_Start_FetchesAndCountsUnread(t *testing.T) {
	store := newStore("alice", 3, 2)
	store.items = append(store.items, domain.Notification{ID: "other", UserID: "bob"})
	f := startedFeed(t, store, Options{Interval: time.Hour})

	snap := f.Snapshot()
	assert.Len(t, snap.Items, 5)
	assert.Equal(t, 3, snap.Unread)
	assert.NotNil(t, snap.FetchedAt)
}

func TestFeed_RespectsLimit(t *testing.T) {
	store := newStore("alice", 30, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})
	assert.Len(t, f.Snapshot().Items, 20)
	assert.Equal(t, 20, f.Unread())
}

func TestFeed_MarkRead_OptimisticAndIdempotent(t *testing.T) {
	store := newStore("alice", 2, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})

	require.NoError(t, f.MarkRead(context.Background(), "u0"))
	assert.Equal(t, 1, f.Unread())

	// Already read locally: nothing written, no error, counter unchanged.
	require.NoError(t, f.MarkRead(context.Background(), "u0"))
	assert.Equal(t, 1, f.Unread())
	assert.Equal(t, []string{"u0"}, store.updates)
}

func TestFeed_MarkRead_FailureKeepsLocalState(t *testing.T) {
	store := newStore("alice", 1, 0)
	store.failOn[1] = true
	f := startedFeed(t, store, Options{Interval: time.Hour})

	err := f.MarkRead(context.Background(), "u0")
	require.Error(t, err)
	assert.Equal(t, 0, f.Unread(), "no rollback on failure")
	assert.True(t, f.Snapshot().Items[0].Read)
}

func TestFeed_MarkRead_FailureWithReconcile(t *testing.T) {
	store := newStore("alice", 1, 0)
	store.failOn[1] = true
	f := startedFeed(t, store, Options{Interval: time.Hour, ReconcileOnFailure: true})

	require.Error(t, f.MarkRead(context.Background(), "u0"))
	assert.Equal(t, 1, f.Unread(), "reconcile re-reads the store")
}

func TestFeed_MarkRead_CounterFloorsAtZero(t *testing.T) {
	store := newStore("alice", 1, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})
	f.mu.Lock()
	f.unread = 0 // drifted counter
	f.mu.Unlock()

	require.NoError(t, f.MarkRead(context.Background(), "u0"))
	assert.Equal(t, 0, f.Unread())
}

func TestFeed_MarkAllRead_KeepsLocalStateOnFailure(t *testing.T) {
	store := newStore("alice", 5, 1)
	store.failOn[3] = true
	f := startedFeed(t, store, Options{Interval: time.Hour})
	require.Equal(t, 5, f.Unread())

	err := f.MarkAllRead(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u2")

	// Five sequential calls, in local order, only for unread items.
	assert.Equal(t, []string{"u0", "u1", "u2", "u3", "u4"}, store.updates)
	assert.Equal(t, 0, f.Unread())
	for _, n := range f.Snapshot().Items {
		assert.True(t, n.Read, n.ID)
	}
}

func TestFeed_MarkAllRead_LeavesItemsArrivedMidwayUnread(t *testing.T) {
	store := newStore("alice", 2, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})

	store.writeFn = func(call int) {
		if call != 1 {
			return
		}
		store.mu.Lock()
		store.items = append(store.items, domain.Notification{ID: "fresh", UserID: "alice"})
		store.mu.Unlock()
		require.NoError(t, f.Refresh(context.Background()))
	}

	require.NoError(t, f.MarkAllRead(context.Background()))
	assert.Equal(t, []string{"u0", "u1"}, store.updates)
	assert.Equal(t, 1, f.Unread())
	for _, n := range f.Snapshot().Items {
		assert.Equal(t, n.ID != "fresh", n.Read, n.ID)
	}
}

func TestFeed_PollsUntilStopped(t *testing.T) {
	store := newStore("alice", 1, 0)
	f := startedFeed(t, store, Options{Interval: 10 * time.Millisecond})

	require.Eventually(t, func() bool { return store.fetchCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	f.Stop()
	f.Stop() // idempotent

	time.Sleep(30 * time.Millisecond)
	n := store.fetchCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, store.fetchCount(), "no fetch after Stop")
	assert.ErrorIs(t, f.Refresh(context.Background()), ErrStopped)
}

func TestFeed_SessionEndStopsPoll(t *testing.T) {
	store := newStore("alice", 1, 0)
	s := NewSession(context.Background(), "alice")
	f := New(store, s, Options{Interval: 10 * time.Millisecond})
	require.NoError(t, f.Start())

	s.End()
	require.Eventually(t, f.Stopped, time.Second, 5*time.Millisecond)
	assert.True(t, s.Ended())
}

func TestFeed_InFlightFetchDiscardedAfterStop(t *testing.T) {
	store := newStore("alice", 2, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})
	require.Equal(t, 2, f.Unread())

	// The next fetch sees a changed store, but the feed stops mid-flight.
	store.mu.Lock()
	store.items[0].Read = true
	store.mu.Unlock()
	store.fetchFn = f.Stop

	assert.ErrorIs(t, f.Refresh(context.Background()), ErrStopped)
	assert.Equal(t, 2, f.Unread(), "late result must be discarded")
}

func TestFeed_RefreshIgnoresCallerCancellation(t *testing.T) {
	store := newStore("alice", 1, 0)
	f := startedFeed(t, store, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Refresh(ctx))
}

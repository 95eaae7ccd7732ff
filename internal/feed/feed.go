package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// ErrStopped is returned by Refresh once the feed has been stopped.
var ErrStopped = errors.New("feed stopped")

var polls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crm_notification_polls_total",
		Help: "Total number of notification fetches by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(polls)
}

// Store is the record-store contract the feed needs.
// *repo.Store[domain.Notification] satisfies it.
type Store interface {
	Filter(ctx context.Context, where map[string]any, sortKey string, limit int) ([]domain.Notification, error)
	Update(ctx context.Context, id string, patch *domain.Notification, fields ...string) (*domain.Notification, error)
}

// Options tune a Feed.
type Options struct {
	// Interval between two fetches. Default 30s.
	Interval time.Duration
	// Limit is the number of most recent notifications fetched. Default 20.
	Limit int
	// ReconcileOnFailure re-fetches after a failed read-state write so the
	// local copy converges with the store. Off by default: local state then
	// stays optimistic until the next poll.
	ReconcileOnFailure bool
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.Limit <= 0 {
		o.Limit = 20
	}
	return o
}

// Snapshot is a copy of the feed state.
type Snapshot struct {
	Items     []domain.Notification `json:"items"`
	Unread    int                   `json:"unread"`
	FetchedAt *time.Time            `json:"fetched_at,omitempty"`
}

// Feed polls the newest notifications of one user.
type Feed struct {
	store   Store
	session *Session
	opts    Options

	mu        sync.Mutex
	items     []domain.Notification
	unread    int
	fetchedAt *time.Time
	started   bool
	stopped   bool
	stopCh    chan struct{}
}

// New returns an idle feed for session. Call Start to begin polling.
func New(store Store, session *Session, opts Options) *Feed {
	return &Feed{
		store:   store,
		session: session,
		opts:    opts.withDefaults(),
		stopCh:  make(chan struct{}),
	}
}

// UserID returns the owner of the feed.
func (f *Feed) UserID() string { return f.session.UserID }

// Start fetches once and then polls every Interval until Stop is called or
// the session ends. Only the first call has an effect; the returned error
// is the one of the initial fetch and does not stop the poll.
func (f *Feed) Start() error {
	f.mu.Lock()
	if f.started || f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.mu.Unlock()

	err := f.Refresh(f.session.Context())
	go f.loop()
	return err
}

func (f *Feed) loop() {
	t := time.NewTicker(f.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-f.session.Done():
			f.Stop()
			return
		case <-f.stopCh:
			return
		case <-t.C:
			if err := f.Refresh(f.session.Context()); err != nil && !errors.Is(err, ErrStopped) {
				log.Warn().Err(err).Str("user_id", f.UserID()).Msg("notification poll failed")
			}
		}
	}
}

// Stop cancels the recurring poll. A fetch already in flight is not
// cancelled; its result is discarded. Stop is idempotent.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	close(f.stopCh)
}

// Stopped reports whether Stop was called.
func (f *Feed) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Refresh fetches the newest notifications now and replaces the local copy.
// The fetch ignores cancellation of ctx; when the feed is stopped before the
// fetch returns, the result is dropped and ErrStopped is returned.
func (f *Feed) Refresh(ctx context.Context) error {
	if f.Stopped() {
		return ErrStopped
	}
	items, err := f.store.Filter(context.WithoutCancel(ctx),
		map[string]any{"user_id": f.session.UserID}, "-created_date", f.opts.Limit)
	if err != nil {
		polls.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch notifications: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		polls.WithLabelValues("discarded").Inc()
		return ErrStopped
	}
	now := time.Now().UTC()
	f.items = items
	f.unread = countUnread(items)
	f.fetchedAt = &now
	polls.WithLabelValues("ok").Inc()
	return nil
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]domain.Notification, len(f.items))
	copy(items, f.items)
	return Snapshot{Items: items, Unread: f.unread, FetchedAt: f.fetchedAt}
}

// Unread returns the local unread counter.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// MarkRead flips notification id to read. A locally unread copy is flipped
// first and the counter decremented (never below zero); then the store is
// written. A failed write is returned but the local flip is kept.
// Marking an already-read notification is a no-op.
func (f *Feed) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		if f.items[i].Read {
			f.mu.Unlock()
			return nil
		}
		f.items[i].Read = true
		if f.unread > 0 {
			f.unread--
		}
		break
	}
	f.mu.Unlock()

	if _, err := f.store.Update(ctx, id, &domain.Notification{Read: true}, "read"); err != nil {
		log.Warn().Err(err).Str("user_id", f.UserID()).Str("notification_id", id).Msg("mark read failed; local state kept")
		f.reconcile(ctx)
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead writes every locally unread notification as read, one store
// call at a time, then marks those local copies read regardless of
// individual failures and recounts. Failures are joined into the
// returned error.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	ids := make([]string, 0, f.unread)
	for _, n := range f.items {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	f.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if _, err := f.store.Update(ctx, id, &domain.Notification{Read: true}, "read"); err != nil {
			errs = append(errs, fmt.Errorf("mark notification %s read: %w", id, err))
		}
	}

	// Only the ids attempted above are flipped: a poll that landed during
	// the loop may have brought unread items nobody has written yet.
	attempted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		attempted[id] = struct{}{}
	}
	f.mu.Lock()
	for i := range f.items {
		if _, ok := attempted[f.items[i].ID]; ok {
			f.items[i].Read = true
		}
	}
	f.unread = countUnread(f.items)
	f.mu.Unlock()

	if len(errs) > 0 {
		log.Warn().Int("failed", len(errs)).Int("total", len(ids)).Str("user_id", f.UserID()).Msg("mark all read partially failed; local state kept")
		f.reconcile(ctx)
	}
	return errors.Join(errs...)
}

func (f *Feed) reconcile(ctx context.Context) {
	if !f.opts.ReconcileOnFailure {
		return
	}
	if err := f.Refresh(ctx); err != nil && !errors.Is(err, ErrStopped) {
		log.Warn().Err(err).Str("user_id", f.UserID()).Msg("reconcile fetch failed")
	}
}

func countUnread(items []domain.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

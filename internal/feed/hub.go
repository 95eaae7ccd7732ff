package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hub owns one Feed per signed-in user and ends the sessions nobody has
// used for longer than the idle timeout.
type Hub struct {
	store  Store
	opts   Options
	idle   time.Duration
	parent context.Context

	mu    sync.Mutex
	feeds map[string]*hubEntry
	now   func() time.Time
}

type hubEntry struct {
	feed     *Feed
	session  *Session
	lastUsed time.Time
}

// NewHub returns a Hub whose sessions derive from parent. An idle <= 0
// disables expiry.
func NewHub(parent context.Context, store Store, opts Options, idle time.Duration) *Hub {
	return &Hub{
		store:  store,
		opts:   opts,
		idle:   idle,
		parent: parent,
		feeds:  make(map[string]*hubEntry),
		now:    time.Now,
	}
}

// Ensure returns the running feed of userID, starting a new session and
// feed on first use. The error is the one of the initial fetch; the feed
// is registered and polling either way.
func (h *Hub) Ensure(userID string) (*Feed, error) {
	h.mu.Lock()
	if e, ok := h.feeds[userID]; ok && !e.feed.Stopped() {
		e.lastUsed = h.now()
		h.mu.Unlock()
		return e.feed, nil
	}
	s := NewSession(h.parent, userID)
	f := New(h.store, s, h.opts)
	h.feeds[userID] = &hubEntry{feed: f, session: s, lastUsed: h.now()}
	h.mu.Unlock()

	return f, f.Start()
}

// Get returns the feed of userID if one is running.
func (h *Hub) Get(userID string) (*Feed, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.feeds[userID]
	if !ok || e.feed.Stopped() {
		return nil, false
	}
	e.lastUsed = h.now()
	return e.feed, true
}

// End terminates the session of userID.
func (h *Hub) End(userID string) {
	h.mu.Lock()
	e, ok := h.feeds[userID]
	delete(h.feeds, userID)
	h.mu.Unlock()
	if ok {
		e.session.End()
		e.feed.Stop()
	}
}

// Len returns the number of registered feeds.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

// Sweep ends every session idle for longer than the timeout and returns how
// many were ended.
func (h *Hub) Sweep() int {
	if h.idle <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.idle)

	h.mu.Lock()
	var expired []*hubEntry
	for id, e := range h.feeds {
		if e.lastUsed.Before(cutoff) || e.feed.Stopped() {
			expired = append(expired, e)
			delete(h.feeds, id)
		}
	}
	h.mu.Unlock()

	for _, e := range expired {
		e.session.End()
		e.feed.Stop()
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes the hub.
func (h *Hub) Run(ctx context.Context) {
	every := h.idle / 2
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-t.C:
			if n := h.Sweep(); n > 0 {
				log.Debug().Int("ended", n).Msg("idle notification sessions ended")
			}
		}
	}
}

// Close ends every session.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.feeds
	h.feeds = make(map[string]*hubEntry)
	h.mu.Unlock()
	for _, e := range all {
		e.session.End()
		e.feed.Stop()
	}
}

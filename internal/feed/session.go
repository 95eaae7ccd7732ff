// Package feed keeps the notification state of signed-in users: a polling
// loop that refreshes the newest notifications of one user, the derived
// unread counter, and the read-state mutations.
//
// A Feed is bound to a Session, the explicit lifecycle object of one user
// context. Ending the session stops the poll. Local read flags are updated
// optimistically and are not rolled back when the store write fails; see
// Feed.MarkRead.
package feed

import (
	"context"
	"sync"
)

// Session is the lifecycle of one user's context. It is safe for
// concurrent use.
type Session struct {
	UserID string

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewSession starts a session for userID that ends when End is called or
// parent is cancelled.
func NewSession(parent context.Context, userID string) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{UserID: userID, ctx: ctx, cancel: cancel}
}

// Context returns the session context.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// End tears the session down. It is idempotent.
func (s *Session) End() { s.once.Do(s.cancel) }

// Ended reports whether the session is over.
func (s *Session) Ended() bool { return s.ctx.Err() != nil }

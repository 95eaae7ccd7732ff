// Package audit builds and appends the immutable Interaction events that
// record every contact creation and stage change.
//
// NewEvent is pure: it stamps the timestamp and picks the description
// template for the event kind. Log writes the event through the record
// store and never updates or deletes one.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// Kind selects the description template of an event.
type Kind int

const (
	// Created is emitted once per contact, right after it is stored.
	Created Kind = iota
	// StageChanged is emitted when an update changes the stage.
	StageChanged
	// StageMoved is emitted when a contact is dragged across the pipeline.
	StageMoved
	// Logged is a user-entered interaction (call, e-mail, meeting, note).
	Logged
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case StageChanged:
		return "stage_changed"
	case StageMoved:
		return "stage_moved"
	case Logged:
		return "logged"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Entry is the input to NewEvent.
type Entry struct {
	ContactID string
	Kind      Kind
	// Type is required for Logged entries and ignored otherwise.
	Type domain.InteractionType
	// Text is the caller-supplied description of a Logged entry.
	Text     string
	Previous domain.Stage
	Next     domain.Stage
	At       time.Time
}

// Describe returns the human-readable description for a generated event.
func Describe(kind Kind, prev, next domain.Stage) string {
	switch kind {
	case Created:
		return "contact created"
	case StageChanged:
		return fmt.Sprintf("stage changed from %q to %q", prev, next)
	case StageMoved:
		return fmt.Sprintf("contact moved from %q to %q", prev, next)
	}
	return ""
}

// NewEvent constructs the Interaction for e. A zero At is replaced by the
// current UTC time.
func NewEvent(e Entry) domain.Interaction {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	ev := domain.Interaction{
		ContactID:  e.ContactID,
		OccurredAt: at,
	}
	switch e.Kind {
	case Created:
		ev.Type = domain.InteractionNote
		ev.Description = Describe(Created, "", "")
	case StageChanged, StageMoved:
		ev.Type = domain.InteractionModification
		ev.Description = Describe(e.Kind, e.Previous, e.Next)
		ev.PreviousStage = e.Previous
		ev.CurrentStage = e.Next
	case Logged:
		ev.Type = e.Type
		ev.Description = strings.TrimSpace(e.Text)
	}
	return ev
}

// Appender persists one interaction. *repo.Store[domain.Interaction]
// satisfies it.
type Appender interface {
	Create(ctx context.Context, rec *domain.Interaction) error
}

// Log is the append-only writer of audit events.
type Log struct {
	store Appender
	now   func() time.Time
}

// NewLog returns a Log writing through store.
func NewLog(store Appender) *Log {
	return &Log{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Append builds the event for e and stores it. The stored event is returned
// so callers can echo it back.
func (l *Log) Append(ctx context.Context, e Entry) (*domain.Interaction, error) {
	if e.At.IsZero() {
		e.At = l.now()
	}
	ev := NewEvent(e)
	if err := l.store.Create(ctx, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

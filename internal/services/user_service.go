package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/filter"
)

// Presence buckets derived from last_seen.
const (
	PresenceOnline  = "online"
	PresenceMinutes = "minutes"
	PresenceHours   = "hours"
	PresenceOffline = "offline"
	PresenceNever   = "never"
)

// Presence classifies lastSeen relative to now: online under 5 minutes,
// minutes under an hour, hours under a day, offline beyond, never if unset.
func Presence(lastSeen *time.Time, now time.Time) string {
	if lastSeen == nil {
		return PresenceNever
	}
	d := now.Sub(*lastSeen)
	switch {
	case d < 5*time.Minute:
		return PresenceOnline
	case d < time.Hour:
		return PresenceMinutes
	case d < 24*time.Hour:
		return PresenceHours
	}
	return PresenceOffline
}

// UserStore is the record-store contract UserService needs.
// *repo.Store[domain.User] satisfies it.
type UserStore interface {
	List(ctx context.Context, sortKey string) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, patch *domain.User, fields ...string) (*domain.User, error)
}

// UserView is a user with its presence bucket.
type UserView struct {
	domain.User
	Presence string `json:"presence"`
}

// UserStats are the header counters of the user management page.
type UserStats struct {
	Total  int `json:"total"`
	Admins int `json:"admins"`
	Users  int `json:"users"`
	Online int `json:"online"`
}

// UserDirectory is a filtered user listing with its counters. Stats cover
// every user, not only the listed ones.
type UserDirectory struct {
	Users []UserView `json:"users"`
	Stats UserStats  `json:"stats"`
}

// UserService exposes the current user, preferences and role management.
type UserService struct {
	Users UserStore
	Now   func() time.Time
}

// NewUserService wires a UserService over store.
func NewUserService(store UserStore) *UserService {
	return &UserService{Users: store, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *UserService) tracer() trace.Tracer { return otel.Tracer("services/UserService") }

// Me resolves the authenticated user and refreshes its last_seen.
func (s *UserService) Me(ctx context.Context, userID string) (*UserView, error) {
	ctx, span := s.tracer().Start(ctx, "Me", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	now := s.Now()
	u, err := s.Users.Update(ctx, userID, &domain.User{LastSeen: &now}, "last_seen")
	if err != nil {
		return nil, mapStoreErr("touch user", err)
	}
	return &UserView{User: *u, Presence: Presence(u.LastSeen, now)}, nil
}

// List returns users ordered by most recently seen, narrowed by a search
// over full name, e-mail and department and by role ("all" keeps every
// role).
func (s *UserService) List(ctx context.Context, search, role string) (*UserDirectory, error) {
	ctx, span := s.tracer().Start(ctx, "List")
	defer span.End()

	all, err := s.Users.List(ctx, "-last_seen")
	if err != nil {
		return nil, mapStoreErr("list users", err)
	}

	now := s.Now()
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(search))
	dir := &UserDirectory{Users: make([]UserView, 0, len(all))}
	for _, u := range all {
		p := Presence(u.LastSeen, now)
		dir.Stats.Total++
		switch u.Role {
		case domain.RoleAdmin:
			dir.Stats.Admins++
		case domain.RoleUser:
			dir.Stats.Users++
		}
		if p == PresenceOnline {
			dir.Stats.Online++
		}

		if !filter.IsAll(role) && u.Role != role {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(u.FullName), needle) &&
			!strings.Contains(fold.String(u.Email), needle) &&
			!strings.Contains(fold.String(u.Department), needle) {
			continue
		}
		dir.Users = append(dir.Users, UserView{User: u, Presence: p})
	}
	return dir, nil
}

// UpdateRole changes the role of targetID. Only admins may do so.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID, role string) (*domain.User, error) {
	ctx, span := s.tracer().Start(ctx, "UpdateRole",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("target.id", targetID),
		),
	)
	defer span.End()

	if role != domain.RoleAdmin && role != domain.RoleUser {
		return nil, NewValidationError("role", "must be admin or user")
	}
	actor, err := s.Users.Get(ctx, actorID)
	if err != nil {
		return nil, mapStoreErr("get user", err)
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	u, err := s.Users.Update(ctx, targetID, &domain.User{Role: role}, "role")
	if err != nil {
		return nil, mapStoreErr("update role", err)
	}
	return u, nil
}

// UpdatePreferences replaces the UI preferences of userID.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) (*domain.User, error) {
	ctx, span := s.tracer().Start(ctx, "UpdatePreferences", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	u, err := s.Users.Update(ctx, userID, &domain.User{Preferences: prefs}, "preferences")
	if err != nil {
		return nil, mapStoreErr("update preferences", err)
	}
	return u, nil
}

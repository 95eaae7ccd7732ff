// Package handlers exposes the CRM REST endpoints.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to the services, and translate results into HTTP responses (including
// conditional responses and idempotent replays).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-crm-backend/internal/columns"
	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/feed"
	"github.com/tbourn/go-crm-backend/internal/filter"
	"github.com/tbourn/go-crm-backend/internal/http/middleware"
	"github.com/tbourn/go-crm-backend/internal/services"
	"github.com/tbourn/go-crm-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContactService is the contact lifecycle consumed by the contact and
// pipeline endpoints. *services.ContactService satisfies it.
type ContactService interface {
	List(ctx context.Context, state filter.State, sortKey string) (*services.ContactList, error)
	Pipeline(ctx context.Context, search, temperature string) (*services.PipelineView, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
	Create(ctx context.Context, in domain.Contact) (*domain.Contact, error)
	Update(ctx context.Context, id string, patch services.ContactPatch) (*domain.Contact, error)
	MoveStage(ctx context.Context, id string, stage domain.Stage) (*domain.Contact, error)
	Delete(ctx context.Context, id string) error
	AddInteraction(ctx context.Context, id string, typ domain.InteractionType, text string, at time.Time) (*domain.Interaction, error)
	History(ctx context.Context, id string, page, pageSize int) ([]domain.Interaction, int64, error)
}

// UserService is the user directory. *services.UserService satisfies it.
type UserService interface {
	Me(ctx context.Context, userID string) (*services.UserView, error)
	List(ctx context.Context, search, role string) (*services.UserDirectory, error)
	UpdateRole(ctx context.Context, actorID, targetID, role string) (*domain.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) (*domain.User, error)
}

// NotificationHub hands out the running notification feed of a user.
// *feed.Hub satisfies it.
type NotificationHub interface {
	Ensure(userID string) (*feed.Feed, error)
}

// ColumnPreferences stores the contact table layout per client.
// *columns.Manager satisfies it.
type ColumnPreferences interface {
	Columns(ctx context.Context, client string) ([]columns.Column, error)
	SetColumns(ctx context.Context, client string, cols []columns.Column) error
	Reset(ctx context.Context, client string) error
}

// Ledger is the bookkeeping the handlers need besides the services:
// idempotency records and the version stamps behind ETags.
type Ledger interface {
	// Replay returns the resource id stored for (userID, scope, key), or
	// found=false.
	Replay(ctx context.Context, userID, scope, key string) (resourceID string, found bool, err error)
	// Remember records resourceID for (userID, scope, key).
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
	// ContactsVersion returns the contact count and the latest update time.
	ContactsVersion(ctx context.Context) (int64, *time.Time, error)
	// InteractionsVersion returns the event count of a contact and the
	// latest creation time.
	InteractionsVersion(ctx context.Context, contactID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Deps groups the collaborators of Handlers. Ledger is optional; without it
// ETags and idempotent replays are disabled.
type Deps struct {
	Contacts      ContactService
	Users         UserService
	Notifications NotificationHub
	Columns       ColumnPreferences
	Ledger        Ledger
}

// Handlers groups the HTTP endpoints of the CRM.
type Handlers struct {
	contacts ContactService
	users    UserService
	notes    NotificationHub
	cols     ColumnPreferences
	ledger   Ledger
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		contacts: d.Contacts,
		users:    d.Users,
		notes:    d.Notifications,
		cols:     d.Columns,
		ledger:   d.Ledger,
	}
}

// requireUser returns the acting user id or aborts with 401.
func requireUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header required")
		return "", false
	}
	return uid, true
}

// clampPagination parses page/page_size with defaults 1/20 and caps
// page_size at 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	w := utils.ParseWindow(c.Query("page"), c.Query("page_size"), 20, 100)
	return w.Page, w.Size
}

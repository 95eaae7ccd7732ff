// Notification HTTP handlers.
//
// The first request of a user starts its polling feed; later requests read
// the feed's local copy. Read-state writes are optimistic: the local copy is
// flipped even when the store write fails, and the failure is reported.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-crm-backend/internal/feed"
	"github.com/tbourn/go-crm-backend/internal/http/middleware"
)

// feedOf resolves the running feed of the acting user. A failed initial
// fetch is logged; the feed is still returned.
func (h *Handlers) feedOf(c *gin.Context) (*feed.Feed, bool) {
	uid, okUser := requireUser(c)
	if !okUser {
		return nil, false
	}
	f, err := h.notes.Ensure(uid)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("initial notification fetch failed")
	}
	return f, true
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     Notifications of the current user
// @Description Returns the most recent notifications and the unread counter.
// @Tags        Notifications
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Success     200  {object}  feed.Snapshot
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	f, okFeed := h.feedOf(c)
	if !okFeed {
		return
	}
	ok(c, http.StatusOK, f.Snapshot())
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark one notification as read
// @Tags        Notifications
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Param       id         path    string  true  "Notification ID"  format(uuid)
// @Success     200  {object}  feed.Snapshot
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Not in the user's feed"
// @Failure     502  {object}  handlers.ErrorResponse  "Store write failed; local state kept"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	f, okFeed := h.feedOf(c)
	if !okFeed {
		return
	}
	id := c.Param("id")
	found := false
	for _, n := range f.Snapshot().Items {
		if n.ID == id {
			found = true
			break
		}
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		return
	}
	if err := f.MarkRead(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusBadGateway, ErrCodeNotifications, "read state not saved")
		return
	}
	ok(c, http.StatusOK, f.Snapshot())
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark every notification as read
// @Tags        Notifications
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Success     200  {object}  feed.Snapshot
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     502  {object}  handlers.ErrorResponse  "Some writes failed; local state kept"
// @Router      /notifications/read-all [post]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	f, okFeed := h.feedOf(c)
	if !okFeed {
		return
	}
	if err := f.MarkAllRead(c.Request.Context()); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusBadGateway, ErrCodeNotifications, "read state partially saved")
		return
	}
	ok(c, http.StatusOK, f.Snapshot())
}

// User HTTP handlers.
//
//   - GET   /users/me
//   - PATCH /users/me/preferences
//   - GET   /users              (directory with counters)
//   - PUT   /users/{id}/role    (admins only)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// UpdateRoleRequest is the JSON payload of a role change.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required" example:"admin"`
}

// Me godoc
// @ID          getMe
// @Summary     Current user
// @Description Returns the acting user and refreshes its last-seen time.
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Success     200  {object}  services.UserView
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Router      /users/me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	me, err := h.users.Me(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err, "invalid user")
		return
	}
	ok(c, http.StatusOK, me)
}

// UpdatePreferences godoc
// @ID          updatePreferences
// @Summary     Replace the UI preferences of the current user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string              true  "Acting user"
// @Param       body       body    domain.Preferences  true  "Preferences"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Router      /users/me/preferences [patch]
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var prefs domain.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.UpdatePreferences(c.Request.Context(), uid, prefs)
	if err != nil {
		failErr(c, err, "invalid preferences")
		return
	}
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     User directory
// @Description Users ordered by most recently seen, with presence and team counters.
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  true   "Acting user"
// @Param       q          query   string  false  "Search over name, e-mail and department"
// @Param       role       query   string  false  "admin, user or all"
// @Success     200  {object}  services.UserDirectory
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	if _, okUser := requireUser(c); !okUser {
		return
	}
	dir, err := h.users.List(c.Request.Context(), c.Query("q"), c.Query("role"))
	if err != nil {
		failErr(c, err, "invalid user query")
		return
	}
	ok(c, http.StatusOK, dir)
}

// UpdateRole godoc
// @ID          updateRole
// @Summary     Change the role of a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                      true  "Acting admin"
// @Param       id         path    string                      true  "Target user"
// @Param       body       body    handlers.UpdateRoleRequest  true  "New role"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Router      /users/{id}/role [put]
func (h *Handlers) UpdateRole(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}
	u, err := h.users.UpdateRole(c.Request.Context(), uid, c.Param("id"), req.Role)
	if err != nil {
		failErr(c, err, "invalid role")
		return
	}
	ok(c, http.StatusOK, u)
}

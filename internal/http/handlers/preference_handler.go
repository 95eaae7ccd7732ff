package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-crm-backend/internal/columns"
)

// ColumnsResponse is the contact table layout of a user.
type ColumnsResponse struct {
	Columns []columns.Column `json:"columns"`
}

// GetColumns godoc
// @ID          getColumns
// @Summary     Contact table columns
// @Description Returns the saved layout, or the defaults when nothing was saved.
// @Tags        Preferences
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Success     200  {object}  handlers.ColumnsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /preferences/columns [get]
func (h *Handlers) GetColumns(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	cols, err := h.cols.Columns(c.Request.Context(), uid)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodePreferences, "preferences unavailable")
		return
	}
	ok(c, http.StatusOK, ColumnsResponse{Columns: cols})
}

// PutColumns godoc
// @ID          putColumns
// @Summary     Replace the contact table columns
// @Description The whole list is replaced. Column ids must be non-empty and unique.
// @Tags        Preferences
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                    true  "Acting user"
// @Param       body       body    handlers.ColumnsResponse  true  "Columns in display order"
// @Success     200  {object}  handlers.ColumnsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /preferences/columns [put]
func (h *Handlers) PutColumns(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req ColumnsResponse
	if err := c.ShouldBindJSON(&req); err != nil || req.Columns == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "columns required")
		return
	}
	ctx := c.Request.Context()
	if err := h.cols.SetColumns(ctx, uid, req.Columns); err != nil {
		failErr(c, err, "invalid columns")
		return
	}
	cols, err := h.cols.Columns(ctx, uid)
	if err != nil {
		failErr(c, err, "invalid columns")
		return
	}
	ok(c, http.StatusOK, ColumnsResponse{Columns: cols})
}

// ResetColumns godoc
// @ID          resetColumns
// @Summary     Restore the default contact table columns
// @Tags        Preferences
// @Produce     json
// @Param       X-User-ID  header  string  true  "Acting user"
// @Success     200  {object}  handlers.ColumnsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /preferences/columns [delete]
func (h *Handlers) ResetColumns(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if err := h.cols.Reset(c.Request.Context(), uid); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodePreferences, "preferences unavailable")
		return
	}
	ok(c, http.StatusOK, ColumnsResponse{Columns: columns.Defaults()})
}

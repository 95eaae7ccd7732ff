package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pipeline godoc
// @ID          getPipeline
// @Summary     Pipeline board
// @Description Groups the contacts matching q and temperature into one column per
// @Description stage, in board order, with per-column counts and value totals.
// @Tags        Pipeline
// @Produce     json
// @Param       q            query  string  false "Search over name, company and e-mail"
// @Param       temperature  query  string  false "Temperature, or all"  example(Tiède)
// @Success     200  {object}  services.PipelineView
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pipeline [get]
func (h *Handlers) Pipeline(c *gin.Context) {
	view, err := h.contacts.Pipeline(c.Request.Context(), c.Query("q"), c.Query("temperature"))
	if err != nil {
		failErr(c, err, "invalid pipeline request")
		return
	}
	ok(c, http.StatusOK, view)
}

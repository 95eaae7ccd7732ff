// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, the mapping from service errors to HTTP statuses, and the
// pagination block returned by paged listings.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` logs 5xx responses with the request-scoped logger.
//   - `failErr()` turns a service error into the matching status and code.
//   - A committed mutation whose audit event failed is still a success; the
//     body then carries a `warning` next to the resource.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-crm-backend/internal/http/middleware"
	"github.com/tbourn/go-crm-backend/internal/services"
	"github.com/tbourn/go-crm-backend/internal/utils"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Field-level problems of a validation failure
	Details []FieldProblem `json:"details,omitempty"`
}

// FieldProblem is one entry of ErrorResponse.Details.
type FieldProblem struct {
	Field   string `json:"field" example:"nom"`
	Message string `json:"message" example:"must not be empty"`
}

// Warning flags a success that left something behind, e.g. a missing
// audit event.
type Warning struct {
	Code    string `json:"code" example:"audit_incomplete"`
	Message string `json:"message"`
}

// Pagination describes one page of a paged listing.
type Pagination struct {
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	Total      int64 `json:"total" example:"42"`
	TotalPages int   `json:"total_pages" example:"3"`
	HasNext    bool  `json:"has_next" example:"true"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	w := utils.Window{Page: page, Size: pageSize}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: w.Pages(total),
		HasNext:    w.HasNext(total),
	}
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged using the request-scoped logger from middleware.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), used by the router for
// NoRoute/NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto the error envelope. msg is used for
// validation failures; other classes carry a fixed message.
func failErr(c *gin.Context, err error, msg string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		resp := ErrorResponse{Code: ErrCodeValidation, Message: msg}
		for _, fe := range ve.Errors {
			resp.Details = append(resp.Details, FieldProblem{Field: fe.Field, Message: fe.Message})
		}
		failWith(c, http.StatusBadRequest, resp)
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "admin role required")
	case errors.Is(err, services.ErrStore):
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeStore, "storage unavailable")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// committed writes a successful mutation. When err is a
// *services.PartialAuditFailure the resource is wrapped in
// {"<key>": resource, "warning": {...}}; any other non-nil err is reported
// through failErr.
func committed(c *gin.Context, status int, key string, resource any, err error, msg string) {
	if err == nil {
		ok(c, status, resource)
		return
	}
	if !services.IsPartial(err) {
		failErr(c, err, msg)
		return
	}
	_ = c.Error(err)
	ok(c, status, gin.H{
		key: resource,
		"warning": Warning{
			Code:    ErrCodeAuditIncomplete,
			Message: "change saved but its history entry could not be recorded",
		},
	})
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

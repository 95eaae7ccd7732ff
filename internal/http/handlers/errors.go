// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings. Clients branch on them
// instead of parsing messages. Generic codes mirror HTTP status semantics;
// the domain codes below them surface service-level failures that a status
// alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "invalid contact",
//	  "details": [{"field": "nom", "message": "must not be empty"}]
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation      = "validation_failed"
	ErrCodeStore           = "store_failed"
	ErrCodeAuditIncomplete = "audit_incomplete"
	ErrCodePreferences     = "preferences_failed"
	ErrCodeNotifications   = "notifications_failed"
)

// Package services holds the CRM business rules: the contact stage machine,
// user management, and the error taxonomy shared by every core component.
// This file centralizes the service-level errors so that callers can check
// them with errors.Is / errors.As and the HTTP layer can map them to codes.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-crm-backend/internal/audit"
	"github.com/tbourn/go-crm-backend/internal/repo"
)

// Sentinel errors.
var (
	// ErrValidation marks malformed input to a core operation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates that a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStore wraps any failure of the underlying record store.
	ErrStore = errors.New("store failure")

	// ErrForbidden is returned when the acting user lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrAuditIncomplete is matched by PartialAuditFailure.
	ErrAuditIncomplete = errors.New("audit event not recorded")
)

// FieldError describes a validation problem with one input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists field-level validation problems.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// StoreError reports a failed record-store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

// Unwrap exposes both the cause and ErrStore.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// PartialAuditFailure reports that a contact mutation was committed but its
// audit event could not be written. It is returned together with the
// committed contact; the mutation is not rolled back.
type PartialAuditFailure struct {
	ContactID string
	Kind      audit.Kind
	Err       error
}

func (e *PartialAuditFailure) Error() string {
	return fmt.Sprintf("contact %s committed but %s audit event failed: %v", e.ContactID, e.Kind, e.Err)
}

// Unwrap exposes both the cause and ErrAuditIncomplete.
func (e *PartialAuditFailure) Unwrap() []error { return []error{ErrAuditIncomplete, e.Err} }

// IsPartial reports whether err only signals an incomplete audit trail.
func IsPartial(err error) bool {
	var p *PartialAuditFailure
	return errors.As(err, &p)
}

// mapStoreErr maps a record-store error onto the service taxonomy.
func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrValidation):
		return NewValidationError("record", strings.TrimPrefix(err.Error(), repo.ErrValidation.Error()+": "))
	}
	return &StoreError{Op: op, Err: err}
}

// Contact HTTP handlers.
//
// This file exposes REST endpoints for contacts and their history:
//   - GET    /contacts                    (filtered list with aggregates, ETag support)
//   - POST   /contacts                    (create, Idempotency-Key support)
//   - GET    /contacts/{id}
//   - PATCH  /contacts/{id}               (partial update)
//   - DELETE /contacts/{id}
//   - PUT    /contacts/{id}/stage         (pipeline move)
//   - GET    /contacts/{id}/interactions  (paged history, ETag support)
//   - POST   /contacts/{id}/interactions  (log a call, e-mail, meeting or note)
package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/filter"
	"github.com/tbourn/go-crm-backend/internal/http/middleware"
	"github.com/tbourn/go-crm-backend/internal/services"
)

//
// DTOs
//

// CreateContactRequest is the JSON payload for creating a contact. Only nom
// is required; statut defaults to Prospect.
type CreateContactRequest struct {
	FirstName      string              `json:"prenom" example:"Marie"`
	LastName       string              `json:"nom" example:"Dupont"`
	Company        string              `json:"societe" example:"Acme SARL"`
	Email          string              `json:"email" example:"marie.dupont@example.fr"`
	Phone          string              `json:"telephone" example:"+33 6 12 34 56 78"`
	Address        string              `json:"adresse"`
	Notes          string              `json:"notes"`
	Source         domain.Source       `json:"source" example:"LinkedIn"`
	Stage          domain.Stage        `json:"statut" example:"Prospect"`
	EstimatedValue decimal.NullDecimal `json:"valeur_estimee" swaggertype:"string" example:"12500.00"`
	Temperature    domain.Temperature  `json:"temperature" example:"Chaud"`
	Tags           []string            `json:"tags" example:"vip,salon-2024"`
}

func (r CreateContactRequest) validate() error {
	var errs []services.FieldError
	if strings.TrimSpace(r.LastName) == "" {
		errs = append(errs, services.FieldError{Field: "nom", Message: "must not be empty"})
	}
	if r.Stage != "" && !r.Stage.Valid() {
		errs = append(errs, services.FieldError{Field: "statut", Message: "unknown stage " + string(r.Stage)})
	}
	if !r.Source.Valid() {
		errs = append(errs, services.FieldError{Field: "source", Message: "unknown source " + string(r.Source)})
	}
	if !r.Temperature.Valid() {
		errs = append(errs, services.FieldError{Field: "temperature", Message: "unknown temperature " + string(r.Temperature)})
	}
	if r.EstimatedValue.Valid && r.EstimatedValue.Decimal.IsNegative() {
		errs = append(errs, services.FieldError{Field: "valeur_estimee", Message: "must be >= 0"})
	}
	if len(errs) > 0 {
		return &services.ValidationError{Errors: errs}
	}
	return nil
}

func (r CreateContactRequest) contact() domain.Contact {
	return domain.Contact{
		FirstName:      strings.TrimSpace(r.FirstName),
		LastName:       strings.TrimSpace(r.LastName),
		Company:        strings.TrimSpace(r.Company),
		Email:          strings.TrimSpace(r.Email),
		Phone:          strings.TrimSpace(r.Phone),
		Address:        strings.TrimSpace(r.Address),
		Notes:          r.Notes,
		Source:         r.Source,
		Stage:          r.Stage,
		EstimatedValue: r.EstimatedValue,
		Temperature:    r.Temperature,
		Tags:           r.Tags,
	}
}

// MoveStageRequest is the JSON payload of a pipeline move.
type MoveStageRequest struct {
	Stage domain.Stage `json:"statut" binding:"required" example:"Qualifié"`
}

// AddInteractionRequest logs a user interaction. OccurredAt defaults to now.
type AddInteractionRequest struct {
	Type        domain.InteractionType `json:"type" binding:"required" example:"Appel"`
	Description string                 `json:"description" binding:"required" example:"Premier appel, rappeler jeudi"`
	OccurredAt  *time.Time             `json:"date_interaction,omitempty"`
}

// ListInteractionsResponse contains a page of contact events.
type ListInteractionsResponse struct {
	Interactions []domain.Interaction `json:"interactions"`
	Pagination   Pagination           `json:"pagination"`
}

//
// Helpers
//

// filterState reads the list filters from the query string. tags is a
// comma-separated list; every tag must be carried.
func filterState(c *gin.Context) filter.State {
	st := filter.State{
		Search:      c.Query("q"),
		Stage:       c.Query("statut"),
		Source:      c.Query("source"),
		Temperature: c.Query("temperature"),
	}
	if raw := c.Query("tags"); raw != "" {
		st.Tags = strings.Split(raw, ",")
	}
	return st
}

// notModified sets a weak ETag and reports whether the request's
// If-None-Match already matches it, in which case a 304 has been written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

func versionStamp(ts *time.Time) int64 {
	if ts == nil {
		return 0
	}
	return ts.UnixNano()
}

//
// Handlers
//

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts
// @Description Returns the contacts matching every given filter together with
// @Description per-stage totals, the global estimated value and quick counters.
// @Tags        Contacts
// @Produce     json
//
// @Param       q            query  string  false "Search over name, company and e-mail"
// @Param       statut       query  string  false "Stage, or all"        example(Prospect)
// @Param       source       query  string  false "Source, or all"       example(LinkedIn)
// @Param       temperature  query  string  false "Temperature, or all"  example(Chaud)
// @Param       tags         query  string  false "Comma-separated tags, all required"
// @Param       sort         query  string  false "Sort key, '-' prefix for descending"  default(-updated_date)
//
// @Success     200  {object}  services.ContactList
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	ctx := c.Request.Context()

	if h.ledger != nil {
		if count, maxTS, err := h.ledger.ContactsVersion(ctx); err == nil {
			q := fnv.New32a()
			_, _ = q.Write([]byte(c.Request.URL.RawQuery))
			if notModified(c, fmt.Sprintf(`W/"contacts:%d:%d:%08x"`, count, versionStamp(maxTS), q.Sum32())) {
				return
			}
		}
	}

	list, err := h.contacts.List(ctx, filterState(c), c.Query("sort"))
	if err != nil {
		failErr(c, err, "invalid list request")
		return
	}
	ok(c, http.StatusOK, list)
}

// CreateContact godoc
// @ID          createContact
// @Summary     Create a contact
// @Description Creates a contact in the Prospect stage (unless statut is given) and
// @Description records its creation event. Supports idempotency via the Idempotency-Key
// @Description header (same key, same contact).
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Acting user"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CreateContactRequest  true  "Contact"
//
// @Success     201  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [post]
func (h *Handlers) CreateContact(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.IdempotencyActor(c)
	scope := middleware.IdempotencyScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	if idemKey != "" && h.ledger != nil && middleware.IsReplay(c) {
		if id, found, err := h.ledger.Replay(ctx, actor, scope, idemKey); err == nil && found {
			if prev, err := h.contacts.Get(ctx, id); err == nil {
				c.Header(middleware.HeaderIdempotencyReplayed, "true")
				ok(c, http.StatusCreated, prev)
				return
			}
		}
	}

	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		failErr(c, err, "invalid contact")
		return
	}

	created, err := h.contacts.Create(ctx, req.contact())
	if created != nil && idemKey != "" && h.ledger != nil {
		if rerr := h.ledger.Remember(ctx, actor, scope, idemKey, created.ID, http.StatusCreated); rerr != nil {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("idempotency record failed")
		}
	}
	committed(c, http.StatusCreated, "contact", created, err, "invalid contact")
}

// GetContact godoc
// @ID          getContact
// @Summary     Get a contact
// @Tags        Contacts
// @Produce     json
// @Param       id   path  string  true  "Contact ID"  format(uuid)
// @Success     200  {object}  domain.Contact
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [get]
func (h *Handlers) GetContact(c *gin.Context) {
	ct, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, "invalid contact id")
		return
	}
	ok(c, http.StatusOK, ct)
}

// UpdateContact godoc
// @ID          updateContact
// @Summary     Update a contact
// @Description Applies the given attributes. A stage change records a Modification event.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Param       id    path  string                 true  "Contact ID"  format(uuid)
// @Param       body  body  services.ContactPatch  true  "Attributes to change"
// @Success     200  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [patch]
func (h *Handlers) UpdateContact(c *gin.Context) {
	var patch services.ContactPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.contacts.Update(c.Request.Context(), c.Param("id"), patch)
	committed(c, http.StatusOK, "contact", updated, err, "invalid contact")
}

// MoveContactStage godoc
// @ID          moveContactStage
// @Summary     Move a contact to another stage
// @Description Moving to the current stage is a no-op.
// @Tags        Contacts
// @Accept      json
// @Produce     json
// @Param       id    path  string                     true  "Contact ID"  format(uuid)
// @Param       body  body  handlers.MoveStageRequest  true  "Target stage"
// @Success     200  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown stage"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id}/stage [put]
func (h *Handlers) MoveContactStage(c *gin.Context) {
	var req MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "statut required")
		return
	}
	moved, err := h.contacts.MoveStage(c.Request.Context(), c.Param("id"), req.Stage)
	committed(c, http.StatusOK, "contact", moved, err, "invalid stage")
}

// DeleteContact godoc
// @ID          deleteContact
// @Summary     Delete a contact
// @Description The contact's history is kept.
// @Tags        Contacts
// @Param       id   path  string  true  "Contact ID"  format(uuid)
// @Success     204  "Deleted"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [delete]
func (h *Handlers) DeleteContact(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, "invalid contact id")
		return
	}
	noContent(c)
}

// ListInteractions godoc
// @ID          listInteractions
// @Summary     List the history of a contact
// @Description Newest first. Events of deleted contacts are still returned.
// @Tags        Interactions
// @Produce     json
// @Param       id         path   string  true  "Contact ID"      format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListInteractionsResponse
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id}/interactions [get]
func (h *Handlers) ListInteractions(c *gin.Context) {
	ctx := c.Request.Context()
	contactID := c.Param("id")
	page, pageSize := clampPagination(c)

	if h.ledger != nil {
		if count, maxTS, err := h.ledger.InteractionsVersion(ctx, contactID); err == nil {
			etag := fmt.Sprintf(`W/"interactions:%s:%d:%d:%d:%d"`, contactID, count, versionStamp(maxTS), page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.contacts.History(ctx, contactID, page, pageSize)
	if err != nil {
		failErr(c, err, "invalid history request")
		return
	}
	ok(c, http.StatusOK, ListInteractionsResponse{
		Interactions: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}

// AddInteraction godoc
// @ID          addInteraction
// @Summary     Log an interaction
// @Description Records a call, e-mail, meeting or note and refreshes the contact's
// @Description last-interaction date.
// @Tags        Interactions
// @Accept      json
// @Produce     json
// @Param       id    path  string                          true  "Contact ID"  format(uuid)
// @Param       body  body  handlers.AddInteractionRequest  true  "Interaction"
// @Success     201  {object}  domain.Interaction
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id}/interactions [post]
func (h *Handlers) AddInteraction(c *gin.Context) {
	var req AddInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type and description required")
		return
	}
	var at time.Time
	if req.OccurredAt != nil {
		at = req.OccurredAt.UTC()
	}
	ev, err := h.contacts.AddInteraction(c.Request.Context(), c.Param("id"), req.Type, req.Description, at)
	if err != nil {
		failErr(c, err, "invalid interaction")
		return
	}
	ok(c, http.StatusCreated, ev)
}

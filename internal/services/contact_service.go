// Package services – ContactService
//
// ContactService is the pipeline stage machine. It creates, edits, moves and
// deletes contacts through the record store and records the matching audit
// events through audit.Log.
//
// Ordering: the contact write is always acknowledged before the audit write
// is issued. An audit failure after a committed contact write does not undo
// the contact; it is logged, counted, and returned as *PartialAuditFailure
// alongside the committed contact.
//
// Any stage is reachable from any other stage.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-crm-backend/internal/audit"
	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/filter"
	"github.com/tbourn/go-crm-backend/internal/observability"
	"github.com/tbourn/go-crm-backend/internal/pipeline"
	"github.com/tbourn/go-crm-backend/internal/repo"
	"github.com/tbourn/go-crm-backend/internal/utils"
)

// ContactStore is the record-store contract ContactService needs for
// contacts. *repo.Store[domain.Contact] satisfies it.
type ContactStore interface {
	List(ctx context.Context, sortKey string) ([]domain.Contact, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
	Create(ctx context.Context, rec *domain.Contact) error
	Update(ctx context.Context, id string, patch *domain.Contact, fields ...string) (*domain.Contact, error)
	Delete(ctx context.Context, id string) error
}

// InteractionStore is the record-store contract for audit events.
// *repo.Store[domain.Interaction] satisfies it.
type InteractionStore interface {
	Create(ctx context.Context, rec *domain.Interaction) error
	Page(ctx context.Context, where map[string]any, sortKey string, offset, limit int, withTotal bool) ([]domain.Interaction, int64, error)
}

// OptionalDecimal distinguishes an absent JSON key from an explicit null.
// Set is true whenever the key was present; a null leaves Value invalid,
// which clears the stored amount.
type OptionalDecimal struct {
	Set   bool
	Value decimal.NullDecimal
}

// SetDecimal returns a present, non-null OptionalDecimal.
func SetDecimal(d decimal.Decimal) OptionalDecimal {
	return OptionalDecimal{Set: true, Value: decimal.NewNullDecimal(d)}
}

// UnmarshalJSON is only called for keys present in the document.
func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// MarshalJSON renders the value, or null when absent or cleared.
func (o OptionalDecimal) MarshalJSON() ([]byte, error) {
	return o.Value.MarshalJSON()
}

// ContactPatch is a partial contact update. Nil fields and an absent
// valeur_estimee are left untouched.
type ContactPatch struct {
	FirstName      *string             `json:"prenom,omitempty"`
	LastName       *string             `json:"nom,omitempty"`
	Company        *string             `json:"societe,omitempty"`
	Email          *string             `json:"email,omitempty"`
	Phone          *string             `json:"telephone,omitempty"`
	Address        *string             `json:"adresse,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Source         *domain.Source      `json:"source,omitempty"`
	Stage          *domain.Stage       `json:"statut,omitempty"`
	EstimatedValue OptionalDecimal     `json:"valeur_estimee" swaggertype:"string"`
	Temperature    *domain.Temperature `json:"temperature,omitempty"`
	Tags           *[]string           `json:"tags,omitempty"`
}

// Validate checks every present field.
func (p ContactPatch) Validate() error {
	var errs []FieldError
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		errs = append(errs, FieldError{Field: "nom", Message: "must not be empty"})
	}
	if p.Stage != nil && !p.Stage.Valid() {
		errs = append(errs, FieldError{Field: "statut", Message: "unknown stage " + string(*p.Stage)})
	}
	if p.Source != nil && !p.Source.Valid() {
		errs = append(errs, FieldError{Field: "source", Message: "unknown source " + string(*p.Source)})
	}
	if p.Temperature != nil && !p.Temperature.Valid() {
		errs = append(errs, FieldError{Field: "temperature", Message: "unknown temperature " + string(*p.Temperature)})
	}
	if v := p.EstimatedValue; v.Set && v.Value.Valid && v.Value.Decimal.IsNegative() {
		errs = append(errs, FieldError{Field: "valeur_estimee", Message: "must be >= 0"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// apply copies the present fields into a record and lists their wire names.
func (p ContactPatch) apply() (domain.Contact, []string) {
	var (
		c      domain.Contact
		fields []string
	)
	str := func(v *string, dst *string, name string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			fields = append(fields, name)
		}
	}
	str(p.FirstName, &c.FirstName, "prenom")
	str(p.LastName, &c.LastName, "nom")
	str(p.Company, &c.Company, "societe")
	str(p.Email, &c.Email, "email")
	str(p.Phone, &c.Phone, "telephone")
	str(p.Address, &c.Address, "adresse")
	str(p.Notes, &c.Notes, "notes")
	if p.Source != nil {
		c.Source = *p.Source
		fields = append(fields, "source")
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
		fields = append(fields, "statut")
	}
	if p.EstimatedValue.Set {
		c.EstimatedValue = p.EstimatedValue.Value
		fields = append(fields, "valeur_estimee")
	}
	if p.Temperature != nil {
		c.Temperature = *p.Temperature
		fields = append(fields, "temperature")
	}
	if p.Tags != nil {
		c.Tags = normalizeTags(*p.Tags)
		fields = append(fields, "tags")
	}
	return c, fields
}

// ContactList is the visible contact set with its aggregates.
type ContactList struct {
	Contacts []domain.Contact `json:"contacts"`
	Summary  pipeline.Summary `json:"summary"`
}

// PipelineView is the pipeline board over the visible set.
type PipelineView struct {
	Columns []pipeline.Column `json:"columns"`
	Summary pipeline.Summary  `json:"summary"`
}

// ContactService implements the contact lifecycle.
type ContactService struct {
	Contacts     ContactStore
	Interactions InteractionStore
	Audit        *audit.Log

	// DefaultSort is used when List receives an empty sort key.
	DefaultSort string
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewContactService wires a ContactService over the two stores.
func NewContactService(contacts ContactStore, interactions InteractionStore) *ContactService {
	return &ContactService{
		Contacts:     contacts,
		Interactions: interactions,
		Audit:        audit.NewLog(interactions),
		DefaultSort:  "-updated_date",
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ContactService) tracer() trace.Tracer { return otel.Tracer("services/ContactService") }

// List loads every contact, applies the filter state and aggregates the
// visible set.
func (s *ContactService) List(ctx context.Context, state filter.State, sortKey string) (*ContactList, error) {
	ctx, span := s.tracer().Start(ctx, "List", trace.WithAttributes(attribute.String("sort", sortKey)))
	defer span.End()

	all, err := s.load(ctx, sortKey)
	if err != nil {
		return nil, err
	}
	visible := filter.Apply(all, state)
	return &ContactList{Contacts: visible, Summary: pipeline.Summarize(visible)}, nil
}

// Pipeline groups the contacts matching search and temperature by stage.
func (s *ContactService) Pipeline(ctx context.Context, search, temperature string) (*PipelineView, error) {
	ctx, span := s.tracer().Start(ctx, "Pipeline")
	defer span.End()

	all, err := s.load(ctx, s.DefaultSort)
	if err != nil {
		return nil, err
	}
	visible := filter.Apply(all, filter.State{Search: search, Temperature: temperature})
	return &PipelineView{Columns: pipeline.Board(visible), Summary: pipeline.Summarize(visible)}, nil
}

func (s *ContactService) load(ctx context.Context, sortKey string) ([]domain.Contact, error) {
	if strings.TrimSpace(sortKey) == "" {
		sortKey = s.DefaultSort
	}
	all, err := s.Contacts.List(ctx, sortKey)
	if errors.Is(err, repo.ErrValidation) {
		return nil, NewValidationError("sort", "unknown sort key "+sortKey)
	}
	if err != nil {
		return nil, &StoreError{Op: "list contacts", Err: err}
	}
	return all, nil
}

// Get returns one contact.
func (s *ContactService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := s.Contacts.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get contact", err)
	}
	return c, nil
}

// Create stores a new contact and records its creation event. The stage
// defaults to Prospect and the last-interaction timestamp is set to now.
//
// When only the audit write fails, the committed contact is returned with a
// *PartialAuditFailure.
func (s *ContactService) Create(ctx context.Context, in domain.Contact) (*domain.Contact, error) {
	ctx, span := s.tracer().Start(ctx, "Create")
	defer span.End()

	now := s.Now()
	c := in
	c.ID = ""
	if c.Stage == "" {
		c.Stage = domain.StageProspect
	}
	c.Tags = normalizeTags(c.Tags)
	c.LastInteraction = &now

	if err := s.Contacts.Create(ctx, &c); err != nil {
		return nil, mapStoreErr("create contact", err)
	}
	contactsCreated.Inc()
	span.SetAttributes(observability.ContactAttr(c.ID))

	if _, err := s.Audit.Append(ctx, audit.Entry{ContactID: c.ID, Kind: audit.Created, At: now}); err != nil {
		return &c, s.auditFailed(ctx, c.ID, audit.Created, err)
	}
	return &c, nil
}

// Update applies patch to contact id and refreshes its last-interaction
// timestamp. A Modification event is recorded only when the patch carries a
// stage different from the stored one; other attribute edits are not
// audited.
func (s *ContactService) Update(ctx context.Context, id string, patch ContactPatch) (*domain.Contact, error) {
	ctx, span := s.tracer().Start(ctx, "Update", trace.WithAttributes(observability.ContactAttr(id)))
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Contacts.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get contact", err)
	}

	rec, fields := patch.apply()
	now := s.Now()
	rec.LastInteraction = &now
	fields = append(fields, "derniere_interaction")

	updated, err := s.Contacts.Update(ctx, id, &rec, fields...)
	if err != nil {
		return nil, mapStoreErr("update contact", err)
	}

	if patch.Stage == nil || *patch.Stage == current.Stage {
		return updated, nil
	}
	return s.recordTransition(ctx, updated, audit.StageChanged, current.Stage, *patch.Stage, now)
}

// MoveStage moves contact id to stage, as a pipeline drag does. Moving to
// the current stage is a no-op that writes nothing.
func (s *ContactService) MoveStage(ctx context.Context, id string, stage domain.Stage) (*domain.Contact, error) {
	ctx, span := s.tracer().Start(ctx, "MoveStage",
		trace.WithAttributes(
			observability.ContactAttr(id),
			attribute.String("stage", string(stage)),
		),
	)
	defer span.End()

	if !stage.Valid() {
		return nil, NewValidationError("statut", "unknown stage "+string(stage))
	}
	current, err := s.Contacts.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get contact", err)
	}
	if current.Stage == stage {
		return current, nil
	}

	now := s.Now()
	updated, err := s.Contacts.Update(ctx, id, &domain.Contact{Stage: stage, LastInteraction: &now}, "statut", "derniere_interaction")
	if err != nil {
		return nil, mapStoreErr("move contact", err)
	}
	return s.recordTransition(ctx, updated, audit.StageMoved, current.Stage, stage, now)
}

func (s *ContactService) recordTransition(ctx context.Context, c *domain.Contact, kind audit.Kind, from, to domain.Stage, at time.Time) (*domain.Contact, error) {
	stageTransitions.WithLabelValues(string(from), string(to)).Inc()
	_, err := s.Audit.Append(ctx, audit.Entry{ContactID: c.ID, Kind: kind, Previous: from, Next: to, At: at})
	if err != nil {
		return c, s.auditFailed(ctx, c.ID, kind, err)
	}
	return c, nil
}

// Delete removes contact id. No event is recorded and its past events are
// kept.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer().Start(ctx, "Delete", trace.WithAttributes(observability.ContactAttr(id)))
	defer span.End()

	if err := s.Contacts.Delete(ctx, id); err != nil {
		return mapStoreErr("delete contact", err)
	}
	return nil
}

// AddInteraction logs a user interaction (call, e-mail, meeting or note) on
// contact id and moves its last-interaction timestamp to at. A zero at means
// now.
func (s *ContactService) AddInteraction(ctx context.Context, id string, typ domain.InteractionType, text string, at time.Time) (*domain.Interaction, error) {
	ctx, span := s.tracer().Start(ctx, "AddInteraction",
		trace.WithAttributes(
			observability.ContactAttr(id),
			attribute.String("type", string(typ)),
		),
	)
	defer span.End()

	var errs []FieldError
	if !typ.Valid() || typ == domain.InteractionModification {
		errs = append(errs, FieldError{Field: "type", Message: "must be one of Note, Appel, Email, Réunion"})
	}
	if strings.TrimSpace(text) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "must not be empty"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if at.IsZero() {
		at = s.Now()
	}

	// A failed touch must store no event.
	if _, err := s.Contacts.Update(ctx, id, &domain.Contact{LastInteraction: &at}, "derniere_interaction"); err != nil {
		return nil, mapStoreErr("touch contact", err)
	}
	ev, err := s.Audit.Append(ctx, audit.Entry{ContactID: id, Kind: audit.Logged, Type: typ, Text: text, At: at})
	if err != nil {
		return nil, mapStoreErr("create interaction", err)
	}
	return ev, nil
}

// History returns a page of the events of contact id, newest first. Events
// of a deleted contact are still returned.
func (s *ContactService) History(ctx context.Context, id string, page, pageSize int) ([]domain.Interaction, int64, error) {
	ctx, span := s.tracer().Start(ctx, "History",
		trace.WithAttributes(
			observability.ContactAttr(id),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	w := utils.Window{Page: page, Size: pageSize}.Clamp(20, 0)
	items, total, err := s.Interactions.Page(ctx, map[string]any{"contact_id": id}, "-date_interaction", w.Offset(), w.Size, true)
	if err != nil {
		return nil, 0, &StoreError{Op: "list interactions", Err: err}
	}
	return items, total, nil
}

func (s *ContactService) auditFailed(ctx context.Context, contactID string, kind audit.Kind, err error) error {
	auditFailures.WithLabelValues(kind.String()).Inc()
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("contact_id", contactID).
		Stringer("kind", kind).
		Msg("audit event not recorded; contact change kept")
	return &PartialAuditFailure{ContactID: contactID, Kind: kind, Err: err}
}

// normalizeTags trims tags and drops blanks and case-insensitive duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if strings.EqualFold(o, t) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrImmutable is returned by GORM hooks when something tries to rewrite or
// remove an audit event.
var ErrImmutable = errors.New("interactions are append-only")

// Interaction is an audit event attached to a contact. Creation and stage
// changes write one automatically; calls, e-mails and meetings are logged by
// users. Interactions are never updated or deleted.
//
// PreviousStage/CurrentStage are set only on stage-change events. Events
// outlive the contact they reference: deleting a contact leaves its history
// in place (no FK cascade).
type Interaction struct {
	ID            string          `json:"id"                         gorm:"type:char(36);primaryKey"`
	ContactID     string          `json:"contact_id"                 gorm:"type:char(36);not null;index:idx_contact_events,priority:1"`
	Type          InteractionType `json:"type"                       gorm:"type:varchar(32);not null"`
	Description   string          `json:"description"                gorm:"type:text;not null"`
	OccurredAt    time.Time       `json:"date_interaction"           gorm:"column:date_interaction;index:idx_contact_events,priority:2"`
	PreviousStage Stage           `json:"statut_precedent,omitempty" gorm:"column:statut_precedent;type:varchar(32)"`
	CurrentStage  Stage           `json:"statut_actuel,omitempty"    gorm:"column:statut_actuel;type:varchar(32)"`
	CreatedAt     time.Time       `json:"created_date"`
}

// TableName returns the database table name for Interaction.
func (Interaction) TableName() string { return "interactions" }

// BeforeCreate assigns a UUID when missing.
func (i *Interaction) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// BeforeUpdate rejects every update.
func (*Interaction) BeforeUpdate(*gorm.DB) error { return ErrImmutable }

// BeforeDelete rejects every delete.
func (*Interaction) BeforeDelete(*gorm.DB) error { return ErrImmutable }

// IsStageChange reports whether the event records a stage transition.
func (i Interaction) IsStageChange() bool {
	return i.PreviousStage != "" || i.CurrentStage != ""
}

// Validate enforces the record-level invariants the store accepts.
func (i *Interaction) Validate() error {
	if strings.TrimSpace(i.ContactID) == "" {
		return fmt.Errorf("%w: contact_id is required", ErrInvalidRecord)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("%w: unknown interaction type %q", ErrInvalidRecord, i.Type)
	}
	if strings.TrimSpace(i.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidRecord)
	}
	return nil
}

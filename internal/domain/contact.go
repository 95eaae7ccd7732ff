package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Monetary values travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ErrInvalidRecord is wrapped by every Validate failure so the store can
// classify it without knowing the record kind.
var ErrInvalidRecord = errors.New("invalid record")

// Contact is a person or company tracked through the sales pipeline.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned on create when empty.
//   - FirstName / LastName / Company / Email / Phone / Address / Notes: free text.
//   - Source: acquisition channel.
//   - Stage: pipeline position, always one of the seven stages.
//   - EstimatedValue: optional non-negative amount (exact decimal, TEXT column).
//   - Temperature: optional Hot/Warm/Cold qualifier.
//   - Tags: free-text labels, stored as a JSON array.
//   - LastInteraction: refreshed on every create or update.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Contact struct {
	ID              string              `json:"id"                   gorm:"type:char(36);primaryKey"`
	FirstName       string              `json:"prenom"               gorm:"type:varchar(120)"`
	LastName        string              `json:"nom"                  gorm:"type:varchar(120);not null"`
	Company         string              `json:"societe"              gorm:"type:varchar(200);index"`
	Email           string              `json:"email"                gorm:"type:varchar(254);index"`
	Phone           string              `json:"telephone"            gorm:"type:varchar(40)"`
	Address         string              `json:"adresse,omitempty"    gorm:"type:text"`
	Notes           string              `json:"notes,omitempty"      gorm:"type:text"`
	Source          Source              `json:"source"               gorm:"type:varchar(32);index"`
	Stage           Stage               `json:"statut"               gorm:"column:statut;type:varchar(32);not null;index"`
	EstimatedValue  decimal.NullDecimal `json:"valeur_estimee"       gorm:"column:valeur_estimee;type:text"`
	Temperature     Temperature         `json:"temperature"          gorm:"type:varchar(16)"`
	Tags            []string            `json:"tags"                 gorm:"serializer:json"`
	LastInteraction *time.Time          `json:"derniere_interaction" gorm:"column:derniere_interaction"`
	CreatedAt       time.Time           `json:"created_date"`
	UpdatedAt       time.Time           `json:"updated_date"         gorm:"index"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// BeforeCreate assigns a UUID when the caller did not provide one and
// defaults the stage to Prospect.
func (c *Contact) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Stage == "" {
		c.Stage = StageProspect
	}
	return nil
}

// FullName joins first and last name the way the search box sees them.
func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Amount returns the estimated value, or zero when absent.
func (c Contact) Amount() decimal.Decimal {
	if !c.EstimatedValue.Valid {
		return decimal.Zero
	}
	return c.EstimatedValue.Decimal
}

// HasTag reports whether the contact carries tag (case-insensitive).
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

// Validate enforces the record-level invariants the store accepts.
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.LastName) == "" {
		return fmt.Errorf("%w: nom is required", ErrInvalidRecord)
	}
	if c.Stage != "" && !c.Stage.Valid() {
		return fmt.Errorf("%w: unknown statut %q", ErrInvalidRecord, c.Stage)
	}
	if !c.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRecord, c.Source)
	}
	if !c.Temperature.Valid() {
		return fmt.Errorf("%w: unknown temperature %q", ErrInvalidRecord, c.Temperature)
	}
	if c.EstimatedValue.Valid && c.EstimatedValue.Decimal.IsNegative() {
		return fmt.Errorf("%w: valeur_estimee must be >= 0", ErrInvalidRecord)
	}
	return nil
}

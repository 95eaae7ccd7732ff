package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a message addressed to one user. Notifications are
// produced outside the CRM core; the core only flips Read to true.
type Notification struct {
	ID        string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_notifications,priority:1"`
	Title     string    `json:"title"        gorm:"type:varchar(255)"`
	Message   string    `json:"message"      gorm:"type:text"`
	Type      string    `json:"type"         gorm:"type:varchar(32)"`
	Link      string    `json:"link,omitempty" gorm:"type:varchar(512)"`
	Read      bool      `json:"read"         gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_date" gorm:"index:idx_user_notifications,priority:2"`
	UpdatedAt time.Time `json:"updated_date"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// BeforeCreate assigns a UUID when missing.
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Validate enforces the record-level invariants the store accepts.
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidRecord)
	}
	return nil
}

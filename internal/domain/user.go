package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values accepted for a user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Preferences holds per-user UI settings persisted with the user record.
type Preferences struct {
	DarkMode bool `json:"dark_mode"`
}

// User is a member of the sales team.
type User struct {
	ID          string      `json:"id"                   gorm:"type:varchar(64);primaryKey"`
	Email       string      `json:"email"                gorm:"type:varchar(254);uniqueIndex;not null"`
	FullName    string      `json:"full_name"            gorm:"type:varchar(200)"`
	Role        string      `json:"role"                 gorm:"type:varchar(16);not null;default:'user';check:role IN ('admin','user')"`
	Department  string      `json:"department,omitempty" gorm:"type:varchar(120)"`
	Phone       string      `json:"phone,omitempty"      gorm:"type:varchar(40)"`
	LastSeen    *time.Time  `json:"last_seen,omitempty"  gorm:"index"`
	Preferences Preferences `json:"preferences"          gorm:"serializer:json"`
	CreatedAt   time.Time   `json:"created_date"`
	UpdatedAt   time.Time   `json:"updated_date"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// BeforeCreate assigns a UUID and the default role when missing.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user may manage other users.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Validate enforces the record-level invariants the store accepts.
func (u *User) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(u.Email)); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidRecord, u.Email)
	}
	switch u.Role {
	case "", RoleAdmin, RoleUser:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRecord, u.Role)
	}
	return nil
}

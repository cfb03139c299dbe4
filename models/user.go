package models

import (
	"time"

	"gorm.io/gorm"
)

// Member roles. Admins are never touched by the idle sweep.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Member statuses. Only approved members are tracked by the sweep;
// members idle for too many weekdays are demoted to inactive.
const (
	StatusWaiting  = "waiting"
	StatusApproved = "approved"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusRejected = "rejected"
)

// User represents an organization member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:128;not null" json:"name"`
	Email           string         `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	RA              string         `gorm:"size:32" json:"ra"`
	CellphoneNumber string         `gorm:"size:32" json:"cellphone_number"`
	ProfilePicture  string         `gorm:"size:512" json:"profile_picture"`
	Role            string         `gorm:"size:16;default:USER" json:"role"`
	Status          string         `gorm:"size:16;default:waiting" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

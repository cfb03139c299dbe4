package models

import "time"

// DayLayout is the canonical calendar-day format used by the duplicate guard.
const DayLayout = "2006-01-02"

// CheckIn stores one daily attendance record per member.
// The (user_id, checkin_day) unique index is the authority on the
// one-check-in-per-day rule; the application pre-check is a fast path only.
type CheckIn struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_checkin_day" json:"user_id"`
	CheckinDay string    `gorm:"size:10;not null;uniqueIndex:idx_user_checkin_day" json:"checkin_day"`
	Confirmed  bool      `gorm:"default:false" json:"confirmed"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/ichacara/attendance/models"
)

// Business errors recovered at the controller boundary. Anything else that
// surfaces from a store is treated as an infrastructure failure.
var (
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrDuplicateDay     = errors.New("duplicate check-in day")
	ErrNotFound         = errors.New("record not found")
)

// CheckinStore is the persistence surface the engine depends on.
// Lookup methods return (nil, nil) when no record matches.
type CheckinStore interface {
	Create(ctx context.Context, rec *models.CheckIn) error
	Get(ctx context.Context, id uint) (*models.CheckIn, error)
	// FindInRange returns the user's check-in with created_at in [from, to).
	FindInRange(ctx context.Context, userID uint, from, to time.Time) (*models.CheckIn, error)
	// Last returns the user's most recent check-in.
	Last(ctx context.Context, userID uint) (*models.CheckIn, error)
	// ListRange returns every check-in with created_at in [from, to).
	ListRange(ctx context.Context, from, to time.Time) ([]models.CheckIn, error)
	// Confirm flips the confirmed flag. Already-confirmed rows are a no-op.
	Confirm(ctx context.Context, id uint) error
}

// CheckinService is the check-in engine: daily uniqueness, month listings and
// the streak / idle streak calculators. The clock is injected so the
// calendar-day walks are testable under simulated time.
type CheckinService struct {
	store CheckinStore
	now   func() time.Time
}

// NewCheckinService creates the engine. A nil clock defaults to time.Now.
func NewCheckinService(store CheckinStore, now func() time.Time) *CheckinService {
	if now == nil {
		now = time.Now
	}
	return &CheckinService{store: store, now: now}
}

// Create records today's check-in for the member. The pre-check keeps the
// common duplicate case cheap; the (user_id, checkin_day) unique index is the
// authority when two requests race past it.
func (s *CheckinService) Create(ctx context.Context, userID uint) (*models.CheckIn, error) {
	now := s.now()
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := s.store.FindInRange(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedIn
	}

	rec := &models.CheckIn{
		UserID:     userID,
		CheckinDay: dayStart.Format(models.DayLayout),
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateDay) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}
	return rec, nil
}

// MonthCheckins lists every check-in of the current calendar month.
func (s *CheckinService) MonthCheckins(ctx context.Context) ([]models.CheckIn, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonthStart := monthStart.AddDate(0, 1, 0)
	return s.store.ListRange(ctx, monthStart, nextMonthStart)
}

// Streak counts consecutive check-in days ending at today. Today itself is
// exempt: a missing check-in on day 0 does not break the chain because the
// member still has the rest of the day to check in.
func (s *CheckinService) Streak(ctx context.Context, userID uint) (int, error) {
	now := s.now()
	streak := 0
	for day := 0; ; day++ {
		dayStart := startOfDay(now.AddDate(0, 0, -day))
		dayEnd := dayStart.AddDate(0, 0, 1)

		rec, err := s.store.FindInRange(ctx, userID, dayStart, dayEnd)
		if err != nil {
			return 0, err
		}
		if rec == nil {
			if day == 0 {
				continue
			}
			break
		}
		streak++
	}
	return streak, nil
}

// IdleStreak counts the weekdays missed since the member's last check-in,
// starting the day after it and stopping before today. Saturdays and Sundays
// never count as missed. Returns nil for members with no history.
func (s *CheckinService) IdleStreak(ctx context.Context, userID uint) (*int, error) {
	last, err := s.store.Last(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}

	today := startOfDay(s.now())
	missed := 0
	for d := startOfDay(last.CreatedAt).AddDate(0, 0, 1); d.Before(today); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			missed++
		}
	}
	return &missed, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

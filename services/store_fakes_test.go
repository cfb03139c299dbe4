package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ichacara/attendance/models"
)

// memCheckinStore is an in-memory CheckinStore enforcing the same
// (user, day) uniqueness the database index provides.
type memCheckinStore struct {
	mu     sync.Mutex
	recs   []*models.CheckIn
	nextID uint

	failWith error // when set, every call fails with this error
}

func newMemCheckinStore() *memCheckinStore {
	return &memCheckinStore{nextID: 1}
}

func (s *memCheckinStore) Create(_ context.Context, rec *models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, r := range s.recs {
		if r.UserID == rec.UserID && r.CheckinDay == rec.CheckinDay {
			return ErrDuplicateDay
		}
	}
	rec.ID = s.nextID
	s.nextID++
	stored := *rec
	s.recs = append(s.recs, &stored)
	return nil
}

func (s *memCheckinStore) Get(_ context.Context, id uint) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, r := range s.recs {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCheckinStore) FindInRange(_ context.Context, userID uint, from, to time.Time) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, r := range s.recs {
		if r.UserID == userID && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCheckinStore) Last(_ context.Context, userID uint) (*models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var last *models.CheckIn
	for _, r := range s.recs {
		if r.UserID != userID {
			continue
		}
		if last == nil || r.CreatedAt.After(last.CreatedAt) {
			last = r
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (s *memCheckinStore) ListRange(_ context.Context, from, to time.Time) ([]models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []models.CheckIn
	for _, r := range s.recs {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memCheckinStore) Confirm(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, r := range s.recs {
		if r.ID == id {
			r.Confirmed = true
			return nil
		}
	}
	return ErrNotFound
}

// add inserts a check-in at the given instant, bypassing business rules.
func (s *memCheckinStore) add(userID uint, at time.Time) *models.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &models.CheckIn{
		ID:         s.nextID,
		UserID:     userID,
		CheckinDay: at.Format(models.DayLayout),
		CreatedAt:  at,
	}
	s.nextID++
	s.recs = append(s.recs, rec)
	return rec
}

// memMemberStore is an in-memory MemberStore for sweep tests.
type memMemberStore struct {
	mu       sync.Mutex
	members  []models.User
	statuses map[uint]string

	failStatusFor map[uint]error
}

func newMemMemberStore(members ...models.User) *memMemberStore {
	s := &memMemberStore{
		members:       members,
		statuses:      map[uint]string{},
		failStatusFor: map[uint]error{},
	}
	for _, m := range members {
		s.statuses[m.ID] = m.Status
	}
	return s
}

func (s *memMemberStore) TrackedMembers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, m := range s.members {
		if s.statuses[m.ID] == models.StatusApproved && m.Role == models.RoleUser {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMemberStore) SetStatus(_ context.Context, id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failStatusFor[id]; err != nil {
		return err
	}
	if _, ok := s.statuses[id]; !ok {
		return ErrNotFound
	}
	s.statuses[id] = status
	return nil
}

func (s *memMemberStore) status(id uint) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

var errStoreDown = errors.New("store down")

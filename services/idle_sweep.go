package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ichacara/attendance/models"
)

// MemberStore is the member surface the sweep depends on.
type MemberStore interface {
	// TrackedMembers returns approved members with the USER role.
	TrackedMembers(ctx context.Context) ([]models.User, error)
	SetStatus(ctx context.Context, id uint, status string) error
}

// IdleSweep demotes members who have been idle past the threshold. It runs
// once a day at a fixed hour; each member is bounded by its own timeout so
// one slow lookup cannot stall the run.
type IdleSweep struct {
	members   MemberStore
	checkins  *CheckinService
	threshold int
	hour      int
	now       func() time.Time
	log       *zap.SugaredLogger

	running atomic.Bool
}

const sweepMemberTimeout = 5 * time.Second

// NewIdleSweep creates a sweep over the given stores. A nil clock defaults to time.Now.
func NewIdleSweep(members MemberStore, checkins *CheckinService, threshold, hour int, log *zap.SugaredLogger, now func() time.Time) *IdleSweep {
	if now == nil {
		now = time.Now
	}
	return &IdleSweep{
		members:   members,
		checkins:  checkins,
		threshold: threshold,
		hour:      hour,
		now:       now,
		log:       log,
	}
}

// Start launches the daily schedule in a background goroutine.
func (s *IdleSweep) Start() {
	go func() {
		for {
			time.Sleep(time.Until(s.nextRun()))
			s.Run(context.Background())
		}
	}()
}

// Run executes one sweep pass. Runs never overlap: a pass that starts while
// another is in flight is skipped. Item failures are logged and the pass
// continues with the remaining members.
func (s *IdleSweep) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("idle sweep already running, skipping this pass")
		return
	}
	defer s.running.Store(false)

	members, err := s.members.TrackedMembers(ctx)
	if err != nil {
		s.log.Errorf("idle sweep: list members failed: %v", err)
		return
	}

	demoted := 0
	for _, m := range members {
		if err := s.sweepMember(ctx, m, &demoted); err != nil {
			s.log.Errorf("idle sweep: member %d failed: %v", m.ID, err)
		}
	}
	s.log.Infof("idle sweep finished: %d members checked, %d demoted", len(members), demoted)
}

func (s *IdleSweep) sweepMember(ctx context.Context, m models.User, demoted *int) error {
	mctx, cancel := context.WithTimeout(ctx, sweepMemberTimeout)
	defer cancel()

	idle, err := s.checkins.IdleStreak(mctx, m.ID)
	if err != nil {
		return err
	}
	if idle == nil || *idle <= s.threshold {
		return nil
	}
	if err := s.members.SetStatus(mctx, m.ID, models.StatusInactive); err != nil {
		return err
	}
	*demoted++
	return nil
}

// nextRun returns the next occurrence of the configured hour.
func (s *IdleSweep) nextRun() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

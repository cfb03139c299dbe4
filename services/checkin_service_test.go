package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins "now" so calendar-day walks are deterministic.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	require.NoError(t, err)
	return parsed
}

func TestStreakNoHistory(t *testing.T) {
	store := newMemCheckinStore()
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	streak, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestStreakCountsTodayAndPrecedingRun(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-10 09:00")) // Monday
	store.add(1, day(t, "2024-06-11 09:30")) // Tuesday
	store.add(1, day(t, "2024-06-12 08:45")) // Wednesday

	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	streak, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestStreakTodayMissingDoesNotBreakChain(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-10 09:00"))
	store.add(1, day(t, "2024-06-11 09:30"))

	// No check-in on the 12th yet; the run up to yesterday still counts.
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	streak, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestStreakBrokenChainCountsOnlyLatestRun(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-10 09:00")) // Monday
	// Tuesday missed
	store.add(1, day(t, "2024-06-12 09:00")) // Wednesday

	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	streak, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestStreakIsolatedPerMember(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-12 09:00"))
	store.add(2, day(t, "2024-06-11 09:00"))

	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	s1, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	s2, err := svc.Streak(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, s1)
	assert.Equal(t, 1, s2)
}

func TestIdleStreakNilWithoutHistory(t *testing.T) {
	store := newMemCheckinStore()
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 10:00")))

	idle, err := svc.IdleStreak(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, idle)
}

func TestIdleStreakSkipsWeekend(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-07 18:00")) // Friday

	// Following Monday: Saturday and Sunday are excluded, no weekday missed.
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-10 09:00")))

	idle, err := svc.IdleStreak(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, idle)
	assert.Equal(t, 0, *idle)
}

func TestIdleStreakCountsWeekdaysOnly(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-07 18:00")) // Friday

	// Wednesday: Monday and Tuesday missed, weekend excluded.
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 09:00")))

	idle, err := svc.IdleStreak(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, idle)
	assert.Equal(t, 2, *idle)
}

func TestIdleStreakExcludesCheckinDayAndToday(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-10 09:00")) // Monday

	// Wednesday before any new check-in: only Tuesday counts as missed.
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 07:00")))

	idle, err := svc.IdleStreak(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, idle)
	assert.Equal(t, 1, *idle)
}

func TestMondayMissTuesdayWednesdayScenario(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-06-10 09:00")) // Monday check-in

	wednesday := fixedClock(day(t, "2024-06-12 09:00"))
	svc := NewCheckinService(store, wednesday)

	// Before Wednesday's check-in the idle streak is Tuesday only.
	idle, err := svc.IdleStreak(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, idle)
	assert.Equal(t, 1, *idle)

	// After checking in on Wednesday the broken chain counts one day.
	_, err = svc.Create(context.Background(), 1)
	require.NoError(t, err)

	streak, err := svc.Streak(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestCreateRejectsSecondCheckinSameDay(t *testing.T) {
	store := newMemCheckinStore()
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 09:00")))

	rec, err := svc.Create(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.UserID)
	assert.False(t, rec.Confirmed)
	assert.Equal(t, "2024-06-12", rec.CheckinDay)

	_, err = svc.Create(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCreateAllowsDifferentMembersSameDay(t *testing.T) {
	store := newMemCheckinStore()
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 09:00")))

	_, err := svc.Create(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2)
	require.NoError(t, err)
}

func TestCreateRaceLeavesSingleRecord(t *testing.T) {
	store := newMemCheckinStore()
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 09:00")))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
		}
	}
	assert.Equal(t, 1, succeeded)

	recs, err := store.ListRange(context.Background(), day(t, "2024-06-12 00:00"), day(t, "2024-06-13 00:00"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMonthCheckinsWindow(t *testing.T) {
	store := newMemCheckinStore()
	store.add(1, day(t, "2024-05-31 23:30"))
	june1 := store.add(2, day(t, "2024-06-01 00:30"))
	june15 := store.add(1, day(t, "2024-06-15 12:00"))
	store.add(1, day(t, "2024-07-01 00:10"))

	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-20 10:00")))

	recs, err := svc.MonthCheckins(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	ids := []uint{recs[0].ID, recs[1].ID}
	assert.Contains(t, ids, june1.ID)
	assert.Contains(t, ids, june15.ID)
}

func TestCalculatorsPropagateStoreErrors(t *testing.T) {
	store := newMemCheckinStore()
	store.failWith = errStoreDown
	svc := NewCheckinService(store, fixedClock(day(t, "2024-06-12 09:00")))

	_, err := svc.Streak(context.Background(), 1)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.IdleStreak(context.Background(), 1)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.Create(context.Background(), 1)
	assert.ErrorIs(t, err, errStoreDown)
}

package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIssueReturnsSameTokenWithinWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	broker := NewTokenBroker(client, newMemCheckinStore(), 10*time.Second, nil)

	first, err := broker.Issue(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := broker.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIssueMintsFreshTokenAfterExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	broker := NewTokenBroker(client, newMemCheckinStore(), 10*time.Second, nil)

	first, err := broker.Issue(context.Background())
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	second, err := broker.Issue(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestIssueEncodingRoundTrips(t *testing.T) {
	_, client := setupTestRedis(t)
	broker := NewTokenBroker(client, newMemCheckinStore(), 10*time.Second, nil)

	encoded, err := broker.Issue(context.Background())
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	live, err := client.Get(context.Background(), "checkin:qrcode").Result()
	require.NoError(t, err)
	assert.Equal(t, live, string(raw))
}

func TestConfirmFlipsRecordOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	store := newMemCheckinStore()
	rec := store.add(1, time.Now())
	broker := NewTokenBroker(client, store, 10*time.Second, nil)

	encoded, err := broker.Issue(context.Background())
	require.NoError(t, err)

	okFirst, err := broker.Confirm(context.Background(), encoded, rec.ID)
	require.NoError(t, err)
	assert.True(t, okFirst)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)

	// Replaying a still-valid token reports success without erroring.
	okAgain, err := broker.Confirm(context.Background(), encoded, rec.ID)
	require.NoError(t, err)
	assert.True(t, okAgain)
}

func TestConfirmRejectsExpiredToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := newMemCheckinStore()
	rec := store.add(1, time.Now())
	broker := NewTokenBroker(client, store, 10*time.Second, nil)

	encoded, err := broker.Issue(context.Background())
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	ok, err := broker.Confirm(context.Background(), encoded, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Confirmed)
}

func TestConfirmRejectsTokenFromPreviousWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := newMemCheckinStore()
	rec := store.add(1, time.Now())
	broker := NewTokenBroker(client, store, 10*time.Second, nil)

	stale, err := broker.Issue(context.Background())
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	fresh, err := broker.Issue(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, stale, fresh)

	ok, err := broker.Confirm(context.Background(), stale, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Confirmed)
}

func TestConfirmRejectsMalformedToken(t *testing.T) {
	_, client := setupTestRedis(t)
	store := newMemCheckinStore()
	rec := store.add(1, time.Now())
	broker := NewTokenBroker(client, store, 10*time.Second, nil)

	_, err := broker.Issue(context.Background())
	require.NoError(t, err)

	ok, err := broker.Confirm(context.Background(), "%%%not-base64%%%", rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfirmUnknownRecord(t *testing.T) {
	_, client := setupTestRedis(t)
	broker := NewTokenBroker(client, newMemCheckinStore(), 10*time.Second, nil)

	encoded, err := broker.Issue(context.Background())
	require.NoError(t, err)

	_, err = broker.Confirm(context.Background(), encoded, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentIssueObservesOneToken(t *testing.T) {
	_, client := setupTestRedis(t)
	broker := NewTokenBroker(client, newMemCheckinStore(), 10*time.Second, nil)

	const workers = 8
	tokens := make(chan string, workers)
	for i := 0; i < workers; i++ {
		go func() {
			tok, err := broker.Issue(context.Background())
			assert.NoError(t, err)
			tokens <- tok
		}()
	}

	first := <-tokens
	for i := 1; i < workers; i++ {
		assert.Equal(t, first, <-tokens)
	}
}

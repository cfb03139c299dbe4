package services

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// qrCodeKey is the single shared cache slot holding the live confirmation
// token. One physical QR display, one scan window: the token is a freshness
// nonce, not a per-member credential.
const qrCodeKey = "checkin:qrcode"

// TokenBroker mints and validates the short-lived confirmation token that
// binds a physical scan to a check-in record. Expiry is enforced entirely by
// the cache TTL; nothing polls for it.
type TokenBroker struct {
	rdb   *redis.Client
	store CheckinStore
	ttl   time.Duration
	now   func() time.Time
}

// NewTokenBroker creates a broker over the given redis client and store.
// A nil clock defaults to time.Now.
func NewTokenBroker(rdb *redis.Client, store CheckinStore, ttl time.Duration, now func() time.Time) *TokenBroker {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &TokenBroker{rdb: rdb, store: store, ttl: ttl, now: now}
}

// Issue returns the encoded live token, minting one when none exists.
// SetNX decides the mint race, so concurrent issuers within one validity
// window all observe the identical token.
func (b *TokenBroker) Issue(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		secret := strconv.FormatInt(b.now().UnixNano(), 10)
		ok, err := b.rdb.SetNX(ctx, qrCodeKey, secret, b.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return encodeToken(secret), nil
		}
		live, err := b.rdb.Get(ctx, qrCodeKey).Result()
		if err == nil {
			return encodeToken(live), nil
		}
		if err != redis.Nil {
			return "", err
		}
		// Slot expired between SetNX and Get; mint again.
		lastErr = err
	}
	return "", lastErr
}

// Confirm validates the presented token against the live slot and, on match,
// marks the named check-in confirmed. Stale, absent or malformed tokens
// report false without touching the record; confirming an already-confirmed
// record with a valid token reports true again.
func (b *TokenBroker) Confirm(ctx context.Context, encoded string, checkInID uint) (bool, error) {
	presented, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return false, nil
	}

	live, err := b.rdb.Get(ctx, qrCodeKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare(presented, []byte(live)) != 1 {
		return false, nil
	}

	rec, err := b.store.Get(ctx, checkInID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, ErrNotFound
	}
	if rec.Confirmed {
		return true, nil
	}
	if err := b.store.Confirm(ctx, checkInID); err != nil {
		return false, err
	}
	return true, nil
}

func encodeToken(secret string) string {
	return base64.URLEncoding.EncodeToString([]byte(secret))
}

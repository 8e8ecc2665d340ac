package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Holds are HASHes {holder, acquired_at, expires_at} with millisecond
// timestamps from the caller's clock. A ZSET scored by expires_at indexes
// them for the purge sweep. Keys also carry a PEXPIRE of ttl plus a grace
// period so abandoned entries disappear even if no sweep runs.

// acquireScript returns {outcome, holder, acquired_at, expires_at} where
// outcome is 1 acquired, 2 renewed, 0 rejected.
var acquireScript = goredis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'holder')
if holder then
	local cur = redis.call('HMGET', KEYS[1], 'acquired_at', 'expires_at')
	if tonumber(cur[2]) > tonumber(ARGV[2]) then
		if holder ~= ARGV[1] then
			return {0, holder, cur[1], cur[2]}
		end
		redis.call('HSET', KEYS[1], 'expires_at', ARGV[3])
		redis.call('PEXPIRE', KEYS[1], ARGV[4])
		redis.call('ZADD', KEYS[2], ARGV[3], ARGV[5])
		return {2, holder, cur[1], ARGV[3]}
	end
end
redis.call('HSET', KEYS[1], 'holder', ARGV[1], 'acquired_at', ARGV[2], 'expires_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[5])
return {1, ARGV[1], ARGV[2], ARGV[3]}
`)

// releaseScript deletes the hold only for its live owner. Returns 1 on delete.
var releaseScript = goredis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'holder', 'expires_at')
if not h[1] or h[1] ~= ARGV[1] or tonumber(h[2]) <= tonumber(ARGV[2]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[3])
return 1
`)

// getScript returns {1, holder, acquired_at, expires_at} for a live hold,
// {0, ...} after deleting an expired one and {} when there is nothing.
// A hash already evicted by PEXPIRE but still indexed yields
// {3, '', '', expires_at}: the holder is gone, the slot is still reclaimed.
var getScript = goredis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'holder', 'acquired_at', 'expires_at')
if not h[1] then
	local score = redis.call('ZSCORE', KEYS[2], ARGV[2])
	if not score then
		return {}
	end
	redis.call('ZREM', KEYS[2], ARGV[2])
	return {3, '', '', score}
end
if tonumber(h[3]) > tonumber(ARGV[1]) then
	return {1, h[1], h[2], h[3]}
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[2])
return {0, h[1], h[2], h[3]}
`)

const holdExpiryKey = "holds:expiry"

// DefaultHoldGrace is how long an expired hold may linger before Redis evicts it.
const DefaultHoldGrace = 10 * time.Minute

// HoldStore implements ports.HoldStore on Redis so that several processes
// share one hold map.
type HoldStore struct {
	client    *goredis.Client
	prefix    string
	expiryKey string
	grace     time.Duration
}

// NewHoldStore creates a new Redis-backed hold store.
func NewHoldStore(client *goredis.Client) *HoldStore {
	return &HoldStore{
		client:    client,
		prefix:    "hold:",
		expiryKey: holdExpiryKey,
		grace:     DefaultHoldGrace,
	}
}

func (s *HoldStore) keys(slot string) []string {
	return []string{s.prefix + slot, s.expiryKey}
}

// Acquire runs the compare-and-set script for the slot.
func (s *HoldStore) Acquire(ctx context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time, ttl time.Duration) (domain.HoldOutcome, *domain.SoftHold, error) {
	slot := key.String()
	expires := now.Add(ttl)
	res, err := acquireScript.Run(ctx, s.client, s.keys(slot),
		holderID.String(),
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expires.UnixMilli(), 10),
		strconv.FormatInt((ttl + s.grace).Milliseconds(), 10),
		slot,
	).Slice()
	if err != nil {
		return "", nil, fmt.Errorf("redis hold acquire: %w", err)
	}

	code, hold, err := decodeHold(key, res)
	if err != nil {
		return "", nil, err
	}
	switch code {
	case 1:
		return domain.HoldAcquired, hold, nil
	case 2:
		return domain.HoldRenewed, hold, nil
	default:
		return domain.HoldRejected, hold, nil
	}
}

// Release runs the owner-checked delete script.
func (s *HoldStore) Release(ctx context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time) (bool, error) {
	slot := key.String()
	n, err := releaseScript.Run(ctx, s.client, s.keys(slot),
		holderID.String(),
		strconv.FormatInt(now.UnixMilli(), 10),
		slot,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis hold release: %w", err)
	}
	return n == 1, nil
}

// Get returns the live hold or reclaims an expired one.
func (s *HoldStore) Get(ctx context.Context, key domain.SlotKey, now time.Time) (*domain.SoftHold, *domain.SoftHold, error) {
	res, err := s.get(ctx, key, now)
	if err != nil {
		return nil, nil, err
	}
	if len(res) == 0 {
		return nil, nil, nil
	}
	code, hold, err := decodeHold(key, res)
	if err != nil {
		return nil, nil, err
	}
	if code == 1 {
		return hold, nil, nil
	}
	return nil, hold, nil
}

// PurgeExpired reclaims every hold whose expiry score is at or before now.
// Each candidate is re-checked atomically, so a hold renewed after the
// range read survives.
func (s *HoldStore) PurgeExpired(ctx context.Context, now time.Time) ([]domain.SoftHold, error) {
	members, err := s.client.ZRangeByScore(ctx, s.expiryKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hold expiry scan: %w", err)
	}

	var purged []domain.SoftHold
	for _, member := range members {
		key, err := domain.ParseSlotKey(member)
		if err != nil {
			if err := s.client.ZRem(ctx, s.expiryKey, member).Err(); err != nil {
				return purged, fmt.Errorf("redis hold drop bad index entry %q: %w", member, err)
			}
			continue
		}
		res, err := s.get(ctx, key, now)
		if err != nil {
			return purged, err
		}
		if len(res) == 0 {
			continue
		}
		code, hold, err := decodeHold(key, res)
		if err != nil {
			return purged, err
		}
		if code == 0 || code == codeEvicted {
			purged = append(purged, *hold)
		}
	}
	return purged, nil
}

func (s *HoldStore) get(ctx context.Context, key domain.SlotKey, now time.Time) ([]interface{}, error) {
	slot := key.String()
	res, err := getScript.Run(ctx, s.client, s.keys(slot),
		strconv.FormatInt(now.UnixMilli(), 10),
		slot,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis hold get: %w", err)
	}
	return res, nil
}

// codeEvicted marks a hold whose hash Redis evicted before any sweep saw it.
const codeEvicted = 3

// decodeHold parses {code, holder, acquired_at, expires_at}.
func decodeHold(key domain.SlotKey, res []interface{}) (int64, *domain.SoftHold, error) {
	if len(res) != 4 {
		return 0, nil, fmt.Errorf("redis hold: unexpected reply length %d", len(res))
	}
	code, ok := res[0].(int64)
	if !ok {
		return 0, nil, fmt.Errorf("redis hold: unexpected outcome %v", res[0])
	}
	if code == codeEvicted {
		score, err := strconv.ParseFloat(fmt.Sprint(res[3]), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("redis hold expiry score: %w", err)
		}
		return code, &domain.SoftHold{
			Key:       key,
			ExpiresAt: time.UnixMilli(int64(score)).UTC(),
		}, nil
	}
	holder, err := uuid.Parse(fmt.Sprint(res[1]))
	if err != nil {
		return 0, nil, fmt.Errorf("redis hold holder: %w", err)
	}
	acquired, err := strconv.ParseInt(fmt.Sprint(res[2]), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("redis hold acquired_at: %w", err)
	}
	expires, err := strconv.ParseInt(fmt.Sprint(res[3]), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("redis hold expires_at: %w", err)
	}
	return code, &domain.SoftHold{
		Key:        key,
		HolderID:   holder,
		AcquiredAt: time.UnixMilli(acquired).UTC(),
		ExpiresAt:  time.UnixMilli(expires).UTC(),
	}, nil
}

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testKey(t *testing.T) domain.SlotKey {
	t.Helper()
	key, err := domain.NewSlotKey(uuid.New(), t0.Add(24*time.Hour), t0.Add(25*time.Hour))
	require.NoError(t, err)
	return key
}

func TestHoldStore_AcquireRenewReject(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()
	key := testKey(t)
	alice, bob := uuid.New(), uuid.New()

	outcome, hold, err := s.Acquire(ctx, key, alice, t0, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldAcquired, outcome)
	assert.Equal(t, t0.Add(5*time.Minute), hold.ExpiresAt)

	outcome, hold, err = s.Acquire(ctx, key, alice, t0.Add(2*time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldRenewed, outcome)
	assert.Equal(t, t0, hold.AcquiredAt, "renewal keeps acquiredAt")
	assert.Equal(t, t0.Add(7*time.Minute), hold.ExpiresAt)

	outcome, hold, err = s.Acquire(ctx, key, bob, t0.Add(3*time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldRejected, outcome)
	assert.Equal(t, alice, hold.HolderID)
}

func TestHoldStore_AcquireAfterExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()
	key := testKey(t)
	alice, bob := uuid.New(), uuid.New()

	_, _, err := s.Acquire(ctx, key, alice, t0, 5*time.Minute)
	require.NoError(t, err)

	outcome, hold, err := s.Acquire(ctx, key, bob, t0.Add(5*time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldAcquired, outcome)
	assert.Equal(t, bob, hold.HolderID)
}

func TestHoldStore_Release(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()
	key := testKey(t)
	alice, bob := uuid.New(), uuid.New()

	_, _, err := s.Acquire(ctx, key, alice, t0, 5*time.Minute)
	require.NoError(t, err)

	released, err := s.Release(ctx, key, bob, t0)
	require.NoError(t, err)
	assert.False(t, released, "non-owner cannot release")

	released, err = s.Release(ctx, key, alice, t0)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = s.Release(ctx, key, alice, t0)
	require.NoError(t, err)
	assert.False(t, released, "second release finds nothing")
}

func TestHoldStore_GetReclaimsExpired(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()
	key := testKey(t)
	alice := uuid.New()

	_, _, err := s.Acquire(ctx, key, alice, t0, 5*time.Minute)
	require.NoError(t, err)

	live, reclaimed, err := s.Get(ctx, key, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Nil(t, reclaimed)

	live, reclaimed, err = s.Get(ctx, key, t0.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, live)
	require.NotNil(t, reclaimed)
	assert.Equal(t, alice, reclaimed.HolderID)
	assert.Equal(t, 0, s.Len())
}

func TestHoldStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()

	short, long := testKey(t), testKey(t)
	_, _, err := s.Acquire(ctx, short, uuid.New(), t0, time.Minute)
	require.NoError(t, err)
	_, _, err = s.Acquire(ctx, long, uuid.New(), t0, 10*time.Minute)
	require.NoError(t, err)

	purged, err := s.PurgeExpired(ctx, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.Equal(t, short, purged[0].Key)
	assert.Equal(t, 1, s.Len())
}

func TestHoldStore_ConcurrentAcquireOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewHoldStore()
	key := testKey(t)

	const n = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _, err := s.Acquire(ctx, key, uuid.New(), t0, 5*time.Minute)
			if err == nil && outcome == domain.HoldAcquired {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
)

// HoldStore implements ports.HoldStore with a mutex-guarded map. Holds live
// only as long as the process.
type HoldStore struct {
	mu    sync.Mutex
	holds map[string]domain.SoftHold
}

// NewHoldStore creates an empty hold store.
func NewHoldStore() *HoldStore {
	return &HoldStore{holds: make(map[string]domain.SoftHold)}
}

// Acquire creates, renews or rejects in one critical section.
func (s *HoldStore) Acquire(_ context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time, ttl time.Duration) (domain.HoldOutcome, *domain.SoftHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	if existing, ok := s.holds[k]; ok && existing.IsLive(now) {
		if !existing.HeldBy(holderID) {
			return domain.HoldRejected, &existing, nil
		}
		existing.ExpiresAt = now.Add(ttl)
		s.holds[k] = existing
		return domain.HoldRenewed, &existing, nil
	}

	hold := domain.SoftHold{
		Key:        key,
		HolderID:   holderID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	s.holds[k] = hold
	return domain.HoldAcquired, &hold, nil
}

// Release deletes the hold when holderID owns it and it is live.
func (s *HoldStore) Release(_ context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	existing, ok := s.holds[k]
	if !ok || !existing.IsLive(now) || !existing.HeldBy(holderID) {
		return false, nil
	}
	delete(s.holds, k)
	return true, nil
}

// Get returns the live hold. An expired entry is removed and reported as reclaimed.
func (s *HoldStore) Get(_ context.Context, key domain.SlotKey, now time.Time) (*domain.SoftHold, *domain.SoftHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	existing, ok := s.holds[k]
	if !ok {
		return nil, nil, nil
	}
	if existing.IsLive(now) {
		return &existing, nil, nil
	}
	delete(s.holds, k)
	return nil, &existing, nil
}

// PurgeExpired removes every expired hold, earliest expiry first.
func (s *HoldStore) PurgeExpired(_ context.Context, now time.Time) ([]domain.SoftHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []domain.SoftHold
	for k, h := range s.holds {
		if !h.IsLive(now) {
			purged = append(purged, h)
			delete(s.holds, k)
		}
	}
	sort.Slice(purged, func(i, j int) bool { return purged[i].ExpiresAt.Before(purged[j].ExpiresAt) })
	return purged, nil
}

// Len returns the number of stored entries, live or not.
func (s *HoldStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holds)
}

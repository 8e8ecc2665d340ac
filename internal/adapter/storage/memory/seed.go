package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document the memory driver starts from.
type Seed struct {
	Resources []SeedResource `yaml:"resources"`
	Members   []SeedMember   `yaml:"members"`
	Wallets   []SeedWallet   `yaml:"wallets"`
}

type SeedResource struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	HourlyRate int64  `yaml:"hourly_rate"`
	Inactive   bool   `yaml:"inactive"`
}

type SeedMember struct {
	ID        string `yaml:"id"`
	FullName  string `yaml:"full_name"`
	Suspended bool   `yaml:"suspended"`
}

type SeedWallet struct {
	MemberID string `yaml:"member_id"`
	Balance  int64  `yaml:"balance"`
}

// LoadSeedFile parses a seed document from disk.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Apply loads the seed into the store, replacing entries with the same id.
func (s *Store) Apply(ctx context.Context, seed *Seed, now time.Time) error {
	resources := make([]domain.Resource, 0, len(seed.Resources))
	for _, r := range seed.Resources {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		if r.HourlyRate < 0 {
			return fmt.Errorf("seed resource %q: negative hourly_rate", r.Name)
		}
		resources = append(resources, domain.Resource{
			ID:         id,
			Name:       r.Name,
			HourlyRate: r.HourlyRate,
			IsActive:   !r.Inactive,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	members := make([]domain.Member, 0, len(seed.Members))
	for _, m := range seed.Members {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return fmt.Errorf("seed member %q: %w", m.FullName, err)
		}
		status := domain.MemberStatusActive
		if m.Suspended {
			status = domain.MemberStatusSuspended
		}
		members = append(members, domain.Member{ID: id, FullName: m.FullName, Status: status, CreatedAt: now})
	}

	wallets := make([]domain.WalletAccount, 0, len(seed.Wallets))
	for _, w := range seed.Wallets {
		id, err := uuid.Parse(w.MemberID)
		if err != nil {
			return fmt.Errorf("seed wallet %q: %w", w.MemberID, err)
		}
		if w.Balance < 0 {
			return fmt.Errorf("seed wallet %s: negative balance", id)
		}
		wallets = append(wallets, domain.WalletAccount{MemberID: id, Balance: w.Balance, UpdatedAt: now})
	}

	return s.update(ctx, func(st *state) error {
		for _, r := range resources {
			st.resources[r.ID] = r
		}
		for _, m := range members {
			st.members[m.ID] = m
		}
		for _, w := range wallets {
			st.wallets[w.MemberID] = w
		}
		return nil
	})
}

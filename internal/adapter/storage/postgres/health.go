package postgres

import (
	"context"
	"errors"
	"fmt"
)

// HealthCheck implements ports.HealthChecker for PostgreSQL. Besides
// connectivity it confirms the booking schema is in place, so a node that
// skipped Migrate reports unhealthy instead of failing every commit.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.pool.Ping(ctx); err != nil {
		return err
	}
	var present bool
	if err := h.pool.QueryRow(ctx, `SELECT to_regclass('bookings') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !present {
		return errors.New("bookings table missing; migrations not applied")
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}

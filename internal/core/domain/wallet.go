package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// WalletAccount is a member's prepaid balance.
type WalletAccount struct {
	MemberID        uuid.UUID `json:"member_id"`
	Balance         int64     `json:"balance"`          // In smallest currency unit
	CumulativeSpend int64     `json:"cumulative_spend"` // Lifetime debits, never reduced by refunds
	Version         int64     `json:"version"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanAfford returns true if a debit of amount keeps the balance non-negative.
func (w *WalletAccount) CanAfford(amount int64) bool {
	return amount >= 0 && w.Balance >= amount
}

// Debit removes amount from the balance and adds it to cumulative spend.
func (w *WalletAccount) Debit(amount int64, now time.Time) error {
	if !w.CanAfford(amount) {
		return ErrInsufficientBalance
	}
	w.Balance -= amount
	w.CumulativeSpend += amount
	w.UpdatedAt = now
	return nil
}

// Credit adds amount back to the balance.
func (w *WalletAccount) Credit(amount int64, now time.Time) {
	w.Balance += amount
	w.UpdatedAt = now
}

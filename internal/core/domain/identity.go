package domain

import "time"

// Role is a capability tag, not an inheritance hierarchy.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleEditor Role = "editor"
)

// BlockStatus describes the login eligibility of an account at a point in time.
type BlockStatus string

const (
	BlockStatusActive    BlockStatus = "active"
	BlockStatusTemporary BlockStatus = "temporary"
	BlockStatusPermanent BlockStatus = "permanent"
)

// Account mirrors the persisted representation in the accounts table.
// A permanent block implies BlockedUntil is nil; the two are never both
// meaningfully active.
type Account struct {
	ID                   string
	Username             string
	Email                string
	DisplayName          string
	PasswordHash         string
	Role                 Role
	LastActiveAt         *time.Time
	BlockedUntil         *time.Time
	IsPermanentlyBlocked bool
	LastFailedAttempt    *time.Time
	FailedAttempts       int
	CreatedAt            time.Time
}

// IsAdmin reports whether the account carries the admin capability.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// BlockStatusAt resolves the account's block status at the given instant.
// Permanent takes precedence over any timed block.
func (a *Account) BlockStatusAt(now time.Time) BlockStatus {
	if a.IsPermanentlyBlocked {
		return BlockStatusPermanent
	}
	if a.BlockedUntil != nil && a.BlockedUntil.After(now) {
		return BlockStatusTemporary
	}
	return BlockStatusActive
}

// RemainingBlockMinutes reports how long a temporary block lasts, rounded up
// and never less than one minute while the block is active. Zero means no
// active timed block.
func (a *Account) RemainingBlockMinutes(now time.Time) int {
	if a.BlockedUntil == nil || !a.BlockedUntil.After(now) {
		return 0
	}
	remaining := a.BlockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

package port

import (
	"context"
	"time"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// AccountRepository exposes persistence behaviour for accounts.
//
// RegisterFailure and ResetFailures must be atomic at the storage layer:
// concurrent failed logins against the same account may not lose increments.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	List(ctx context.Context, onlyBlocked bool, now time.Time) ([]domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id string) error

	// RegisterFailure atomically increments the durable failure counter and
	// returns the new count.
	RegisterFailure(ctx context.Context, id string) (int, error)
	// ResetFailures zeroes the failure counter without touching block state.
	ResetFailures(ctx context.Context, id string) error
	// ApplyLockout persists the block fields computed by the lockout policy.
	ApplyLockout(ctx context.Context, account domain.Account) error
	// ClearFailureState records a successful login: counter and last-failure
	// timestamp reset, last-activity updated. Block fields stay untouched.
	ClearFailureState(ctx context.Context, id string, at time.Time) error
	// TouchActivity bumps the last-activity timestamp.
	TouchActivity(ctx context.Context, id string, at time.Time) error
}

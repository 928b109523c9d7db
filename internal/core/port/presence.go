package port

import (
	"context"
	"time"
)

// PresenceStore tracks last-seen activity per account for the admin user
// list. Losing presence data is harmless, so implementations may be
// best-effort.
type PresenceStore interface {
	Touch(ctx context.Context, accountID string, at time.Time) error
	LastSeen(ctx context.Context, accountID string) (time.Time, bool, error)
}

package port

import (
	"context"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// SequenceRepository is the durable atomic counter behind document numbering,
// partitioned per (domain, year). Implementations must guarantee that Next is
// a single atomic read-modify-write: no two concurrent callers may ever
// observe the same returned value for the same key.
type SequenceRepository interface {
	// Next increments the counter for the key (creating it at zero on first
	// use) and returns the new value.
	Next(ctx context.Context, d domain.LetterDomain, year int) (int64, error)
	// Current returns the last issued value, zero when the key is unused.
	// Best-effort under concurrency; display only.
	Current(ctx context.Context, d domain.LetterDomain, year int) (int64, error)
	// Set forces the counter to an absolute value (resync and hard reset).
	Set(ctx context.Context, d domain.LetterDomain, year int, value int64) error
	// Decrement gives the last issued value back, clamped at zero, and
	// returns the new counter value.
	Decrement(ctx context.Context, d domain.LetterDomain, year int) (int64, error)
}

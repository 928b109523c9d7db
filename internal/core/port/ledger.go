package port

import (
	"context"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// LoginAttemptRepository is the append-only ledger of authentication
// attempts. Append relies on the store's native insert atomicity; rows are
// never updated or deleted.
type LoginAttemptRepository interface {
	Append(ctx context.Context, attempt domain.LoginAttempt) error
	ListRecent(ctx context.Context, limit int) ([]domain.LoginAttempt, error)
	CountRecentFailures(ctx context.Context, username string, limit int) (int, error)
}

// BlockHistoryRepository is the append-only ledger of block and unblock
// actions, administrative and policy-driven alike.
type BlockHistoryRepository interface {
	Append(ctx context.Context, event domain.BlockEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.BlockEvent, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.BlockEvent, error)
}

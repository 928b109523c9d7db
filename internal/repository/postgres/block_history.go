package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// BlockHistoryRepository implements the append-only block/unblock audit
// trail.
type BlockHistoryRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBlockHistoryRepository wires the PostgreSQL-backed block history ledger.
func NewBlockHistoryRepository(exec pgExecutor) *BlockHistoryRepository {
	repo := &BlockHistoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

var blockEventColumns = []string{
	"id",
	"account_id",
	"actor_id",
	"action",
	"block_class",
	"reason",
	"blocked_until",
	"is_permanent",
	"created_at",
}

// Append records one block or unblock action.
func (r *BlockHistoryRepository) Append(ctx context.Context, event domain.BlockEvent) error {
	sqlStmt, args, err := r.builder.Insert("registry.block_history").
		Columns(blockEventColumns...).
		Values(
			event.ID,
			event.AccountID,
			optionalString(event.ActorID),
			string(event.Action),
			optionalStr(string(event.Class)),
			optionalStr(event.Reason),
			optionalTime(event.BlockedUntil),
			event.IsPermanent,
			event.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert block event: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert block event: %w", mapError(err))
	}
	return nil
}

// ListRecent returns the newest block events for the admin activity feed.
func (r *BlockHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.BlockEvent, error) {
	return r.list(ctx, nil, limit)
}

// ListByAccount returns block events for one account, newest first.
func (r *BlockHistoryRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.BlockEvent, error) {
	return r.list(ctx, squirrel.Eq{"account_id": accountID}, limit)
}

func (r *BlockHistoryRepository) list(ctx context.Context, pred squirrel.Eq, limit int) ([]domain.BlockEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.builder.Select(blockEventColumns...).
		From("registry.block_history").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if pred != nil {
		query = query.Where(pred)
	}

	sqlStmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list block events: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list block events: %w", mapError(err))
	}
	defer rows.Close()

	var events []domain.BlockEvent
	for rows.Next() {
		var (
			event  domain.BlockEvent
			action string
			class  *string
			reason *string
		)
		if err := rows.Scan(
			&event.ID,
			&event.AccountID,
			&event.ActorID,
			&action,
			&class,
			&reason,
			&event.BlockedUntil,
			&event.IsPermanent,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan block event: %w", err)
		}
		event.Action = domain.BlockAction(action)
		if class != nil {
			event.Class = domain.BlockClass(*class)
		}
		if reason != nil {
			event.Reason = *reason
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block events: %w", mapError(err))
	}
	return events, nil
}

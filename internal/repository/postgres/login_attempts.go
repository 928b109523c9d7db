package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// LoginAttemptRepository implements the append-only login attempt ledger.
// Rows are inserted once and never updated; no locking beyond the store's
// insert atomicity is needed.
type LoginAttemptRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginAttemptRepository wires the PostgreSQL-backed attempt ledger.
func NewLoginAttemptRepository(exec pgExecutor) *LoginAttemptRepository {
	repo := &LoginAttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Append records one authentication attempt.
func (r *LoginAttemptRepository) Append(ctx context.Context, attempt domain.LoginAttempt) error {
	sqlStmt, args, err := r.builder.Insert("registry.login_attempts").
		Columns("id", "username", "ip_address", "account_id", "succeeded", "created_at").
		Values(
			attempt.ID,
			attempt.Username,
			attempt.IP,
			optionalString(attempt.AccountID),
			attempt.Succeeded,
			attempt.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", mapError(err))
	}
	return nil
}

// ListRecent returns the newest attempts for the admin activity feed.
func (r *LoginAttemptRepository) ListRecent(ctx context.Context, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}

	sqlStmt, args, err := r.builder.
		Select("id", "username", "ip_address", "account_id", "succeeded", "created_at").
		From("registry.login_attempts").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list login attempts: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list login attempts: %w", mapError(err))
	}
	defer rows.Close()

	var attempts []domain.LoginAttempt
	for rows.Next() {
		var attempt domain.LoginAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.Username,
			&attempt.IP,
			&attempt.AccountID,
			&attempt.Succeeded,
			&attempt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login attempts: %w", mapError(err))
	}
	return attempts, nil
}

// CountRecentFailures counts failed attempts for a username among its most
// recent submissions, stopping at the latest success.
func (r *LoginAttemptRepository) CountRecentFailures(ctx context.Context, username string, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}

	const stmt = `
		SELECT COUNT(*)
		FROM (
			SELECT succeeded
			FROM registry.login_attempts
			WHERE username = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		WHERE NOT recent.succeeded`

	var count int
	if err := r.exec.QueryRow(ctx, stmt, username, limit).Scan(&count); err != nil {
		return 0, fmt.Errorf("count failures: %w", mapError(err))
	}
	return count, nil
}

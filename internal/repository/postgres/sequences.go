package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// SequenceRepository implements port.SequenceRepository on a plain counter
// row per (domain, year). Every mutation is a single statement so the store's
// row-level atomicity serialises concurrent callers; the classic
// read-in-app-then-write-back double-issue bug cannot occur.
type SequenceRepository struct {
	pool *pgxpool.Pool
	exec pgExecutor
}

// NewSequenceRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewSequenceRepository(exec pgExecutor) *SequenceRepository {
	repo := &SequenceRepository{exec: exec}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the
// supplied transaction.
func (r *SequenceRepository) WithTx(tx pgx.Tx) *SequenceRepository {
	if tx == nil {
		return r
	}
	return &SequenceRepository{pool: r.pool, exec: tx}
}

// Next atomically bumps the counter, creating the row on first use of the
// (domain, year) key, and returns the issued value.
func (r *SequenceRepository) Next(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	const stmt = `
		INSERT INTO registry.sequence_counters (domain, year, last_value, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (domain, year)
		DO UPDATE SET last_value = sequence_counters.last_value + 1, updated_at = now()
		RETURNING last_value`

	var value int64
	if err := r.exec.QueryRow(ctx, stmt, string(d), year).Scan(&value); err != nil {
		return 0, fmt.Errorf("issue sequence number: %w", mapError(err))
	}
	return value, nil
}

// Current reads the last issued value without mutating state. Unused keys
// report zero.
func (r *SequenceRepository) Current(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	const stmt = `SELECT last_value FROM registry.sequence_counters WHERE domain = $1 AND year = $2`

	var value int64
	err := r.exec.QueryRow(ctx, stmt, string(d), year).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read sequence counter: %w", mapError(err))
	}
	return value, nil
}

// Set forces the counter to an absolute value, creating the row if needed.
func (r *SequenceRepository) Set(ctx context.Context, d domain.LetterDomain, year int, value int64) error {
	const stmt = `
		INSERT INTO registry.sequence_counters (domain, year, last_value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (domain, year)
		DO UPDATE SET last_value = EXCLUDED.last_value, updated_at = now()`

	if _, err := r.exec.Exec(ctx, stmt, string(d), year, value); err != nil {
		return fmt.Errorf("set sequence counter: %w", mapError(err))
	}
	return nil
}

// Decrement gives back the last issued value, clamped at zero. Unused keys
// stay untouched and report zero.
func (r *SequenceRepository) Decrement(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	const stmt = `
		UPDATE registry.sequence_counters
		SET last_value = GREATEST(last_value - 1, 0), updated_at = now()
		WHERE domain = $1 AND year = $2
		RETURNING last_value`

	var value int64
	err := r.exec.QueryRow(ctx, stmt, string(d), year).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("release sequence number: %w", mapError(err))
	}
	return value, nil
}

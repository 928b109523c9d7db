package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{pool: r.pool, exec: tx, builder: r.builder}
}

var accountColumns = []string{
	"id",
	"username",
	"email",
	"display_name",
	"password_hash",
	"role",
	"last_active_at",
	"blocked_until",
	"is_permanently_blocked",
	"last_failed_attempt",
	"failed_attempts",
	"created_at",
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	sqlStmt, args, err := r.builder.Insert("registry.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Username,
			optionalStr(account.Email),
			optionalStr(account.DisplayName),
			account.PasswordHash,
			string(account.Role),
			optionalTime(account.LastActiveAt),
			optionalTime(account.BlockedUntil),
			account.IsPermanentlyBlocked,
			optionalTime(account.LastFailedAttempt),
			account.FailedAttempts,
			account.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves an account by its identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

func (r *AccountRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Account, error) {
	sqlStmt, args, err := r.builder.Select(accountColumns...).
		From("registry.accounts").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account: %w", err)
	}

	row := r.exec.QueryRow(ctx, sqlStmt, args...)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("select account: %w", mapError(err))
	}
	return account, nil
}

// List returns accounts ordered by username, optionally narrowed to accounts
// under an active block.
func (r *AccountRepository) List(ctx context.Context, onlyBlocked bool, now time.Time) ([]domain.Account, error) {
	query := r.builder.Select(accountColumns...).
		From("registry.accounts").
		OrderBy("username ASC")

	if onlyBlocked {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"is_permanently_blocked": true},
			squirrel.Gt{"blocked_until": now},
		})
	}

	sqlStmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", mapError(err))
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", mapError(err))
	}
	return accounts, nil
}

// Update rewrites the mutable profile fields of an account.
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	sqlStmt, args, err := r.builder.Update("registry.accounts").
		Set("username", account.Username).
		Set("email", optionalStr(account.Email)).
		Set("display_name", optionalStr(account.DisplayName)).
		Set("password_hash", account.PasswordHash).
		Set("role", string(account.Role)).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// Delete removes an account. Ledger rows referencing it keep their nullable
// actor references through ON DELETE SET NULL.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	sqlStmt, args, err := r.builder.Delete("registry.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// RegisterFailure atomically increments the failure counter and returns the
// new count. A single UPDATE keeps concurrent failures from losing
// increments.
func (r *AccountRepository) RegisterFailure(ctx context.Context, id string) (int, error) {
	const stmt = `
		UPDATE registry.accounts
		SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts`

	var count int
	if err := r.exec.QueryRow(ctx, stmt, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("register failure: %w", mapError(err))
	}
	return count, nil
}

// ResetFailures zeroes the failure counter, leaving block state untouched.
func (r *AccountRepository) ResetFailures(ctx context.Context, id string) error {
	const stmt = `UPDATE registry.accounts SET failed_attempts = 0 WHERE id = $1`

	tag, err := r.exec.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("reset failures: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// ApplyLockout persists the block fields computed by the lockout policy.
func (r *AccountRepository) ApplyLockout(ctx context.Context, account domain.Account) error {
	sqlStmt, args, err := r.builder.Update("registry.accounts").
		Set("blocked_until", optionalTime(account.BlockedUntil)).
		Set("is_permanently_blocked", account.IsPermanentlyBlocked).
		Set("last_failed_attempt", optionalTime(account.LastFailedAttempt)).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build apply lockout: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("apply lockout: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// ClearFailureState records a successful login.
func (r *AccountRepository) ClearFailureState(ctx context.Context, id string, at time.Time) error {
	const stmt = `
		UPDATE registry.accounts
		SET failed_attempts = 0, last_failed_attempt = NULL, last_active_at = $2
		WHERE id = $1`

	tag, err := r.exec.Exec(ctx, stmt, id, at)
	if err != nil {
		return fmt.Errorf("clear failure state: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// TouchActivity bumps the last-activity timestamp.
func (r *AccountRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	const stmt = `UPDATE registry.accounts SET last_active_at = $2 WHERE id = $1`

	if _, err := r.exec.Exec(ctx, stmt, id, at); err != nil {
		return fmt.Errorf("touch activity: %w", mapError(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account           domain.Account
		email             *string
		displayName       *string
		role              string
		lastActiveAt      *time.Time
		blockedUntil      *time.Time
		lastFailedAttempt *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&email,
		&displayName,
		&account.PasswordHash,
		&role,
		&lastActiveAt,
		&blockedUntil,
		&account.IsPermanentlyBlocked,
		&lastFailedAttempt,
		&account.FailedAttempts,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}

	if email != nil {
		account.Email = *email
	}
	if displayName != nil {
		account.DisplayName = *displayName
	}
	account.Role = domain.Role(role)
	account.LastActiveAt = lastActiveAt
	account.BlockedUntil = blockedUntil
	account.LastFailedAttempt = lastFailedAttempt
	return &account, nil
}

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

// LetterRepository implements port.LetterRepository using PostgreSQL. Both
// registers share one table discriminated by the domain column; a unique
// index on (domain, year, sequence_num) is the last line of defense against
// duplicate numbers.
type LetterRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLetterRepository wires a PostgreSQL-backed letter repository.
func NewLetterRepository(exec pgExecutor) *LetterRepository {
	repo := &LetterRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *LetterRepository) WithTx(tx pgx.Tx) *LetterRepository {
	if tx == nil {
		return r
	}
	return &LetterRepository{pool: r.pool, exec: tx, builder: r.builder}
}

var letterColumns = []string{
	"id",
	"domain",
	"owner_id",
	"number",
	"sequence_num",
	"year",
	"subject",
	"recipient",
	"is_protected",
	"organization",
	"forwarded_to",
	"created_at",
}

// Create inserts a registered letter. Duplicate (domain, year, sequence_num)
// surfaces as repository.ErrConflict.
func (r *LetterRepository) Create(ctx context.Context, letter domain.Letter) error {
	sqlStmt, args, err := r.builder.Insert("registry.letters").
		Columns(letterColumns...).
		Values(
			letter.ID,
			string(letter.Domain),
			letter.OwnerID,
			letter.Number,
			letter.SequenceNum,
			letter.Year,
			letter.Subject,
			optionalString(letter.Recipient),
			letter.IsProtected,
			optionalString(letter.Organization),
			optionalString(letter.ForwardedTo),
			letter.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert letter: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert letter: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves one letter of the given register.
func (r *LetterRepository) GetByID(ctx context.Context, d domain.LetterDomain, id string) (*domain.Letter, error) {
	sqlStmt, args, err := r.builder.Select(letterColumns...).
		From("registry.letters").
		Where(squirrel.Eq{"domain": string(d), "id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select letter: %w", err)
	}

	letter, err := scanLetter(r.exec.QueryRow(ctx, sqlStmt, args...))
	if err != nil {
		return nil, fmt.Errorf("select letter: %w", mapError(err))
	}
	return letter, nil
}

// List returns the register's letters for a year, newest first. A zero year
// means all years.
func (r *LetterRepository) List(ctx context.Context, d domain.LetterDomain, year int) ([]domain.Letter, error) {
	query := r.builder.Select(letterColumns...).
		From("registry.letters").
		Where(squirrel.Eq{"domain": string(d)}).
		OrderBy("created_at DESC")
	if year > 0 {
		query = query.Where(squirrel.Eq{"year": year})
	}

	sqlStmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list letters: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", mapError(err))
	}
	defer rows.Close()

	var letters []domain.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan letter: %w", err)
		}
		letters = append(letters, *letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate letters: %w", mapError(err))
	}
	return letters, nil
}

// Delete removes a letter row.
func (r *LetterRepository) Delete(ctx context.Context, d domain.LetterDomain, id string) error {
	sqlStmt, args, err := r.builder.Delete("registry.letters").
		Where(squirrel.Eq{"domain": string(d), "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete letter: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("delete letter: %w", mapError(err))
	}
	return requireAffected(tag.RowsAffected())
}

// MaxSequence returns the highest persisted sequence number for the key,
// zero when the register has no letters for the year.
func (r *LetterRepository) MaxSequence(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	const stmt = `
		SELECT COALESCE(MAX(sequence_num), 0)
		FROM registry.letters
		WHERE domain = $1 AND year = $2`

	var max int64
	if err := r.exec.QueryRow(ctx, stmt, string(d), year).Scan(&max); err != nil {
		return 0, fmt.Errorf("max sequence: %w", mapError(err))
	}
	return max, nil
}

// ExistsForYear reports whether any letter exists for the key.
func (r *LetterRepository) ExistsForYear(ctx context.Context, d domain.LetterDomain, year int) (bool, error) {
	const stmt = `
		SELECT EXISTS (
			SELECT 1 FROM registry.letters WHERE domain = $1 AND year = $2
		)`

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, string(d), year).Scan(&exists); err != nil {
		return false, fmt.Errorf("letters exist: %w", mapError(err))
	}
	return exists, nil
}

func scanLetter(row rowScanner) (*domain.Letter, error) {
	var (
		letter       domain.Letter
		letterDomain string
		subject      *string
		recipient    *string
		organization *string
		forwardedTo  *string
		createdAt    time.Time
	)

	if err := row.Scan(
		&letter.ID,
		&letterDomain,
		&letter.OwnerID,
		&letter.Number,
		&letter.SequenceNum,
		&letter.Year,
		&subject,
		&recipient,
		&letter.IsProtected,
		&organization,
		&forwardedTo,
		&createdAt,
	); err != nil {
		return nil, err
	}

	letter.Domain = domain.LetterDomain(letterDomain)
	if subject != nil {
		letter.Subject = *subject
	}
	letter.Recipient = recipient
	letter.Organization = organization
	letter.ForwardedTo = forwardedTo
	letter.CreatedAt = createdAt
	return &letter, nil
}

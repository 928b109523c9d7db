package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// AttachmentRepository stores attachment metadata keyed by the discriminated
// (owner_kind, owner_id) pair. Owner existence is checked by the usecase at
// write time.
type AttachmentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAttachmentRepository wires the PostgreSQL-backed attachment metadata store.
func NewAttachmentRepository(exec pgExecutor) *AttachmentRepository {
	repo := &AttachmentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts an attachment metadata row.
func (r *AttachmentRepository) Create(ctx context.Context, attachment domain.Attachment) error {
	sqlStmt, args, err := r.builder.Insert("registry.attachments").
		Columns("id", "owner_kind", "owner_id", "filename", "stored_filename", "uploaded_at").
		Values(
			attachment.ID,
			string(attachment.OwnerKind),
			attachment.OwnerID,
			attachment.Filename,
			attachment.StoredFilename,
			attachment.UploadedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert attachment: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert attachment: %w", mapError(err))
	}
	return nil
}

// ListByOwner returns attachment metadata for one letter.
func (r *AttachmentRepository) ListByOwner(ctx context.Context, kind domain.LetterDomain, ownerID string) ([]domain.Attachment, error) {
	sqlStmt, args, err := r.builder.
		Select("id", "owner_kind", "owner_id", "filename", "stored_filename", "uploaded_at").
		From("registry.attachments").
		Where(squirrel.Eq{"owner_kind": string(kind), "owner_id": ownerID}).
		OrderBy("uploaded_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list attachments: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", mapError(err))
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var (
			attachment domain.Attachment
			kindValue  string
		)
		if err := rows.Scan(
			&attachment.ID,
			&kindValue,
			&attachment.OwnerID,
			&attachment.Filename,
			&attachment.StoredFilename,
			&attachment.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachment.OwnerKind = domain.LetterDomain(kindValue)
		attachments = append(attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", mapError(err))
	}
	return attachments, nil
}

// DeleteByOwner removes all metadata rows for one letter.
func (r *AttachmentRepository) DeleteByOwner(ctx context.Context, kind domain.LetterDomain, ownerID string) error {
	sqlStmt, args, err := r.builder.Delete("registry.attachments").
		Where(squirrel.Eq{"owner_kind": string(kind), "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete attachments: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("delete attachments: %w", mapError(err))
	}
	return nil
}

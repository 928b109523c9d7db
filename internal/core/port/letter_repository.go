package port

import (
	"context"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// LetterRepository exposes persistence behaviour for registered letters.
type LetterRepository interface {
	Create(ctx context.Context, letter domain.Letter) error
	GetByID(ctx context.Context, d domain.LetterDomain, id string) (*domain.Letter, error)
	List(ctx context.Context, d domain.LetterDomain, year int) ([]domain.Letter, error)
	Delete(ctx context.Context, d domain.LetterDomain, id string) error

	// MaxSequence returns the highest persisted sequence number for the key,
	// zero when no letters exist. Feeds the read-repair path.
	MaxSequence(ctx context.Context, d domain.LetterDomain, year int) (int64, error)
	// ExistsForYear reports whether any letter exists for the key.
	ExistsForYear(ctx context.Context, d domain.LetterDomain, year int) (bool, error)
}

// AttachmentRepository stores attachment metadata rows.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment domain.Attachment) error
	ListByOwner(ctx context.Context, kind domain.LetterDomain, ownerID string) ([]domain.Attachment, error)
	DeleteByOwner(ctx context.Context, kind domain.LetterDomain, ownerID string) error
}

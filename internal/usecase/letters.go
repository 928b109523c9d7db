package usecase

import (
	"context"
	"errors"
	"fmt"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/core/port"
	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/repository"
)

var (
	// ErrLetterNotFound indicates the referenced letter does not exist.
	ErrLetterNotFound = errors.New("letter not found")
	// ErrAttachmentOwnerMissing indicates the discriminated owner reference
	// of an attachment resolved to nothing at write time.
	ErrAttachmentOwnerMissing = errors.New("attachment owner does not exist")
)

// registerMaxRetries bounds how often a registration restarts with a freshly
// allocated number after a duplicate surfaced at persistence time.
const registerMaxRetries = 3

// LetterService registers correspondence. Numbering flows through the
// allocator; a persistence failure after allocation triggers a best-effort
// release of the issued number.
type LetterService struct {
	letters     port.LetterRepository
	attachments port.AttachmentRepository
	numbering   *NumberingService
	clock       port.Clock
	logger      *zap.Logger
}

// NewLetterService constructs the letter registration service.
func NewLetterService(
	letters port.LetterRepository,
	attachments port.AttachmentRepository,
	numbering *NumberingService,
	clock port.Clock,
	log *zap.Logger,
) *LetterService {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &LetterService{
		letters:     letters,
		attachments: attachments,
		numbering:   numbering,
		clock:       clock,
		logger:      log,
	}
}

// RegisterOutgoingInput carries a new outgoing letter.
type RegisterOutgoingInput struct {
	OwnerID     string
	Subject     string
	Recipient   string
	IsProtected bool
}

// RegisterIncomingInput carries a new incoming letter.
type RegisterIncomingInput struct {
	OwnerID      string
	Subject      string
	Organization string
	ForwardedTo  string
}

// RegisterOutgoing allocates the next outgoing number and persists the letter.
func (s *LetterService) RegisterOutgoing(ctx context.Context, input RegisterOutgoingInput) (*domain.Letter, error) {
	recipient := input.Recipient
	return s.register(ctx, domain.DomainOutgoing, func(number domain.DocumentNumber, id string) domain.Letter {
		return domain.Letter{
			ID:          id,
			Domain:      domain.DomainOutgoing,
			OwnerID:     input.OwnerID,
			Number:      number.Display(),
			SequenceNum: number.Sequence,
			Year:        number.Year,
			Subject:     input.Subject,
			Recipient:   &recipient,
			IsProtected: input.IsProtected,
			CreatedAt:   s.clock.Now(),
		}
	})
}

// RegisterIncoming allocates the next incoming number and persists the letter.
func (s *LetterService) RegisterIncoming(ctx context.Context, input RegisterIncomingInput) (*domain.Letter, error) {
	organization := input.Organization
	forwardedTo := input.ForwardedTo
	return s.register(ctx, domain.DomainIncoming, func(number domain.DocumentNumber, id string) domain.Letter {
		return domain.Letter{
			ID:           id,
			Domain:       domain.DomainIncoming,
			OwnerID:      input.OwnerID,
			Number:       number.Display(),
			SequenceNum:  number.Sequence,
			Year:         number.Year,
			Subject:      input.Subject,
			Organization: &organization,
			ForwardedTo:  &forwardedTo,
			CreatedAt:    s.clock.Now(),
		}
	})
}

// register runs the allocate-then-persist loop. A duplicate number at
// persistence time means the counter drifted behind the letters table: the
// attempt restarts with a fresh allocation, never overwrites. Any other
// persistence failure releases the issued number as compensation (advisory,
// may leave a gap) and propagates the error.
func (s *LetterService) register(ctx context.Context, d domain.LetterDomain, build func(domain.DocumentNumber, string) domain.Letter) (*domain.Letter, error) {
	log := logger.WithContext(ctx)

	var lastErr error
	for attempt := 0; attempt < registerMaxRetries; attempt++ {
		number, err := s.numbering.Allocate(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("allocate number: %w", err)
		}

		letter := build(number, uuid.NewString())
		err = s.letters.Create(ctx, letter)
		if err == nil {
			log.Info("letter registered",
				zap.String("domain", string(d)),
				zap.String("number", letter.Number),
				zap.Int64("sequence", letter.SequenceNum),
			)
			return &letter, nil
		}

		if errors.Is(err, repository.ErrConflict) {
			// Someone already holds this sequence. The allocator is behind
			// the persisted letters; realign and take a fresh number.
			lastErr = err
			log.Warn("duplicate sequence at persistence, retrying with fresh allocation",
				zap.String("domain", string(d)),
				zap.Int64("sequence", number.Sequence),
			)
			if max, maxErr := s.letters.MaxSequence(ctx, d, number.Year); maxErr == nil {
				if syncErr := s.numbering.Resync(ctx, d, number.Year, max); syncErr != nil {
					log.Error("counter realignment failed", zap.Error(syncErr))
				}
			}
			continue
		}

		if releaseErr := s.numbering.Release(ctx, d, number.Year); releaseErr != nil {
			log.Warn("number release failed, gap accepted",
				zap.String("domain", string(d)),
				zap.Int64("sequence", number.Sequence),
				zap.Error(releaseErr),
			)
		}
		return nil, fmt.Errorf("persist letter: %w", err)
	}
	return nil, fmt.Errorf("register letter after %d attempts: %w", registerMaxRetries, lastErr)
}

// Get returns one letter.
func (s *LetterService) Get(ctx context.Context, d domain.LetterDomain, id string) (*domain.Letter, error) {
	letter, err := s.letters.GetByID(ctx, d, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}
	return letter, nil
}

// List returns the register's letters, optionally narrowed to a year.
func (s *LetterService) List(ctx context.Context, d domain.LetterDomain, year int) ([]domain.Letter, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	return s.letters.List(ctx, d, year)
}

// Delete removes a letter and its attachment metadata.
func (s *LetterService) Delete(ctx context.Context, d domain.LetterDomain, id string) error {
	if err := s.attachments.DeleteByOwner(ctx, d, id); err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}
	if err := s.letters.Delete(ctx, d, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLetterNotFound
		}
		return err
	}
	logger.WithContext(ctx).Info("letter deleted", zap.String("domain", string(d)), zap.String("id", id))
	return nil
}

// AttachInput carries new attachment metadata.
type AttachInput struct {
	OwnerKind domain.LetterDomain
	OwnerID   string
	Filename  string
}

// Attach validates the discriminated owner reference and stores attachment
// metadata. The stored name is the transliterated original with a unique
// suffix.
func (s *LetterService) Attach(ctx context.Context, input AttachInput) (*domain.Attachment, error) {
	if !input.OwnerKind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, input.OwnerKind)
	}

	if _, err := s.letters.GetByID(ctx, input.OwnerKind, input.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttachmentOwnerMissing
		}
		return nil, fmt.Errorf("verify attachment owner: %w", err)
	}

	suffix := uuid.NewString()[:8]
	attachment := domain.Attachment{
		ID:             uuid.NewString(),
		OwnerKind:      input.OwnerKind,
		OwnerID:        input.OwnerID,
		Filename:       input.Filename,
		StoredFilename: domain.StoredFilename(input.Filename, suffix),
		UploadedAt:     s.clock.Now(),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("persist attachment: %w", err)
	}
	return &attachment, nil
}

// Attachments lists a letter's attachment metadata.
func (s *LetterService) Attachments(ctx context.Context, kind domain.LetterDomain, ownerID string) ([]domain.Attachment, error) {
	return s.attachments.ListByOwner(ctx, kind, ownerID)
}

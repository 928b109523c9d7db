package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/core/port"
	"github.com/SATANA888791/mail-registry/internal/infra/telemetry"
	"github.com/SATANA888791/mail-registry/internal/repository"
)

var (
	// ErrLettersExist indicates a hard reset was refused because the register
	// already holds letters for the year.
	ErrLettersExist = errors.New("letters already registered for this year")
	// ErrUnknownDomain indicates a register name outside outgoing/incoming.
	ErrUnknownDomain = errors.New("unknown letter register")
)

const (
	nextMaxRetries  = 3
	nextRetryDelay  = 25 * time.Millisecond
	dashboardBudget = 3 * time.Second
)

// NumberingService issues document numbers and hosts the administrative
// numbering console. Allocation is keyed per (domain, year); contention on
// one key never blocks callers targeting another.
type NumberingService struct {
	sequences port.SequenceRepository
	letters   port.LetterRepository
	clock     port.Clock
	logger    *zap.Logger
	metrics   *telemetry.Provider
}

// NewNumberingService constructs the numbering service.
func NewNumberingService(
	sequences port.SequenceRepository,
	letters port.LetterRepository,
	clock port.Clock,
	logger *zap.Logger,
	metrics *telemetry.Provider,
) *NumberingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &NumberingService{
		sequences: sequences,
		letters:   letters,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Next issues the next sequence number for the register in the given year.
// Transient store failures are retried a bounded number of times with
// backoff; any other failure propagates, since a silently wrong number is
// worse than a failed request.
func (s *NumberingService) Next(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}

	var lastErr error
	for attempt := 0; attempt < nextMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(nextRetryDelay << attempt):
			}
		}

		value, err := s.sequences.Next(ctx, d, year)
		if err == nil {
			s.metrics.ObserveNumberIssued(string(d))
			return value, nil
		}
		if !errors.Is(err, repository.ErrTransient) {
			return 0, err
		}
		lastErr = err
		s.logger.Warn("sequence issue retry",
			zap.String("domain", string(d)),
			zap.Int("year", year),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return 0, fmt.Errorf("issue sequence after %d attempts: %w", nextMaxRetries, lastErr)
}

// Allocate issues a number for the current year and returns it together with
// both encodings.
func (s *NumberingService) Allocate(ctx context.Context, d domain.LetterDomain) (domain.DocumentNumber, error) {
	year := s.clock.Now().Year()
	seq, err := s.Next(ctx, d, year)
	if err != nil {
		return domain.DocumentNumber{}, err
	}
	return domain.DocumentNumber{Domain: d, Sequence: seq, Year: year}, nil
}

// PeekNext reports the number the next allocation would return, without
// mutating state. Best-effort under concurrency; display only.
func (s *NumberingService) PeekNext(ctx context.Context, d domain.LetterDomain, year int) (int64, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	current, err := s.sequences.Current(ctx, d, year)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// Resync aligns the counter so the next allocation returns observedMax+1.
// Maintenance operation: callers must not run it concurrently with Next on
// the same key.
func (s *NumberingService) Resync(ctx context.Context, d domain.LetterDomain, year int, observedMax int64) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	if err := s.sequences.Set(ctx, d, year, observedMax); err != nil {
		return err
	}

	// Consistency check: the counter must not sit below the persisted
	// maximum after a resync.
	max, err := s.letters.MaxSequence(ctx, d, year)
	if err != nil {
		return fmt.Errorf("verify resync: %w", err)
	}
	if observedMax < max {
		s.logger.Warn("resync left counter below persisted maximum, re-aligning",
			zap.String("domain", string(d)),
			zap.Int("year", year),
			zap.Int64("observed_max", observedMax),
			zap.Int64("persisted_max", max),
		)
		return s.sequences.Set(ctx, d, year, max)
	}
	return nil
}

// Release gives back the most recently issued number after a letter creation
// failed post-allocation. Best-effort compensation: it can race with a fresh
// allocation and leave a gap, which is acceptable. Duplicates are not.
func (s *NumberingService) Release(ctx context.Context, d domain.LetterDomain, year int) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	_, err := s.sequences.Decrement(ctx, d, year)
	return err
}

// HardReset forces the counter back to zero. Refused with ErrLettersExist
// once any letter for the (domain, year) key has been persisted.
func (s *NumberingService) HardReset(ctx context.Context, d domain.LetterDomain, year int) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	exists, err := s.letters.ExistsForYear(ctx, d, year)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s/%d", ErrLettersExist, d, year)
	}
	return s.sequences.Set(ctx, d, year, 0)
}

// DashboardNumbers reports the next number for each register.
type DashboardNumbers struct {
	NextOutgoing string
	NextIncoming string
}

// DashboardNumbers computes the authoritative next number per register for
// the current year, repairing a counter that drifted below the persisted
// maximum. Failures degrade to a placeholder so the admin dashboard always
// renders.
func (s *NumberingService) DashboardNumbers(ctx context.Context) DashboardNumbers {
	ctx, cancel := context.WithTimeout(ctx, dashboardBudget)
	defer cancel()

	year := s.clock.Now().Year()
	return DashboardNumbers{
		NextOutgoing: s.nextDisplayNumber(ctx, domain.DomainOutgoing, year),
		NextIncoming: s.nextDisplayNumber(ctx, domain.DomainIncoming, year),
	}
}

func (s *NumberingService) nextDisplayNumber(ctx context.Context, d domain.LetterDomain, year int) string {
	max, err := s.letters.MaxSequence(ctx, d, year)
	if err != nil {
		s.logger.Error("dashboard numbering degraded", zap.String("domain", string(d)), zap.Error(err))
		return domain.PlaceholderNumber(d, year)
	}

	current, err := s.sequences.Current(ctx, d, year)
	if err != nil {
		s.logger.Error("dashboard numbering degraded", zap.String("domain", string(d)), zap.Error(err))
		return domain.PlaceholderNumber(d, year)
	}

	if current < max {
		if err := s.sequences.Set(ctx, d, year, max); err != nil {
			s.logger.Error("dashboard counter repair failed", zap.String("domain", string(d)), zap.Error(err))
			return domain.PlaceholderNumber(d, year)
		}
		s.logger.Info("sequence counter repaired",
			zap.String("domain", string(d)),
			zap.Int("year", year),
			zap.Int64("was", current),
			zap.Int64("now", max),
		)
		current = max
	}

	return domain.FormatNumber(d, current+1, year)
}

// ResetOutcome reports what ResetSequence actually did.
type ResetOutcome string

const (
	ResetOutcomeReset  ResetOutcome = "reset"
	ResetOutcomeSynced ResetOutcome = "synced"
)

// ResetSequence hard-resets the register's counter for the current year when
// no letters exist yet; otherwise it synchronizes the counter to the highest
// persisted number and reports that a sync, not a reset, occurred. Existing
// letter numbers are never destroyed.
func (s *NumberingService) ResetSequence(ctx context.Context, d domain.LetterDomain) (ResetOutcome, error) {
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}

	year := s.clock.Now().Year()
	exists, err := s.letters.ExistsForYear(ctx, d, year)
	if err != nil {
		return "", err
	}

	if !exists {
		if err := s.sequences.Set(ctx, d, year, 0); err != nil {
			return "", err
		}
		s.logger.Info("sequence reset", zap.String("domain", string(d)), zap.Int("year", year))
		return ResetOutcomeReset, nil
	}

	max, err := s.letters.MaxSequence(ctx, d, year)
	if err != nil {
		return "", err
	}
	if err := s.sequences.Set(ctx, d, year, max); err != nil {
		return "", err
	}
	s.logger.Info("sequence synchronized",
		zap.String("domain", string(d)),
		zap.Int("year", year),
		zap.Int64("max", max),
	)
	return ResetOutcomeSynced, nil
}

// ReleaseLast gives back the last issued number for the current year.
// Best-effort, gaps accepted.
func (s *NumberingService) ReleaseLast(ctx context.Context, d domain.LetterDomain) error {
	year := s.clock.Now().Year()
	return s.Release(ctx, d, year)
}

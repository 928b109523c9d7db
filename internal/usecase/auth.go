package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/core/port"
	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/infra/security"
	"github.com/SATANA888791/mail-registry/internal/infra/telemetry"
	"github.com/SATANA888791/mail-registry/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts indicates the failure just tripped or fed an active lockout.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrLedgerUnavailable indicates the attempt ledger could not be written
	// even after a retry; the submission is refused rather than left unaudited.
	ErrLedgerUnavailable = errors.New("attempt ledger unavailable, try again")
)

// BlockedError rejects a login because the account is under an active block.
// The password is never evaluated on this path.
type BlockedError struct {
	Status           domain.BlockStatus
	RemainingMinutes int
}

func (e *BlockedError) Error() string {
	if e.Status == domain.BlockStatusPermanent {
		return "account is permanently blocked"
	}
	return fmt.Sprintf("account is blocked for %d more minutes", e.RemainingMinutes)
}

// PasswordVerifier checks a plaintext password against a stored hash.
// Injectable so tests can observe whether the gate consulted the password.
type PasswordVerifier func(password, encoded string) (bool, error)

// AuthService is the authentication gate in front of the account store. Every
// submission is ledgered, block state is consulted before the password, and
// failures feed the lockout policy. The durable per-account failure counter
// is canonical for blocking decisions.
type AuthService struct {
	accounts  port.AccountRepository
	attempts  port.LoginAttemptRepository
	history   port.BlockHistoryRepository
	publisher port.NotificationPublisher
	presence  port.PresenceStore
	tokens    *security.TokenManager
	clock     port.Clock
	verify    PasswordVerifier
	logger    *zap.Logger
	metrics   *telemetry.Provider

	notificationsEnabled bool
}

// AuthOption configures optional AuthService dependencies.
type AuthOption func(*AuthService)

// WithPasswordVerifier overrides the password verification function.
func WithPasswordVerifier(verify PasswordVerifier) AuthOption {
	return func(s *AuthService) {
		if verify != nil {
			s.verify = verify
		}
	}
}

// WithPresenceStore injects the optional presence tracker.
func WithPresenceStore(presence port.PresenceStore) AuthOption {
	return func(s *AuthService) {
		s.presence = presence
	}
}

// WithNotifications toggles security alert publishing.
func WithNotifications(enabled bool) AuthOption {
	return func(s *AuthService) {
		s.notificationsEnabled = enabled
	}
}

// WithMetrics injects the telemetry provider.
func WithMetrics(metrics *telemetry.Provider) AuthOption {
	return func(s *AuthService) {
		s.metrics = metrics
	}
}

// NewAuthService constructs the authentication gate.
func NewAuthService(
	accounts port.AccountRepository,
	attempts port.LoginAttemptRepository,
	history port.BlockHistoryRepository,
	publisher port.NotificationPublisher,
	tokens *security.TokenManager,
	clock port.Clock,
	log *zap.Logger,
	opts ...AuthOption,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = port.SystemClock{}
	}

	s := &AuthService{
		accounts:             accounts,
		attempts:             attempts,
		history:              history,
		publisher:            publisher,
		tokens:               tokens,
		clock:                clock,
		verify:               security.VerifyPassword,
		logger:               log,
		notificationsEnabled: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LoginInput carries one authentication submission.
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Account domain.Account
	Token   string
}

// Login evaluates one authentication submission.
//
// Precedence: (1) the attempt is ledgered unconditionally; (2) a permanent
// block rejects without evaluating the password; (3) an active timed block
// rejects with the remaining time; (4) only then is the password checked.
// Success clears the failure counter and last-failure timestamp but leaves
// any existing block untouched. Failure increments the durable counter and
// feeds the lockout policy.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	now := s.clock.Now()
	log := logger.WithContext(ctx)

	account, err := s.accounts.GetByUsername(ctx, input.Username)
	if err != nil && !isNotFound(err) {
		// Treat a degraded account read like an unknown user: the attempt is
		// still ledgered below, the credentials are refused.
		log.Error("account lookup failed", zap.Error(err))
		account = nil
	}

	if account == nil {
		if err := s.recordAttempt(ctx, input, nil, false, now); err != nil {
			return nil, err
		}
		s.metrics.ObserveLoginAttempt("unknown_user")
		log.Warn("login attempt for unknown user",
			zap.String("username", logger.MaskUsername(input.Username)),
			zap.String("ip", logger.MaskIP(input.IP)),
		)
		return nil, ErrInvalidCredentials
	}

	switch status := account.BlockStatusAt(now); status {
	case domain.BlockStatusPermanent:
		if err := s.recordAttempt(ctx, input, &account.ID, false, now); err != nil {
			return nil, err
		}
		s.metrics.ObserveLoginAttempt("blocked")
		return nil, &BlockedError{Status: status}
	case domain.BlockStatusTemporary:
		if err := s.recordAttempt(ctx, input, &account.ID, false, now); err != nil {
			return nil, err
		}
		s.metrics.ObserveLoginAttempt("blocked")
		return nil, &BlockedError{Status: status, RemainingMinutes: account.RemainingBlockMinutes(now)}
	}

	ok, err := s.verify(input.Password, account.PasswordHash)
	if err != nil {
		log.Error("password verification failed", zap.Error(err))
		ok = false
	}

	if ok {
		if err := s.recordAttempt(ctx, input, &account.ID, true, now); err != nil {
			return nil, err
		}
		return s.finishSuccessfulLogin(ctx, account, now)
	}

	if err := s.recordAttempt(ctx, input, &account.ID, false, now); err != nil {
		return nil, err
	}
	return nil, s.handleFailedPassword(ctx, account, input.IP, now)
}

func (s *AuthService) finishSuccessfulLogin(ctx context.Context, account *domain.Account, now time.Time) (*LoginResult, error) {
	log := logger.WithContext(ctx)

	if err := s.accounts.ClearFailureState(ctx, account.ID, now); err != nil {
		log.Error("clear failure state", zap.String("account_id", account.ID), zap.Error(err))
	}
	if s.presence != nil {
		if err := s.presence.Touch(ctx, account.ID, now); err != nil {
			log.Warn("presence touch failed", zap.Error(err))
		}
	}

	token, err := s.tokens.Issue(account.ID, account.Username, string(account.Role), now)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.ObserveLoginAttempt("success")
	log.Info("login succeeded",
		zap.String("account_id", account.ID),
		zap.String("username", logger.MaskUsername(account.Username)),
	)

	result := *account
	result.FailedAttempts = 0
	result.LastFailedAttempt = nil
	result.LastActiveAt = &now
	return &LoginResult{Account: result, Token: token}, nil
}

func (s *AuthService) handleFailedPassword(ctx context.Context, account *domain.Account, ip string, now time.Time) error {
	log := logger.WithContext(ctx)

	// 24h of quiet resets the durable counter as well as the block flags, so
	// the ladder restarts instead of jumping straight back to the top.
	if account.LastFailedAttempt != nil && now.Sub(*account.LastFailedAttempt) > domain.LockoutAmnestyAfter {
		if err := s.accounts.ResetFailures(ctx, account.ID); err != nil {
			log.Error("failure counter amnesty reset", zap.Error(err))
		} else {
			account.FailedAttempts = 0
		}
	}

	count, err := s.accounts.RegisterFailure(ctx, account.ID)
	if err != nil {
		log.Error("register failure", zap.String("account_id", account.ID), zap.Error(err))
		count = account.FailedAttempts + 1
	}

	updated, notify := domain.ApplyLockoutPolicy(*account, count, now)
	if err := s.accounts.ApplyLockout(ctx, updated); err != nil {
		log.Error("apply lockout", zap.String("account_id", account.ID), zap.Error(err))
	}

	status := updated.BlockStatusAt(now)
	if wasBlockedNow(account, &updated, now) {
		s.appendAutoBlockEvent(ctx, updated, now)
		switch status {
		case domain.BlockStatusPermanent:
			s.metrics.ObserveLockout("permanent")
		case domain.BlockStatusTemporary:
			s.metrics.ObserveLockout("temporary")
		}
	}

	if notify && s.notificationsEnabled && s.publisher != nil {
		event := domain.SecurityAlertEvent{
			AccountID:      updated.ID,
			Username:       updated.Username,
			FailedAttempts: count,
			Status:         status,
			IP:             ip,
			OccurredAt:     now,
		}
		if err := s.publisher.PublishSecurityAlert(ctx, event); err != nil {
			log.Error("security alert publish failed", zap.Error(err))
		}
	}

	s.metrics.ObserveLoginAttempt("failure")
	log.Warn("login failed",
		zap.String("account_id", account.ID),
		zap.String("username", logger.MaskUsername(account.Username)),
		zap.String("ip", logger.MaskIP(ip)),
		zap.Int("failed_attempts", count),
		zap.String("status", string(status)),
	)

	if count >= domain.LockoutNoticeThreshold {
		return ErrTooManyAttempts
	}
	return ErrInvalidCredentials
}

// recordAttempt writes the ledger entry, retrying once. The ledger is never
// silently skipped: if the retry also fails the submission is refused.
func (s *AuthService) recordAttempt(ctx context.Context, input LoginInput, accountID *string, succeeded bool, now time.Time) error {
	attempt := domain.LoginAttempt{
		ID:        uuid.NewString(),
		Username:  input.Username,
		IP:        input.IP,
		AccountID: accountID,
		Succeeded: succeeded,
		CreatedAt: now,
	}

	err := s.attempts.Append(ctx, attempt)
	if err == nil {
		return nil
	}
	if err = s.attempts.Append(ctx, attempt); err == nil {
		return nil
	}

	logger.WithContext(ctx).Error("attempt ledger write failed twice", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
}

func (s *AuthService) appendAutoBlockEvent(ctx context.Context, account domain.Account, now time.Time) {
	class := domain.BlockClass15Min
	switch {
	case account.IsPermanentlyBlocked:
		class = domain.BlockClassPermanent
	case account.BlockedUntil != nil && account.BlockedUntil.Sub(now) > 30*time.Minute:
		class = domain.BlockClass1Hour
	}

	event := domain.BlockEvent{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		ActorID:      nil, // system-initiated
		Action:       domain.BlockActionBlock,
		Class:        class,
		Reason:       "automatic lockout after repeated failed logins",
		BlockedUntil: account.BlockedUntil,
		IsPermanent:  account.IsPermanentlyBlocked,
		CreatedAt:    now,
	}
	if err := s.history.Append(ctx, event); err != nil {
		logger.WithContext(ctx).Error("block history append failed", zap.Error(err))
	}
}

// wasBlockedNow reports whether this evaluation introduced or escalated a block.
func wasBlockedNow(before, after *domain.Account, now time.Time) bool {
	if before.BlockStatusAt(now) == domain.BlockStatusActive {
		return after.BlockStatusAt(now) != domain.BlockStatusActive
	}
	if !before.IsPermanentlyBlocked && after.IsPermanentlyBlocked {
		return true
	}
	return false
}

// Status resolves the block status of an account by username.
func (s *AuthService) Status(ctx context.Context, username string) (domain.BlockStatus, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return account.BlockStatusAt(s.clock.Now()), nil
}

// RemainingMinutes reports the remaining block window for an account.
func (s *AuthService) RemainingMinutes(ctx context.Context, username string) (int, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return account.RemainingBlockMinutes(s.clock.Now()), nil
}

// Authenticate resolves and validates a bearer token, returning the account.
// Accounts under an active block are rejected even with a valid token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.tokens.Verify(token, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if status := account.BlockStatusAt(now); status != domain.BlockStatusActive {
		return nil, &BlockedError{Status: status, RemainingMinutes: account.RemainingBlockMinutes(now)}
	}

	if err := s.accounts.TouchActivity(ctx, account.ID, now); err != nil {
		logger.WithContext(ctx).Warn("touch activity failed", zap.Error(err))
	}
	if s.presence != nil {
		if err := s.presence.Touch(ctx, account.ID, now); err != nil {
			logger.WithContext(ctx).Warn("presence touch failed", zap.Error(err))
		}
	}
	return account, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

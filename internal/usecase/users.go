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
	"github.com/SATANA888791/mail-registry/internal/repository"
)

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCannotBlockAdmin indicates a block was attempted against an admin.
	ErrCannotBlockAdmin = errors.New("administrators cannot be blocked")
	// ErrSelfAction indicates an admin tried to block or delete themselves.
	ErrSelfAction = errors.New("action cannot target your own account")
	// ErrNotBlocked indicates an unblock on an account without an active block.
	ErrNotBlocked = errors.New("account is not blocked")
	// ErrUnknownBlockClass indicates an unrecognized block duration class.
	ErrUnknownBlockClass = errors.New("unknown block class")
)

// onlineWindow is how recently an account must have been seen to count as
// online in the admin user list.
const onlineWindow = 5 * time.Minute

// UserAdminService manages accounts and the administrative block/unblock
// surface. Every block action lands in the block-history ledger.
type UserAdminService struct {
	accounts  port.AccountRepository
	history   port.BlockHistoryRepository
	attempts  port.LoginAttemptRepository
	publisher port.NotificationPublisher
	presence  port.PresenceStore
	clock     port.Clock
	logger    *zap.Logger
}

// NewUserAdminService constructs the account administration service.
func NewUserAdminService(
	accounts port.AccountRepository,
	history port.BlockHistoryRepository,
	attempts port.LoginAttemptRepository,
	publisher port.NotificationPublisher,
	presence port.PresenceStore,
	clock port.Clock,
	log *zap.Logger,
) *UserAdminService {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &UserAdminService{
		accounts:  accounts,
		history:   history,
		attempts:  attempts,
		publisher: publisher,
		presence:  presence,
		clock:     clock,
		logger:    log,
	}
}

// CreateAccountInput carries a new account.
type CreateAccountInput struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        domain.Role
}

// CreateAccount provisions a new account with a hashed credential.
func (s *UserAdminService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleEditor
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	logger.WithContext(ctx).Info("account created",
		zap.String("account_id", account.ID),
		zap.String("username", logger.MaskUsername(account.Username)),
		zap.String("role", string(role)),
	)
	return &account, nil
}

// UpdateAccountInput carries profile changes. An empty password keeps the
// current credential.
type UpdateAccountInput struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        domain.Role
}

// UpdateAccount rewrites an account's profile fields.
func (s *UserAdminService) UpdateAccount(ctx context.Context, input UpdateAccountInput) (*domain.Account, error) {
	account, err := s.getAccount(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	account.Username = input.Username
	account.Email = input.Email
	account.DisplayName = input.DisplayName
	if input.Role != "" {
		account.Role = input.Role
	}
	if input.Password != "" {
		hash, err := security.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}

	if err := s.accounts.Update(ctx, *account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes an account. Self-deletion is refused; ledger rows
// survive through nullable references.
func (s *UserAdminService) DeleteAccount(ctx context.Context, actorID, accountID string) error {
	if actorID == accountID {
		return ErrSelfAction
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	logger.WithContext(ctx).Info("account deleted", zap.String("account_id", accountID))
	return nil
}

// AccountView is one row of the admin user list.
type AccountView struct {
	Account          domain.Account
	Status           domain.BlockStatus
	RemainingMinutes int
	Online           bool
	LastSeen         *time.Time
}

// ListAccounts returns accounts with presence and block status resolved,
// optionally narrowed to blocked accounts only.
func (s *UserAdminService) ListAccounts(ctx context.Context, onlyBlocked bool) ([]AccountView, error) {
	now := s.clock.Now()
	accounts, err := s.accounts.List(ctx, onlyBlocked, now)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(accounts))
	for _, account := range accounts {
		view := AccountView{
			Account:          account,
			Status:           account.BlockStatusAt(now),
			RemainingMinutes: account.RemainingBlockMinutes(now),
			LastSeen:         account.LastActiveAt,
		}
		if s.presence != nil {
			if seen, ok, err := s.presence.LastSeen(ctx, account.ID); err == nil && ok {
				view.LastSeen = &seen
			}
		}
		if view.LastSeen != nil && now.Sub(*view.LastSeen) <= onlineWindow {
			view.Online = true
		}
		views = append(views, view)
	}
	return views, nil
}

// BlockAccountInput carries an administrative block action.
type BlockAccountInput struct {
	ActorID       string
	AccountID     string
	Class         domain.BlockClass
	CustomMinutes int
	Reason        string
}

// BlockAccount applies an administrative block. Admin-role targets and
// self-blocking are refused. The action lands in the block-history ledger
// and on the message bus.
func (s *UserAdminService) BlockAccount(ctx context.Context, input BlockAccountInput) error {
	if input.ActorID == input.AccountID {
		return ErrSelfAction
	}

	account, err := s.getAccount(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if account.IsAdmin() {
		return ErrCannotBlockAdmin
	}

	now := s.clock.Now()
	reason := input.Reason
	if reason == "" {
		reason = "no reason given"
	}

	if input.Class == domain.BlockClassPermanent {
		account.IsPermanentlyBlocked = true
		account.BlockedUntil = nil
	} else {
		window, ok := input.Class.Duration(input.CustomMinutes)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownBlockClass, input.Class)
		}
		until := now.Add(window)
		account.BlockedUntil = &until
		account.IsPermanentlyBlocked = false
	}

	if err := s.accounts.ApplyLockout(ctx, *account); err != nil {
		return fmt.Errorf("apply block: %w", err)
	}

	actorID := input.ActorID
	event := domain.BlockEvent{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		ActorID:      &actorID,
		Action:       domain.BlockActionBlock,
		Class:        input.Class,
		Reason:       reason,
		BlockedUntil: account.BlockedUntil,
		IsPermanent:  account.IsPermanentlyBlocked,
		CreatedAt:    now,
	}
	if err := s.history.Append(ctx, event); err != nil {
		logger.WithContext(ctx).Error("block history append failed", zap.Error(err))
	}
	s.publishBlockEvent(ctx, account, event)

	logger.WithContext(ctx).Info("account blocked",
		zap.String("account_id", account.ID),
		zap.String("actor_id", input.ActorID),
		zap.String("class", string(input.Class)),
		zap.String("reason", reason),
	)
	return nil
}

// UnblockAccount clears both block fields and records the action.
func (s *UserAdminService) UnblockAccount(ctx context.Context, actorID, accountID string) error {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if account.BlockStatusAt(now) == domain.BlockStatusActive {
		return ErrNotBlocked
	}

	account.IsPermanentlyBlocked = false
	account.BlockedUntil = nil
	if err := s.accounts.ApplyLockout(ctx, *account); err != nil {
		return fmt.Errorf("apply unblock: %w", err)
	}
	if err := s.accounts.ResetFailures(ctx, account.ID); err != nil {
		logger.WithContext(ctx).Warn("failure counter reset failed", zap.Error(err))
	}

	event := domain.BlockEvent{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		ActorID:   &actorID,
		Action:    domain.BlockActionUnblock,
		CreatedAt: now,
	}
	if err := s.history.Append(ctx, event); err != nil {
		logger.WithContext(ctx).Error("block history append failed", zap.Error(err))
	}
	s.publishBlockEvent(ctx, account, event)

	logger.WithContext(ctx).Info("account unblocked",
		zap.String("account_id", account.ID),
		zap.String("actor_id", actorID),
	)
	return nil
}

// RecentActivity returns the newest block-history entries for the dashboard
// feed.
func (s *UserAdminService) RecentActivity(ctx context.Context, limit int) ([]domain.BlockEvent, error) {
	return s.history.ListRecent(ctx, limit)
}

// RecentLoginAttempts returns the newest attempt-ledger entries.
func (s *UserAdminService) RecentLoginAttempts(ctx context.Context, limit int) ([]domain.LoginAttempt, error) {
	return s.attempts.ListRecent(ctx, limit)
}

func (s *UserAdminService) getAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *UserAdminService) publishBlockEvent(ctx context.Context, account *domain.Account, event domain.BlockEvent) {
	if s.publisher == nil {
		return
	}
	busEvent := domain.AccountBlockedEvent{
		AccountID:    event.AccountID,
		Username:     account.Username,
		ActorID:      event.ActorID,
		Action:       event.Action,
		Class:        event.Class,
		Reason:       event.Reason,
		BlockedUntil: event.BlockedUntil,
		IsPermanent:  event.IsPermanent,
		OccurredAt:   event.CreatedAt,
	}
	if err := s.publisher.PublishAccountBlocked(ctx, busEvent); err != nil {
		logger.WithContext(ctx).Error("account block publish failed", zap.Error(err))
	}
}

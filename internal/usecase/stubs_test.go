package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/repository"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type seqKey struct {
	domain domain.LetterDomain
	year   int
}

// memSequences is an in-memory port.SequenceRepository with error injection.
type memSequences struct {
	mu       sync.Mutex
	counters map[seqKey]int64
	nextErrs []error
}

func newMemSequences() *memSequences {
	return &memSequences{counters: make(map[seqKey]int64)}
}

func (s *memSequences) failNextWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErrs = append(s.nextErrs, errs...)
}

func (s *memSequences) Next(_ context.Context, d domain.LetterDomain, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nextErrs) > 0 {
		err := s.nextErrs[0]
		s.nextErrs = s.nextErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	key := seqKey{d, year}
	s.counters[key]++
	return s.counters[key], nil
}

func (s *memSequences) Current(_ context.Context, d domain.LetterDomain, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[seqKey{d, year}], nil
}

func (s *memSequences) Set(_ context.Context, d domain.LetterDomain, year int, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[seqKey{d, year}] = value
	return nil
}

func (s *memSequences) Decrement(_ context.Context, d domain.LetterDomain, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seqKey{d, year}
	if s.counters[key] > 0 {
		s.counters[key]--
	}
	return s.counters[key], nil
}

func (s *memSequences) value(d domain.LetterDomain, year int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[seqKey{d, year}]
}

// memLetters is an in-memory port.LetterRepository enforcing the unique
// (domain, year, sequence) constraint the way the real store does.
type memLetters struct {
	mu         sync.Mutex
	letters    map[string]domain.Letter
	createErrs []error
}

func newMemLetters() *memLetters {
	return &memLetters{letters: make(map[string]domain.Letter)}
}

func (s *memLetters) failCreateWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErrs = append(s.createErrs, errs...)
}

func (s *memLetters) Create(_ context.Context, letter domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range s.letters {
		if existing.Domain == letter.Domain && existing.Year == letter.Year && existing.SequenceNum == letter.SequenceNum {
			return fmt.Errorf("%w: letters_domain_year_seq_key", repository.ErrConflict)
		}
	}
	s.letters[letter.ID] = letter
	return nil
}

func (s *memLetters) GetByID(_ context.Context, d domain.LetterDomain, id string) (*domain.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	letter, ok := s.letters[id]
	if !ok || letter.Domain != d {
		return nil, repository.ErrNotFound
	}
	out := letter
	return &out, nil
}

func (s *memLetters) List(_ context.Context, d domain.LetterDomain, year int) ([]domain.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Letter
	for _, letter := range s.letters {
		if letter.Domain != d {
			continue
		}
		if year != 0 && letter.Year != year {
			continue
		}
		out = append(out, letter)
	}
	return out, nil
}

func (s *memLetters) Delete(_ context.Context, d domain.LetterDomain, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	letter, ok := s.letters[id]
	if !ok || letter.Domain != d {
		return repository.ErrNotFound
	}
	delete(s.letters, id)
	return nil
}

func (s *memLetters) MaxSequence(_ context.Context, d domain.LetterDomain, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, letter := range s.letters {
		if letter.Domain == d && letter.Year == year && letter.SequenceNum > max {
			max = letter.SequenceNum
		}
	}
	return max, nil
}

func (s *memLetters) ExistsForYear(_ context.Context, d domain.LetterDomain, year int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, letter := range s.letters {
		if letter.Domain == d && letter.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLetters) add(letter domain.Letter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters[letter.ID] = letter
}

type memAttachments struct {
	mu   sync.Mutex
	rows []domain.Attachment
}

func newMemAttachments() *memAttachments {
	return &memAttachments{}
}

func (s *memAttachments) Create(_ context.Context, attachment domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, attachment)
	return nil
}

func (s *memAttachments) ListByOwner(_ context.Context, kind domain.LetterDomain, ownerID string) ([]domain.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Attachment
	for _, row := range s.rows {
		if row.OwnerKind == kind && row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memAttachments) DeleteByOwner(_ context.Context, kind domain.LetterDomain, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.OwnerKind != kind || row.OwnerID != ownerID {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

// memAccounts is an in-memory port.AccountRepository.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func newMemAccounts(accounts ...domain.Account) *memAccounts {
	s := &memAccounts{accounts: make(map[string]domain.Account)}
	for _, account := range accounts {
		s.accounts[account.ID] = account
	}
	return s
}

func (s *memAccounts) Create(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return fmt.Errorf("%w: accounts_username_key", repository.ErrConflict)
		}
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *memAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := account
	return &out, nil
}

func (s *memAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Username == username {
			out := account
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memAccounts) List(_ context.Context, onlyBlocked bool, now time.Time) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Account
	for _, account := range s.accounts {
		if onlyBlocked && account.BlockStatusAt(now) == domain.BlockStatusActive {
			continue
		}
		out = append(out, account)
	}
	return out, nil
}

func (s *memAccounts) Update(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *memAccounts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memAccounts) RegisterFailure(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	account.FailedAttempts++
	s.accounts[id] = account
	return account.FailedAttempts, nil
}

func (s *memAccounts) ResetFailures(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FailedAttempts = 0
	s.accounts[id] = account
	return nil
}

func (s *memAccounts) ApplyLockout(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[account.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.BlockedUntil = account.BlockedUntil
	stored.IsPermanentlyBlocked = account.IsPermanentlyBlocked
	stored.LastFailedAttempt = account.LastFailedAttempt
	s.accounts[account.ID] = stored
	return nil
}

func (s *memAccounts) ClearFailureState(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FailedAttempts = 0
	account.LastFailedAttempt = nil
	account.LastActiveAt = &at
	s.accounts[id] = account
	return nil
}

func (s *memAccounts) TouchActivity(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastActiveAt = &at
	s.accounts[id] = account
	return nil
}

func (s *memAccounts) get(id string) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

// memAttempts is an in-memory attempt ledger with append error injection.
type memAttempts struct {
	mu         sync.Mutex
	rows       []domain.LoginAttempt
	appendErrs []error
}

func newMemAttempts() *memAttempts {
	return &memAttempts{}
}

func (s *memAttempts) failAppendWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErrs = append(s.appendErrs, errs...)
}

func (s *memAttempts) Append(_ context.Context, attempt domain.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.appendErrs) > 0 {
		err := s.appendErrs[0]
		s.appendErrs = s.appendErrs[1:]
		if err != nil {
			return err
		}
	}
	s.rows = append(s.rows, attempt)
	return nil
}

func (s *memAttempts) ListRecent(_ context.Context, limit int) ([]domain.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.LoginAttempt(nil), s.rows...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memAttempts) CountRecentFailures(_ context.Context, username string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.rows {
		if row.Username == username && !row.Succeeded {
			count++
		}
	}
	return count, nil
}

func (s *memAttempts) all() []domain.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LoginAttempt(nil), s.rows...)
}

// memHistory is an in-memory block-history ledger.
type memHistory struct {
	mu   sync.Mutex
	rows []domain.BlockEvent
}

func newMemHistory() *memHistory {
	return &memHistory{}
}

func (s *memHistory) Append(_ context.Context, event domain.BlockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, event)
	return nil
}

func (s *memHistory) ListRecent(_ context.Context, limit int) ([]domain.BlockEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.BlockEvent(nil), s.rows...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memHistory) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.BlockEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BlockEvent
	for _, row := range s.rows {
		if row.AccountID == accountID {
			out = append(out, row)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memHistory) all() []domain.BlockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BlockEvent(nil), s.rows...)
}

// memPublisher records published events.
type memPublisher struct {
	mu      sync.Mutex
	alerts  []domain.SecurityAlertEvent
	blocked []domain.AccountBlockedEvent
}

func newMemPublisher() *memPublisher {
	return &memPublisher{}
}

func (s *memPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, event)
	return nil
}

func (s *memPublisher) PublishAccountBlocked(_ context.Context, event domain.AccountBlockedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = append(s.blocked, event)
	return nil
}

func (s *memPublisher) alertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func (s *memPublisher) blockedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocked)
}

// memPresence is an in-memory presence store.
type memPresence struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMemPresence() *memPresence {
	return &memPresence{seen: make(map[string]time.Time)}
}

func (s *memPresence) Touch(_ context.Context, accountID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[accountID] = at
	return nil
}

func (s *memPresence) LastSeen(_ context.Context, accountID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.seen[accountID]
	return at, ok, nil
}

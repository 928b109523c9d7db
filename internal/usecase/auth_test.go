package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/infra/security"
)

var authNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

const goodPassword = "correct-horse"

type authFixture struct {
	svc         *AuthService
	accounts    *memAccounts
	attempts    *memAttempts
	history     *memHistory
	publisher   *memPublisher
	presence    *memPresence
	clock       *fixedClock
	verifyCalls *int
}

func newAuthFixture(t *testing.T, accounts ...domain.Account) *authFixture {
	t.Helper()

	tokens, err := security.NewTokenManager("test-secret", time.Hour, "registry-test")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	f := &authFixture{
		accounts:    newMemAccounts(accounts...),
		attempts:    newMemAttempts(),
		history:     newMemHistory(),
		publisher:   newMemPublisher(),
		presence:    newMemPresence(),
		clock:       newFixedClock(authNow),
		verifyCalls: new(int),
	}

	verifier := func(password, encoded string) (bool, error) {
		*f.verifyCalls++
		return password == goodPassword, nil
	}

	f.svc = NewAuthService(
		f.accounts,
		f.attempts,
		f.history,
		f.publisher,
		tokens,
		f.clock,
		zaptest.NewLogger(t),
		WithPasswordVerifier(verifier),
		WithPresenceStore(f.presence),
	)
	return f
}

func testAccount() domain.Account {
	return domain.Account{
		ID:           "acc-1",
		Username:     "clerk",
		PasswordHash: "irrelevant",
		Role:         domain.RoleEditor,
		CreatedAt:    authNow.Add(-30 * 24 * time.Hour),
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t, testAccount())

	result, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword, IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Error("no token issued")
	}
	if result.Account.FailedAttempts != 0 {
		t.Error("failure counter not cleared in the result")
	}

	rows := f.attempts.all()
	if len(rows) != 1 || !rows[0].Succeeded {
		t.Fatalf("ledger = %+v, want one successful entry", rows)
	}
	if rows[0].AccountID == nil || *rows[0].AccountID != "acc-1" {
		t.Error("ledger entry not linked to the account")
	}

	if _, ok, _ := f.presence.LastSeen(context.Background(), "acc-1"); !ok {
		t.Error("presence not touched on success")
	}
}

func TestLoginSuccessClearsFailureCounter(t *testing.T) {
	account := testAccount()
	account.FailedAttempts = 3
	failedAt := authNow.Add(-time.Minute)
	account.LastFailedAttempt = &failedAt
	f := newAuthFixture(t, account)

	if _, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	stored := f.accounts.get("acc-1")
	if stored.FailedAttempts != 0 || stored.LastFailedAttempt != nil {
		t.Errorf("failure state not cleared: %+v", stored)
	}
}

func TestLoginUnknownUserIsLedgered(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "whatever", IP: "10.0.0.1"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	rows := f.attempts.all()
	if len(rows) != 1 {
		t.Fatalf("ledger has %d rows, want 1", len(rows))
	}
	if rows[0].AccountID != nil {
		t.Error("unknown user must yield a nil account reference")
	}
	if rows[0].Succeeded {
		t.Error("attempt marked successful")
	}
}

func TestLoginPermanentBlockSkipsPassword(t *testing.T) {
	account := testAccount()
	account.IsPermanentlyBlocked = true
	f := newAuthFixture(t, account)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword})

	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if blocked.Status != domain.BlockStatusPermanent {
		t.Errorf("status = %v, want permanent", blocked.Status)
	}
	if *f.verifyCalls != 0 {
		t.Error("password was evaluated for a permanently blocked account")
	}
	if len(f.attempts.all()) != 1 {
		t.Error("blocked attempt was not ledgered")
	}
}

func TestLoginTemporaryBlockReportsRemainingMinutes(t *testing.T) {
	account := testAccount()
	until := authNow.Add(9*time.Minute + 30*time.Second)
	account.BlockedUntil = &until
	f := newAuthFixture(t, account)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword})

	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if blocked.Status != domain.BlockStatusTemporary {
		t.Errorf("status = %v, want temporary", blocked.Status)
	}
	if blocked.RemainingMinutes != 10 {
		t.Errorf("remaining = %d, want 10 (rounded up)", blocked.RemainingMinutes)
	}
	if *f.verifyCalls != 0 {
		t.Error("password was evaluated for a blocked account")
	}
}

func TestLoginExpiredBlockAllowsAttempt(t *testing.T) {
	account := testAccount()
	until := authNow.Add(-time.Minute)
	account.BlockedUntil = &until
	f := newAuthFixture(t, account)

	if _, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword}); err != nil {
		t.Fatalf("expired block must not reject: %v", err)
	}
}

func TestLoginFailureLadderLocksAtFive(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	ctx := context.Background()
	input := LoginInput{Username: "clerk", Password: "wrong", IP: "10.0.0.1"}

	for i := 1; i <= 4; i++ {
		if _, err := f.svc.Login(ctx, input); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidCredentials", i, err)
		}
	}

	if _, err := f.svc.Login(ctx, input); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("5th attempt err = %v, want ErrTooManyAttempts", err)
	}

	stored := f.accounts.get("acc-1")
	if stored.FailedAttempts != 5 {
		t.Errorf("failure counter = %d, want 5", stored.FailedAttempts)
	}
	want := authNow.Add(15 * time.Minute)
	if stored.BlockedUntil == nil || !stored.BlockedUntil.Equal(want) {
		t.Errorf("BlockedUntil = %v, want %v", stored.BlockedUntil, want)
	}

	if f.publisher.alertCount() != 1 {
		t.Errorf("security alerts = %d, want exactly 1 at the 5th failure", f.publisher.alertCount())
	}

	events := f.history.all()
	if len(events) != 1 {
		t.Fatalf("block history rows = %d, want 1", len(events))
	}
	if events[0].ActorID != nil {
		t.Error("automatic block must have no actor")
	}
	if events[0].Action != domain.BlockActionBlock {
		t.Errorf("action = %v, want block", events[0].Action)
	}

	// The 6th submission is rejected before the password is consulted.
	verifyBefore := *f.verifyCalls
	if _, err := f.svc.Login(ctx, input); err == nil {
		t.Fatal("6th attempt accepted")
	} else {
		var blocked *BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("6th attempt err = %v, want BlockedError", err)
		}
	}
	if *f.verifyCalls != verifyBefore {
		t.Error("password evaluated while blocked")
	}

	if got := len(f.attempts.all()); got != 6 {
		t.Errorf("ledger rows = %d, want 6 (every submission ledgered)", got)
	}
}

func TestLoginPermanentLockAtTen(t *testing.T) {
	account := testAccount()
	account.FailedAttempts = 9
	failedAt := authNow.Add(-time.Minute)
	account.LastFailedAttempt = &failedAt
	f := newAuthFixture(t, account)

	if _, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: "wrong"}); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("err = %v, want ErrTooManyAttempts", err)
	}

	stored := f.accounts.get("acc-1")
	if !stored.IsPermanentlyBlocked {
		t.Error("account not permanently blocked at the 10th failure")
	}
	if stored.BlockedUntil != nil {
		t.Error("timed block not cleared by the permanent block")
	}
	if f.publisher.alertCount() != 1 {
		t.Errorf("security alerts = %d, want 1 at the 10th failure", f.publisher.alertCount())
	}
}

func TestLoginAmnestyRestartsLadder(t *testing.T) {
	account := testAccount()
	account.FailedAttempts = 8
	stale := authNow.Add(-25 * time.Hour)
	account.LastFailedAttempt = &stale
	until := stale.Add(time.Hour)
	account.BlockedUntil = &until
	f := newAuthFixture(t, account)

	// The stale block has expired, so the gate reaches the password check and
	// the amnesty resets the durable counter before registering the failure.
	if _, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials after amnesty", err)
	}

	stored := f.accounts.get("acc-1")
	if stored.FailedAttempts != 1 {
		t.Errorf("failure counter = %d, want ladder restart at 1", stored.FailedAttempts)
	}
	if stored.BlockedUntil != nil || stored.IsPermanentlyBlocked {
		t.Errorf("unexpected block after amnesty: %+v", stored)
	}
}

func TestLoginLedgerRetriesOnce(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	f.attempts.failAppendWith(errors.New("ledger hiccup"))

	if _, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword}); err != nil {
		t.Fatalf("single ledger failure must be retried: %v", err)
	}
	if len(f.attempts.all()) != 1 {
		t.Error("retried attempt missing from the ledger")
	}
}

func TestLoginRefusedWhenLedgerDown(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	down := errors.New("ledger down")
	f.attempts.failAppendWith(down, down)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "clerk", Password: goodPassword})
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Fatalf("err = %v, want ErrLedgerUnavailable", err)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	ctx := context.Background()

	result, err := f.svc.Login(ctx, LoginInput{Username: "clerk", Password: goodPassword})
	if err != nil {
		t.Fatal(err)
	}

	account, err := f.svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("account = %q, want acc-1", account.ID)
	}
	if f.accounts.get("acc-1").LastActiveAt == nil {
		t.Error("activity not touched")
	}
	if _, ok, _ := f.presence.LastSeen(ctx, "acc-1"); !ok {
		t.Error("presence not touched")
	}
}

func TestAuthenticateRejectsBlockedAccount(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	ctx := context.Background()

	result, err := f.svc.Login(ctx, LoginInput{Username: "clerk", Password: goodPassword})
	if err != nil {
		t.Fatal(err)
	}

	blockedAccount := f.accounts.get("acc-1")
	blockedAccount.IsPermanentlyBlocked = true
	if err := f.accounts.ApplyLockout(ctx, blockedAccount); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Authenticate(ctx, result.Token)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	f := newAuthFixture(t, testAccount())
	if _, err := f.svc.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

package domain

import "time"

// Lockout ladder thresholds. The counts are cumulative failed attempts
// against a single account.
const (
	LockoutNoticeThreshold    = 5
	LockoutHourThreshold      = 7
	LockoutPermanentThreshold = 10

	lockoutShortWindow = 15 * time.Minute
	lockoutLongWindow  = time.Hour

	// LockoutAmnestyAfter clears stale blocks once the account has been quiet
	// for this long.
	LockoutAmnestyAfter = 24 * time.Hour
)

// ApplyLockoutPolicy evaluates one failed login attempt against the graduated
// lockout ladder and returns the updated account state together with a flag
// indicating whether a security notification must fire. The input account is
// not mutated.
//
// Evaluation order: the 24h amnesty first clears any stale block, the attempt
// timestamp is recorded, then the count thresholds apply:
//
//	>= 10  permanent block, timed block cleared
//	>= 7   timed block for one hour
//	>= 5   timed block for 15 minutes, or a 15 minute extension when the
//	       current block would expire within 15 minutes
//	<  5   no block, attempt timestamp only
//
// The notification fires exactly at counts 5 and 10.
func ApplyLockoutPolicy(account Account, attempts int, now time.Time) (Account, bool) {
	if account.LastFailedAttempt != nil && now.Sub(*account.LastFailedAttempt) > LockoutAmnestyAfter {
		account.BlockedUntil = nil
		account.IsPermanentlyBlocked = false
	}

	at := now
	account.LastFailedAttempt = &at

	switch {
	case attempts >= LockoutPermanentThreshold:
		account.IsPermanentlyBlocked = true
		account.BlockedUntil = nil
	case attempts >= LockoutHourThreshold:
		until := now.Add(lockoutLongWindow)
		account.BlockedUntil = &until
	case attempts >= LockoutNoticeThreshold:
		switch {
		case account.BlockedUntil == nil || !account.BlockedUntil.After(now):
			until := now.Add(lockoutShortWindow)
			account.BlockedUntil = &until
		case !account.BlockedUntil.After(now.Add(lockoutShortWindow)):
			until := account.BlockedUntil.Add(lockoutShortWindow)
			account.BlockedUntil = &until
		}
	}

	notify := attempts == LockoutNoticeThreshold || attempts == LockoutPermanentThreshold
	return account, notify
}

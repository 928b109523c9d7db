package domain

import "time"

// SecurityAlertEvent fires when an account crosses a lockout notification
// threshold (5th and 10th failed attempt).
type SecurityAlertEvent struct {
	AccountID      string      `json:"account_id"`
	Username       string      `json:"username"`
	FailedAttempts int         `json:"failed_attempts"`
	Status         BlockStatus `json:"status"`
	IP             string      `json:"ip,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// AccountBlockedEvent mirrors a block-history ledger entry onto the message
// bus so downstream consumers can react to block and unblock actions.
type AccountBlockedEvent struct {
	AccountID    string      `json:"account_id"`
	Username     string      `json:"username"`
	ActorID      *string     `json:"actor_id,omitempty"`
	Action       BlockAction `json:"action"`
	Class        BlockClass  `json:"class,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	BlockedUntil *time.Time  `json:"blocked_until,omitempty"`
	IsPermanent  bool        `json:"is_permanent"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

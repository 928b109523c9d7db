package domain

import "time"

// LoginAttempt records one authentication submission. Rows are immutable once
// written; AccountID stays nil when the submitted username matched nothing.
type LoginAttempt struct {
	ID        string
	Username  string
	IP        string
	AccountID *string
	Succeeded bool
	CreatedAt time.Time
}

// BlockAction distinguishes block and unblock ledger entries.
type BlockAction string

const (
	BlockActionBlock   BlockAction = "block"
	BlockActionUnblock BlockAction = "unblock"
)

// BlockClass classifies the duration of a block action.
type BlockClass string

const (
	BlockClass15Min     BlockClass = "15min"
	BlockClass1Hour     BlockClass = "1hour"
	BlockClass1Day      BlockClass = "1day"
	BlockClassCustom    BlockClass = "custom"
	BlockClassPermanent BlockClass = "permanent"
)

// Duration resolves the block window for the class. Custom classes take their
// length from customMinutes. Permanent (and unknown) classes return ok=false.
func (c BlockClass) Duration(customMinutes int) (time.Duration, bool) {
	switch c {
	case BlockClass15Min:
		return 15 * time.Minute, true
	case BlockClass1Hour:
		return time.Hour, true
	case BlockClass1Day:
		return 24 * time.Hour, true
	case BlockClassCustom:
		if customMinutes <= 0 {
			customMinutes = 15
		}
		return time.Duration(customMinutes) * time.Minute, true
	default:
		return 0, false
	}
}

// BlockEvent is one entry of the administrative block/unblock audit trail.
// ActorID is nil for policy-driven automatic blocks. Rows are immutable.
type BlockEvent struct {
	ID           string
	AccountID    string
	ActorID      *string
	Action       BlockAction
	Class        BlockClass
	Reason       string
	BlockedUntil *time.Time
	IsPermanent  bool
	CreatedAt    time.Time
}

package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly notification publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSecurityAlert logs security.alert events.
func (p *StubPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	p.logEvent(topicSecurityAlert, event.AccountID, event.OccurredAt, event)
	return nil
}

// PublishAccountBlocked logs account.blocked events.
func (p *StubPublisher) PublishAccountBlocked(_ context.Context, event domain.AccountBlockedEvent) error {
	p.logEvent(topicAccountBlocked, event.AccountID, event.OccurredAt, event)
	return nil
}

var _ port.NotificationPublisher = (*StubPublisher)(nil)

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/core/port"
	"github.com/SATANA888791/mail-registry/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	topicSecurityAlert  = "security.alert"
	topicAccountBlocked = "account.blocked"
)

// EventPublisher implements port.NotificationPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed notification publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(body),
	}

	p.producer.Producer().Input() <- msg

	p.logger.Debug("event published",
		zap.String("event_type", eventType),
		zap.String("event_id", envelope.EventID),
		zap.String("topic", msg.Topic),
	)
	return nil
}

// PublishSecurityAlert emits a lockout-threshold alert onto the bus.
func (p *EventPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	return p.publish(topicSecurityAlert, event.AccountID, event.OccurredAt, event)
}

// PublishAccountBlocked mirrors a block or unblock action onto the bus.
func (p *EventPublisher) PublishAccountBlocked(_ context.Context, event domain.AccountBlockedEvent) error {
	return p.publish(topicAccountBlocked, event.AccountID, event.OccurredAt, event)
}

var _ port.NotificationPublisher = (*EventPublisher)(nil)

package port

import (
	"context"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
)

// NotificationPublisher delivers security events to the message bus.
// Publishing is fire-and-forget from the caller's perspective: failures are
// logged, never allowed to block the login path.
type NotificationPublisher interface {
	PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error
	PublishAccountBlocked(ctx context.Context, event domain.AccountBlockedEvent) error
}

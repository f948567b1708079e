package service

import (
	"context"
	"encoding/json"

	"flow-platform/internal/models"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"

	"go.uber.org/zap"
)

// NotificationService consumes every fire-and-forget notification pattern.
// Actual mail delivery is an external collaborator; this consumer records
// the event structurally and counts it. Consumers must tolerate duplicate
// delivery, and logging twice is harmless.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new notification consumer.
func NewNotificationService() *NotificationService {
	return &NotificationService{logger: util.NamedLogger("notifications")}
}

var notificationPatterns = []string{
	models.PatternRegisterNotification,
	models.PatternLoginNotification,
	models.PatternLoginFailedNotification,
	models.PatternOrderConfirmedNotification,
	models.PatternPaymentCreatedNotification,
	models.PatternPaymentFailedNotification,
}

// Mount registers one handler per notification pattern.
func (s *NotificationService) Mount(r *transport.Responder) {
	for _, pattern := range notificationPatterns {
		kind := pattern
		r.Handle(kind, func(ctx context.Context, payload []byte) (interface{}, error) {
			return nil, s.record(kind, payload)
		})
	}
}

func (s *NotificationService) record(kind string, payload []byte) error {
	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		s.logger.Warn("Unreadable notification payload",
			zap.String("kind", kind),
			zap.Error(err))
		return nil
	}

	util.NotificationsTotal.WithLabelValues(kind).Inc()
	s.logger.Info("Notification",
		zap.String("kind", kind),
		zap.Any("payload", body))
	return nil
}

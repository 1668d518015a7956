package notifier

import (
	"context"

	"github.com/medios/pricewatch/internal/repository"
)

// LogRecorder persists dispatched alerts through the notification log
// repository.
type LogRecorder struct {
	repo repository.NotificationLogRepository
}

// NewLogRecorder creates a recorder backed by the notification log.
func NewLogRecorder(repo repository.NotificationLogRepository) *LogRecorder {
	return &LogRecorder{repo: repo}
}

// Record stores one dispatched alert message.
func (r *LogRecorder) Record(ctx context.Context, message string) error {
	_, err := r.repo.Insert(ctx, message)
	return err
}

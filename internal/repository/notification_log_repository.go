package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medios/pricewatch/internal/model"
)

// NotificationLogRepository records dispatched alerts for the ops surface.
type NotificationLogRepository interface {
	Insert(ctx context.Context, message string) (*model.NotificationLog, error)
	ListRecent(ctx context.Context, limit int) ([]model.NotificationLog, error)
}

type notificationLogRepository struct {
	db *sqlx.DB
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *sqlx.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

// Insert stores a dispatched alert message
func (r *notificationLogRepository) Insert(ctx context.Context, message string) (*model.NotificationLog, error) {
	entry := &model.NotificationLog{
		ID:        uuid.New(),
		Message:   message,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO notifications (id, message, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.Message, entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	return entry, nil
}

// ListRecent returns the most recent dispatched alerts
func (r *notificationLogRepository) ListRecent(ctx context.Context, limit int) ([]model.NotificationLog, error) {
	query := `
		SELECT id, message, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`

	var entries []model.NotificationLog
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return entries, nil
}

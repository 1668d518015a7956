package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/medios/pricewatch/internal/model"
)

// Bus publishes structured alert payloads to a NATS subject so other
// consumers (dashboards, archivers) can react to price drops without
// touching the chat transport.
type Bus struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewBus connects to the bus and returns a publisher bound to subject.
func NewBus(url, subject string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("pricewatch"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to bus at %s: %w", url, err)
	}

	logger.Info("Bus publisher connected",
		slog.String("url", url),
		slog.String("subject", subject),
	)

	return &Bus{conn: conn, subject: subject, logger: logger}, nil
}

// Publish sends the payload as JSON. Delivery is fire-and-forget; the
// bus client buffers and reconnects on its own.
func (b *Bus) Publish(ctx context.Context, payload model.AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding alert payload: %w", err)
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", b.subject, err)
	}
	return nil
}

// Close flushes buffered messages and drops the connection.
func (b *Bus) Close() {
	if err := b.conn.Flush(); err != nil {
		b.logger.Warn("bus flush failed", slog.String("error", err.Error()))
	}
	b.conn.Close()
}

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medios/pricewatch/internal/model"
)

// BusSink publishes the structured payload to the message bus.
type BusSink interface {
	Publish(ctx context.Context, payload model.AlertPayload) error
}

// ChatSink sends the human-readable alert, optionally with an image.
type ChatSink interface {
	Send(ctx context.Context, text, imagePath string) error
}

// ImageLocator resolves a product link to a locally cached preview file.
type ImageLocator interface {
	Lookup(productLink string) (string, bool)
}

// AlertRecorder persists a dispatched alert for the ops surface.
type AlertRecorder interface {
	Record(ctx context.Context, message string) error
}

// DispatcherConfig holds dispatch settings.
type DispatcherConfig struct {
	// SendTimeout bounds each individual sink call.
	SendTimeout time.Duration
}

// DefaultDispatcherConfig returns the default dispatcher configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{SendTimeout: 10 * time.Second}
}

// Dispatcher drains the alert queue and fans each payload out to the bus
// and the chat transport. Both sinks are best-effort and independent: a
// failure in one is logged, never retried, and never blocks the other or
// stops the worker loop.
type Dispatcher struct {
	queue    *Queue[model.AlertPayload]
	bus      BusSink
	chat     ChatSink
	images   ImageLocator
	recorder AlertRecorder
	config   DispatcherConfig
	logger   *slog.Logger
}

// NewDispatcher creates the notification worker. images and recorder may
// be nil; alerts then go out text-only and unrecorded.
func NewDispatcher(
	queue *Queue[model.AlertPayload],
	bus BusSink,
	chat ChatSink,
	images ImageLocator,
	recorder AlertRecorder,
	cfg DispatcherConfig,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultDispatcherConfig().SendTimeout
	}
	return &Dispatcher{
		queue:    queue,
		bus:      bus,
		chat:     chat,
		images:   images,
		recorder: recorder,
		config:   cfg,
		logger:   logger,
	}
}

// Run drains the queue until the context is cancelled or the queue is
// closed and empty.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return
		case payload, open := <-d.queue.Items():
			if !open {
				d.logger.Info("notification dispatcher stopped, queue closed")
				return
			}
			d.dispatch(ctx, payload)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, payload model.AlertPayload) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
		defer cancel()
		if err := d.bus.Publish(sendCtx, payload); err != nil {
			d.logger.Error("bus publish failed",
				slog.String("product_link", payload.ProductLink),
				slog.String("error", err.Error()),
			)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
		defer cancel()

		var imagePath string
		if d.images != nil {
			if path, ok := d.images.Lookup(payload.ProductLink); ok {
				imagePath = path
			}
		}
		if err := d.chat.Send(sendCtx, payload.MessageText, imagePath); err != nil {
			d.logger.Error("chat send failed",
				slog.String("product_link", payload.ProductLink),
				slog.String("error", err.Error()),
			)
		}
	}()

	wg.Wait()

	if d.recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
		defer cancel()
		if err := d.recorder.Record(recordCtx, payload.MessageText); err != nil {
			d.logger.Error("alert record failed",
				slog.String("product_link", payload.ProductLink),
				slog.String("error", err.Error()),
			)
		}
	}
}

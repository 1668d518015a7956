package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/medios/pricewatch/internal/model"
)

// BatchStore commits one batch atomically: inserts as a multi-row upsert,
// updates as keyed price/timestamp updates, one transaction for both.
type BatchStore interface {
	CommitBatch(ctx context.Context, inserts, updates []model.UpsertRequest) error
}

// BatcherConfig holds batch formation thresholds.
type BatcherConfig struct {
	// BatchSize caps how many requests a single commit carries.
	BatchSize int
	// FlushInterval bounds how long the first request of a batch waits.
	FlushInterval time.Duration
}

// DefaultBatcherConfig returns the default batcher configuration
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Batcher drains the upsert queue and commits size/time-bounded batches.
// A failed commit is logged and dropped, never retried or requeued, so a
// poison batch cannot wedge the worker or grow memory.
type Batcher struct {
	store  BatchStore
	queue  *Queue[model.UpsertRequest]
	config BatcherConfig
	logger *slog.Logger
}

// NewBatcher creates the persistence worker.
func NewBatcher(store BatchStore, queue *Queue[model.UpsertRequest], cfg BatcherConfig, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatcherConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultBatcherConfig().FlushInterval
	}
	return &Batcher{store: store, queue: queue, config: cfg, logger: logger}
}

// Run drains the queue until the context is cancelled or the queue is
// closed and empty. A batch in flight at cancellation is still committed.
func (b *Batcher) Run(ctx context.Context) {
	b.logger.Info("persistence batcher started",
		slog.Int("batch_size", b.config.BatchSize),
		slog.Duration("flush_interval", b.config.FlushInterval),
	)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("persistence batcher stopped")
			return
		case first, open := <-b.queue.Items():
			if !open {
				b.logger.Info("persistence batcher stopped, queue closed")
				return
			}
			batch := b.collect(ctx, first)
			b.commit(ctx, batch)
		}
	}
}

// collect gathers up to BatchSize requests, waiting at most FlushInterval
// from the arrival of the first one. A batch always holds at least one
// item.
func (b *Batcher) collect(ctx context.Context, first model.UpsertRequest) []model.UpsertRequest {
	batch := []model.UpsertRequest{first}

	timer := time.NewTimer(b.config.FlushInterval)
	defer timer.Stop()

	for len(batch) < b.config.BatchSize {
		select {
		case <-ctx.Done():
			return batch
		case <-timer.C:
			return batch
		case item, open := <-b.queue.Items():
			if !open {
				return batch
			}
			batch = append(batch, item)
		}
	}
	return batch
}

func (b *Batcher) commit(ctx context.Context, batch []model.UpsertRequest) {
	var inserts, updates []model.UpsertRequest
	for _, item := range batch {
		if item.IsUpdate {
			updates = append(updates, item)
		} else {
			inserts = append(inserts, item)
		}
	}

	// An in-flight batch finishes even when shutdown has begun.
	commitCtx := context.WithoutCancel(ctx)
	if err := b.store.CommitBatch(commitCtx, inserts, updates); err != nil {
		b.logger.Error("batch commit failed, dropping batch",
			slog.Int("inserts", len(inserts)),
			slog.Int("updates", len(updates)),
			slog.String("error", err.Error()),
		)
		return
	}

	b.logger.Debug("batch committed",
		slog.Int("inserts", len(inserts)),
		slog.Int("updates", len(updates)),
	)
}

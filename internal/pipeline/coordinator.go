package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/medios/pricewatch/internal/model"
	"github.com/medios/pricewatch/internal/normalize"
	"github.com/medios/pricewatch/internal/repository"
)

// Coordinator sequences normalize -> detect -> enqueue for every
// observation. It owns the dedup map and the two output queues.
// Observations of distinct products run concurrently; observations of
// the same product serialize on a per-link mutex so two near-simultaneous
// readings cannot both fire on the same price.
type Coordinator struct {
	normalizer *normalize.Normalizer
	detector   *Detector
	products   repository.ProductRepository
	logger     *slog.Logger

	upserts *Queue[model.UpsertRequest]
	alerts  *Queue[model.AlertPayload]

	mu    sync.Mutex
	dedup map[string]decimal.Decimal // last notified price per link; never pruned
	locks map[string]*sync.Mutex
}

// NewCoordinator wires the pipeline front half and creates the queues.
func NewCoordinator(
	normalizer *normalize.Normalizer,
	detector *Detector,
	products repository.ProductRepository,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		normalizer: normalizer,
		detector:   detector,
		products:   products,
		logger:     logger,
		upserts:    NewQueue[model.UpsertRequest](),
		alerts:     NewQueue[model.AlertPayload](),
		dedup:      make(map[string]decimal.Decimal),
		locks:      make(map[string]*sync.Mutex),
	}
}

// Upserts is consumed by the persistence batcher.
func (c *Coordinator) Upserts() *Queue[model.UpsertRequest] { return c.upserts }

// Alerts is consumed by the notification dispatcher.
func (c *Coordinator) Alerts() *Queue[model.AlertPayload] { return c.alerts }

// Process handles a single raw observation end to end: normalization,
// existing-record lookup, detection and enqueueing. The read-modify-write
// of the dedup state runs under the product's key lock.
func (c *Coordinator) Process(ctx context.Context, obs model.Observation) error {
	norm := c.normalizer.Normalize(obs)

	keyLock := c.keyLock(norm.ProductLink)
	keyLock.Lock()
	defer keyLock.Unlock()

	existing, err := c.products.GetByLink(ctx, norm.ProductLink)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return fmt.Errorf("lookup existing record for %s: %w", norm.ProductLink, err)
	}
	if existing != nil {
		// Known products keep their stored name; the URL derivation is
		// only for first sightings.
		norm.ProductName = existing.ProductName
	}

	decision := c.detector.Evaluate(ctx, norm, existing, c.lastNotified(norm.ProductLink))
	c.storeLastNotified(norm.ProductLink, decision.LastNotified)

	c.upserts.Put(decision.Upsert)
	if decision.Alert != nil {
		c.alerts.Put(*decision.Alert)
	}
	return nil
}

// ProcessPage fans out one goroutine per observation and waits for all of
// them. A failure in one observation is logged and never aborts its
// siblings; the return value is how many observations were processed
// successfully.
func (c *Coordinator) ProcessPage(ctx context.Context, observations []model.Observation) int {
	var (
		wg sync.WaitGroup
		ok int64
		mu sync.Mutex
	)
	for _, obs := range observations {
		obs := obs
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Process(ctx, obs); err != nil {
				c.logger.Error("observation failed",
					slog.String("product_link", obs.ProductLink),
					slog.String("error", err.Error()),
				)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return int(ok)
}

// Stop closes both queues; workers drain what is buffered and exit.
// Every Process and ProcessPage call must have returned before Stop is
// called: a late observation would put onto a closed queue.
func (c *Coordinator) Stop() {
	c.upserts.Close()
	c.alerts.Close()
}

func (c *Coordinator) keyLock(link string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[link]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[link] = lock
	}
	return lock
}

func (c *Coordinator) lastNotified(link string) *decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if price, ok := c.dedup[link]; ok {
		return &price
	}
	return nil
}

func (c *Coordinator) storeLastNotified(link string, price *decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if price == nil {
		delete(c.dedup, link)
		return
	}
	c.dedup[link] = *price
}

// Package pipeline implements the concurrent observation pipeline: the
// per-product price-change detector, the batched persistence worker, the
// notification dispatcher and the coordinator wiring them together
// through unbounded queues.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/medios/pricewatch/internal/model"
	"github.com/medios/pricewatch/internal/refprice"
	"github.com/medios/pricewatch/pkg/currency"
)

// Detector decides, per observation, whether a price change is worth
// alerting on. It is stateless; the per-product dedup state is owned by
// the Coordinator and passed through Evaluate.
type Detector struct {
	ref       refprice.Lookup
	threshold decimal.Decimal // negative: fire when price - reference <= threshold
	logger    *slog.Logger
}

// NewDetector creates a detector with the given alert threshold.
func NewDetector(ref refprice.Lookup, threshold decimal.Decimal, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{ref: ref, threshold: threshold, logger: logger}
}

// Decision is the outcome of evaluating one observation.
type Decision struct {
	Upsert model.UpsertRequest
	Alert  *model.AlertPayload
	// LastNotified is the dedup state after this evaluation; nil means
	// the product is unarmed.
	LastNotified *decimal.Decimal
}

// Evaluate implements the two-state-per-product hysteresis machine. An
// upsert is always produced. An alert fires only when the price is at
// least the threshold below the reference AND is strictly lower than the
// last alerted price; a price strictly above the last alerted price
// re-arms the product. The exact-equal price stays armed but silent.
func (d *Detector) Evaluate(
	ctx context.Context,
	obs model.NormalizedObservation,
	existing *model.ProductRecord,
	lastNotified *decimal.Decimal,
) Decision {
	upsert := model.UpsertRequest{
		ProductLink:  obs.ProductLink,
		ProductName:  obs.ProductName,
		ProductPrice: obs.Price,
		ObservedAt:   obs.ObservedAt,
		IsUpdate:     existing != nil,
	}

	// A zero price is the parse-failure sentinel, not a real price; it
	// would read as a maximal discount against any positive reference.
	if obs.Price.IsZero() {
		return Decision{Upsert: upsert, LastNotified: lastNotified}
	}

	reference, err := d.ref.ReferencePrice(ctx, obs.ProductName)
	if err != nil {
		// A miss and a transient failure are the same thing here: no
		// reference, no alert. The upsert still proceeds.
		d.logger.Debug("no reference price",
			slog.String("product_name", obs.ProductName),
			slog.String("error", err.Error()),
		)
		return Decision{Upsert: upsert, LastNotified: lastNotified}
	}

	diff := obs.Price.Sub(reference)

	// Re-arm first: a recovery above the last alerted price clears the
	// state so the next qualifying drop alerts again.
	if lastNotified != nil && obs.Price.GreaterThan(*lastNotified) {
		lastNotified = nil
	}

	if diff.LessThanOrEqual(d.threshold) && (lastNotified == nil || obs.Price.LessThan(*lastNotified)) {
		price := obs.Price
		alert := &model.AlertPayload{
			ProductLink:    obs.ProductLink,
			ProductName:    obs.ProductName,
			Price:          obs.Price,
			ReferencePrice: reference,
			MessageText:    alertMessage(obs, existing != nil, diff),
			IsNewProduct:   existing == nil,
			ObservedAt:     obs.ObservedAt,
		}
		return Decision{Upsert: upsert, Alert: alert, LastNotified: &price}
	}

	return Decision{Upsert: upsert, LastNotified: lastNotified}
}

func alertMessage(obs model.NormalizedObservation, isUpdate bool, diff decimal.Decimal) string {
	header := "New deal"
	if isUpdate {
		header = "Price update"
	}
	return fmt.Sprintf("%s:\n%s\n%s\nPrice: %s\n%s below the reference price!",
		header,
		obs.ProductName,
		obs.ProductLink,
		currency.FormatTRY(obs.Price),
		currency.FormatTRY(diff.Abs()),
	)
}

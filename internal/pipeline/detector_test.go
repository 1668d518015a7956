package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medios/pricewatch/internal/model"
	"github.com/medios/pricewatch/internal/refprice"
)

type fakeLookup struct {
	price decimal.Decimal
	err   error
}

func (f *fakeLookup) ReferencePrice(ctx context.Context, productName string) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func fixedLookup(price int64) *fakeLookup {
	return &fakeLookup{price: decimal.NewFromInt(price)}
}

func observation(link string, price int64) model.NormalizedObservation {
	return model.NormalizedObservation{
		ProductLink: link,
		ProductName: "Test Product",
		Price:       decimal.NewFromInt(price),
		ObservedAt:  time.Now(),
	}
}

// evaluateSequence runs a price sequence through the detector, threading
// the dedup state the way the coordinator does, and returns which
// observations fired.
func evaluateSequence(t *testing.T, d *Detector, link string, prices []int64) []bool {
	t.Helper()
	var (
		fired        []bool
		lastNotified *decimal.Decimal
		existing     *model.ProductRecord
	)
	for _, price := range prices {
		decision := d.Evaluate(context.Background(), observation(link, price), existing, lastNotified)
		fired = append(fired, decision.Alert != nil)
		lastNotified = decision.LastNotified
		existing = &model.ProductRecord{ProductLink: link, ProductName: "Test Product"}
	}
	return fired
}

// Reference 2000, threshold -1000: an alert needs price <= 1000 and a
// price strictly below the last alerted one.
func TestDetector_DedupHysteresis(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	fired := evaluateSequence(t, d, "link-1", []int64{1200, 900, 950, 700})

	assert.Equal(t, []bool{false, true, false, true}, fired)
}

func TestDetector_RearmAfterRecovery(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	fired := evaluateSequence(t, d, "link-1", []int64{900, 1200, 900})

	// The climb to 1200 clears the armed state; the drop back to 900
	// must fire again.
	assert.Equal(t, []bool{true, false, true}, fired)
}

// The exact-equal price is the preserved boundary: it neither fires nor
// re-arms.
func TestDetector_EqualPriceStaysArmedButSilent(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	fired := evaluateSequence(t, d, "link-1", []int64{900, 900, 899})

	assert.Equal(t, []bool{true, false, true}, fired)
}

func TestDetector_NoReferenceNeverFires(t *testing.T) {
	t.Parallel()

	d := NewDetector(&fakeLookup{err: refprice.ErrNoReferencePrice}, decimal.NewFromInt(-1000), nil)

	var lastNotified *decimal.Decimal
	for _, price := range []int64{1200, 900, 500, 1} {
		decision := d.Evaluate(context.Background(), observation("link-1", price), nil, lastNotified)
		assert.Nil(t, decision.Alert)
		// Every observation still produces exactly one upsert.
		assert.Equal(t, "link-1", decision.Upsert.ProductLink)
		lastNotified = decision.LastNotified
	}
}

func TestDetector_LookupFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	d := NewDetector(&fakeLookup{err: errors.New("connection refused")}, decimal.NewFromInt(-1000), nil)

	decision := d.Evaluate(context.Background(), observation("link-1", 500), nil, nil)

	assert.Nil(t, decision.Alert)
	assert.False(t, decision.Upsert.IsUpdate)
}

// A zero price is the parse-failure sentinel; it must never trigger the
// spurious maximal-discount alert, but the upsert still proceeds.
func TestDetector_ZeroPriceSentinelNeverFires(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	decision := d.Evaluate(context.Background(), observation("link-1", 0), nil, nil)

	assert.Nil(t, decision.Alert)
	assert.True(t, decision.Upsert.ProductPrice.IsZero())
}

func TestDetector_UpsertReflectsExistingRecord(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	fresh := d.Evaluate(context.Background(), observation("link-1", 1500), nil, nil)
	assert.False(t, fresh.Upsert.IsUpdate)

	existing := &model.ProductRecord{ProductLink: "link-1", ProductName: "Test Product"}
	update := d.Evaluate(context.Background(), observation("link-1", 1500), existing, nil)
	assert.True(t, update.Upsert.IsUpdate)
}

func TestDetector_AlertPayload(t *testing.T) {
	t.Parallel()

	d := NewDetector(fixedLookup(2000), decimal.NewFromInt(-1000), nil)

	decision := d.Evaluate(context.Background(), observation("link-1", 900), nil, nil)

	require.NotNil(t, decision.Alert)
	assert.Equal(t, "link-1", decision.Alert.ProductLink)
	assert.True(t, decimal.NewFromInt(900).Equal(decision.Alert.Price))
	assert.True(t, decimal.NewFromInt(2000).Equal(decision.Alert.ReferencePrice))
	assert.True(t, decision.Alert.IsNewProduct)
	assert.Contains(t, decision.Alert.MessageText, "900,00 TL")
	assert.Contains(t, decision.Alert.MessageText, "1.100,00 TL below")
	require.NotNil(t, decision.LastNotified)
	assert.True(t, decimal.NewFromInt(900).Equal(*decision.LastNotified))
}

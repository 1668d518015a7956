package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basketHTML = `
<html><body>
<div data-test="mms-seller-basket">
	<div data-test="basket-lineitem-1245636">
		<a data-test="mms-router-link" href="/tr/product/_samsung-galaxy-s25-ultra-256gb-titanyum-siyah-1245636.html">Samsung</a>
		<div data-test="mms-price"><span aria-hidden="true">67.499,00 TL</span><span class="sr-only">price</span></div>
	</div>
	<div data-test="basket-lineitem-1198221">
		<a data-test="mms-router-link" href="/tr/product/_apple-iphone-16-128gb-siyah-1198221.html">Apple</a>
		<div data-test="mms-price"><span aria-hidden="true">54.999,00 TL</span></div>
	</div>
	<div data-test="basket-lineitem-ghost">
		<div data-test="mms-price"><span aria-hidden="true">1,00 TL</span></div>
	</div>
	<div data-test="basket-lineitem-nopriced">
		<a data-test="mms-router-link" href="/tr/product/_no-price-item-999999.html">NoPrice</a>
	</div>
</div>
</body></html>`

func TestParseBasket(t *testing.T) {
	t.Parallel()

	now := time.Now()
	observations, err := ParseBasket(basketHTML, now)
	require.NoError(t, err)

	// The item without a link is dropped; the one without a price is
	// kept with empty price text for the normalizer to flag.
	require.Len(t, observations, 3)

	assert.Equal(t, "/tr/product/_samsung-galaxy-s25-ultra-256gb-titanyum-siyah-1245636.html", observations[0].ProductLink)
	assert.Equal(t, "67.499,00 TL", observations[0].RawPriceText)
	assert.Equal(t, now, observations[0].ObservedAt)

	assert.Equal(t, "/tr/product/_apple-iphone-16-128gb-siyah-1198221.html", observations[1].ProductLink)
	assert.Equal(t, "54.999,00 TL", observations[1].RawPriceText)

	assert.Equal(t, "/tr/product/_no-price-item-999999.html", observations[2].ProductLink)
	assert.Empty(t, observations[2].RawPriceText)
}

func TestParseBasket_NoBasket(t *testing.T) {
	t.Parallel()

	_, err := ParseBasket(`<html><body><div>captcha</div></body></html>`, time.Now())
	assert.Error(t, err)
}

func TestParseBasket_EmptyBasket(t *testing.T) {
	t.Parallel()

	observations, err := ParseBasket(`<html><body><div data-test="mms-seller-basket"></div></body></html>`, time.Now())
	require.NoError(t, err)
	assert.Empty(t, observations)
}

package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/medios/pricewatch/internal/model"
)

const (
	sellerBasketSelector = `div[data-test='mms-seller-basket']`
	lineItemSelector     = `div[data-test^='basket-lineitem-']`
	productLinkSelector  = `a[data-test='mms-router-link']`
	priceSelector        = `div[data-test='mms-price'] span[aria-hidden='true']`
)

// ParseBasket extracts one raw observation per basket line item from the
// rendered page HTML. Line items without a product link or a price
// element are skipped; price text is passed through untouched, parsing
// is the normalizer's job.
func ParseBasket(html string, observedAt time.Time) ([]model.Observation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing basket page: %w", err)
	}

	basket := doc.Find(sellerBasketSelector)
	if basket.Length() == 0 {
		return nil, fmt.Errorf("no seller basket on page")
	}

	var observations []model.Observation
	basket.Find(lineItemSelector).Each(func(_ int, item *goquery.Selection) {
		link, ok := item.Find(productLinkSelector).First().Attr("href")
		if !ok || link == "" {
			return
		}

		priceText := strings.TrimSpace(item.Find(priceSelector).First().Text())
		observations = append(observations, model.Observation{
			ProductLink:  link,
			RawPriceText: priceText,
			ObservedAt:   observedAt,
		})
	})

	return observations, nil
}

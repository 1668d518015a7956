// Package normalize turns raw scraped fields into canonical observations:
// absolute product links, fixed-point decimal prices and human product names.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// priceReplacer strips currency decoration from scraped price text.
// Thousands separators are dots and must be dropped before the comma
// becomes the decimal point.
var priceReplacer = strings.NewReplacer(
	" TL", "",
	"TL", "",
	"₺", "",
	"–", "",
	"-", "",
	" ", "",
	" ", "",
)

// ParsePrice converts scraped price text such as "₺17.499,90" into a
// decimal. The caller decides how to treat a parse failure; the pipeline
// degrades it to zero rather than dropping the observation.
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := priceReplacer.Replace(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty price text %q", raw)
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

package normalize

import (
	"log/slog"
	"strings"

	"github.com/medios/pricewatch/internal/model"
)

// Normalizer converts raw observations into canonical ones. It is pure
// apart from logging: parse failures degrade to a zero price instead of
// failing the pipeline, and are logged as a data-quality signal.
type Normalizer struct {
	baseURL string
	logger  *slog.Logger
}

func New(baseURL string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// CanonicalLink makes a scraped product link absolute against the
// storefront base URL. Already-absolute links pass through unchanged.
func CanonicalLink(baseURL, link string) string {
	if strings.HasPrefix(link, "http") {
		return link
	}
	return strings.TrimSuffix(baseURL, "/") + link
}

// Normalize canonicalizes the product link, derives a product name from
// the URL and parses the scraped price text.
func (n *Normalizer) Normalize(obs model.Observation) model.NormalizedObservation {
	link := CanonicalLink(n.baseURL, obs.ProductLink)

	price, err := ParsePrice(obs.RawPriceText)
	if err != nil {
		// Zero is a sentinel, not a real price. Kept loud in logs: a
		// zero price against any positive reference reads as a maximal
		// discount downstream.
		n.logger.Warn("unparseable price text, normalizing to zero",
			slog.String("product_link", link),
			slog.String("raw_price", obs.RawPriceText),
			slog.String("error", err.Error()),
		)
	}

	return model.NormalizedObservation{
		ProductLink: link,
		ProductName: ProductNameFromURL(link),
		Price:       price,
		ObservedAt:  obs.ObservedAt,
	}
}

// Package model defines the shared data types of the price watcher.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Observation is one raw scrape-time reading for a product element.
// It is immutable and consumed exactly once by the normalizer.
type Observation struct {
	ProductLink  string    `json:"productLink"`
	RawPriceText string    `json:"rawPriceText"`
	ObservedAt   time.Time `json:"observedAt"`
}

// NormalizedObservation is an Observation after link canonicalization,
// name derivation and price parsing. Price is always a fixed-point
// decimal; unparseable price text normalizes to zero.
type NormalizedObservation struct {
	ProductLink string          `json:"productLink"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	ObservedAt  time.Time       `json:"observedAt"`
}

// ProductRecord is the persisted row for a watched product, keyed by link.
type ProductRecord struct {
	ProductLink    string          `db:"product_link" json:"productLink"`
	ProductName    string          `db:"product_name" json:"productName"`
	ProductPrice   decimal.Decimal `db:"product_price" json:"productPrice"`
	FirstSeenDate  time.Time       `db:"first_seen_date" json:"firstSeenDate"`
	LastUpdateDate time.Time       `db:"last_update_date" json:"lastUpdateDate"`
}

// UpsertRequest is a single pending write for the persistence batcher.
// IsUpdate distinguishes price updates of known products from first-time
// inserts; only inserts carry a product name.
type UpsertRequest struct {
	ProductLink  string
	ProductName  string
	ProductPrice decimal.Decimal
	ObservedAt   time.Time
	IsUpdate     bool
}

// AlertPayload is a single pending notification for the dispatcher.
type AlertPayload struct {
	ProductLink    string          `json:"productLink"`
	ProductName    string          `json:"productName"`
	Price          decimal.Decimal `json:"price"`
	ReferencePrice decimal.Decimal `json:"referencePrice"`
	MessageText    string          `json:"message"`
	IsNewProduct   bool            `json:"isNewProduct"`
	ObservedAt     time.Time       `json:"observedAt"`
}

// NotificationLog is the persisted record of a dispatched alert.
type NotificationLog struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

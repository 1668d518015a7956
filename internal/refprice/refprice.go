// Package refprice looks up the competitor reference price a discount is
// measured against. The comparison database lists the top three sellers
// per product; listings by the watched store itself (or its marketplace
// alias) are skipped so the reference is always an independent seller.
package refprice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrNoReferencePrice = errors.New("no reference price for product")

// Sellers whose listings mirror the watched store's own price.
const (
	watchedSeller = "mediamarkt"
	partnerSeller = "pttavm"
)

// Lookup resolves a product name to a competitor reference price.
type Lookup interface {
	ReferencePrice(ctx context.Context, productName string) (decimal.Decimal, error)
}

type dbLookup struct {
	db *sqlx.DB
}

// New creates a Lookup backed by the price comparison database.
func New(db *sqlx.DB) Lookup {
	return &dbLookup{db: db}
}

type sellerRow struct {
	SellerOne        sql.NullString      `db:"seller_one"`
	SellerOnePrice   decimal.NullDecimal `db:"seller_one_price"`
	SellerTwo        sql.NullString      `db:"seller_two"`
	SellerTwoPrice   decimal.NullDecimal `db:"seller_two_price"`
	SellerThree      sql.NullString      `db:"seller_three"`
	SellerThreePrice decimal.NullDecimal `db:"seller_three_price"`
}

// ReferencePrice returns the best independent seller price for the named
// product. Lookup misses and transient failures both surface as errors;
// the detector treats either as "no reference price".
func (l *dbLookup) ReferencePrice(ctx context.Context, productName string) (decimal.Decimal, error) {
	query := `
		SELECT seller_one, seller_one_price,
		       seller_two, seller_two_price,
		       seller_three, seller_three_price
		FROM products
		WHERE product_name = $1
		LIMIT 1
	`

	var row sellerRow
	if err := l.db.GetContext(ctx, &row, query, productName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrNoReferencePrice
		}
		return decimal.Zero, fmt.Errorf("reference price for %q: %w", productName, err)
	}

	chosen := chooseSeller(row)
	if !chosen.Valid {
		return decimal.Zero, ErrNoReferencePrice
	}
	return chosen.Decimal, nil
}

// chooseSeller applies the priority rule: when the cheapest listing is the
// watched store or its marketplace alias, fall through to the next seller;
// when the top two are that pair in either order, take the third.
func chooseSeller(row sellerRow) decimal.NullDecimal {
	first := normalizeSeller(row.SellerOne)
	second := normalizeSeller(row.SellerTwo)

	switch first {
	case watchedSeller:
		if second == partnerSeller {
			return row.SellerThreePrice
		}
		return row.SellerTwoPrice
	case partnerSeller:
		if second == watchedSeller {
			return row.SellerThreePrice
		}
		return row.SellerTwoPrice
	default:
		return row.SellerOnePrice
	}
}

func normalizeSeller(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s.String)), " ", "")
}

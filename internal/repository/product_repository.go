// Package repository provides Postgres data access for the price watcher.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/medios/pricewatch/internal/model"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines data access for watched products.
type ProductRepository interface {
	GetByLink(ctx context.Context, link string) (*model.ProductRecord, error)
	List(ctx context.Context) ([]model.ProductRecord, error)
	Links(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	CommitBatch(ctx context.Context, inserts, updates []model.UpsertRequest) error
}

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

// GetByLink returns the stored record for a product link
func (r *productRepository) GetByLink(ctx context.Context, link string) (*model.ProductRecord, error) {
	query := `
		SELECT product_link, product_name, product_price, first_seen_date, last_update_date
		FROM products
		WHERE product_link = $1
	`

	var record model.ProductRecord
	if err := r.db.GetContext(ctx, &record, query, link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by link: %w", err)
	}

	return &record, nil
}

// List returns all watched products ordered by most recently updated
func (r *productRepository) List(ctx context.Context) ([]model.ProductRecord, error) {
	query := `
		SELECT product_link, product_name, product_price, first_seen_date, last_update_date
		FROM products
		ORDER BY last_update_date DESC
	`

	var records []model.ProductRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return records, nil
}

// Links returns every watched product link
func (r *productRepository) Links(ctx context.Context) ([]string, error) {
	var links []string
	if err := r.db.SelectContext(ctx, &links, `SELECT product_link FROM products`); err != nil {
		return nil, fmt.Errorf("list product links: %w", err)
	}
	return links, nil
}

// Count returns the number of watched products
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// CommitBatch writes one batch in a single transaction: inserts as a
// multi-row upsert (conflict on link overwrites price and update
// timestamp), updates as keyed price/timestamp updates. All-or-nothing
// from the caller's perspective.
func (r *productRepository) CommitBatch(ctx context.Context, inserts, updates []model.UpsertRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(inserts) > 0 {
		if err := bulkUpsert(ctx, tx, inserts); err != nil {
			return err
		}
	}

	if len(updates) > 0 {
		if err := bulkUpdate(ctx, tx, updates); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func bulkUpsert(ctx context.Context, tx *sqlx.Tx, inserts []model.UpsertRequest) error {
	inserts = collapseByLink(inserts)

	var (
		placeholders []string
		args         []interface{}
	)
	for i, item := range inserts {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, item.ProductLink, item.ProductName, item.ProductPrice, item.ObservedAt, item.ObservedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO products (product_link, product_name, product_price, first_seen_date, last_update_date)
		VALUES %s
		ON CONFLICT (product_link)
		DO UPDATE SET
			product_price = EXCLUDED.product_price,
			last_update_date = EXCLUDED.last_update_date
	`, strings.Join(placeholders, ", "))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk upsert %d products: %w", len(inserts), err)
	}
	return nil
}

// collapseByLink keeps only the latest request per product link. Two
// rows for the same link in one multi-row upsert trip Postgres's
// "ON CONFLICT DO UPDATE command cannot affect row a second time" error
// and would sink the whole batch.
func collapseByLink(inserts []model.UpsertRequest) []model.UpsertRequest {
	index := make(map[string]int, len(inserts))
	collapsed := make([]model.UpsertRequest, 0, len(inserts))
	for _, item := range inserts {
		if i, ok := index[item.ProductLink]; ok {
			collapsed[i] = item
			continue
		}
		index[item.ProductLink] = len(collapsed)
		collapsed = append(collapsed, item)
	}
	return collapsed
}

func bulkUpdate(ctx context.Context, tx *sqlx.Tx, updates []model.UpsertRequest) error {
	stmt, err := tx.PreparexContext(ctx, `
		UPDATE products
		SET product_price = $1, last_update_date = $2
		WHERE product_link = $3
	`)
	if err != nil {
		return fmt.Errorf("prepare bulk update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range updates {
		if _, err := stmt.ExecContext(ctx, item.ProductPrice, item.ObservedAt, item.ProductLink); err != nil {
			return fmt.Errorf("update product %s: %w", item.ProductLink, err)
		}
	}
	return nil
}

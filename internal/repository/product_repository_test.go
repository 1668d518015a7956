package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medios/pricewatch/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestProductRepository_GetByLink(t *testing.T) {
	t.Parallel()

	const link = "https://www.mediamarkt.com.tr/tr/product/_apple-iphone-16-128gb-siyah-1239553.html"

	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"product_link", "product_name", "product_price", "first_seen_date", "last_update_date"}).
					AddRow(link, "Apple Iphone 16 128 GB Siyah", "57999.00", time.Now(), time.Now())
				mock.ExpectQuery(`SELECT product_link, product_name, product_price, first_seen_date, last_update_date\s+FROM products`).
					WithArgs(link).
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM products`).
					WithArgs(link).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			repo := NewProductRepository(db)
			tt.setupMock(mock)

			record, err := repo.GetByLink(context.Background(), link)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, record)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, record)
				assert.Equal(t, link, record.ProductLink)
				assert.True(t, decimal.NewFromInt(57999).Equal(record.ProductPrice))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_CommitBatch(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	now := time.Now()
	inserts := []model.UpsertRequest{
		{ProductLink: "link-1", ProductName: "Product 1", ProductPrice: decimal.NewFromInt(100), ObservedAt: now},
		{ProductLink: "link-2", ProductName: "Product 2", ProductPrice: decimal.NewFromInt(200), ObservedAt: now},
	}
	updates := []model.UpsertRequest{
		{ProductLink: "link-3", ProductPrice: decimal.NewFromInt(300), ObservedAt: now, IsUpdate: true},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	prepared := mock.ExpectPrepare(`UPDATE products`)
	prepared.ExpectExec().
		WithArgs(updates[0].ProductPrice, now, "link-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CommitBatch(context.Background(), inserts, updates)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CommitBatch_InsertsOnly(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CommitBatch(context.Background(), []model.UpsertRequest{
		{ProductLink: "link-1", ProductName: "Product 1", ProductPrice: decimal.NewFromInt(100), ObservedAt: time.Now()},
	}, nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two insert rows for the same link must collapse into one VALUES row;
// Postgres rejects a multi-row upsert that touches the same conflict
// target twice, which would take every other product's write down with it.
func TestProductRepository_CommitBatch_CollapsesDuplicateInsertLinks(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	earlier := time.Now()
	later := earlier.Add(time.Second)
	inserts := []model.UpsertRequest{
		{ProductLink: "link-1", ProductName: "Product 1", ProductPrice: decimal.NewFromInt(100), ObservedAt: earlier},
		{ProductLink: "link-2", ProductName: "Product 2", ProductPrice: decimal.NewFromInt(200), ObservedAt: earlier},
		{ProductLink: "link-1", ProductName: "Product 1", ProductPrice: decimal.NewFromInt(90), ObservedAt: later},
	}

	mock.ExpectBegin()
	// One row per link, with link-1 carrying the latest request.
	mock.ExpectExec(`INSERT INTO products`).
		WithArgs(
			"link-1", "Product 1", decimal.NewFromInt(90), later, later,
			"link-2", "Product 2", decimal.NewFromInt(200), earlier, earlier,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.CommitBatch(context.Background(), inserts, nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CommitBatch_RollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CommitBatch(context.Background(), []model.UpsertRequest{
		{ProductLink: "link-1", ProductName: "Product 1", ProductPrice: decimal.NewFromInt(100), ObservedAt: time.Now()},
	}, nil)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Count(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationLogRepository_Insert(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewNotificationLogRepository(db)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "price drop on link-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry, err := repo.Insert(context.Background(), "price drop on link-1")

	assert.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "price drop on link-1", entry.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

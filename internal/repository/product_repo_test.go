package repository

import (
	"context"
	"database/sql"
	"testing"

	"posbackend/internal/database/databasetest"
	"posbackend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func seedProduct(t *testing.T, repo ProductRepository, userID uuid.UUID, sku string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		UserID:         userID,
		SKU:            sku,
		Name:           "Product " + sku,
		StockQuantity:  stock,
		Price:          decimal.NewFromInt(10),
		ReorderPoint:   5,
		TrackInventory: true,
		IsActive:       true,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProductRepository_FindByIDForUpdate_LocksRow(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "sku", "name", "stock_quantity"}).
		AddRow(id.String(), "SKU-1", "Widget", 7)
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 AND "products"."deleted_at" IS NULL .* FOR UPDATE`).
		WillReturnRows(rows)

	p, err := NewProductRepository(db).FindByIDForUpdate(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, 7, p.StockQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_LeavesStockAlone(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	p := seedProduct(t, repo, userID, "A-1", 10)

	edited := *p
	edited.Name = "Renamed"
	edited.StockQuantity = 999
	edited.TrackInventory = false
	require.NoError(t, repo.Update(ctx, &edited))

	got, err := repo.FindByID(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 10, got.StockQuantity)
	assert.False(t, got.TrackInventory)
}

func TestProductRepository_OwnerScoping(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	p := seedProduct(t, repo, owner, "A-1", 10)

	_, err := repo.FindByID(ctx, other, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, other, p.ID), gorm.ErrRecordNotFound)

	// the same SKU is free for another owner
	seedProduct(t, repo, other, "A-1", 0)

	dup := &model.Product{UserID: owner, SKU: "A-1", Name: "dup", TrackInventory: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)
}

func TestProductRepository_ListAndLowStock(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedProduct(t, repo, userID, "LOW-1", 2)
	seedProduct(t, repo, userID, "OK-1", 50)
	untracked := seedProduct(t, repo, userID, "SVC-1", 0)
	untracked.TrackInventory = false
	require.NoError(t, repo.Update(ctx, untracked))
	seedProduct(t, repo, uuid.New(), "LOW-2", 0)

	products, total, err := repo.List(ctx, userID, ProductFilter{Search: "low"}, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "LOW-1", products[0].SKU)

	low, err := repo.ListLowStock(ctx, userID)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "LOW-1", low[0].SKU)
}

func TestTransactionManager_RunInTx(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := NewProductRepository(db)
	tm := NewTransactionManager(db)
	ctx := context.Background()
	userID := uuid.New()

	p := seedProduct(t, repo, userID, "A-1", 10)
	assert.False(t, InTx(ctx))

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, InTx(txCtx))
		require.NoError(t, repo.UpdateStock(txCtx, p.ID, 3))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := repo.FindByID(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity, "rolled back")

	err = tm.RunInTx(ctx, func(txCtx context.Context) error {
		return tm.RunInTx(txCtx, func(inner context.Context) error {
			return repo.UpdateStock(inner, p.ID, 4)
		})
	})
	require.NoError(t, err)

	got, err = repo.FindByID(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.StockQuantity)
}

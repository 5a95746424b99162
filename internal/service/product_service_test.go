package service

import (
	"testing"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_StockGoesThroughTheLedger(t *testing.T) {
	f := newFixture(t)

	p, err := f.productSvc.CreateProduct(f.ctx, f.userID, CreateProductRequest{
		SKU:           "A-1",
		Name:          "Widget",
		StockQuantity: 25,
		Price:         dec("9.99"),
		ReorderPoint:  5,
	})
	require.NoError(t, err)
	assert.True(t, p.TrackInventory)
	assert.True(t, p.IsActive)
	assert.Equal(t, 25, p.StockQuantity)

	ms := f.movementsOf(p.ID)
	require.Len(t, ms, 1)
	assert.Equal(t, initialStockReason, ms[0].Reason)
	assert.Equal(t, 0, ms[0].QuantityBefore)

	updated, err := f.productSvc.UpdateProduct(f.ctx, f.userID, p.ID, UpdateProductRequest{
		SKU:            "A-1",
		Name:           "Widget v2",
		StockQuantity:  intPtr(20),
		StockReason:    "shrinkage",
		Price:          dec("12"),
		ReorderPoint:   5,
		TrackInventory: true,
		IsActive:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 20, updated.StockQuantity)

	ms = f.movementsOf(p.ID)
	require.Len(t, ms, 2)
	assert.Equal(t, model.MovementAdjustment, ms[1].Type)
	assert.Equal(t, -5, ms[1].Quantity)
	assert.Equal(t, "shrinkage", ms[1].Reason)
	f.assertLedger(p.ID, 0)

	sum, err := f.movements.SumByProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, f.stockOf(p.ID), sum, "stock equals the sum of its movements")
}

func TestProductService_UpdateWithoutStockLeavesLedgerAlone(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct("A", 10, 10)

	_, err := f.productSvc.UpdateProduct(f.ctx, f.userID, p.ID, UpdateProductRequest{
		SKU:            "A",
		Name:           "Renamed",
		Price:          dec("11"),
		TrackInventory: true,
		IsActive:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, f.stockOf(p.ID))
	assert.Empty(t, f.movementsOf(p.ID))
}

func TestProductService_SKUConflictsPerOwner(t *testing.T) {
	f := newFixture(t)
	req := CreateProductRequest{SKU: "DUP", Name: "One", Price: dec("1")}

	_, err := f.productSvc.CreateProduct(f.ctx, f.userID, req)
	require.NoError(t, err)

	_, err = f.productSvc.CreateProduct(f.ctx, f.userID, req)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = f.productSvc.CreateProduct(f.ctx, uuid.New(), req)
	assert.NoError(t, err, "another owner may reuse the sku")
}

func TestProductService_LowStockAndDelete(t *testing.T) {
	f := newFixture(t)
	low := f.seedProduct("LOW", 3, 10)
	f.seedProduct("OK", 30, 10)
	f.seedProduct("SVC", 0, 10, untracked)

	products, err := f.productSvc.LowStock(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, low.ID, products[0].ID)
	assert.True(t, products[0].NeedsReorder())

	require.NoError(t, f.productSvc.DeleteProduct(f.ctx, f.userID, low.ID))
	_, err = f.productSvc.GetProduct(f.ctx, f.userID, low.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	list, total, err := f.productSvc.ListProducts(f.ctx, f.userID, repository.ProductFilter{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)
}

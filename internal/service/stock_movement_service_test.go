package service

import (
	"bytes"
	"testing"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStockMovementService(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct("A", 10, 10)

	sale, err := f.saleSvc.CreateSale(f.ctx, f.userID, saleOf(line(p, 4)))
	require.NoError(t, err)
	_, err = f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
		Items: []AdjustmentLine{adjust(p, 8, "recount")},
	})
	require.NoError(t, err)

	t.Run("lists by type", func(t *testing.T) {
		ms, total, err := f.movementSvc.ListMovements(f.ctx, f.userID, repository.MovementFilter{Type: model.MovementSale}, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, model.SaleReference(sale.ID), ms[0].Reference())
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, _, err := f.movementSvc.ListMovements(f.ctx, f.userID, repository.MovementFilter{Type: "teleport"}, 1, 20)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("product history is owner scoped", func(t *testing.T) {
		ms, total, err := f.movementSvc.ProductHistory(f.ctx, f.userID, p.ID, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, ms, 2)

		_, _, err = f.movementSvc.ProductHistory(f.ctx, uuid.New(), p.ID, 1, 20)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("exports the ledger as xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.movementSvc.ExportMovements(f.ctx, f.userID, repository.MovementFilter{}, &buf))

		wb, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows(movementSheet)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, movementHeadings, rows[0])
		assert.Equal(t, []string{"A", "Product A", "sale", "-4", "10", "6"}, rows[1][1:7])
		assert.Equal(t, "sale:"+sale.ID.String(), rows[1][7])
		assert.Equal(t, []string{"A", "Product A", "adjustment", "2", "6", "8"}, rows[2][1:7])
		assert.Equal(t, "manual", rows[2][7])
		assert.Equal(t, "recount", rows[2][8])
	})
}

func TestStockMovementService_LedgerBalance(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewStockMovementService(f.movements, f.products, zap.New(core))

	t.Run("ledger booked stock balances", func(t *testing.T) {
		p, err := f.productSvc.CreateProduct(f.ctx, f.userID, CreateProductRequest{
			SKU: "L-1", Name: "Booked", StockQuantity: 12, Price: dec("3"),
		})
		require.NoError(t, err)
		_, err = f.saleSvc.CreateSale(f.ctx, f.userID, saleOf(line(p, 5)))
		require.NoError(t, err)

		bal, err := svc.LedgerBalance(f.ctx, f.userID, p.ID)
		require.NoError(t, err)
		assert.True(t, bal.Consistent)
		assert.Equal(t, 7, bal.StockQuantity)
		assert.Equal(t, 7, bal.LedgerTotal)
		assert.Zero(t, bal.Drift)
		assert.Zero(t, logs.Len())
	})

	t.Run("stock written outside the engine drifts", func(t *testing.T) {
		p := f.seedProduct("L-2", 10, 10)
		_, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, 8, "recount")},
		})
		require.NoError(t, err)

		bal, err := svc.LedgerBalance(f.ctx, f.userID, p.ID)
		require.NoError(t, err)
		assert.False(t, bal.Consistent)
		assert.Equal(t, 8, bal.StockQuantity)
		assert.Equal(t, -2, bal.LedgerTotal)
		assert.Equal(t, 10, bal.Drift)

		entries := logs.FilterMessage("Stock ledger drift").All()
		require.Len(t, entries, 1)
		assert.Equal(t, p.ID.String(), entries[0].ContextMap()["product_id"])
	})

	t.Run("untracked products are always consistent", func(t *testing.T) {
		p := f.seedProduct("L-3", 4, 10, untracked)
		bal, err := svc.LedgerBalance(f.ctx, f.userID, p.ID)
		require.NoError(t, err)
		assert.True(t, bal.Consistent)
		assert.Equal(t, 4, bal.Drift)
	})

	t.Run("other owners get not found", func(t *testing.T) {
		p := f.seedProduct("L-4", 0, 10)
		_, err := svc.LedgerBalance(f.ctx, uuid.New(), p.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestSupplierAndAuditServices(t *testing.T) {
	f := newFixture(t)

	sup, err := f.supplierSvc.CreateSupplier(f.ctx, f.userID, SupplierRequest{Name: "Acme", Email: "sales@acme.test"})
	require.NoError(t, err)
	assert.True(t, sup.IsActive)

	_, err = f.supplierSvc.CreateSupplier(f.ctx, f.userID, SupplierRequest{Name: "Bad", Email: "not-an-email"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	inactive := false
	sup, err = f.supplierSvc.UpdateSupplier(f.ctx, f.userID, sup.ID, SupplierRequest{Name: "Acme Ltd", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", sup.Name)
	assert.False(t, sup.IsActive)

	_, err = f.supplierSvc.GetSupplier(f.ctx, uuid.New(), sup.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, f.supplierSvc.DeleteSupplier(f.ctx, f.userID, sup.ID))
	_, total, err := f.supplierSvc.ListSuppliers(f.ctx, f.userID, "", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)

	logs, total, err := f.auditSvc.GetAuditLogs(f.ctx, f.userID, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, model.ActionDeleteSupplier, logs[0].Action)

	logs, _, err = f.auditSvc.GetAuditLogs(f.ctx, f.userID, model.ActionCreateSupplier, 1, 20)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"name":"Acme","contact_name":"","email":"sales@acme.test","phone":"","address":"","is_active":null}`, string(logs[0].Details))
}

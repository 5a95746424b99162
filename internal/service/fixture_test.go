package service

import (
	"context"
	"sync"
	"testing"

	"posbackend/internal/database/databasetest"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][][]StockChange
}

func (n *recordingNotifier) NotifyStockChanged(userID uuid.UUID, changes []StockChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[uuid.UUID][][]StockChange)
	}
	n.events[userID] = append(n.events[userID], changes)
}

func (n *recordingNotifier) count(userID uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events[userID])
}

// lockRecorder remembers the order in which product rows were locked.
type lockRecorder struct {
	repository.ProductRepository
	mu     sync.Mutex
	locked []uuid.UUID
}

func (r *lockRecorder) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	r.locked = append(r.locked, id)
	r.mu.Unlock()
	return r.ProductRepository.FindByIDForUpdate(ctx, id)
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	userID    uuid.UUID
	products  *lockRecorder
	movements repository.StockMovementRepository
	sales     repository.SaleRepository
	pos       repository.PurchaseOrderRepository
	suppliers repository.SupplierRepository
	audits    repository.AuditRepository
	tx        repository.TransactionManager
	engine    *StockEngine
	notifier  *recordingNotifier

	saleSvc     SaleService
	poSvc       PurchaseOrderService
	adjustSvc   AdjustmentService
	productSvc  ProductService
	movementSvc StockMovementService
	supplierSvc SupplierService
	auditSvc    AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.NewSQLite(t)
	log := zap.NewNop()

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		userID:    uuid.New(),
		products:  &lockRecorder{ProductRepository: repository.NewProductRepository(db)},
		movements: repository.NewStockMovementRepository(db),
		sales:     repository.NewSaleRepository(db),
		pos:       repository.NewPurchaseOrderRepository(db),
		suppliers: repository.NewSupplierRepository(db),
		audits:    repository.NewAuditRepository(db),
		tx:        repository.NewTransactionManager(db),
		notifier:  &recordingNotifier{},
	}
	f.engine = NewStockEngine(f.products, f.movements)
	f.saleSvc = NewSaleService(f.sales, f.audits, f.tx, f.engine, f.notifier, log)
	f.poSvc = NewPurchaseOrderService(f.pos, f.suppliers, f.products, f.audits, f.tx, f.engine, f.notifier, log)
	f.adjustSvc = NewAdjustmentService(f.audits, f.tx, f.engine, f.notifier, log)
	f.productSvc = NewProductService(f.products, f.audits, f.tx, f.engine, f.notifier, log)
	f.movementSvc = NewStockMovementService(f.movements, f.products, log)
	f.supplierSvc = NewSupplierService(f.suppliers, f.audits, f.tx, log)
	f.auditSvc = NewAuditService(f.audits, log)
	return f
}

type productOpt func(*model.Product)

func untracked(p *model.Product) { p.TrackInventory = false }

func ownedBy(userID uuid.UUID) productOpt {
	return func(p *model.Product) { p.UserID = userID }
}

// seedProduct inserts a product with its stock already in place, bypassing the engine.
func (f *fixture) seedProduct(sku string, stock int, price int64, opts ...productOpt) *model.Product {
	f.t.Helper()
	p := &model.Product{
		UserID:         f.userID,
		SKU:            sku,
		Name:           "Product " + sku,
		StockQuantity:  stock,
		CostPrice:      decimal.NewFromInt(price / 2),
		Price:          decimal.NewFromInt(price),
		ReorderPoint:   5,
		TrackInventory: true,
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

func (f *fixture) seedSupplier(name string) *model.Supplier {
	f.t.Helper()
	s := &model.Supplier{UserID: f.userID, Name: name, IsActive: true}
	require.NoError(f.t, f.db.Create(s).Error)
	return s
}

func (f *fixture) stockOf(id uuid.UUID) int {
	f.t.Helper()
	var p model.Product
	require.NoError(f.t, f.db.Unscoped().First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func (f *fixture) movementsOf(id uuid.UUID) []model.StockMovement {
	f.t.Helper()
	var ms []model.StockMovement
	require.NoError(f.t, f.db.Where("product_id = ?", id).Order("sequence asc").Find(&ms).Error)
	return ms
}

func (f *fixture) countRows(m any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Unscoped().Model(m).Count(&n).Error)
	return n
}

// assertLedger checks every movement of the product and that replaying them from
// initial reproduces the current stock.
func (f *fixture) assertLedger(productID uuid.UUID, initial int) {
	f.t.Helper()
	running := initial
	for _, m := range f.movementsOf(productID) {
		assert.True(f.t, m.Consistent(), "movement %s inconsistent", m.ID)
		assert.Equal(f.t, running, m.QuantityBefore, "ledger chain broken at %s", m.ID)
		running = m.QuantityAfter
	}
	assert.Equal(f.t, running, f.stockOf(productID))
}

func intPtr(v int) *int { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

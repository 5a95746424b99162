package service

import (
	"context"
	"strings"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const initialStockReason = "Initial stock"

// DTOs
type CreateProductRequest struct {
	SKU             string           `json:"sku" binding:"required,max=100"`
	Name            string           `json:"name" binding:"required,max=255"`
	Description     string           `json:"description"`
	StockQuantity   int              `json:"stock_quantity" binding:"gte=0"`
	CostPrice       decimal.Decimal  `json:"cost_price" binding:"gte=0" swaggertype:"number"`
	Price           decimal.Decimal  `json:"price" binding:"gte=0" swaggertype:"number"`
	SalePrice       *decimal.Decimal `json:"sale_price" binding:"omitempty,gte=0" swaggertype:"number"`
	ReorderPoint    int              `json:"reorder_point" binding:"gte=0"`
	ReorderQuantity int              `json:"reorder_quantity" binding:"gte=0"`
	TrackInventory  *bool            `json:"track_inventory"`
	IsActive        *bool            `json:"is_active"`
}

// UpdateProductRequest edits product metadata. A StockQuantity different from the current
// stock is booked as an adjustment movement with StockReason.
type UpdateProductRequest struct {
	SKU             string           `json:"sku" binding:"required,max=100"`
	Name            string           `json:"name" binding:"required,max=255"`
	Description     string           `json:"description"`
	StockQuantity   *int             `json:"stock_quantity" binding:"omitempty,gte=0"`
	StockReason     string           `json:"stock_reason" binding:"max=500"`
	CostPrice       decimal.Decimal  `json:"cost_price" binding:"gte=0" swaggertype:"number"`
	Price           decimal.Decimal  `json:"price" binding:"gte=0" swaggertype:"number"`
	SalePrice       *decimal.Decimal `json:"sale_price" binding:"omitempty,gte=0" swaggertype:"number"`
	ReorderPoint    int              `json:"reorder_point" binding:"gte=0"`
	ReorderQuantity int              `json:"reorder_quantity" binding:"gte=0"`
	TrackInventory  bool             `json:"track_inventory"`
	IsActive        bool             `json:"is_active"`
}

type ProductService interface {
	ListProducts(ctx context.Context, userID uuid.UUID, filter repository.ProductFilter, page, limit int) ([]model.Product, int64, error)
	GetProduct(ctx context.Context, userID, productID uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error
	LowStock(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	engine      *StockEngine
	notifier    StockNotifier
	log         *zap.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	engine *StockEngine,
	notifier StockNotifier,
	log *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		engine:      engine,
		notifier:    notifierOrNop(notifier),
		log:         log.Named("product"),
	}
}

func (s *productService) ListProducts(ctx context.Context, userID uuid.UUID, filter repository.ProductFilter, page, limit int) ([]model.Product, int64, error) {
	p := pagination.New(page, limit)
	products, total, err := s.productRepo.List(ctx, userID, filter, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list products", apperr.FromStore(err, "product"))
	}
	return products, total, nil
}

func (s *productService) GetProduct(ctx context.Context, userID, productID uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, userID, productID)
	if err != nil {
		return nil, failure(ctx, s.log, "get product", apperr.FromStore(err, "product"))
	}
	return product, nil
}

// CreateProduct inserts the product at zero stock and books any opening quantity through the engine.
func (s *productService) CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*model.Product, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	product := &model.Product{
		UserID:          userID,
		SKU:             strings.TrimSpace(req.SKU),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		CostPrice:       req.CostPrice,
		Price:           req.Price,
		SalePrice:       req.SalePrice,
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
		TrackInventory:  boolOr(req.TrackInventory, true),
		IsActive:        boolOr(req.IsActive, true),
	}

	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return apperr.FromStore(err, "product")
		}

		if req.StockQuantity > 0 && product.TrackInventory {
			movement, updated, err := s.engine.Apply(txCtx, StockMutation{
				ProductID: product.ID,
				Delta:     req.StockQuantity,
				Type:      model.MovementAdjustment,
				Reason:    initialStockReason,
				Reference: model.NoReference(),
			})
			if err != nil {
				return err
			}
			product.StockQuantity = updated.StockQuantity
			changes = append(changes, changeFrom(updated, movement))
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return nil, failure(ctx, s.log, "create product", err)
	}

	publish(s.notifier, userID, changes)
	return product, nil
}

// UpdateProduct saves metadata. Stock edits never write the column directly; they become adjustments.
func (s *productService) UpdateProduct(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*model.Product, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var product *model.Product
	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.engine.LockForUser(txCtx, userID, productID)
		if err != nil {
			return err
		}

		product.SKU = strings.TrimSpace(req.SKU)
		product.Name = strings.TrimSpace(req.Name)
		product.Description = req.Description
		product.CostPrice = req.CostPrice
		product.Price = req.Price
		product.SalePrice = req.SalePrice
		product.ReorderPoint = req.ReorderPoint
		product.ReorderQuantity = req.ReorderQuantity
		product.TrackInventory = req.TrackInventory
		product.IsActive = req.IsActive
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return apperr.FromStore(err, "product")
		}

		if req.StockQuantity != nil && *req.StockQuantity != product.StockQuantity && product.TrackInventory {
			reason := strings.TrimSpace(req.StockReason)
			if reason == "" {
				reason = "Stock edited on product"
			}
			movement, updated, err := s.engine.Apply(txCtx, StockMutation{
				ProductID: product.ID,
				Delta:     *req.StockQuantity - product.StockQuantity,
				Type:      model.MovementAdjustment,
				Reason:    reason,
				Reference: model.NoReference(),
			})
			if err != nil {
				return err
			}
			product = updated
			changes = append(changes, changeFrom(updated, movement))
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return nil, failure(ctx, s.log, "update product", err)
	}

	publish(s.notifier, userID, changes)
	return s.GetProduct(ctx, userID, productID)
}

func (s *productService) DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.engine.LockForUser(txCtx, userID, productID)
		if err != nil {
			return err
		}
		if err := s.productRepo.Delete(txCtx, userID, productID); err != nil {
			return apperr.FromStore(err, "product")
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, map[string]any{
			"deleted":        true,
			"stock_quantity": product.StockQuantity,
		})
	})
	if err != nil {
		return failure(ctx, s.log, "delete product", err)
	}
	return nil
}

// LowStock lists tracked, active products at or below their reorder point.
func (s *productService) LowStock(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	products, err := s.productRepo.ListLowStock(ctx, userID)
	if err != nil {
		return nil, failure(ctx, s.log, "list low stock", apperr.FromStore(err, "product"))
	}
	return products, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

package service

import (
	"context"
	"slices"
	"time"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
type PurchaseOrderItemRequest struct {
	ProductID       string          `json:"product_id" binding:"required,uuid"`
	QuantityOrdered int             `json:"quantity_ordered" binding:"required,gt=0"`
	UnitCost        decimal.Decimal `json:"unit_cost" binding:"gte=0" swaggertype:"number"`
}

type PurchaseOrderRequest struct {
	SupplierID   string                     `json:"supplier_id" binding:"required,uuid"`
	PONumber     string                     `json:"po_number" binding:"omitempty,max=30"`
	OrderDate    *time.Time                 `json:"order_date"`
	ExpectedDate *time.Time                 `json:"expected_date"`
	Notes        string                     `json:"notes"`
	Items        []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type PurchaseOrderService interface {
	CreatePurchaseOrder(ctx context.Context, userID uuid.UUID, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, userID, poID uuid.UUID, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	SendPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, userID, poID uuid.UUID) error
	GetPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, userID uuid.UUID, filter repository.PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	engine       *StockEngine
	notifier     StockNotifier
	log          *zap.Logger
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	engine *StockEngine,
	notifier StockNotifier,
	log *zap.Logger,
) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		engine:       engine,
		notifier:     notifierOrNop(notifier),
		log:          log.Named("purchase_order"),
	}
}

// buildItems checks that the supplier and every product belong to userID and prices the lines.
func (s *purchaseOrderService) buildItems(ctx context.Context, userID uuid.UUID, req PurchaseOrderRequest) (uuid.UUID, []model.PurchaseOrderItem, decimal.Decimal, error) {
	supplierID, err := parseID(req.SupplierID, "supplier")
	if err != nil {
		return uuid.Nil, nil, decimal.Zero, err
	}
	if _, err := s.supplierRepo.FindByID(ctx, userID, supplierID); err != nil {
		return uuid.Nil, nil, decimal.Zero, apperr.FromStore(err, "supplier")
	}

	items := make([]model.PurchaseOrderItem, 0, len(req.Items))
	total := decimal.Zero
	for _, line := range req.Items {
		productID, err := parseID(line.ProductID, "product")
		if err != nil {
			return uuid.Nil, nil, decimal.Zero, err
		}
		if _, err := s.productRepo.FindByID(ctx, userID, productID); err != nil {
			return uuid.Nil, nil, decimal.Zero, apperr.FromStore(err, "product")
		}
		lineTotal := line.UnitCost.Mul(decimal.NewFromInt(int64(line.QuantityOrdered)))
		total = total.Add(lineTotal)
		items = append(items, model.PurchaseOrderItem{
			ProductID:       productID,
			QuantityOrdered: line.QuantityOrdered,
			UnitCost:        line.UnitCost,
			Total:           lineTotal,
		})
	}
	return supplierID, items, total, nil
}

func (s *purchaseOrderService) createItems(ctx context.Context, poID uuid.UUID, items []model.PurchaseOrderItem) error {
	for i := range items {
		items[i].PurchaseOrderID = poID
		if err := s.poRepo.CreateItem(ctx, &items[i]); err != nil {
			return apperr.FromStore(err, "purchase order item")
		}
	}
	return nil
}

func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, userID uuid.UUID, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	supplierID, items, total, err := s.buildItems(ctx, userID, req)
	if err != nil {
		return nil, failure(ctx, s.log, "create purchase order", err)
	}

	orderDate := time.Now()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}

	var po *model.PurchaseOrder
	err = withNumberRetry(req.PONumber == "", func(attempt int) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			number := req.PONumber
			if number == "" {
				var err error
				number, err = nextNumber(txCtx, "PO", time.Now(), attempt, s.poRepo.MaxSequence)
				if err != nil {
					return apperr.FromStore(err, "purchase order")
				}
			}

			po = &model.PurchaseOrder{
				UserID:       userID,
				SupplierID:   supplierID,
				PONumber:     number,
				Status:       model.POStatusDraft,
				Total:        total,
				OrderDate:    orderDate,
				ExpectedDate: req.ExpectedDate,
				Notes:        req.Notes,
			}
			if err := s.poRepo.Create(txCtx, po); err != nil {
				return apperr.FromStore(err, "purchase order")
			}
			lines := make([]model.PurchaseOrderItem, len(items))
			copy(lines, items)
			if err := s.createItems(txCtx, po.ID, lines); err != nil {
				return err
			}

			return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreatePurchaseOrder, po.ID.String(), po.PONumber, map[string]any{
				"supplier_id": supplierID,
				"total":       total,
				"items":       len(items),
			})
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "create purchase order", err)
	}
	return s.GetPurchaseOrder(ctx, userID, po.ID)
}

// UpdatePurchaseOrder replaces a draft's header and all of its lines.
func (s *purchaseOrderService) UpdatePurchaseOrder(ctx context.Context, userID, poID uuid.UUID, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.checkStatus(ctx, userID, poID, "edit", model.POStatusDraft); err != nil {
		return nil, failure(ctx, s.log, "update purchase order", err)
	}
	supplierID, items, total, err := s.buildItems(ctx, userID, req)
	if err != nil {
		return nil, failure(ctx, s.log, "update purchase order", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, userID, poID)
		if err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		if po.Status != model.POStatusDraft {
			return apperr.InvalidTransition("purchase order", po.Status, "edit")
		}

		po.SupplierID = supplierID
		po.Total = total
		po.ExpectedDate = req.ExpectedDate
		po.Notes = req.Notes
		if req.OrderDate != nil {
			po.OrderDate = *req.OrderDate
		}
		if err := s.poRepo.Update(txCtx, po); err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		if err := s.poRepo.DeleteItems(txCtx, po.ID); err != nil {
			return apperr.FromStore(err, "purchase order item")
		}
		if err := s.createItems(txCtx, po.ID, items); err != nil {
			return err
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdatePurchaseOrder, po.ID.String(), po.PONumber, map[string]any{
			"supplier_id": supplierID,
			"total":       total,
			"items":       len(items),
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "update purchase order", err)
	}
	return s.GetPurchaseOrder(ctx, userID, poID)
}

func (s *purchaseOrderService) SendPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	return s.transition(ctx, userID, poID, "send", model.ActionSendPurchaseOrder, model.POStatusSent, model.POStatusDraft)
}

func (s *purchaseOrderService) CancelPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	return s.transition(ctx, userID, poID, "cancel", model.ActionCancelPurchaseOrder, model.POStatusCancelled, model.POStatusDraft, model.POStatusSent)
}

// transition moves a purchase order to status `to` when its current status is one of from. No stock moves.
func (s *purchaseOrderService) transition(ctx context.Context, userID, poID uuid.UUID, action, auditAction, to string, from ...string) (*model.PurchaseOrder, error) {
	if err := s.checkStatus(ctx, userID, poID, action, from...); err != nil {
		return nil, failure(ctx, s.log, action+" purchase order", err)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, userID, poID)
		if err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		if !slices.Contains(from, po.Status) {
			return apperr.InvalidTransition("purchase order", po.Status, action)
		}
		if err := s.poRepo.UpdateFields(txCtx, po.ID, map[string]any{"status": to}); err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		return recordAudit(txCtx, s.auditRepo, userID, auditAction, po.ID.String(), po.PONumber, map[string]any{
			"from": po.Status,
			"to":   to,
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, action+" purchase order", err)
	}
	return s.GetPurchaseOrder(ctx, userID, poID)
}

// ReceivePurchaseOrder books every outstanding quantity into stock and marks the order received.
func (s *purchaseOrderService) ReceivePurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	if err := s.checkStatus(ctx, userID, poID, "receive", model.POStatusSent); err != nil {
		return nil, failure(ctx, s.log, "receive purchase order", err)
	}

	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		changes = nil
		po, err := s.poRepo.FindByIDForUpdate(txCtx, userID, poID)
		if err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		if po.Status != model.POStatusSent {
			return apperr.InvalidTransition("purchase order", po.Status, "receive")
		}

		ids := make([]uuid.UUID, 0, len(po.Items))
		for _, item := range po.Items {
			if item.Outstanding() > 0 {
				ids = append(ids, item.ProductID)
			}
		}
		if _, err := s.engine.LockAllForUser(txCtx, userID, ids); err != nil {
			return err
		}

		for _, item := range po.Items {
			outstanding := item.Outstanding()
			if outstanding == 0 {
				continue
			}
			if err := s.poRepo.UpdateItemReceived(txCtx, item.ID, item.QuantityOrdered); err != nil {
				return apperr.FromStore(err, "purchase order item")
			}
			movement, product, err := s.engine.Apply(txCtx, StockMutation{
				ProductID: item.ProductID,
				Delta:     outstanding,
				Type:      model.MovementPurchase,
				Reason:    "Received " + po.PONumber,
				Reference: model.PurchaseOrderReference(po.ID),
			})
			if err != nil {
				return err
			}
			if movement != nil {
				changes = append(changes, changeFrom(product, movement))
			}
		}

		if err := s.poRepo.UpdateFields(txCtx, po.ID, map[string]any{
			"status":        model.POStatusReceived,
			"received_date": time.Now(),
		}); err != nil {
			return apperr.FromStore(err, "purchase order")
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionReceivePurchaseOrder, po.ID.String(), po.PONumber, map[string]any{
			"items":     len(po.Items),
			"movements": len(changes),
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "receive purchase order", err)
	}

	publish(s.notifier, userID, changes)
	return s.GetPurchaseOrder(ctx, userID, poID)
}

func (s *purchaseOrderService) DeletePurchaseOrder(ctx context.Context, userID, poID uuid.UUID) error {
	if err := s.checkStatus(ctx, userID, poID, "delete", model.POStatusDraft); err != nil {
		return failure(ctx, s.log, "delete purchase order", err)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, userID, poID)
		if err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		if po.Status != model.POStatusDraft {
			return apperr.InvalidTransition("purchase order", po.Status, "delete")
		}
		if err := s.poRepo.Delete(txCtx, po.ID); err != nil {
			return apperr.FromStore(err, "purchase order")
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionDeletePurchaseOrder, po.ID.String(), po.PONumber, map[string]any{
			"deleted": true,
		})
	})
	if err != nil {
		return failure(ctx, s.log, "delete purchase order", err)
	}
	return nil
}

// checkStatus rejects a disallowed action before any transaction is opened.
func (s *purchaseOrderService) checkStatus(ctx context.Context, userID, poID uuid.UUID, action string, allowed ...string) error {
	po, err := s.poRepo.FindByIDWithItems(ctx, userID, poID)
	if err != nil {
		return apperr.FromStore(err, "purchase order")
	}
	if !slices.Contains(allowed, po.Status) {
		return apperr.InvalidTransition("purchase order", po.Status, action)
	}
	return nil
}

func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := s.poRepo.FindByIDWithItems(ctx, userID, poID)
	if err != nil {
		return nil, failure(ctx, s.log, "get purchase order", apperr.FromStore(err, "purchase order"))
	}
	return po, nil
}

func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context, userID uuid.UUID, filter repository.PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	p := pagination.New(page, limit)
	orders, total, err := s.poRepo.List(ctx, userID, filter, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list purchase orders", apperr.FromStore(err, "purchase order"))
	}
	return orders, total, nil
}

package service

import (
	"context"
	"fmt"
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
type SaleItemRequest struct {
	ProductID string           `json:"product_id" binding:"required,uuid"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0" swaggertype:"number"`
	Discount  decimal.Decimal  `json:"discount" binding:"gte=0" swaggertype:"number"`
}

type CreateSaleRequest struct {
	InvoiceNumber string            `json:"invoice_number" binding:"omitempty,max=30"`
	Status        string            `json:"status" binding:"omitempty,oneof=pending completed"`
	PaymentMethod string            `json:"payment_method" binding:"required,oneof=cash card bank_transfer e_wallet other"`
	Tax           decimal.Decimal   `json:"tax" binding:"gte=0" swaggertype:"number"`
	Discount      decimal.Decimal   `json:"discount" binding:"gte=0" swaggertype:"number"`
	AmountPaid    *decimal.Decimal  `json:"amount_paid" binding:"omitempty,gte=0" swaggertype:"number"`
	CustomerName  string            `json:"customer_name" binding:"max=255"`
	CustomerEmail string            `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone string            `json:"customer_phone" binding:"max=50"`
	Notes         string            `json:"notes"`
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CompleteSaleRequest struct {
	AmountPaid *decimal.Decimal `json:"amount_paid" binding:"omitempty,gte=0" swaggertype:"number"`
}

type RefundSaleRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type SaleService interface {
	CreateSale(ctx context.Context, userID uuid.UUID, req CreateSaleRequest) (*model.Sale, error)
	CompleteSale(ctx context.Context, userID, saleID uuid.UUID, req CompleteSaleRequest) (*model.Sale, error)
	VoidSale(ctx context.Context, userID, saleID uuid.UUID) error
	RefundSale(ctx context.Context, userID, saleID uuid.UUID, req RefundSaleRequest) (*model.Sale, error)
	GetSale(ctx context.Context, userID, saleID uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, userID uuid.UUID, filter repository.SaleFilter, page, limit int) ([]model.Sale, int64, error)
}

type saleService struct {
	saleRepo  repository.SaleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	engine    *StockEngine
	notifier  StockNotifier
	log       *zap.Logger
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	engine *StockEngine,
	notifier StockNotifier,
	log *zap.Logger,
) SaleService {
	return &saleService{
		saleRepo:  saleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		engine:    engine,
		notifier:  notifierOrNop(notifier),
		log:       log.Named("sale"),
	}
}

type saleLine struct {
	productID uuid.UUID
	req       SaleItemRequest
}

// CreateSale persists the sale and takes every line out of stock in one transaction.
// Any failing line rolls back the whole sale.
func (s *saleService) CreateSale(ctx context.Context, userID uuid.UUID, req CreateSaleRequest) (*model.Sale, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	lines := make([]saleLine, 0, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := parseID(item.ProductID, "product")
		if err != nil {
			return nil, err
		}
		lines = append(lines, saleLine{productID: pid, req: item})
		ids = append(ids, pid)
	}

	status := req.Status
	if status == "" {
		status = model.SaleStatusCompleted
	}

	var sale *model.Sale
	var changes []StockChange
	err := withNumberRetry(req.InvoiceNumber == "", func(attempt int) error {
		changes = nil
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			products, err := s.engine.LockAllForUser(txCtx, userID, ids)
			if err != nil {
				return err
			}

			items := make([]model.SaleItem, 0, len(lines))
			subtotal := decimal.Zero
			for _, line := range lines {
				product := products[line.productID]
				if !product.IsActive {
					return apperr.Validation(fmt.Sprintf("Product %s is not active", product.Name))
				}
				item, err := priceSaleItem(product, line.req)
				if err != nil {
					return err
				}
				subtotal = subtotal.Add(item.Total)
				items = append(items, item)
			}

			total := subtotal.Add(req.Tax).Sub(req.Discount)
			if total.IsNegative() {
				return apperr.Validation("discount exceeds the sale amount")
			}
			amountPaid := total
			if req.AmountPaid != nil {
				amountPaid = *req.AmountPaid
			}
			if status == model.SaleStatusCompleted && amountPaid.LessThan(total) {
				return apperr.Validation(fmt.Sprintf("amount paid %s is less than total %s", amountPaid.StringFixed(2), total.StringFixed(2)))
			}

			number := req.InvoiceNumber
			if number == "" {
				number, err = nextNumber(txCtx, "INV", time.Now(), attempt, s.saleRepo.MaxSequence)
				if err != nil {
					return apperr.FromStore(err, "sale")
				}
			}

			sale = &model.Sale{
				UserID:        userID,
				InvoiceNumber: number,
				Status:        status,
				Subtotal:      subtotal,
				Tax:           req.Tax,
				Discount:      req.Discount,
				Total:         total,
				PaymentMethod: req.PaymentMethod,
				AmountPaid:    amountPaid,
				Change:        amountPaid.Sub(total),
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
				CustomerPhone: req.CustomerPhone,
				Notes:         req.Notes,
			}
			if status == model.SaleStatusCompleted {
				now := time.Now()
				sale.CompletedAt = &now
			}
			if err := s.saleRepo.Create(txCtx, sale); err != nil {
				return apperr.FromStore(err, "sale")
			}

			for i := range items {
				item := &items[i]
				movement, product, err := s.engine.Apply(txCtx, StockMutation{
					ProductID: item.ProductID,
					Delta:     -item.Quantity,
					Type:      model.MovementSale,
					Reason:    "Sale " + sale.InvoiceNumber,
					Reference: model.SaleReference(sale.ID),
				})
				if err != nil {
					return err
				}
				if movement != nil {
					changes = append(changes, changeFrom(product, movement))
				}

				item.SaleID = sale.ID
				if err := s.saleRepo.CreateItem(txCtx, item); err != nil {
					return apperr.FromStore(err, "sale item")
				}
			}

			return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateSale, sale.ID.String(), sale.InvoiceNumber, map[string]any{
				"invoice_number": sale.InvoiceNumber,
				"status":         sale.Status,
				"total":          sale.Total,
				"items":          len(items),
			})
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "create sale", err)
	}

	publish(s.notifier, userID, changes)
	return s.GetSale(ctx, userID, sale.ID)
}

// priceSaleItem snapshots the product and computes the line totals.
func priceSaleItem(product *model.Product, req SaleItemRequest) (model.SaleItem, error) {
	unitPrice := product.EffectivePrice()
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
	total := subtotal.Sub(req.Discount)
	if total.IsNegative() {
		return model.SaleItem{}, apperr.Validation(fmt.Sprintf("discount for %s exceeds the line amount", product.Name))
	}
	return model.SaleItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Discount:    req.Discount,
		Subtotal:    subtotal,
		Total:       total,
	}, nil
}

// CompleteSale settles a pending sale. Stock was already taken when the sale was created.
func (s *saleService) CompleteSale(ctx context.Context, userID, saleID uuid.UUID, req CompleteSaleRequest) (*model.Sale, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.checkSaleStatus(ctx, userID, saleID, "complete", isPending); err != nil {
		return nil, failure(ctx, s.log, "complete sale", err)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, userID, saleID)
		if err != nil {
			return apperr.FromStore(err, "sale")
		}
		if !isPending(sale.Status) {
			return apperr.InvalidTransition("sale", sale.Status, "complete")
		}

		amountPaid := sale.AmountPaid
		if req.AmountPaid != nil {
			amountPaid = *req.AmountPaid
		}
		if amountPaid.LessThan(sale.Total) {
			return apperr.Validation(fmt.Sprintf("amount paid %s is less than total %s", amountPaid.StringFixed(2), sale.Total.StringFixed(2)))
		}

		now := time.Now()
		if err := s.saleRepo.UpdateFields(txCtx, sale.ID, map[string]any{
			"status":       model.SaleStatusCompleted,
			"amount_paid":  amountPaid,
			"change":       amountPaid.Sub(sale.Total),
			"completed_at": now,
		}); err != nil {
			return apperr.FromStore(err, "sale")
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionCompleteSale, sale.ID.String(), sale.InvoiceNumber, map[string]any{
			"amount_paid": amountPaid,
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "complete sale", err)
	}
	return s.GetSale(ctx, userID, saleID)
}

// VoidSale puts every line back into stock and soft-deletes the sale.
// Lines whose product has since been deleted are skipped.
func (s *saleService) VoidSale(ctx context.Context, userID, saleID uuid.UUID) error {
	if err := s.checkSaleStatus(ctx, userID, saleID, "void", isVoidable); err != nil {
		return failure(ctx, s.log, "void sale", err)
	}

	var changes []StockChange
	var invoice string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, userID, saleID)
		if err != nil {
			return apperr.FromStore(err, "sale")
		}
		if !isVoidable(sale.Status) {
			return apperr.InvalidTransition("sale", sale.Status, "void")
		}
		invoice = sale.InvoiceNumber

		changes, err = s.restock(txCtx, userID, sale, model.MovementAdjustment, "Voided sale "+sale.InvoiceNumber)
		if err != nil {
			return err
		}

		if err := s.saleRepo.SoftDelete(txCtx, sale.ID); err != nil {
			return apperr.FromStore(err, "sale")
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionVoidSale, sale.ID.String(), sale.InvoiceNumber, map[string]any{
			"status":   sale.Status,
			"restored": len(changes),
		})
	})
	if err != nil {
		return failure(ctx, s.log, "void sale", err)
	}

	s.log.Info("Sale voided", zap.String("invoice_number", invoice), zap.Int("restocked", len(changes)))
	publish(s.notifier, userID, changes)
	return nil
}

// RefundSale takes a completed sale back. Stock is restored as return movements and the sale stays on record.
func (s *saleService) RefundSale(ctx context.Context, userID, saleID uuid.UUID, req RefundSaleRequest) (*model.Sale, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.checkSaleStatus(ctx, userID, saleID, "refund", isCompleted); err != nil {
		return nil, failure(ctx, s.log, "refund sale", err)
	}

	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, userID, saleID)
		if err != nil {
			return apperr.FromStore(err, "sale")
		}
		if !isCompleted(sale.Status) {
			return apperr.InvalidTransition("sale", sale.Status, "refund")
		}

		reason := "Refund of sale " + sale.InvoiceNumber
		if req.Reason != "" {
			reason += ": " + req.Reason
		}
		changes, err = s.restock(txCtx, userID, sale, model.MovementReturn, reason)
		if err != nil {
			return err
		}

		if err := s.saleRepo.UpdateFields(txCtx, sale.ID, map[string]any{
			"status":      model.SaleStatusRefunded,
			"refunded_at": time.Now(),
		}); err != nil {
			return apperr.FromStore(err, "sale")
		}

		return recordAudit(txCtx, s.auditRepo, userID, model.ActionRefundSale, sale.ID.String(), sale.InvoiceNumber, map[string]any{
			"reason": req.Reason,
			"total":  sale.Total,
		})
	})
	if err != nil {
		return nil, failure(ctx, s.log, "refund sale", err)
	}

	publish(s.notifier, userID, changes)
	return s.GetSale(ctx, userID, saleID)
}

// checkSaleStatus rejects a transition before any transaction is opened.
// The caller re-checks under the row lock.
func (s *saleService) checkSaleStatus(ctx context.Context, userID, saleID uuid.UUID, action string, allowed func(status string) bool) error {
	sale, err := s.saleRepo.FindByIDWithItems(ctx, userID, saleID)
	if err != nil {
		return apperr.FromStore(err, "sale")
	}
	if !allowed(sale.Status) {
		return apperr.InvalidTransition("sale", sale.Status, action)
	}
	return nil
}

func isPending(status string) bool   { return status == model.SaleStatusPending }
func isCompleted(status string) bool { return status == model.SaleStatusCompleted }
func isVoidable(status string) bool {
	return status != model.SaleStatusRefunded && status != model.SaleStatusCancelled
}

// restock adds every sold quantity back to its product.
func (s *saleService) restock(ctx context.Context, userID uuid.UUID, sale *model.Sale, kind model.MovementType, reason string) ([]StockChange, error) {
	ids := make([]uuid.UUID, 0, len(sale.Items))
	for _, item := range sale.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.engine.LockExistingForUser(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	var changes []StockChange
	for _, item := range sale.Items {
		if _, ok := products[item.ProductID]; !ok {
			s.log.Warn("Product no longer exists, skipping restock",
				zap.String("invoice_number", sale.InvoiceNumber),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity))
			continue
		}
		movement, product, err := s.engine.Apply(ctx, StockMutation{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
			Type:      kind,
			Reason:    reason,
			Reference: model.SaleReference(sale.ID),
		})
		if err != nil {
			return nil, err
		}
		if movement != nil {
			changes = append(changes, changeFrom(product, movement))
		}
	}
	return changes, nil
}

func (s *saleService) GetSale(ctx context.Context, userID, saleID uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByIDWithItems(ctx, userID, saleID)
	if err != nil {
		return nil, failure(ctx, s.log, "get sale", apperr.FromStore(err, "sale"))
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, userID uuid.UUID, filter repository.SaleFilter, page, limit int) ([]model.Sale, int64, error) {
	p := pagination.New(page, limit)
	sales, total, err := s.saleRepo.List(ctx, userID, filter, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list sales", apperr.FromStore(err, "sale"))
	}
	return sales, total, nil
}

package service

import (
	"context"
	"strings"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type AdjustmentLine struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	NewQuantity *int   `json:"new_quantity" binding:"required,gte=0"`
	Reason      string `json:"reason" binding:"required,max=500"`
}

type AdjustmentRequest struct {
	Items []AdjustmentLine `json:"items" binding:"required,min=1,dive"`
}

const (
	AdjustmentApplied   = "adjusted"
	AdjustmentUnchanged = "unchanged"
)

type AdjustmentResult struct {
	ProductID      uuid.UUID  `json:"product_id"`
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	QuantityBefore int        `json:"quantity_before"`
	QuantityAfter  int        `json:"quantity_after"`
	Delta          int        `json:"delta"`
	Status         string     `json:"status"`
	MovementID     *uuid.UUID `json:"movement_id,omitempty"`
}

type AdjustmentService interface {
	ApplyAdjustments(ctx context.Context, userID uuid.UUID, req AdjustmentRequest) ([]AdjustmentResult, error)
}

type adjustmentService struct {
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	engine    *StockEngine
	notifier  StockNotifier
	log       *zap.Logger
}

func NewAdjustmentService(
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	engine *StockEngine,
	notifier StockNotifier,
	log *zap.Logger,
) AdjustmentService {
	return &adjustmentService{
		auditRepo: auditRepo,
		txManager: txManager,
		engine:    engine,
		notifier:  notifierOrNop(notifier),
		log:       log.Named("adjustment"),
	}
}

type adjustmentLine struct {
	productID   uuid.UUID
	newQuantity int
	reason      string
}

// ApplyAdjustments sets each product to its counted quantity. The batch is all or nothing.
// Lines that already match the current stock are reported unchanged and write no movement.
func (s *adjustmentService) ApplyAdjustments(ctx context.Context, userID uuid.UUID, req AdjustmentRequest) ([]AdjustmentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	lines := make([]adjustmentLine, 0, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		pid, err := parseID(item.ProductID, "product")
		if err != nil {
			return nil, err
		}
		reason := strings.TrimSpace(item.Reason)
		if reason == "" {
			return nil, apperr.Validation("reason is required for every adjustment")
		}
		if seen[pid] {
			return nil, apperr.Validation("a product may appear only once per adjustment batch")
		}
		seen[pid] = true
		lines = append(lines, adjustmentLine{productID: pid, newQuantity: *item.NewQuantity, reason: reason})
		ids = append(ids, pid)
	}

	var results []AdjustmentResult
	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		results = make([]AdjustmentResult, 0, len(lines))
		changes = nil

		products, err := s.engine.LockAllForUser(txCtx, userID, ids)
		if err != nil {
			return err
		}

		for _, line := range lines {
			product := products[line.productID]
			before := product.StockQuantity
			result := AdjustmentResult{
				ProductID:      product.ID,
				SKU:            product.SKU,
				Name:           product.Name,
				QuantityBefore: before,
				QuantityAfter:  before,
				Delta:          line.newQuantity - before,
				Status:         AdjustmentUnchanged,
			}
			if result.Delta == 0 || !product.TrackInventory {
				result.Delta = 0
				results = append(results, result)
				continue
			}

			movement, updated, err := s.engine.Apply(txCtx, StockMutation{
				ProductID: product.ID,
				Delta:     result.Delta,
				Type:      model.MovementAdjustment,
				Reason:    line.reason,
				Reference: model.NoReference(),
			})
			if err != nil {
				return err
			}
			result.QuantityAfter = movement.QuantityAfter
			result.Status = AdjustmentApplied
			result.MovementID = &movement.ID
			results = append(results, result)
			changes = append(changes, changeFrom(updated, movement))

			if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionStockAdjustment, product.ID.String(), product.Name, map[string]any{
				"quantity_before": before,
				"quantity_after":  movement.QuantityAfter,
				"reason":          line.reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, failure(ctx, s.log, "apply adjustments", err)
	}

	publish(s.notifier, userID, changes)
	return results, nil
}

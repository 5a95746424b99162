package service

import (
	"context"
	"fmt"
	"io"

	"posbackend/internal/apperr"
	"posbackend/internal/logger"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const movementSheet = "Stock Movements"

var movementHeadings = []string{
	"Date", "SKU", "Product", "Type", "Quantity", "Before", "After", "Reference", "Reason",
}

type StockMovementService interface {
	ListMovements(ctx context.Context, userID uuid.UUID, filter repository.MovementFilter, page, limit int) ([]model.StockMovement, int64, error)
	ProductHistory(ctx context.Context, userID, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
	ExportMovements(ctx context.Context, userID uuid.UUID, filter repository.MovementFilter, w io.Writer) error
	LedgerBalance(ctx context.Context, userID, productID uuid.UUID) (*LedgerBalance, error)
}

// LedgerBalance compares a product's stored quantity with the sum of its movements.
type LedgerBalance struct {
	ProductID      uuid.UUID `json:"product_id"`
	TrackInventory bool      `json:"track_inventory"`
	StockQuantity  int       `json:"stock_quantity"`
	LedgerTotal    int       `json:"ledger_total"`
	Drift          int       `json:"drift"`
	Consistent     bool      `json:"consistent"`
}

type stockMovementService struct {
	movementRepo repository.StockMovementRepository
	productRepo  repository.ProductRepository
	log          *zap.Logger
}

func NewStockMovementService(movementRepo repository.StockMovementRepository, productRepo repository.ProductRepository, log *zap.Logger) StockMovementService {
	return &stockMovementService{
		movementRepo: movementRepo,
		productRepo:  productRepo,
		log:          log.Named("stock_movement"),
	}
}

func (s *stockMovementService) ListMovements(ctx context.Context, userID uuid.UUID, filter repository.MovementFilter, page, limit int) ([]model.StockMovement, int64, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown movement type %q", filter.Type))
	}
	p := pagination.New(page, limit)
	movements, total, err := s.movementRepo.List(ctx, userID, filter, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list stock movements", apperr.FromStore(err, "stock movement"))
	}
	return movements, total, nil
}

// ProductHistory is the stock card of one product, newest first.
func (s *stockMovementService) ProductHistory(ctx context.Context, userID, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	if _, err := s.productRepo.FindByID(ctx, userID, productID); err != nil {
		return nil, 0, failure(ctx, s.log, "get product history", apperr.FromStore(err, "product"))
	}
	return s.ListMovements(ctx, userID, repository.MovementFilter{ProductID: &productID}, page, limit)
}

// LedgerBalance checks that stock_quantity still equals the ledger total.
// Untracked products never move, so they are always consistent.
func (s *stockMovementService) LedgerBalance(ctx context.Context, userID, productID uuid.UUID) (*LedgerBalance, error) {
	product, err := s.productRepo.FindByID(ctx, userID, productID)
	if err != nil {
		return nil, failure(ctx, s.log, "check ledger balance", apperr.FromStore(err, "product"))
	}
	total, err := s.movementRepo.SumByProduct(ctx, productID)
	if err != nil {
		return nil, failure(ctx, s.log, "check ledger balance", apperr.FromStore(err, "stock movement"))
	}

	res := &LedgerBalance{
		ProductID:      product.ID,
		TrackInventory: product.TrackInventory,
		StockQuantity:  product.StockQuantity,
		LedgerTotal:    total,
		Drift:          product.StockQuantity - total,
	}
	res.Consistent = !product.TrackInventory || res.Drift == 0
	if !res.Consistent {
		logger.FromContext(ctx, s.log).Warn("Stock ledger drift",
			zap.String("product_id", product.ID.String()),
			zap.Int("stock_quantity", product.StockQuantity),
			zap.Int("ledger_total", total),
		)
	}
	return res, nil
}

// ExportMovements writes the matching ledger rows, oldest first, as an xlsx workbook.
func (s *stockMovementService) ExportMovements(ctx context.Context, userID uuid.UUID, filter repository.MovementFilter, w io.Writer) error {
	movements, err := s.movementRepo.ListAll(ctx, userID, filter)
	if err != nil {
		return failure(ctx, s.log, "export stock movements", apperr.FromStore(err, "stock movement"))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", movementSheet); err != nil {
		return failure(ctx, s.log, "export stock movements", err)
	}
	if err := writeMovementRows(f, movements); err != nil {
		return failure(ctx, s.log, "export stock movements", err)
	}
	if err := f.Write(w); err != nil {
		return failure(ctx, s.log, "export stock movements", err)
	}
	return nil
}

func writeMovementRows(f *excelize.File, movements []model.StockMovement) error {
	header := make([]any, len(movementHeadings))
	for i, h := range movementHeadings {
		header[i] = h
	}
	if err := f.SetSheetRow(movementSheet, "A1", &header); err != nil {
		return err
	}

	for i, m := range movements {
		sku, name := "", ""
		if m.Product != nil {
			sku, name = m.Product.SKU, m.Product.Name
		}
		row := []any{
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			sku,
			name,
			string(m.Type),
			m.Quantity,
			m.QuantityBefore,
			m.QuantityAfter,
			m.Reference().String(),
			m.Reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(movementSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

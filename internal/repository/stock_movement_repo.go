package repository

import (
	"context"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter narrows a ledger listing. Zero values match everything.
type MovementFilter struct {
	ProductID     *uuid.UUID
	Type          model.MovementType
	ReferenceType model.ReferenceKind
	ReferenceID   *uuid.UUID
}

// StockMovementRepository is the ledger. It can append and read; rows are never changed.
type StockMovementRepository interface {
	Append(ctx context.Context, movement *model.StockMovement) error
	List(ctx context.Context, userID uuid.UUID, filter MovementFilter, offset, limit int) ([]model.StockMovement, int64, error)
	ListAll(ctx context.Context, userID uuid.UUID, filter MovementFilter) ([]model.StockMovement, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (int, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

// Append assigns the next per-product sequence and inserts the row. The caller holds
// the product's row lock, so two appends for one product cannot read the same tail.
func (r *stockMovementRepository) Append(ctx context.Context, movement *model.StockMovement) error {
	db := GetDB(ctx, r.db)
	var last int64
	if err := db.Model(&model.StockMovement{}).
		Where("product_id = ?", movement.ProductID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
		return err
	}
	movement.Sequence = last + 1
	return db.Create(movement).Error
}

func (r *stockMovementRepository) scoped(ctx context.Context, userID uuid.UUID, filter MovementFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).Where("user_id = ?", userID)
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.ReferenceType != model.RefNone {
		db = db.Where("reference_type = ?", filter.ReferenceType)
	}
	if filter.ReferenceID != nil {
		db = db.Where("reference_id = ?", *filter.ReferenceID)
	}
	return db
}

func (r *stockMovementRepository) List(ctx context.Context, userID uuid.UUID, filter MovementFilter, offset, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := r.scoped(ctx, userID, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Order("created_at desc").Order("sequence desc").Order("id desc").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// ListAll returns every matching movement oldest first, for exports and replays.
// Ties on created_at fall back to the per-product sequence.
func (r *stockMovementRepository) ListAll(ctx context.Context, userID uuid.UUID, filter MovementFilter) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.scoped(ctx, userID, filter).
		Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Order("created_at asc").Order("sequence asc").Order("id asc").Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepository) SumByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var sum int
	err := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	return sum, err
}

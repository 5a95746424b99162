package repository

import (
	"context"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleFilter narrows a sale listing
type SaleFilter struct {
	Status string
	Search string
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleItem) error
	FindByIDWithItems(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter SaleFilter, offset, limit int) ([]model.Sale, int64, error)
	MaxSequence(ctx context.Context, prefix string) (int, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale header only. Items are written one by one with CreateItem.
func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByIDForUpdate locks the sale header so that two voids or refunds of one sale serialize.
func (r *saleRepository) FindByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&sale).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("sale_id = ?", sale.ID).Order("created_at ASC").Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return GetDB(ctx, r.db).Model(&model.Sale{}).Where("id = ?", id).Updates(fields).Error
}

func (r *saleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) List(ctx context.Context, userID uuid.UUID, filter SaleFilter, offset, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("invoice_number LIKE ? OR customer_name LIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

// MaxSequence returns the highest invoice sequence issued under prefix, voided sales included,
// so numbers are never reused.
func (r *saleRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	return maxSequence(GetDB(ctx, r.db).Unscoped().Model(&model.Sale{}), "invoice_number", prefix)
}

package repository

import (
	"context"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseOrderFilter narrows a purchase order listing
type PurchaseOrderFilter struct {
	Status     string
	SupplierID *uuid.UUID
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	Update(ctx context.Context, po *model.PurchaseOrder) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateItem(ctx context.Context, item *model.PurchaseOrderItem) error
	UpdateItemReceived(ctx context.Context, itemID uuid.UUID, received int) error
	DeleteItems(ctx context.Context, poID uuid.UUID) error
	FindByIDWithItems(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, userID uuid.UUID, filter PurchaseOrderFilter, offset, limit int) ([]model.PurchaseOrder, int64, error)
	MaxSequence(ctx context.Context, prefix string) (int, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

// Create inserts the header only. Items are written with CreateItem.
func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(po).Error
}

// Update saves the editable header columns of a draft.
func (r *purchaseOrderRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Model(po).Omit(clause.Associations).
		Select("supplier_id", "total", "order_date", "expected_date", "notes", "updated_at").
		Updates(po).Error
}

func (r *purchaseOrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (r *purchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *purchaseOrderRepository) CreateItem(ctx context.Context, item *model.PurchaseOrderItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(item).Error
}

func (r *purchaseOrderRepository) UpdateItemReceived(ctx context.Context, itemID uuid.UUID, received int) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrderItem{}).Where("id = ?", itemID).
		Update("quantity_received", received).Error
}

func (r *purchaseOrderRepository) DeleteItems(ctx context.Context, poID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("purchase_order_id = ?", poID).Delete(&model.PurchaseOrderItem{}).Error
}

func (r *purchaseOrderRepository) FindByIDWithItems(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Preload("Supplier", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&po).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// FindByIDForUpdate locks the header row. Receipt holds this lock so a second receive waits and then sees the new status.
func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&po).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("purchase_order_id = ?", po.ID).Order("created_at ASC").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) List(ctx context.Context, userID uuid.UUID, filter PurchaseOrderFilter, offset, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.SupplierID != nil {
		db = db.Where("supplier_id = ?", *filter.SupplierID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.
		Preload("Items").
		Preload("Supplier", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// MaxSequence returns the highest PO sequence under prefix. Deleted drafts leave no row,
// so the next number is derived from what still exists.
func (r *purchaseOrderRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	return maxSequence(GetDB(ctx, r.db).Model(&model.PurchaseOrder{}), "po_number", prefix)
}

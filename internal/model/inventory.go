package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// newID fills an empty primary key before insert so that the schema does not
// depend on database-side uuid generation.
func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Product represents an item in the inventory owned by one user.
// StockQuantity is written only by the stock engine.
type Product struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_products_user_sku,priority:1" json:"user_id"`
	SKU             string           `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_user_sku,priority:2" json:"sku"`
	Name            string           `gorm:"type:varchar(255);not null" json:"name"`
	Description     string           `gorm:"type:text" json:"description"`
	StockQuantity   int              `gorm:"type:int;default:0;not null" json:"stock_quantity"`
	CostPrice       decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`
	Price           decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"price"`
	SalePrice       *decimal.Decimal `gorm:"type:decimal(18,4)" json:"sale_price"`
	ReorderPoint    int              `gorm:"type:int;default:0;not null" json:"reorder_point"`
	ReorderQuantity int              `gorm:"type:int;default:0;not null" json:"reorder_quantity"`
	TrackInventory  bool             `gorm:"not null" json:"track_inventory"`
	IsActive        bool             `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// EffectivePrice is the price charged at the till: the sale price when one is set.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// NeedsReorder reports whether a tracked product has fallen to its reorder point.
func (p *Product) NeedsReorder() bool {
	return p.TrackInventory && p.StockQuantity <= p.ReorderPoint
}

// MovementType classifies a stock movement
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementPurchase   MovementType = "purchase"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
	MovementTransfer   MovementType = "transfer"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementSale, MovementPurchase, MovementAdjustment, MovementReturn, MovementTransfer:
		return true
	}
	return false
}

// ReferenceKind names the business transaction a movement points back to.
type ReferenceKind string

const (
	RefNone          ReferenceKind = ""
	RefSale          ReferenceKind = "sale"
	RefPurchaseOrder ReferenceKind = "purchase_order"
)

// Reference is the tagged provenance of a movement: a sale, a purchase order, or nothing.
type Reference struct {
	Kind ReferenceKind
	ID   uuid.UUID
}

func NoReference() Reference { return Reference{} }

func SaleReference(id uuid.UUID) Reference {
	return Reference{Kind: RefSale, ID: id}
}

func PurchaseOrderReference(id uuid.UUID) Reference {
	return Reference{Kind: RefPurchaseOrder, ID: id}
}

func (r Reference) IsZero() bool { return r.Kind == RefNone }

func (r Reference) String() string {
	switch r.Kind {
	case RefSale:
		return "sale:" + r.ID.String()
	case RefPurchaseOrder:
		return "purchase_order:" + r.ID.String()
	case RefNone:
		return "manual"
	}
	return fmt.Sprintf("unknown(%s)", string(r.Kind))
}

// StockMovement (stock card line) records one change of a product's stock.
// Rows are append-only. Sequence numbers a product's movements 1, 2, 3... in the
// order they were applied, so the chain can be replayed without trusting timestamps.
type StockMovement struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID      uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_stock_movements_product_seq,priority:1" json:"product_id"`
	Product        *Product      `gorm:"foreignKey:ProductID" json:"-"`
	Sequence       int64         `gorm:"not null;uniqueIndex:idx_stock_movements_product_seq,priority:2" json:"sequence"`
	Type           MovementType  `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity       int           `gorm:"type:int;not null" json:"quantity"`
	QuantityBefore int           `gorm:"type:int;not null" json:"quantity_before"`
	QuantityAfter  int           `gorm:"type:int;not null" json:"quantity_after"`
	ReferenceType  ReferenceKind `gorm:"type:varchar(30);index:idx_stock_movements_reference,priority:1" json:"reference_type,omitempty"`
	ReferenceID    *uuid.UUID    `gorm:"type:uuid;index:idx_stock_movements_reference,priority:2" json:"reference_id,omitempty"`
	Reason         string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// SetReference stores the tagged reference in its two columns.
func (m *StockMovement) SetReference(ref Reference) {
	m.ReferenceType = ref.Kind
	if ref.IsZero() {
		m.ReferenceID = nil
		return
	}
	id := ref.ID
	m.ReferenceID = &id
}

// Reference rebuilds the tagged reference from its columns.
func (m *StockMovement) Reference() Reference {
	if m.ReferenceType == RefNone || m.ReferenceID == nil {
		return NoReference()
	}
	return Reference{Kind: m.ReferenceType, ID: *m.ReferenceID}
}

// Consistent reports whether the before/after snapshot matches the delta.
func (m *StockMovement) Consistent() bool {
	return m.QuantityAfter == m.QuantityBefore+m.Quantity
}

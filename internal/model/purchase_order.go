package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseOrderStatus constants
const (
	POStatusDraft     = "draft"
	POStatusSent      = "sent"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

// PurchaseOrder is an order placed with a supplier. Only drafts may be edited or deleted.
type PurchaseOrder struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	SupplierID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier     *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	PONumber     string              `gorm:"column:po_number;type:varchar(30);uniqueIndex;not null" json:"po_number"`
	Status       string              `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Total        decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
	OrderDate    time.Time           `gorm:"not null" json:"order_date"`
	ExpectedDate *time.Time          `json:"expected_date"`
	ReceivedDate *time.Time          `json:"received_date"`
	Notes        string              `gorm:"type:text" json:"notes"`
	Items        []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	newID(&po.ID)
	return nil
}

// PurchaseOrderItem is one ordered product line.
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	QuantityOrdered  int             `gorm:"type:int;not null" json:"quantity_ordered"`
	QuantityReceived int             `gorm:"type:int;not null;default:0" json:"quantity_received"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`
	Total            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"` // unit_cost * quantity_ordered
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (i *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// Outstanding is the quantity still to be received.
func (i *PurchaseOrderItem) Outstanding() int {
	if i.QuantityReceived >= i.QuantityOrdered {
		return 0
	}
	return i.QuantityOrdered - i.QuantityReceived
}

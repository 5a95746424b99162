package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleStatus constants
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusRefunded  = "refunded"
	SaleStatusCancelled = "cancelled"
)

// PaymentMethod constants
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
	PaymentEWallet      = "e_wallet"
	PaymentOther        = "other"
)

// Sale is a POS transaction header. Voiding soft-deletes it.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	InvoiceNumber string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	Status        string          `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	Tax           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"` // subtotal + tax - discount
	PaymentMethod string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_paid"`
	Change        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"change"` // amount_paid - total
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string          `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerPhone string          `gorm:"type:varchar(50)" json:"customer_phone"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CompletedAt   *time.Time      `json:"completed_at"`
	RefundedAt    *time.Time      `json:"refunded_at"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// SaleItem is one line of a sale. Name and SKU are copied from the product at sale time.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU  string          `gorm:"type:varchar(100);not null" json:"product_sku"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"` // unit_price * quantity
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`    // subtotal - discount
	CreatedAt   time.Time       `json:"created_at"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}

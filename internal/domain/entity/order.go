package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mkatsoulis/tillpoint/internal/domain/enum"
)

// Order represents one customer transaction within a register session.
// Subtotal, DiscountAmount and FinalAmount are denormalized at write time and
// re-derived from line items by the aggregators; the two paths must agree.
type Order struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	RegisterSessionID uuid.UUID          `gorm:"type:uuid;not null;index" json:"register_session_id"`
	CreatedBy         uuid.UUID          `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Subtotal          decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CardDiscountCount int                `gorm:"default:0" json:"card_discount_count"`
	DiscountAmount    decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	FinalAmount       decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"final_amount"`
	PaymentMethod     enum.PaymentMethod `gorm:"type:smallint;default:0" json:"payment_method"`

	// Relationships
	Items []SaleLineItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// SaleLineItem represents one product line within an order. Lines are never
// hard-deleted: IsDeleted excludes a line from every aggregate while keeping
// it queryable for audit, and the Original* fields record what the line looked
// like before its first edit.
type SaleLineItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName       string          `gorm:"size:255;not null" json:"product_name"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	IsTreat           bool            `gorm:"default:false" json:"is_treat"`
	IsDeleted         bool            `gorm:"default:false;index" json:"is_deleted"`
	IsEdited          bool            `gorm:"default:false" json:"is_edited"`
	OriginalProductID *uuid.UUID      `gorm:"type:uuid" json:"original_product_id,omitempty"`
	OriginalQuantity  *int            `json:"original_quantity,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// BeforeCreate generates a UUID before creating a new line item
func (i *SaleLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleLineItem model
func (SaleLineItem) TableName() string {
	return "sale_line_items"
}

// Eligible reports whether the line participates in the monetary subtotal
// used for discount allocation. Treats and deleted lines do not.
func (i *SaleLineItem) Eligible() bool {
	return !i.IsDeleted && !i.IsTreat
}

// TreatValue returns unit_price x quantity for treat lines, zero otherwise.
// Treats contribute no revenue but their value is tracked for reporting.
func (i *SaleLineItem) TreatValue() decimal.Decimal {
	if i.IsDeleted || !i.IsTreat {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

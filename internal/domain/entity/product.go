package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog item. The settlement engine only ever copies
// its name and price into a sale line item at sale time; historical totals
// never re-read the live catalog price.
type Product struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CategoryID     *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock          int             `gorm:"default:0" json:"stock"`
	UnlimitedStock bool            `gorm:"default:false" json:"unlimited_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"size:255;unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Products []Product `gorm:"foreignKey:CategoryID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new category
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

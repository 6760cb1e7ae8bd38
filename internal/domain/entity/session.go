package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterSession represents one till-open-to-till-close operating period.
// At most one session with ClosedAt == nil exists system-wide; the invariant
// is enforced by a partial unique index, not by application checks.
type RegisterSession struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OpenedAt time.Time  `gorm:"not null" json:"opened_at"`
	OpenedBy uuid.UUID  `gorm:"type:uuid;not null" json:"opened_by"`
	ClosedAt *time.Time `gorm:"index" json:"closed_at,omitempty"`
	ClosedBy *uuid.UUID `gorm:"type:uuid" json:"closed_by,omitempty"`
	Notes    string     `gorm:"type:text" json:"notes"`

	// Relationships
	Orders  []Order          `gorm:"foreignKey:RegisterSessionID" json:"orders,omitempty"`
	Closing *RegisterClosing `gorm:"foreignKey:RegisterSessionID" json:"closing,omitempty"`
}

// BeforeCreate generates a UUID before creating a new session
func (s *RegisterSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the RegisterSession model
func (RegisterSession) TableName() string {
	return "register_sessions"
}

// IsOpen reports whether the session has not been closed yet
func (s *RegisterSession) IsOpen() bool {
	return s.ClosedAt == nil
}

// RegisterClosing is the materialized end-of-session summary. When a closed
// session has no persisted closing, the reconciliation aggregator synthesizes
// one so downstream code never special-cases its absence.
type RegisterClosing struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	RegisterSessionID    uuid.UUID       `gorm:"type:uuid;unique;not null" json:"register_session_id"`
	ClosedBy             uuid.UUID       `gorm:"type:uuid;not null" json:"closed_by"`
	OrderCount           int             `gorm:"default:0" json:"order_count"`
	TotalBeforeDiscounts decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_before_discounts"`
	TreatsAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"treats_amount"`
	CouponCount          int             `gorm:"default:0" json:"coupon_count"`
	CouponAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"coupon_amount"`
	FinalTotal           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"final_total"`
	CashAmount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cash_amount"`
	CardAmount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"card_amount"`
	Notes                string          `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`

	// Synthesized is true when the row was derived on read rather than
	// recorded at close time. Never persisted.
	Synthesized bool `gorm:"-" json:"synthesized,omitempty"`
}

// BeforeCreate generates a UUID before creating a new closing
func (c *RegisterClosing) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the RegisterClosing model
func (RegisterClosing) TableName() string {
	return "register_closings"
}

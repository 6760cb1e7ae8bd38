package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// OrderFilterParams holds filter parameters for listing orders
type OrderFilterParams struct {
	Pagination *pagination.PaginationParams
	SessionID  *uuid.UUID
	CreatedBy  *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

// OrderRepository defines the persistence interface for orders
type OrderRepository interface {
	// CreateWithItems writes the order and its line items in one
	// transaction. A failed item insert leaves no order row behind.
	CreateWithItems(ctx context.Context, order *entity.Order, items []entity.SaleLineItem) error
	Update(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	// ListBySession returns every order of the session with its line items
	// preloaded, deleted lines included (audit views need them)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.Order, error)

	// ListWithItemsByDateRange feeds the statistics aggregator
	ListWithItemsByDateRange(ctx context.Context, from, to time.Time) ([]entity.Order, error)

	List(ctx context.Context, params *OrderFilterParams) ([]entity.Order, int64, error)
}

// LineItemRepository defines the persistence interface for sale line items.
// Lines are soft-deleted via Update; there is no hard delete.
type LineItemRepository interface {
	Create(ctx context.Context, item *entity.SaleLineItem) error
	Update(ctx context.Context, item *entity.SaleLineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleLineItem, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.SaleLineItem, error)
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// ProductFilterParams holds filter parameters for listing products
type ProductFilterParams struct {
	Pagination *pagination.PaginationParams
	CategoryID *uuid.UUID
	Search     string
}

// ProductRepository defines the persistence interface for the catalog
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error)
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)

	// AtomicDecrementBatch decrements stock for several products in one
	// transaction with a conditional update, returning the IDs whose stock
	// would have gone negative. Either every decrement applies or none does.
	AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error)

	// AtomicIncrementBatch restores stock (line deletion, edit compensation)
	AtomicIncrementBatch(ctx context.Context, increments map[uuid.UUID]int) error
}

// CategoryRepository defines the persistence interface for categories
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetByName(ctx context.Context, name string) (*entity.Category, error)
	List(ctx context.Context) ([]entity.Category, error)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	domainRepo "github.com/mkatsoulis/tillpoint/internal/domain/repository"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithItems(ctx context.Context, order *entity.Order, items []entity.SaleLineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.Create(&items).Error
	})
}

func (r *orderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sale_line_items.created_at ASC")
		}).
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Product.Category").
		Where("register_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListWithItemsByDateRange(ctx context.Context, from, to time.Time) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Product.Category").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, params *domainRepo.OrderFilterParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})

	if params.SessionID != nil {
		query = query.Where("register_session_id = ?", *params.SessionID)
	}
	if params.CreatedBy != nil {
		query = query.Where("created_by = ?", *params.CreatedBy)
	}
	if params.StartDate != nil {
		query = query.Where("created_at >= ?", *params.StartDate)
	}
	if params.EndDate != nil {
		query = query.Where("created_at <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error

	return orders, total, err
}

type lineItemRepository struct {
	db *gorm.DB
}

// NewLineItemRepository creates a new sale line item repository
func NewLineItemRepository(db *gorm.DB) domainRepo.LineItemRepository {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) Create(ctx context.Context, item *entity.SaleLineItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *lineItemRepository) Update(ctx context.Context, item *entity.SaleLineItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *lineItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SaleLineItem, error) {
	var item entity.SaleLineItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *lineItemRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.SaleLineItem, error) {
	var items []entity.SaleLineItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

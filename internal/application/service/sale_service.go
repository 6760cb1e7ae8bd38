package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/internal/domain/enum"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/internal/domain/settlement"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
	"github.com/mkatsoulis/tillpoint/pkg/pagination"
)

// SaleService handles the sale write path: creating orders under the active
// session, appending/editing/soft-deleting line items, and keeping product
// stock and ledger in step. Stock decrement and line recording are one
// logical unit: a failed decrement prevents the sale, a failed sale restores
// the stock.
type SaleService struct {
	orderRepo    repository.OrderRepository
	lineItemRepo repository.LineItemRepository
	productRepo  repository.ProductRepository
	sessions     *SessionService
	cfg          config.SettlementConfig
}

// NewSaleService creates a new sale service
func NewSaleService(
	orderRepo repository.OrderRepository,
	lineItemRepo repository.LineItemRepository,
	productRepo repository.ProductRepository,
	sessions *SessionService,
	cfg config.SettlementConfig,
) *SaleService {
	return &SaleService{
		orderRepo:    orderRepo,
		lineItemRepo: lineItemRepo,
		productRepo:  productRepo,
		sessions:     sessions,
		cfg:          cfg,
	}
}

// SaleItemInput represents one line of a sale request
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	IsTreat   bool
}

// CreateSaleInput represents the create sale input
type CreateSaleInput struct {
	Items             []SaleItemInput
	CardDiscountCount int
	PaymentMethod     enum.PaymentMethod
}

func (input *CreateSaleInput) validate() error {
	var fieldErrors []apperror.FieldError
	if len(input.Items) == 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{
			Field: "items", Message: "A sale requires at least one line item",
		})
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "Quantity must be positive",
			})
		}
	}
	if input.CardDiscountCount < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{
			Field: "card_discount_count", Message: "Coupon count cannot be negative",
		})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

// CreateSale creates an order with its line items under the active register
// session, opening one if needed. Prices and names are snapshotted from the
// catalog at sale time and never re-read.
func (s *SaleService) CreateSale(ctx context.Context, actorID uuid.UUID, input *CreateSaleInput) (*entity.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetOrCreateActive(ctx, actorID)
	if err != nil {
		return nil, err
	}

	// Batch fetch all products in one query
	productIDs := make([]uuid.UUID, len(input.Items))
	for i, item := range input.Items {
		productIDs[i] = item.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	subtotal := decimal.Zero
	items := make([]entity.SaleLineItem, 0, len(input.Items))
	stockDecrements := make(map[uuid.UUID]int)

	for _, item := range input.Items {
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.IsTreat {
			subtotal = subtotal.Add(total)
		}

		items = append(items, entity.SaleLineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			TotalPrice:  total,
			IsTreat:     item.IsTreat,
		})

		if !product.UnlimitedStock {
			stockDecrements[product.ID] += item.Quantity
		}
	}

	// Atomic, race-safe stock decrement: all lines or none
	failedIDs, err := s.productRepo.AtomicDecrementBatch(ctx, stockDecrements)
	if err != nil {
		return nil, err
	}
	if len(failedIDs) > 0 {
		product := productMap[failedIDs[0]]
		return nil, apperror.NewInsufficientStockError(product.Name)
	}

	discount := settlement.OrderDiscount(input.CardDiscountCount, s.cfg.CouponValue)
	// Excess discount is clamped, not carried over
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	order := &entity.Order{
		RegisterSessionID: session.ID,
		CreatedBy:         actorID,
		Subtotal:          settlement.Round2(subtotal),
		CardDiscountCount: input.CardDiscountCount,
		DiscountAmount:    discount,
		FinalAmount:       settlement.NonNegative(settlement.Round2(subtotal.Sub(discount))),
		PaymentMethod:     input.PaymentMethod,
	}

	// Order and items commit together; a failed sale leaves no orphan row
	if err := s.orderRepo.CreateWithItems(ctx, order, items); err != nil {
		// Stock was already decremented; restore it
		_ = s.productRepo.AtomicIncrementBatch(ctx, stockDecrements)
		return nil, err
	}

	return s.orderRepo.GetWithItems(ctx, order.ID)
}

// AppendLineItem appends a line item to an existing order. Past lines are
// never mutated by an append.
func (s *SaleService) AppendLineItem(ctx context.Context, orderID uuid.UUID, input SaleItemInput) (*entity.Order, error) {
	if input.Quantity <= 0 {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "quantity", Message: "Quantity must be positive"},
		})
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}

	decrements := map[uuid.UUID]int{}
	if !product.UnlimitedStock {
		decrements[product.ID] = input.Quantity
	}
	failedIDs, err := s.productRepo.AtomicDecrementBatch(ctx, decrements)
	if err != nil {
		return nil, err
	}
	if len(failedIDs) > 0 {
		return nil, apperror.NewInsufficientStockError(product.Name)
	}

	item := &entity.SaleLineItem{
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    input.Quantity,
		UnitPrice:   product.Price,
		TotalPrice:  product.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
		IsTreat:     input.IsTreat,
	}
	if err := s.lineItemRepo.Create(ctx, item); err != nil {
		_ = s.productRepo.AtomicIncrementBatch(ctx, decrements)
		return nil, err
	}

	if err := s.refreshOrderTotals(ctx, order); err != nil {
		return nil, err
	}
	return s.orderRepo.GetWithItems(ctx, order.ID)
}

// EditLineItemInput carries the new shape of an edited line
type EditLineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// EditLineItem changes a line's product or quantity within the configured
// edit window. The line's first edit snapshots its original product and
// quantity for the audit trail; stock moves with the edit.
func (s *SaleService) EditLineItem(ctx context.Context, itemID uuid.UUID, input EditLineItemInput) (*entity.Order, error) {
	if input.Quantity <= 0 {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "quantity", Message: "Quantity must be positive"},
		})
	}

	item, err := s.lineItemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NewNotFoundError("Line item")
	}
	if item.IsDeleted {
		return nil, apperror.NewConflictError("Line item has been deleted")
	}
	if time.Since(item.CreatedAt) > s.cfg.EditWindow {
		return nil, apperror.ErrEditWindowExpired
	}

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}

	// Take the new stock before giving the old back, so a failed edit
	// leaves stock untouched
	decrements := map[uuid.UUID]int{}
	if !product.UnlimitedStock {
		decrements[product.ID] = input.Quantity
	}
	failedIDs, err := s.productRepo.AtomicDecrementBatch(ctx, decrements)
	if err != nil {
		return nil, err
	}
	if len(failedIDs) > 0 {
		return nil, apperror.NewInsufficientStockError(product.Name)
	}
	if err := s.productRepo.AtomicIncrementBatch(ctx, map[uuid.UUID]int{item.ProductID: item.Quantity}); err != nil {
		_ = s.productRepo.AtomicIncrementBatch(ctx, decrements)
		return nil, err
	}

	if !item.IsEdited {
		originalProduct := item.ProductID
		originalQuantity := item.Quantity
		item.IsEdited = true
		item.OriginalProductID = &originalProduct
		item.OriginalQuantity = &originalQuantity
	}

	item.ProductID = product.ID
	item.ProductName = product.Name
	item.Quantity = input.Quantity
	item.UnitPrice = product.Price
	item.TotalPrice = product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))

	if err := s.lineItemRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshOrderTotals(ctx, order); err != nil {
		return nil, err
	}
	return s.orderRepo.GetWithItems(ctx, order.ID)
}

// DeleteLineItem soft-deletes a line item and restores its stock. The row
// stays queryable for audit; every aggregate excludes it from here on.
func (s *SaleService) DeleteLineItem(ctx context.Context, itemID uuid.UUID) (*entity.Order, error) {
	item, err := s.lineItemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NewNotFoundError("Line item")
	}
	if item.IsDeleted {
		return nil, apperror.NewConflictError("Line item is already deleted")
	}

	// Restore stock before flagging the line. The increment has no
	// precondition to fail on, so a failed flag update only needs the
	// restored units taken back.
	if err := s.productRepo.AtomicIncrementBatch(ctx, map[uuid.UUID]int{item.ProductID: item.Quantity}); err != nil {
		return nil, err
	}
	item.IsDeleted = true
	if err := s.lineItemRepo.Update(ctx, item); err != nil {
		_, _ = s.productRepo.AtomicDecrementBatch(ctx, map[uuid.UUID]int{item.ProductID: item.Quantity})
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshOrderTotals(ctx, order); err != nil {
		return nil, err
	}
	return s.orderRepo.GetWithItems(ctx, order.ID)
}

// GetSale retrieves an order with its line items
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// ListSales lists orders with filtering
func (s *SaleService) ListSales(ctx context.Context, params *repository.OrderFilterParams) (*pagination.PaginatedResult[entity.Order], error) {
	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(orders, pag), nil
}

// refreshOrderTotals re-derives the order's denormalized totals from its
// current line items, keeping the clamping invariants intact
func (s *SaleService) refreshOrderTotals(ctx context.Context, order *entity.Order) error {
	items, err := s.lineItemRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	subtotal := decimal.Zero
	for i := range items {
		if items[i].Eligible() {
			subtotal = subtotal.Add(items[i].TotalPrice)
		}
	}

	discount := settlement.OrderDiscount(order.CardDiscountCount, s.cfg.CouponValue)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	order.Subtotal = settlement.Round2(subtotal)
	order.DiscountAmount = discount
	order.FinalAmount = settlement.NonNegative(settlement.Round2(subtotal.Sub(discount)))

	return s.orderRepo.Update(ctx, order)
}

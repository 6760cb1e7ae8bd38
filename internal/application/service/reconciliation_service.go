package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/internal/domain/settlement"
	"github.com/mkatsoulis/tillpoint/pkg/apperror"
)

// ReconciliationService rebuilds per-product summaries and order-level totals
// from raw line items. It is the authoritative read path for till-closing
// reports: everything here is a pure transform over already-fetched rows.
type ReconciliationService struct {
	sessionRepo repository.SessionRepository
	orderRepo   repository.OrderRepository
	closingRepo repository.ClosingRepository
	couponValue decimal.Decimal
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	sessionRepo repository.SessionRepository,
	orderRepo repository.OrderRepository,
	closingRepo repository.ClosingRepository,
	couponValue decimal.Decimal,
) *ReconciliationService {
	return &ReconciliationService{
		sessionRepo: sessionRepo,
		orderRepo:   orderRepo,
		closingRepo: closingRepo,
		couponValue: couponValue,
	}
}

// ProductSummary is one per-product bucket of the closing report
type ProductSummary struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	TreatQuantity int             `json:"treat_quantity"`
	IsEdited      bool            `json:"is_edited"`
	IsDeleted     bool            `json:"is_deleted"`
}

// OrderTotals holds the reconciled monetary totals for a set of orders
type OrderTotals struct {
	TotalBeforeDiscounts decimal.Decimal `json:"total_before_discounts"`
	TreatsAmount         decimal.Decimal `json:"treats_amount"`
	CouponCount          int             `json:"coupon_count"`
	CouponAmount         decimal.Decimal `json:"coupon_amount"`
	FinalTotal           decimal.Decimal `json:"final_total"`
}

// OrdersSummary is the full reconciled view over a set of orders
type OrdersSummary struct {
	Products   []ProductSummary `json:"products"`
	Totals     OrderTotals      `json:"totals"`
	OrderCount int              `json:"order_count"`
}

// SessionReport is the till-closing report for one register session
type SessionReport struct {
	Session *entity.RegisterSession `json:"session"`
	Closing *entity.RegisterClosing `json:"closing,omitempty"`
	Summary *OrdersSummary          `json:"summary"`
}

// OrderReceipt is the reconciled view of a single order with line-level
// discount allocation applied
type OrderReceipt struct {
	Order   *entity.Order              `json:"order"`
	Lines   []settlement.AllocatedLine `json:"lines"`
	Summary *OrdersSummary             `json:"summary"`
}

// SummarizeOrders accumulates every non-deleted line item across the given
// orders into per-product buckets and reconciles the order-level totals.
// Deleted lines contribute nothing to any total but still surface their
// bucket, flagged IsDeleted and sorted last, for audit visibility.
func (s *ReconciliationService) SummarizeOrders(orders []entity.Order) *OrdersSummary {
	type bucket struct {
		summary ProductSummary
		deleted bool // saw at least one deleted line
	}

	buckets := make(map[uuid.UUID]*bucket)
	keys := make([]uuid.UUID, 0)

	totals := OrderTotals{
		TotalBeforeDiscounts: decimal.Zero,
		TreatsAmount:         decimal.Zero,
		CouponAmount:         decimal.Zero,
		FinalTotal:           decimal.Zero,
	}

	for oi := range orders {
		order := &orders[oi]
		totals.CouponCount += order.CardDiscountCount

		for li := range order.Items {
			item := &order.Items[li]

			b, ok := buckets[item.ProductID]
			if !ok {
				b = &bucket{summary: ProductSummary{
					ProductID: item.ProductID,
					Name:      item.ProductName,
					Total:     decimal.Zero,
				}}
				buckets[item.ProductID] = b
				keys = append(keys, item.ProductID)
			}
			if item.IsEdited {
				b.summary.IsEdited = true
			}
			if item.IsDeleted {
				b.deleted = true
				continue
			}

			if item.IsTreat {
				b.summary.TreatQuantity += item.Quantity
				totals.TreatsAmount = totals.TreatsAmount.Add(item.TreatValue())
				continue
			}

			b.summary.Quantity += item.Quantity
			b.summary.Total = b.summary.Total.Add(item.TotalPrice)
			totals.TotalBeforeDiscounts = totals.TotalBeforeDiscounts.Add(item.TotalPrice)
		}
	}

	products := make([]ProductSummary, 0, len(keys))
	for _, id := range keys {
		b := buckets[id]
		// A bucket with no remaining quantity but a deletion history stays
		// visible, flagged for audit
		if b.summary.Quantity == 0 && b.summary.TreatQuantity == 0 {
			if !b.deleted {
				continue
			}
			b.summary.IsDeleted = true
		}
		products = append(products, b.summary)
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].IsDeleted != products[j].IsDeleted {
			return !products[i].IsDeleted // deleted-only buckets sort last
		}
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].Name < products[j].Name
	})

	totals.CouponAmount = settlement.OrderDiscount(totals.CouponCount, s.couponValue)
	totals.FinalTotal = settlement.NonNegative(settlement.Round2(
		totals.TotalBeforeDiscounts.Sub(totals.TreatsAmount).Sub(totals.CouponAmount)))

	return &OrdersSummary{
		Products:   products,
		Totals:     totals,
		OrderCount: len(orders),
	}
}

// SessionReport builds the closing report for a session. When the session is
// closed but no RegisterClosing row was recorded, one is synthesized from the
// reconciled summary (zero-filled cash/card breakdown) so downstream code
// never special-cases its absence.
func (s *ReconciliationService) SessionReport(ctx context.Context, sessionID uuid.UUID) (*SessionReport, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFoundError("Register session")
	}

	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := s.SummarizeOrders(orders)

	closing, err := s.closingRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if closing == nil && !session.IsOpen() {
		closing = s.SynthesizeClosing(session, summary)
	}

	return &SessionReport{
		Session: session,
		Closing: closing,
		Summary: summary,
	}, nil
}

// SynthesizeClosing derives a closing row for a closed session that never
// recorded one. Cash/card amounts are zero-filled: the split was not captured
// at close time and is not reconstructed after the fact.
func (s *ReconciliationService) SynthesizeClosing(session *entity.RegisterSession, summary *OrdersSummary) *entity.RegisterClosing {
	closedBy := session.OpenedBy
	if session.ClosedBy != nil {
		closedBy = *session.ClosedBy
	}
	var closedAt time.Time
	if session.ClosedAt != nil {
		closedAt = *session.ClosedAt
	}

	return &entity.RegisterClosing{
		RegisterSessionID:    session.ID,
		ClosedBy:             closedBy,
		OrderCount:           summary.OrderCount,
		TotalBeforeDiscounts: summary.Totals.TotalBeforeDiscounts,
		TreatsAmount:         summary.Totals.TreatsAmount,
		CouponCount:          summary.Totals.CouponCount,
		CouponAmount:         summary.Totals.CouponAmount,
		FinalTotal:           summary.Totals.FinalTotal,
		CashAmount:           decimal.Zero,
		CardAmount:           decimal.Zero,
		Notes:                session.Notes,
		CreatedAt:            closedAt,
		Synthesized:          true,
	}
}

// OrderReceipt builds the reconciled view of a single order with the coupon
// discount redistributed across its lines
func (s *ReconciliationService) OrderReceipt(ctx context.Context, orderID uuid.UUID) (*OrderReceipt, error) {
	order, err := s.orderRepo.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}

	return &OrderReceipt{
		Order:   order,
		Lines:   settlement.Allocate(order.Items, order.CardDiscountCount, s.couponValue),
		Summary: s.SummarizeOrders([]entity.Order{*order}),
	}, nil
}

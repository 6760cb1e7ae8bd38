package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkatsoulis/tillpoint/internal/config"
	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
	"github.com/mkatsoulis/tillpoint/internal/domain/repository"
	"github.com/mkatsoulis/tillpoint/internal/domain/settlement"
)

// dayKeyFormat is the canonical day-bucket key. Locale-aware formatting is a
// presentation concern; the core only emits sortable day keys.
const dayKeyFormat = "2006-01-02"

// Value keys accepted by AggregateByDate
const (
	ValueKeyQuantity = "quantity"
	ValueKeyTotal    = "total"
)

// StatisticsService produces time-series and category-series rollups across
// many sessions for dashboards. Unlike the reconciliation aggregator, its
// cash/card split distributes each order's coupon discount once per order,
// not per line. Both granularities are deliberate and cross-checked in tests.
type StatisticsService struct {
	orderRepo repository.OrderRepository
	cfg       config.SettlementConfig
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(orderRepo repository.OrderRepository, cfg config.SettlementConfig) *StatisticsService {
	return &StatisticsService{
		orderRepo: orderRepo,
		cfg:       cfg,
	}
}

// DailyPoint is one day bucket of a time series
type DailyPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// ProductPoint is one product bucket of a category rollup
type ProductPoint struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// SalesStats is the cash/card revenue split over a set of orders
type SalesStats struct {
	CashOrderCount int             `json:"cash_order_count"`
	CardOrderCount int             `json:"card_order_count"`
	CashRevenue    decimal.Decimal `json:"cash_revenue"`
	CardRevenue    decimal.Decimal `json:"card_revenue"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	CouponCount    int             `json:"coupon_count"`
	CouponAmount   decimal.Decimal `json:"coupon_amount"`
	TreatQuantity  int             `json:"treat_quantity"`
	TreatsAmount   decimal.Decimal `json:"treats_amount"`
}

// DashboardStats is the dashboard payload for a date range
type DashboardStats struct {
	Stats            SalesStats     `json:"stats"`
	RevenueByDay     []DailyPoint   `json:"revenue_by_day"`
	QuantityByDay    []DailyPoint   `json:"quantity_by_day"`
	CategoryProducts []ProductPoint `json:"category_products,omitempty"`
}

// AggregateByDate groups eligible (non-deleted, non-treat) lines by calendar
// day, summing either quantity or total price with per-step 2-decimal
// rounding, sorted ascending by date and truncated to the most recent
// configured number of days
func (s *StatisticsService) AggregateByDate(lines []entity.SaleLineItem, valueKey string) []DailyPoint {
	sums := make(map[string]decimal.Decimal)
	for i := range lines {
		if !lines[i].Eligible() {
			continue
		}
		key := lines[i].CreatedAt.Format(dayKeyFormat)

		var v decimal.Decimal
		if valueKey == ValueKeyQuantity {
			v = decimal.NewFromInt(int64(lines[i].Quantity))
		} else {
			v = lines[i].TotalPrice
		}
		sums[key] = settlement.Round2(sums[key].Add(v))
	}

	points := make([]DailyPoint, 0, len(sums))
	for key, value := range sums {
		points = append(points, DailyPoint{Date: key, Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	if n := s.cfg.DailyStatsDays; n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	return points
}

// AggregateByCategory groups eligible, non-treat lines whose product belongs
// to the given category by product name, sorted by quantity descending and
// truncated to the configured top count
func (s *StatisticsService) AggregateByCategory(lines []entity.SaleLineItem, categoryName string) []ProductPoint {
	sums := make(map[string]*ProductPoint)
	names := make([]string, 0)

	for i := range lines {
		if !lines[i].Eligible() {
			continue
		}
		if lines[i].Product == nil || lines[i].Product.Category == nil {
			continue
		}
		if lines[i].Product.Category.Name != categoryName {
			continue
		}

		name := lines[i].ProductName
		p, ok := sums[name]
		if !ok {
			p = &ProductPoint{Name: name, Total: decimal.Zero}
			sums[name] = p
			names = append(names, name)
		}
		p.Quantity += lines[i].Quantity
		p.Total = settlement.Round2(p.Total.Add(lines[i].TotalPrice))
	}

	points := make([]ProductPoint, 0, len(names))
	for _, name := range names {
		points = append(points, *sums[name])
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Quantity != points[j].Quantity {
			return points[i].Quantity > points[j].Quantity
		}
		return points[i].Name < points[j].Name
	})

	if k := s.cfg.TopProducts; k > 0 && len(points) > k {
		points = points[:k]
	}
	return points
}

// CalculateStats splits orders into a cash bucket (no coupons redeemed) and a
// card bucket (coupons redeemed) and sums per-order net revenue. The coupon
// discount is applied once per order here; the per-line redistribution of the
// discount allocator is a reporting view and never feeds these sums.
func (s *StatisticsService) CalculateStats(orders []entity.Order) SalesStats {
	stats := SalesStats{
		CashRevenue:  decimal.Zero,
		CardRevenue:  decimal.Zero,
		TotalRevenue: decimal.Zero,
		CouponAmount: decimal.Zero,
		TreatsAmount: decimal.Zero,
	}

	for i := range orders {
		order := &orders[i]

		eligibleTotal := decimal.Zero
		treatValue := decimal.Zero
		for li := range order.Items {
			item := &order.Items[li]
			if item.IsDeleted {
				continue
			}
			if item.IsTreat {
				stats.TreatQuantity += item.Quantity
				treatValue = treatValue.Add(item.TreatValue())
				continue
			}
			eligibleTotal = eligibleTotal.Add(item.TotalPrice)
		}
		stats.TreatsAmount = settlement.Round2(stats.TreatsAmount.Add(treatValue))

		discount := settlement.OrderDiscount(order.CardDiscountCount, s.cfg.CouponValue)
		revenue := settlement.NonNegative(settlement.Round2(
			eligibleTotal.Sub(treatValue).Sub(discount)))

		if order.CardDiscountCount > 0 {
			stats.CardOrderCount++
			stats.CouponCount += order.CardDiscountCount
			stats.CouponAmount = stats.CouponAmount.Add(discount)
			stats.CardRevenue = stats.CardRevenue.Add(revenue)
		} else {
			stats.CashOrderCount++
			stats.CashRevenue = stats.CashRevenue.Add(revenue)
		}
	}

	stats.TotalRevenue = stats.CashRevenue.Add(stats.CardRevenue)
	return stats
}

// Dashboard fetches the orders of a date range and produces the full
// dashboard payload. When categoryName is empty the category series is
// omitted.
func (s *StatisticsService) Dashboard(ctx context.Context, from, to time.Time, categoryName string) (*DashboardStats, error) {
	orders, err := s.orderRepo.ListWithItemsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	lines := make([]entity.SaleLineItem, 0)
	for i := range orders {
		lines = append(lines, orders[i].Items...)
	}

	stats := &DashboardStats{
		Stats:         s.CalculateStats(orders),
		RevenueByDay:  s.AggregateByDate(lines, ValueKeyTotal),
		QuantityByDay: s.AggregateByDate(lines, ValueKeyQuantity),
	}
	if categoryName != "" {
		stats.CategoryProducts = s.AggregateByCategory(lines, categoryName)
	}
	return stats, nil
}

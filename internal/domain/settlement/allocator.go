package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/mkatsoulis/tillpoint/internal/domain/entity"
)

// AllocatedLine is a line item view carrying its share of an order-level
// discount. TotalPrice holds the adjusted total; OriginalTotalPrice the
// pre-discount total the line was created with.
type AllocatedLine struct {
	entity.SaleLineItem
	OriginalTotalPrice decimal.Decimal `json:"original_total_price"`
	Discount           decimal.Decimal `json:"discount"`
}

// Allocate distributes an order's coupon discount across its eligible line
// items proportionally to their share of the eligible total. Treat and
// deleted lines pass through unchanged and do not absorb any discount.
//
// The function is pure: input lines are never mutated. When the eligible
// total is zero (all lines are treats, or the order is empty) the discount is
// not distributed and every line comes back unchanged.
//
// Because each line's share is independently rounded to cents, the per-line
// discounts are not guaranteed to sum to the order discount exactly. Callers
// that need strict ledger balance use AllocateExact.
func Allocate(lines []entity.SaleLineItem, couponCount int, perCouponValue decimal.Decimal) []AllocatedLine {
	out := passthrough(lines)

	orderDiscount := OrderDiscount(couponCount, perCouponValue)
	if orderDiscount.IsZero() {
		return out
	}

	eligibleTotal := decimal.Zero
	for i := range lines {
		if lines[i].Eligible() {
			eligibleTotal = eligibleTotal.Add(lines[i].TotalPrice)
		}
	}
	if eligibleTotal.IsZero() {
		return out
	}

	for i := range out {
		if !out[i].Eligible() {
			continue
		}
		ratio := ShareRatio(out[i].OriginalTotalPrice, eligibleTotal)
		lineDiscount := Round2(orderDiscount.Mul(ratio))
		out[i].Discount = lineDiscount
		out[i].TotalPrice = NonNegative(Round2(out[i].OriginalTotalPrice.Sub(lineDiscount)))
	}
	return out
}

// AllocateExact behaves like Allocate but assigns the rounding remainder to
// the last eligible line (largest-remainder fix) so that the per-line
// discounts sum to the order discount exactly.
func AllocateExact(lines []entity.SaleLineItem, couponCount int, perCouponValue decimal.Decimal) []AllocatedLine {
	out := Allocate(lines, couponCount, perCouponValue)

	orderDiscount := OrderDiscount(couponCount, perCouponValue)
	if orderDiscount.IsZero() {
		return out
	}

	allocated := decimal.Zero
	last := -1
	for i := range out {
		if out[i].Eligible() {
			allocated = allocated.Add(out[i].Discount)
			last = i
		}
	}
	if last < 0 {
		return out
	}

	remainder := orderDiscount.Sub(allocated)
	if remainder.IsZero() {
		return out
	}

	out[last].Discount = out[last].Discount.Add(remainder)
	out[last].TotalPrice = NonNegative(Round2(out[last].OriginalTotalPrice.Sub(out[last].Discount)))
	return out
}

// passthrough copies lines into allocated views with a zero discount
func passthrough(lines []entity.SaleLineItem) []AllocatedLine {
	out := make([]AllocatedLine, len(lines))
	for i := range lines {
		out[i] = AllocatedLine{
			SaleLineItem:       lines[i],
			OriginalTotalPrice: lines[i].TotalPrice,
			Discount:           decimal.Zero,
		}
	}
	return out
}

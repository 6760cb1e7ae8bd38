package settlement

import "github.com/shopspring/decimal"

// Monetary amounts are rounded to 2 decimal places, share ratios to 6.
// All rounding is half-away-from-zero decimal rounding, never float math.

// Round2 rounds a monetary amount to cents
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ShareRatio returns part/whole rounded to 6 decimal places
func ShareRatio(part, whole decimal.Decimal) decimal.Decimal {
	return part.DivRound(whole, 6)
}

// NonNegative clamps a monetary amount at zero
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// OrderDiscount returns the order-level discount for a number of redeemed
// coupons at a fixed per-coupon value
func OrderDiscount(couponCount int, perCouponValue decimal.Decimal) decimal.Decimal {
	if couponCount <= 0 {
		return decimal.Zero
	}
	return Round2(perCouponValue.Mul(decimal.NewFromInt(int64(couponCount))))
}

package coupons

import (
	"math"
	"time"
)

// Eligible checks the redemption predicate. The usage-limit check here is a
// soft gate: two in-flight orders can both pass it before either commits,
// so usage may exceed the limit by a small margin. That is the contract.
func (c *Coupon) Eligible(subtotal float64, now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return false
	}
	return subtotal >= c.MinimumOrderAmount
}

// ComputeDiscount returns the discount for an eligible coupon, 0 otherwise.
// Percentage discounts are capped at MaximumDiscount when positive; every
// discount is clamped to the subtotal and rounded half-up at the cent.
func ComputeDiscount(c *Coupon, subtotal float64, now time.Time) float64 {
	if c == nil || !c.Eligible(subtotal, now) {
		return 0
	}

	var discount float64
	switch c.Type {
	case TypePercentage:
		discount = c.Value / 100 * subtotal
		if c.MaximumDiscount > 0 && discount > c.MaximumDiscount {
			discount = c.MaximumDiscount
		}
	case TypeFixedAmount:
		discount = c.Value
	default:
		return 0
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return round2(discount)
}

func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

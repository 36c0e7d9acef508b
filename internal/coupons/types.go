package coupons

import "time"

// Discount types
const (
	TypePercentage  = "percentage"
	TypeFixedAmount = "fixed_amount"
)

// StatusActive is the only status eligible for redemption.
const StatusActive = "active"

// Coupon is the promotional record, keyed by tenant + coupon id with a
// secondary lookup by uppercase code in the codes table.
type Coupon struct {
	TenantID           string     `dynamodbav:"tenant_id"` // PK
	CouponID           string     `dynamodbav:"coupon_id"` // SK
	Code               string     `dynamodbav:"code"`      // uppercase
	Type               string     `dynamodbav:"type"`      // percentage | fixed_amount
	Value              float64    `dynamodbav:"value"`
	MaximumDiscount    float64    `dynamodbav:"maximum_discount,omitempty"` // percentage type only
	MinimumOrderAmount float64    `dynamodbav:"minimum_order_amount"`
	ValidFrom          *time.Time `dynamodbav:"valid_from,omitempty"`
	ValidUntil         *time.Time `dynamodbav:"valid_until,omitempty"`
	UsageLimit         int        `dynamodbav:"usage_limit"` // 0 = unlimited
	UsageCount         int        `dynamodbav:"usage_count"`
	Status             string     `dynamodbav:"status"`
}

// codeEntry is the code -> coupon id mapping item.
type codeEntry struct {
	TenantID string `dynamodbav:"tenant_id"` // PK
	Code     string `dynamodbav:"code"`      // SK, uppercase
	CouponID string `dynamodbav:"coupon_id"`
}

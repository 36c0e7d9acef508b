package orders

import (
	"math"
	"time"

	"github.com/atelierline/storefront-orders/internal/customers"
)

// Order statuses
const (
	StatusPlaced    = "placed"
	StatusConfirmed = "confirmed"
	StatusPrepared  = "prepared"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
	StatusAnnulled  = "annulled"
)

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment methods
const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentBankTransfer   = "bank_transfer"
)

// forward transitions; cancelled/annulled are reachable from any non-terminal state
var transitions = map[string][]string{
	StatusPlaced:    {StatusConfirmed},
	StatusConfirmed: {StatusPrepared},
	StatusPrepared:  {StatusShipped},
	StatusShipped:   {StatusDelivered},
}

// IsTerminal reports whether no further transitions are allowed from status.
func IsTerminal(status string) bool {
	switch status {
	case StatusDelivered, StatusCancelled, StatusAnnulled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusCancelled || to == StatusAnnulled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Personalization is a resolved line-item customization with its cost snapshot.
type Personalization struct {
	ID    string  `dynamodbav:"id,omitempty" json:"id,omitempty"`
	Label string  `dynamodbav:"label,omitempty" json:"label,omitempty"`
	Value string  `dynamodbav:"value,omitempty" json:"value,omitempty"`
	Cost  float64 `dynamodbav:"cost" json:"cost"`
}

// LineItem is one validated product line with price snapshots taken at placement time.
type LineItem struct {
	ProductID        string            `dynamodbav:"product_id" json:"productId"`
	Title            string            `dynamodbav:"title" json:"title"`
	Quantity         int               `dynamodbav:"quantity" json:"quantity"`
	UnitPrice        float64           `dynamodbav:"unit_price" json:"unitPrice"`
	LineTotal        float64           `dynamodbav:"line_total" json:"lineTotal"`
	SelectedVariant  string            `dynamodbav:"selected_variant,omitempty" json:"selectedVariant,omitempty"`
	Personalizations []Personalization `dynamodbav:"personalizations,omitempty" json:"personalizations,omitempty"`
	Image            string            `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// StatusEntry is one append-only status history record.
type StatusEntry struct {
	Status    string    `dynamodbav:"status" json:"status"`
	Timestamp time.Time `dynamodbav:"timestamp" json:"timestamp"`
	Note      string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
}

// Order is the primary record of the commit transaction.
// Invariant: Total == Subtotal + ShippingCost - CouponDiscount.
type Order struct {
	TenantID              string                    `dynamodbav:"tenant_id"` // PK
	OrderID               string                    `dynamodbav:"order_id"`  // SK
	OrderNumber           string                    `dynamodbav:"order_number"`
	Items                 []LineItem                `dynamodbav:"items"`
	CustomerEmail         string                    `dynamodbav:"customer_email"` // lowercase
	CustomerName          string                    `dynamodbav:"customer_name"`
	CustomerPhone         string                    `dynamodbav:"customer_phone,omitempty"`
	ShippingAddress       *customers.Address        `dynamodbav:"shipping_address,omitempty"`
	BillingDetails        *customers.BillingDetails `dynamodbav:"billing_details,omitempty"`
	PaymentMethod         string                    `dynamodbav:"payment_method"`
	RequestedDeliveryDate string                    `dynamodbav:"requested_delivery_date,omitempty"`
	Subtotal              float64                   `dynamodbav:"subtotal"`
	ShippingCost          float64                   `dynamodbav:"shipping_cost"`
	CouponCode            string                    `dynamodbav:"coupon_code,omitempty"`
	CouponID              string                    `dynamodbav:"coupon_id,omitempty"`
	CouponDiscount        float64                   `dynamodbav:"coupon_discount"`
	Total                 float64                   `dynamodbav:"total"`
	Currency              string                    `dynamodbav:"currency"`
	Status                string                    `dynamodbav:"status"`
	PaymentStatus         string                    `dynamodbav:"payment_status"`
	TrackingNumber        string                    `dynamodbav:"tracking_number,omitempty"`
	Note                  string                    `dynamodbav:"note,omitempty"`
	StatusHistory         []StatusEntry             `dynamodbav:"status_history"`
	CreatedAt             time.Time                 `dynamodbav:"created_at"`
	UpdatedAt             time.Time                 `dynamodbav:"updated_at"`
}

// IndexEntry is the lightweight customer-order listing record, keyed by
// (customer email, order id) so "my orders" never scans full order bodies.
type IndexEntry struct {
	TenantID    string    `dynamodbav:"tenant_id"` // PK
	SK          string    `dynamodbav:"sk"`        // email#order_id
	OrderID     string    `dynamodbav:"order_id"`
	OrderNumber string    `dynamodbav:"order_number"`
	Email       string    `dynamodbav:"email"`
	Total       float64   `dynamodbav:"total"`
	Status      string    `dynamodbav:"status"`
	PlacedAt    time.Time `dynamodbav:"placed_at"`
}

// RoundMoney rounds to 2 decimal places, half-up at the cent.
func RoundMoney(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

package notify

import (
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

const defaultBody = `Hello {{customer_name}},

Your order {{order_number}} at {{site_name}} is now: {{status_label}}.

Items:
{{items}}

Subtotal: {{subtotal}}
Shipping: {{shipping_cost}}
Discount: {{coupon_discount}}
Total: {{total}}

Payment: {{payment_method}}
Delivery date: {{delivery_date}}
Shipping address: {{shipping_address}}

Thank you,
{{site_name}}`

const shippedBody = `Hello {{customer_name}},

Good news! Your order {{order_number}} has been shipped.

Tracking number: {{tracking_number}}

Items:
{{items}}

Total: {{total}}

Thank you,
{{site_name}}`

// defaultTemplates are the built-in per-status templates used when a tenant
// has not configured an override.
var defaultTemplates = map[string]tenant.EmailTemplate{
	orders.StatusPlaced: {
		Subject:          "Order {{order_number}} received - {{site_name}}",
		Body:             defaultBody,
		SendToCustomer:   true,
		SendToAdmin:      true,
		SendToProcessing: true,
	},
	orders.StatusConfirmed: {
		Subject:        "Order {{order_number}} confirmed - {{site_name}}",
		Body:           defaultBody,
		SendToCustomer: true,
	},
	orders.StatusPrepared: {
		Subject:          "Order {{order_number}} is being prepared - {{site_name}}",
		Body:             defaultBody,
		SendToProcessing: true,
	},
	orders.StatusShipped: {
		Subject:        "Order {{order_number}} shipped - {{site_name}}",
		Body:           shippedBody,
		SendToCustomer: true,
	},
	orders.StatusDelivered: {
		Subject:        "Order {{order_number}} delivered - {{site_name}}",
		Body:           defaultBody,
		SendToCustomer: true,
	},
	orders.StatusCancelled: {
		Subject:        "Order {{order_number}} cancelled - {{site_name}}",
		Body:           defaultBody,
		SendToCustomer: true,
		SendToAdmin:    true,
	},
	orders.StatusAnnulled: {
		Subject:     "Order {{order_number}} annulled - {{site_name}}",
		Body:        defaultBody,
		SendToAdmin: true,
	},
}

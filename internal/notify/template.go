package notify

import (
	"fmt"
	"strings"

	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

// Placeholder names accepted in subject and body, written as {{name}}:
// order_number, customer_name, customer_email, customer_phone, status_label,
// tracking_number, items, subtotal, total, currency, shipping_cost,
// coupon_discount, payment_method, delivery_date, shipping_address, note,
// site_name.

var statusLabels = map[string]string{
	orders.StatusPlaced:    "Placed",
	orders.StatusConfirmed: "Confirmed",
	orders.StatusPrepared:  "Prepared",
	orders.StatusShipped:   "Shipped",
	orders.StatusDelivered: "Delivered",
	orders.StatusCancelled: "Cancelled",
	orders.StatusAnnulled:  "Annulled",
}

var paymentLabels = map[string]string{
	orders.PaymentCashOnDelivery: "Cash on delivery",
	orders.PaymentBankTransfer:   "Bank transfer",
}

// ResolveTemplate returns the tenant's template for a status, falling back
// to the built-in default for that status.
func ResolveTemplate(cfg *tenant.Config, status string) tenant.EmailTemplate {
	if cfg != nil {
		if t, ok := cfg.EmailTemplates[status]; ok && (t.Subject != "" || t.Body != "") {
			return t
		}
	}
	if t, ok := defaultTemplates[status]; ok {
		return t
	}
	return defaultTemplates[orders.StatusPlaced]
}

// Vars builds the placeholder substitution set for an order.
func Vars(o *orders.Order, siteName string) map[string]string {
	shipping := fmt.Sprintf("%.2f %s", o.ShippingCost, o.Currency)
	if o.ShippingCost == 0 {
		shipping = "Free"
	}
	discount := ""
	if o.CouponDiscount > 0 {
		discount = fmt.Sprintf("%.2f %s", o.CouponDiscount, o.Currency)
	}

	return map[string]string{
		"order_number":     o.OrderNumber,
		"customer_name":    o.CustomerName,
		"customer_email":   o.CustomerEmail,
		"customer_phone":   o.CustomerPhone,
		"status_label":     statusLabels[o.Status],
		"tracking_number":  o.TrackingNumber,
		"items":            formatItems(o.Items),
		"subtotal":         fmt.Sprintf("%.2f %s", o.Subtotal, o.Currency),
		"total":            fmt.Sprintf("%.2f %s", o.Total, o.Currency),
		"currency":         o.Currency,
		"shipping_cost":    shipping,
		"coupon_discount":  discount,
		"payment_method":   paymentLabels[o.PaymentMethod],
		"delivery_date":    o.RequestedDeliveryDate,
		"shipping_address": formatAddress(o),
		"note":             o.Note,
		"site_name":        siteName,
	}
}

// Render substitutes the placeholder set into a template's subject and body.
func Render(t tenant.EmailTemplate, vars map[string]string) (subject, body string) {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body)
}

// InternalAppendix is the raw contact/address/notes block attached to the
// admin and processing copies, never to the customer copy.
func InternalAppendix(o *orders.Order) string {
	var b strings.Builder
	b.WriteString("\n\n--- Internal Details ---\n")
	fmt.Fprintf(&b, "Customer: %s <%s> %s\n", o.CustomerName, o.CustomerEmail, o.CustomerPhone)
	if o.ShippingAddress != nil {
		fmt.Fprintf(&b, "Address: %s\n", formatAddress(o))
		if o.ShippingAddress.DeliveryNotes != "" {
			fmt.Fprintf(&b, "Delivery notes: %s\n", o.ShippingAddress.DeliveryNotes)
		}
	}
	fmt.Fprintf(&b, "Payment: %s (%s)\n", paymentLabels[o.PaymentMethod], o.PaymentStatus)
	if o.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", o.Note)
	}
	return b.String()
}

// Recipients resolves the delivery lists for a rendered template: the
// customer copy and the internal copy (admin and processing, deduplicated).
func Recipients(t tenant.EmailTemplate, o *orders.Order, cfg *tenant.Config) (customer, internal []string) {
	if t.SendToCustomer && o.CustomerEmail != "" {
		customer = append(customer, o.CustomerEmail)
	}
	seen := map[string]bool{}
	if t.SendToAdmin && cfg.AdminEmail != "" {
		internal = append(internal, cfg.AdminEmail)
		seen[cfg.AdminEmail] = true
	}
	if t.SendToProcessing && cfg.ProcessingEmail != "" && !seen[cfg.ProcessingEmail] {
		internal = append(internal, cfg.ProcessingEmail)
	}
	return customer, internal
}

func formatItems(items []orders.LineItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %dx %s", it.Quantity, it.Title)
		if it.SelectedVariant != "" {
			fmt.Fprintf(&b, " (%s)", it.SelectedVariant)
		}
		for _, p := range it.Personalizations {
			label := p.Label
			if label == "" {
				label = p.ID
			}
			fmt.Fprintf(&b, " [%s: %s]", label, p.Value)
		}
		fmt.Fprintf(&b, " = %.2f\n", it.LineTotal)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAddress(o *orders.Order) string {
	a := o.ShippingAddress
	if a == nil {
		return ""
	}
	parts := []string{a.Street, a.City, a.County, a.PostalCode, a.Country}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

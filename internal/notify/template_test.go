package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelierline/storefront-orders/internal/customers"
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

func sampleOrder() *orders.Order {
	return &orders.Order{
		OrderNumber:   "ATL-0042",
		CustomerEmail: "maria@example.com",
		CustomerName:  "Maria Pop",
		CustomerPhone: "+40711111111",
		Items: []orders.LineItem{
			{Title: "Mug", Quantity: 2, LineTotal: 60, SelectedVariant: "Red"},
			{Title: "Frame", Quantity: 1, LineTotal: 80},
		},
		ShippingAddress: &customers.Address{
			Street: "Str. Lunga 10", City: "Cluj-Napoca", County: "Cluj", Country: "Romania",
			DeliveryNotes: "ring twice",
		},
		PaymentMethod: orders.PaymentCashOnDelivery,
		Subtotal:      140,
		ShippingCost:  15,
		Total:         155,
		Currency:      "RON",
		Status:        orders.StatusPlaced,
		PaymentStatus: orders.PaymentPending,
		CreatedAt:     time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	o := sampleOrder()
	tmpl := ResolveTemplate(nil, orders.StatusPlaced)
	subject, body := Render(tmpl, Vars(o, "Atelier Line"))

	require.Contains(t, subject, "ATL-0042")
	require.Contains(t, subject, "Atelier Line")
	require.Contains(t, body, "Maria Pop")
	require.Contains(t, body, "2x Mug (Red)")
	require.Contains(t, body, "140.00 RON")
	require.Contains(t, body, "155.00 RON")
	require.Contains(t, body, "Cash on delivery")
	require.NotContains(t, body, "{{")
}

func TestVars_FreeShippingAndBlankDiscount(t *testing.T) {
	o := sampleOrder()
	o.ShippingCost = 0
	o.CouponDiscount = 0

	vars := Vars(o, "Atelier Line")
	require.Equal(t, "Free", vars["shipping_cost"])
	require.Equal(t, "", vars["coupon_discount"])
}

func TestVars_DiscountShownWhenPositive(t *testing.T) {
	o := sampleOrder()
	o.CouponDiscount = 30

	vars := Vars(o, "Atelier Line")
	require.Equal(t, "30.00 RON", vars["coupon_discount"])
}

func TestResolveTemplate_TenantOverrideWins(t *testing.T) {
	cfg := &tenant.Config{
		EmailTemplates: map[string]tenant.EmailTemplate{
			orders.StatusPlaced: {Subject: "custom {{order_number}}", Body: "hi", SendToCustomer: true},
		},
	}

	tmpl := ResolveTemplate(cfg, orders.StatusPlaced)
	require.Equal(t, "custom {{order_number}}", tmpl.Subject)

	// statuses without an override fall back to the defaults
	tmpl = ResolveTemplate(cfg, orders.StatusShipped)
	require.Contains(t, tmpl.Subject, "shipped")
}

func TestInternalAppendix(t *testing.T) {
	o := sampleOrder()
	appendix := InternalAppendix(o)

	require.Contains(t, appendix, "Internal Details")
	require.Contains(t, appendix, "maria@example.com")
	require.Contains(t, appendix, "ring twice")
}

func TestRecipients(t *testing.T) {
	o := sampleOrder()
	cfg := &tenant.Config{AdminEmail: "admin@shop.ro", ProcessingEmail: "ops@shop.ro"}

	tmpl := tenant.EmailTemplate{SendToCustomer: true, SendToAdmin: true, SendToProcessing: true}
	customer, internal := Recipients(tmpl, o, cfg)
	require.Equal(t, []string{"maria@example.com"}, customer)
	require.Equal(t, []string{"admin@shop.ro", "ops@shop.ro"}, internal)

	// same admin and processing address is deduplicated
	cfg.ProcessingEmail = "admin@shop.ro"
	_, internal = Recipients(tmpl, o, cfg)
	require.Equal(t, []string{"admin@shop.ro"}, internal)

	// flags off, no recipients
	customer, internal = Recipients(tenant.EmailTemplate{}, o, cfg)
	require.Empty(t, customer)
	require.Empty(t, internal)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"

	"github.com/atelierline/storefront-orders/internal/awstest"
	"github.com/atelierline/storefront-orders/internal/catalog"
	"github.com/atelierline/storefront-orders/internal/coupons"
	"github.com/atelierline/storefront-orders/internal/customers"
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	dynamo *awstest.Dynamo
	sqs    *awstest.SQS
	cw     *awstest.CloudWatch
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dynamo := awstest.NewDynamo(map[string][]string{
		"products":        {"tenant_id", "product_id"},
		"tenant-config":   {"tenant_id"},
		"delivery-config": {"tenant_id"},
		"coupons":         {"tenant_id", "coupon_id"},
		"coupon-codes":    {"tenant_id", "code"},
		"order-counters":  {"tenant_id"},
		"orders":          {"tenant_id", "order_id"},
		"customer-orders": {"tenant_id", "sk"},
		"customers":       {"tenant_id", "email"},
		"idempotency":     {"tenant_id", "idempotency_key"},
	})
	sqsFake := &awstest.SQS{}
	cwFake := &awstest.CloudWatch{}

	r := gin.New()
	RegisterOrdersRoutes(r, HandlerConfig{
		DynamoDBClient:   dynamo,
		SQSClient:        sqsFake,
		CloudWatchClient: cwFake,

		ProductsTable:       "products",
		TenantConfigTable:   "tenant-config",
		DeliveryConfigTable: "delivery-config",
		CouponsTable:        "coupons",
		CouponCodesTable:    "coupon-codes",
		CountersTable:       "order-counters",
		OrdersTable:         "orders",
		OrdersIndexTable:    "customer-orders",
		CustomersTable:      "customers",
		IdempotencyTable:    "idempotency",

		QueueURL: "http://queue.local/notifications",
	})

	env := &testEnv{dynamo: dynamo, sqs: sqsFake, cw: cwFake, router: r}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	seedItem := func(table string, v interface{}) {
		item, err := attributevalue.MarshalMap(v)
		if err != nil {
			t.Fatalf("marshal seed for %s: %v", table, err)
		}
		e.dynamo.Seed(table, item)
	}

	seedItem("tenant-config", tenant.Config{
		TenantID:    "t1",
		SiteName:    "Atelier Line",
		Currency:    "RON",
		OrderPrefix: "ATL",
		AdminEmail:  "admin@atelierline.ro",
	})
	seedItem("delivery-config", tenant.DeliveryConfig{
		TenantID:              "t1",
		FreeDeliveryThreshold: 200,
		ShippingCost:          15,
		RestrictZones:         true,
		AllowedCountries:      []string{"Romania"},
	})
	seedItem("products", catalog.Product{
		TenantID: "t1", ProductID: "p1", Title: "Mug", Price: 90,
	})
	seedItem("products", catalog.Product{
		TenantID: "t1", ProductID: "p2", Title: "Frame", Price: 100,
		PersonalizationOptions: []catalog.PersonalizationOption{
			{ID: "engraving", Label: "Engraving", AddedCost: 10},
		},
	})
	seedItem("coupons", coupons.Coupon{
		TenantID: "t1", CouponID: "c1", Code: "SUMMER20", Status: coupons.StatusActive,
		Type: coupons.TypePercentage, Value: 20, MaximumDiscount: 30,
	})
	e.dynamo.Seed("coupon-codes", mustMarshal(t, map[string]string{
		"tenant_id": "t1", "code": "SUMMER20", "coupon_id": "c1",
	}))
	seedItem("coupons", coupons.Coupon{
		TenantID: "t1", CouponID: "c2", Code: "EXHAUSTED", Status: coupons.StatusActive,
		Type: coupons.TypeFixedAmount, Value: 10, UsageLimit: 5, UsageCount: 5,
	})
	e.dynamo.Seed("coupon-codes", mustMarshal(t, map[string]string{
		"tenant_id": "t1", "code": "EXHAUSTED", "coupon_id": "c2",
	}))
}

func mustMarshal(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return item
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "t1")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func validRequest() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": "p1", "quantity": 2},
		},
		"customerEmail": "Maria@Example.com",
		"customerName":  "Maria Pop",
		"paymentMethod": "cash_on_delivery",
		"shippingAddress": map[string]interface{}{
			"street":  "Str. Lunga 10",
			"city":    "Cluj-Napoca",
			"county":  "Cluj",
			"country": "Romania",
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPlaceOrder_FlatShippingBelowThreshold(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/orders", validRequest())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["orderNumber"] != "ATL-0001" {
		t.Fatalf("expected ATL-0001, got %v", resp["orderNumber"])
	}

	orderID := resp["orderId"].(string)
	var o orders.Order
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("orders", "t1", orderID), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	// subtotal 180 is under the 200 threshold: flat 15 shipping applies
	if o.Subtotal != 180 || o.ShippingCost != 15 || o.Total != 195 {
		t.Fatalf("unexpected amounts: subtotal=%v shipping=%v total=%v", o.Subtotal, o.ShippingCost, o.Total)
	}
	if o.Total != o.Subtotal+o.ShippingCost-o.CouponDiscount {
		t.Fatalf("total invariant broken: %+v", o)
	}
	if o.CustomerEmail != "maria@example.com" {
		t.Fatalf("email not normalized: %q", o.CustomerEmail)
	}

	// notification job and metrics fan out in the background
	waitFor(t, "notification publish", func() bool { return len(env.sqs.Sent()) == 1 })

	var cust customers.Customer
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("customers", "t1", "maria@example.com"), &cust); err != nil {
		t.Fatalf("unmarshal customer: %v", err)
	}
	if cust.OrderCount != 1 || cust.TotalSpent != 195 || cust.LoyaltyPoints != 195 {
		t.Fatalf("unexpected customer counters: %+v", cust)
	}
}

func TestPlaceOrder_FreeShippingAboveThreshold(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["items"] = []map[string]interface{}{
		{"productId": "p1", "quantity": 2},
		{"productId": "p2", "quantity": 1},
	}

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)

	var o orders.Order
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("orders", "t1", resp["orderId"].(string)), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	// subtotal 280 >= 200: free shipping
	if o.Subtotal != 280 || o.ShippingCost != 0 || o.Total != 280 {
		t.Fatalf("unexpected amounts: %+v", o)
	}
}

func TestPlaceOrder_ClientPricesIgnored(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	// a hostile client submitting its own price fields changes nothing
	req["items"] = []map[string]interface{}{
		{"productId": "p1", "quantity": 2, "price": 0.01, "unitPrice": 0.01},
	}

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)

	var o orders.Order
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("orders", "t1", resp["orderId"].(string)), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if o.Items[0].UnitPrice != 90 || o.Subtotal != 180 {
		t.Fatalf("client price leaked into order: %+v", o.Items[0])
	}
}

func TestPlaceOrder_CouponCapped(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["items"] = []map[string]interface{}{
		{"productId": "p2", "quantity": 2}, // subtotal 200, free shipping
	}
	req["couponCode"] = "summer20" // normalization handles the case

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	// raw 20% of 200 = 40, capped at 30
	if resp["couponDiscount"].(float64) != 30 {
		t.Fatalf("expected discount 30, got %v", resp["couponDiscount"])
	}

	var o orders.Order
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("orders", "t1", resp["orderId"].(string)), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if o.Total != 170 || o.CouponCode != "SUMMER20" {
		t.Fatalf("unexpected coupon order: %+v", o)
	}

	var c coupons.Coupon
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("coupons", "t1", "c1"), &c); err != nil {
		t.Fatalf("unmarshal coupon: %v", err)
	}
	if c.UsageCount != 1 {
		t.Fatalf("expected usage_count 1, got %d", c.UsageCount)
	}
}

func TestPlaceOrder_ExhaustedCouponSilentlyIgnored(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["couponCode"] = "EXHAUSTED"

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["couponDiscount"].(float64) != 0 {
		t.Fatalf("expected zero discount, got %v", resp["couponDiscount"])
	}

	var c coupons.Coupon
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("coupons", "t1", "c2"), &c); err != nil {
		t.Fatalf("unmarshal coupon: %v", err)
	}
	if c.UsageCount != 5 {
		t.Fatalf("exhausted coupon was incremented: %d", c.UsageCount)
	}
}

func TestPlaceOrder_UnknownCouponSilentlyIgnored(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["couponCode"] = "NOPE"

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceOrder_ZoneRejected(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["shippingAddress"] = map[string]interface{}{
		"street": "Fo utca 1", "city": "Budapest", "country": "Hungary",
	}

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["error"] != "delivery_zone_rejected" {
		t.Fatalf("unexpected error kind: %v", resp["error"])
	}
	if resp["rejected"] != "Hungary" {
		t.Fatalf("expected rejected value, got %v", resp["rejected"])
	}
	if env.dynamo.Len("orders") != 0 {
		t.Fatal("rejected order must not be written")
	}
}

func TestPlaceOrder_ZoneMatchIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["shippingAddress"] = map[string]interface{}{
		"street": "Str. Lunga 10", "city": "Cluj-Napoca", "country": "romania ",
	}

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req["items"] = []map[string]interface{}{
		{"productId": "ghost", "quantity": 1},
	}

	w := env.do(t, http.MethodPost, "/orders", req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["error"] != "product_not_found" {
		t.Fatalf("unexpected error kind: %s", w.Body.String())
	}
	if env.dynamo.Len("orders") != 0 {
		t.Fatal("no order may exist after rejection")
	}
}

func TestPlaceOrder_ValidationRejections(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"no items", func(r map[string]interface{}) { r["items"] = []map[string]interface{}{} }},
		{"no email", func(r map[string]interface{}) { delete(r, "customerEmail") }},
		{"no name", func(r map[string]interface{}) { delete(r, "customerName") }},
		{"bad payment method", func(r map[string]interface{}) { r["paymentMethod"] = "bitcoin" }},
		{"zero quantity", func(r map[string]interface{}) {
			r["items"] = []map[string]interface{}{{"productId": "p1", "quantity": 0}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)
			w := env.do(t, http.MethodPost, "/orders", req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if decode(t, w)["error"] != "validation_error" {
				t.Fatalf("unexpected error kind: %s", w.Body.String())
			}
		})
	}
}

func TestPlaceOrder_MissingTenantHeader(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(validRequest())
	req := httptest.NewRequest(http.MethodPost, "/orders", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPlaceOrder_SequentialOrderNumbers(t *testing.T) {
	env := newTestEnv(t)

	first := decode(t, env.do(t, http.MethodPost, "/orders", validRequest()))
	second := decode(t, env.do(t, http.MethodPost, "/orders", validRequest()))

	if first["orderNumber"] != "ATL-0001" || second["orderNumber"] != "ATL-0002" {
		t.Fatalf("expected sequential numbers, got %v and %v", first["orderNumber"], second["orderNumber"])
	}
}

func TestUpdateStatus_TransitionAndHistory(t *testing.T) {
	env := newTestEnv(t)

	placed := decode(t, env.do(t, http.MethodPost, "/orders", validRequest()))
	orderID := placed["orderId"].(string)

	w := env.do(t, http.MethodPost, "/orders/"+orderID+"/status", map[string]interface{}{
		"status": "confirmed",
		"note":   "called the customer",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// confirmed -> delivered skips states and is rejected
	w = env.do(t, http.MethodPost, "/orders/"+orderID+"/status", map[string]interface{}{
		"status": "delivered",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var o orders.Order
	if err := attributevalue.UnmarshalMap(env.dynamo.Item("orders", "t1", orderID), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if o.Status != "confirmed" || len(o.StatusHistory) != 2 {
		t.Fatalf("unexpected order state: status=%s history=%d", o.Status, len(o.StatusHistory))
	}
}

func TestGetOrderAndCustomerListing(t *testing.T) {
	env := newTestEnv(t)

	placed := decode(t, env.do(t, http.MethodPost, "/orders", validRequest()))
	orderID := placed["orderId"].(string)

	w := env.do(t, http.MethodGet, "/orders/"+orderID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/customers/maria@example.com/orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	listing := decode(t, w)
	if entries, ok := listing["orders"].([]interface{}); !ok || len(entries) != 1 {
		t.Fatalf("expected one index entry, got %v", listing["orders"])
	}

	w = env.do(t, http.MethodGet, "/customers/maria@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 customer profile, got %d", w.Code)
	}
}

func (e *testEnv) placeWithKey(t *testing.T, body interface{}, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/orders", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "t1")
	req.Header.Set("Idempotency-Key", key)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t)

	first := env.placeWithKey(t, validRequest(), "key-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := env.placeWithKey(t, validRequest(), "key-1")
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d: %s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	if env.dynamo.Len("orders") != 1 {
		t.Fatalf("expected a single order, got %d", env.dynamo.Len("orders"))
	}

	// a different key places a second order as usual
	third := env.placeWithKey(t, validRequest(), "key-2")
	if third.Code != http.StatusCreated {
		t.Fatalf("expected 201 for new key, got %d", third.Code)
	}
	if env.dynamo.Len("orders") != 2 {
		t.Fatalf("expected two orders, got %d", env.dynamo.Len("orders"))
	}
}

func TestPlaceOrder_FailedAttemptReleasesKey(t *testing.T) {
	env := newTestEnv(t)

	env.dynamo.FailTransacts = true
	w := env.placeWithKey(t, validRequest(), "key-1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	env.dynamo.FailTransacts = false
	w = env.placeWithKey(t, validRequest(), "key-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected retry with same key to succeed, got %d: %s", w.Code, w.Body.String())
	}
	if env.dynamo.Len("orders") != 1 {
		t.Fatalf("expected one order after retry, got %d", env.dynamo.Len("orders"))
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelierline/storefront-orders/internal/aws"
	"github.com/atelierline/storefront-orders/internal/catalog"
	"github.com/atelierline/storefront-orders/internal/coupons"
	"github.com/atelierline/storefront-orders/internal/customers"
	"github.com/atelierline/storefront-orders/internal/idempotency"
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/pricing"
	"github.com/atelierline/storefront-orders/internal/shipping"
	"github.com/atelierline/storefront-orders/internal/tenant"
	"github.com/atelierline/storefront-orders/internal/validation"
)

// HandlerConfig groups dependencies for the order routes.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI

	ProductsTable       string
	TenantConfigTable   string
	DeliveryConfigTable string
	CouponsTable        string
	CouponCodesTable    string
	CountersTable       string
	OrdersTable         string
	OrdersIndexTable    string
	CustomersTable      string
	IdempotencyTable    string

	QueueURL string

	// NowFunc is overridable for tests; defaults to time.Now.
	NowFunc func() time.Time
}

type orderRoutes struct {
	cfg       HandlerConfig
	catalog   *catalog.Store
	tenants   *tenant.Store
	coupons   *coupons.Store
	customers *customers.Store
	repricer  *pricing.Repricer
	counter   *orders.Counter
	orders    *orders.Store
	idem      *idempotency.Store
	publisher *aws.Publisher
	metrics   *aws.MetricsEmitter
	nowFunc   func() time.Time
}

// RegisterOrdersRoutes registers the order placement and read routes.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	catalogStore := catalog.NewStore(cfg.DynamoDBClient, cfg.ProductsTable)
	h := &orderRoutes{
		cfg:       cfg,
		catalog:   catalogStore,
		tenants:   tenant.NewStore(cfg.DynamoDBClient, cfg.TenantConfigTable, cfg.DeliveryConfigTable),
		coupons:   coupons.NewStore(cfg.DynamoDBClient, cfg.CouponsTable, cfg.CouponCodesTable),
		customers: customers.NewStore(cfg.DynamoDBClient, cfg.CustomersTable),
		repricer:  pricing.NewRepricer(catalogStore),
		counter:   orders.NewCounter(cfg.DynamoDBClient, cfg.CountersTable),
		orders:    orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable, cfg.OrdersIndexTable, cfg.CustomersTable, cfg.CouponsTable),
		idem:      idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, 48*time.Hour),
		publisher: aws.NewPublisher(cfg.SQSClient, cfg.QueueURL),
		metrics:   aws.NewMetricsEmitter(cfg.CloudWatchClient),
		nowFunc:   cfg.NowFunc,
	}
	if h.nowFunc == nil {
		h.nowFunc = time.Now
	}

	r.POST("/orders", func(c *gin.Context) { h.placeOrder(c, v) })
	r.GET("/orders/:id", h.getOrder)
	r.POST("/orders/:id/status", func(c *gin.Context) { h.updateStatus(c, v) })
	r.GET("/customers/:email", h.getCustomer)
	r.GET("/customers/:email/orders", h.listCustomerOrders)
}

// placeOrder runs the placement pipeline: revalidate prices, evaluate
// shipping and delivery zones, apply the coupon, allocate an order number,
// commit the multi-record transaction, then fan out notifications.
// Only the commit performs durable writes (the burned-number allocation aside).
func (h *orderRoutes) placeOrder(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "missing X-Tenant-ID header"})
		return
	}

	var req validation.PlaceOrderRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	// An Idempotency-Key header turns retries of the same submission into a
	// replay of the first response instead of a second order.
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	idemDone := false
	if idemKey != "" {
		if !h.claimIdempotencyKey(c, tenantID, idemKey) {
			return
		}
		defer func() {
			if !idemDone {
				h.releaseIdempotencyKey(tenantID, idemKey)
			}
		}()
	}

	now := h.nowFunc().UTC()
	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))

	cfg, err := h.tenants.GetConfig(ctx, tenantID)
	if err != nil {
		storeError(c, err)
		return
	}

	// Stage 1: price revalidation. Client-submitted amounts never survive this.
	lines, subtotal, err := h.repricer.Reprice(ctx, tenantID, req.Items)
	if err != nil {
		if errors.Is(err, pricing.ErrProductNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_not_found", "message": err.Error()})
			return
		}
		storeError(c, err)
		return
	}

	// Stage 2: shipping cost and delivery-zone gate.
	var addr *customers.Address
	if req.ShippingAddress != nil {
		addr = &customers.Address{
			Street:        req.ShippingAddress.Street,
			City:          req.ShippingAddress.City,
			County:        req.ShippingAddress.County,
			PostalCode:    req.ShippingAddress.PostalCode,
			Country:       req.ShippingAddress.Country,
			DeliveryNotes: req.ShippingAddress.DeliveryNotes,
		}
	}
	deliveryCfg, err := h.tenants.GetDeliveryConfig(ctx, tenantID)
	if err != nil {
		storeError(c, err)
		return
	}
	shippingCost, err := shipping.Evaluate(deliveryCfg, addr, subtotal)
	if err != nil {
		var ze *shipping.ZoneError
		if errors.As(err, &ze) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "delivery_zone_rejected",
				"message":  ze.Error(),
				"rejected": ze.Value,
				"allowed":  ze.Allowed,
			})
			return
		}
		storeError(c, err)
		return
	}

	// Stage 3: coupon. Invalid or ineligible codes are silently ignored; a
	// promo problem never fails an order.
	var coupon *coupons.Coupon
	var discount float64
	if req.CouponCode != "" {
		coupon, err = h.coupons.ResolveCode(ctx, tenantID, req.CouponCode)
		if err != nil {
			storeError(c, err)
			return
		}
		discount = coupons.ComputeDiscount(coupon, subtotal, now)
		if discount == 0 {
			coupon = nil
		}
	}

	// Stage 4: order number. Allocated outside the commit transaction; an
	// abort below burns the number, which is acceptable.
	seq, err := h.counter.AllocateNext(ctx, tenantID)
	if err != nil {
		storeError(c, err)
		return
	}
	orderNumber := orders.FormatOrderNumber(cfg.OrderPrefix, seq)

	var billing *customers.BillingDetails
	if req.BillingDetails != nil {
		billing = &customers.BillingDetails{
			IsCompany:          req.BillingDetails.IsCompany,
			CompanyName:        req.BillingDetails.CompanyName,
			VATNumber:          req.BillingDetails.VATNumber,
			RegistrationNumber: req.BillingDetails.RegistrationNumber,
			Address:            req.BillingDetails.Address,
		}
	}

	order := orders.Order{
		TenantID:              tenantID,
		OrderID:               uuid.NewString(),
		OrderNumber:           orderNumber,
		Items:                 lines,
		CustomerEmail:         email,
		CustomerName:          strings.TrimSpace(req.CustomerName),
		CustomerPhone:         strings.TrimSpace(req.CustomerPhone),
		ShippingAddress:       addr,
		BillingDetails:        billing,
		PaymentMethod:         req.PaymentMethod,
		RequestedDeliveryDate: req.RequestedDeliveryDate,
		Subtotal:              subtotal,
		ShippingCost:          shippingCost,
		CouponDiscount:        discount,
		Total:                 orders.RoundMoney(subtotal + shippingCost - discount),
		Currency:              cfg.Currency,
		Status:                orders.StatusPlaced,
		PaymentStatus:         orders.PaymentPending,
		Note:                  req.Note,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
		order.CouponID = coupon.CouponID
	}

	// Stage 5: the one durable write, all-or-nothing.
	err = h.orders.CommitOrder(ctx, orders.CommitInput{
		Order:            order,
		CustomerBirthday: req.CustomerBirthday,
	})
	if err != nil {
		if errors.Is(err, orders.ErrTransactionFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction_failed", "message": "order could not be committed"})
			return
		}
		storeError(c, err)
		return
	}

	respBody, _ := json.Marshal(gin.H{
		"orderId":        order.OrderID,
		"orderNumber":    order.OrderNumber,
		"couponDiscount": order.CouponDiscount,
	})
	if idemKey != "" {
		if err := h.idem.MarkDone(ctx, tenantID, idemKey, order.OrderID, string(respBody), http.StatusCreated); err != nil {
			log.Printf("[orders] idempotency mark done failed key=%s: %v", idemKey, err)
		}
		idemDone = true
	}

	// Stage 6: best-effort fan-out. Never joins back into the caller's result.
	h.fanOut(order, c.GetHeader("X-Request-Id"))

	c.Data(http.StatusCreated, "application/json; charset=utf-8", respBody)
}

// claimIdempotencyKey claims the key for this request. For a duplicate it
// writes the terminal response itself: a replay of the stored result for done
// keys, 409 for in-flight ones. Returns false when a response was written.
func (h *orderRoutes) claimIdempotencyKey(c *gin.Context, tenantID, key string) bool {
	ctx := c.Request.Context()

	created, err := h.idem.Begin(ctx, tenantID, key)
	if err != nil {
		storeError(c, err)
		return false
	}
	if created {
		return true
	}

	rec, err := h.idem.Get(ctx, tenantID, key)
	if err != nil {
		storeError(c, err)
		return false
	}
	if rec != nil && rec.Status == idempotency.StatusDone {
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return false
	}
	if rec != nil && rec.Status == idempotency.StatusFailed {
		claimed, err := h.idem.Retry(ctx, tenantID, key)
		if err != nil {
			storeError(c, err)
			return false
		}
		if claimed {
			return true
		}
	}

	c.JSON(http.StatusConflict, gin.H{
		"error":   "request_in_progress",
		"message": "a request with this Idempotency-Key is already being processed",
	})
	return false
}

// releaseIdempotencyKey marks an aborted placement's key failed so the client
// can retry it.
func (h *orderRoutes) releaseIdempotencyKey(tenantID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.idem.MarkFailed(ctx, tenantID, key); err != nil {
		log.Printf("[orders] idempotency release failed key=%s: %v", key, err)
	}
}

// fanOut publishes the notification job and emits metrics after a committed
// order. Failures are logged and swallowed.
func (h *orderRoutes) fanOut(order orders.Order, correlationID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job := aws.NotificationJob{
			TenantID:      order.TenantID,
			OrderID:       order.OrderID,
			Status:        order.Status,
			CorrelationID: correlationID,
		}
		if err := h.publisher.SendNotificationJob(ctx, job); err != nil {
			log.Printf("[orders] notification publish failed order=%s: %v", order.OrderID, err)
		}
		if err := h.metrics.EmitOrderPlaced(ctx, order.TenantID, order.Total); err != nil {
			log.Printf("[orders] metrics emit failed order=%s: %v", order.OrderID, err)
		}
	}()
}

// fanOutJob publishes a single notification job, best-effort.
func (h *orderRoutes) fanOutJob(job aws.NotificationJob) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.publisher.SendNotificationJob(ctx, job); err != nil {
			log.Printf("[orders] notification publish failed order=%s: %v", job.OrderID, err)
		}
	}()
}

func storeError(c *gin.Context, err error) {
	log.Printf("[orders] store error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable", "message": "backing store error, retry later"})
}

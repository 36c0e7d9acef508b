package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/atelierline/storefront-orders/internal/aws"
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/validation"
)

// getOrder returns a full order body.
func (h *orderRoutes) getOrder(c *gin.Context) {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "missing X-Tenant-ID header"})
		return
	}

	order, err := h.orders.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateStatus transitions an order through the lifecycle state machine,
// appends the history entry and triggers the per-status notification.
func (h *orderRoutes) updateStatus(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "missing X-Tenant-ID header"})
		return
	}
	orderID := c.Param("id")

	var req validation.UpdateStatusRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		return
	}

	order, err := h.orders.Get(ctx, tenantID, orderID)
	if err != nil {
		storeError(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
		return
	}

	if !orders.CanTransition(order.Status, req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": "cannot transition from " + order.Status + " to " + req.Status,
		})
		return
	}

	err = h.orders.UpdateStatus(ctx, tenantID, orderID, order.Status, req.Status, req.Note, req.TrackingNumber)
	if err != nil {
		if errors.Is(err, orders.ErrStatusMismatch) {
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "message": "order status changed concurrently"})
			return
		}
		storeError(c, err)
		return
	}

	updated := *order
	updated.Status = req.Status
	h.fanOutStatus(updated, c.GetHeader("X-Request-Id"))

	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "status": req.Status})
}

// fanOutStatus publishes the notification job for a status transition.
func (h *orderRoutes) fanOutStatus(order orders.Order, correlationID string) {
	h.fanOutJob(aws.NotificationJob{
		TenantID:      order.TenantID,
		OrderID:       order.OrderID,
		Status:        order.Status,
		CorrelationID: correlationID,
	})
}

// getCustomer returns a customer profile by email.
func (h *orderRoutes) getCustomer(c *gin.Context) {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "missing X-Tenant-ID header"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	cust, err := h.customers.Get(c.Request.Context(), tenantID, email)
	if err != nil {
		storeError(c, err)
		return
	}
	if cust == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer_not_found"})
		return
	}
	c.JSON(http.StatusOK, cust)
}

// listCustomerOrders lists the lightweight index entries for a customer.
func (h *orderRoutes) listCustomerOrders(c *gin.Context) {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "missing X-Tenant-ID header"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	entries, err := h.orders.ListByCustomer(c.Request.Context(), tenantID, email)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": entries})
}

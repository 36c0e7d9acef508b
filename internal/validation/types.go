package validation

import (
	"github.com/atelierline/storefront-orders/internal/catalog"
)

// AddressRequest is the submitted shipping address.
type AddressRequest struct {
	Street        string `json:"street" validate:"required"`
	City          string `json:"city" validate:"required"`
	County        string `json:"county,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country,omitempty"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`
}

// BillingRequest is the submitted billing block.
type BillingRequest struct {
	IsCompany          bool   `json:"isCompany"`
	CompanyName        string `json:"companyName,omitempty"`
	VATNumber          string `json:"vatNumber,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Address            string `json:"address,omitempty"`
}

// PlaceOrderRequest is the payload for POST /orders. Item prices are never
// part of the contract; all amounts are re-derived server-side.
type PlaceOrderRequest struct {
	Items                 []catalog.SubmittedItem `json:"items" validate:"required,min=1,dive"`
	CustomerEmail         string                  `json:"customerEmail" validate:"required,email"`
	CustomerName          string                  `json:"customerName" validate:"required"`
	CustomerPhone         string                  `json:"customerPhone,omitempty"`
	CustomerBirthday      string                  `json:"customerBirthday,omitempty"`
	ShippingAddress       *AddressRequest         `json:"shippingAddress,omitempty"`
	BillingDetails        *BillingRequest         `json:"billingDetails,omitempty"`
	PaymentMethod         string                  `json:"paymentMethod" validate:"required,oneof=cash_on_delivery bank_transfer"`
	RequestedDeliveryDate string                  `json:"requestedDeliveryDate,omitempty"`
	CouponCode            string                  `json:"couponCode,omitempty"`
	Note                  string                  `json:"note,omitempty"`
}

// UpdateStatusRequest is the payload for POST /orders/:id/status.
type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	Note           string `json:"note,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

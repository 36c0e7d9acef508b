package customers

import "time"

// Address is the shipping address snapshot shared by orders and customer profiles.
type Address struct {
	Street        string `dynamodbav:"street" json:"street"`
	City          string `dynamodbav:"city" json:"city"`
	County        string `dynamodbav:"county,omitempty" json:"county,omitempty"`
	PostalCode    string `dynamodbav:"postal_code,omitempty" json:"postalCode,omitempty"`
	Country       string `dynamodbav:"country,omitempty" json:"country,omitempty"`
	DeliveryNotes string `dynamodbav:"delivery_notes,omitempty" json:"deliveryNotes,omitempty"`
}

// BillingDetails is the billing snapshot; company fields only matter when IsCompany is set.
type BillingDetails struct {
	IsCompany          bool   `dynamodbav:"is_company" json:"isCompany"`
	CompanyName        string `dynamodbav:"company_name,omitempty" json:"companyName,omitempty"`
	VATNumber          string `dynamodbav:"vat_number,omitempty" json:"vatNumber,omitempty"`
	RegistrationNumber string `dynamodbav:"registration_number,omitempty" json:"registrationNumber,omitempty"`
	Address            string `dynamodbav:"address,omitempty" json:"address,omitempty"`
}

// Customer is the per-tenant profile item, keyed by lowercase email.
// It is upserted on every accepted order and never deleted by the pipeline.
type Customer struct {
	TenantID       string          `dynamodbav:"tenant_id"` // PK
	Email          string          `dynamodbav:"email"`     // SK, lowercase
	Name           string          `dynamodbav:"name"`
	Phone          string          `dynamodbav:"phone,omitempty"`
	DefaultAddress *Address        `dynamodbav:"default_address,omitempty"`
	DefaultBilling *BillingDetails `dynamodbav:"default_billing,omitempty"`
	OrderCount     int             `dynamodbav:"order_count"`
	TotalSpent     float64         `dynamodbav:"total_spent"`
	LoyaltyPoints  int             `dynamodbav:"loyalty_points"`
	LastOrderAt    time.Time       `dynamodbav:"last_order_at"`
	Birthday       string          `dynamodbav:"birthday,omitempty"` // YYYY-MM-DD
	Notes          string          `dynamodbav:"notes,omitempty"`
	CreatedAt      time.Time       `dynamodbav:"created_at"`
	UpdatedAt      time.Time       `dynamodbav:"updated_at"`
}

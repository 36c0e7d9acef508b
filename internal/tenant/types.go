package tenant

// EmailTemplate is a per-status notification template. Placeholders in
// subject and body use {{name}} syntax; see the notify package for the set.
type EmailTemplate struct {
	Subject          string `dynamodbav:"subject"`
	Body             string `dynamodbav:"body"`
	SendToCustomer   bool   `dynamodbav:"send_to_customer"`
	SendToAdmin      bool   `dynamodbav:"send_to_admin"`
	SendToProcessing bool   `dynamodbav:"send_to_processing"`
}

// Config is the per-tenant storefront configuration the pipeline reads.
type Config struct {
	TenantID        string                   `dynamodbav:"tenant_id"` // PK
	SiteName        string                   `dynamodbav:"site_name"`
	Currency        string                   `dynamodbav:"currency"`
	OrderPrefix     string                   `dynamodbav:"order_prefix"`
	FromEmail       string                   `dynamodbav:"from_email,omitempty"`
	AdminEmail      string                   `dynamodbav:"admin_email,omitempty"`
	ProcessingEmail string                   `dynamodbav:"processing_email,omitempty"`
	EmailTemplates  map[string]EmailTemplate `dynamodbav:"email_templates,omitempty"` // by order status
}

// DeliveryConfig controls shipping cost and the delivery-zone allow-lists.
type DeliveryConfig struct {
	TenantID              string   `dynamodbav:"tenant_id"` // PK
	FreeDeliveryThreshold float64  `dynamodbav:"free_delivery_threshold"`
	ShippingCost          float64  `dynamodbav:"shipping_cost"`
	RestrictZones         bool     `dynamodbav:"restrict_zones"`
	AllowedCountries      []string `dynamodbav:"allowed_countries,omitempty"`
	AllowedRegions        []string `dynamodbav:"allowed_regions,omitempty"`
}

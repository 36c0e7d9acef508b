package catalog

// PersonalizationOption is a product-declared customization with its cost.
type PersonalizationOption struct {
	ID        string  `dynamodbav:"id"`
	Label     string  `dynamodbav:"label"`
	AddedCost float64 `dynamodbav:"added_cost"`
}

// Product is the catalog item as persisted; only the fields the order
// pipeline reads are modeled here, the editor owns the rest.
type Product struct {
	TenantID               string                  `dynamodbav:"tenant_id"`  // PK
	ProductID              string                  `dynamodbav:"product_id"` // SK
	Title                  string                  `dynamodbav:"title"`
	Price                  float64                 `dynamodbav:"price"`
	SalePrice              *float64                `dynamodbav:"sale_price,omitempty"`
	Image                  string                  `dynamodbav:"image,omitempty"`
	Variants               []string                `dynamodbav:"variants,omitempty"`
	PersonalizationOptions []PersonalizationOption `dynamodbav:"personalization_options,omitempty"`
}

// EffectivePrice is the unit price the pipeline charges: sale price when set, else list price.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// SubmittedPersonalization is a client-chosen customization on a line item.
// The cost it claims (if any) is never trusted.
type SubmittedPersonalization struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

// SubmittedItem is one untrusted cart line as received from the storefront.
type SubmittedItem struct {
	ProductID        string                     `json:"productId"`
	Quantity         int                        `json:"quantity"`
	SelectedVariant  string                     `json:"selectedVariant,omitempty"`
	Personalizations []SubmittedPersonalization `json:"personalizations,omitempty"`
}

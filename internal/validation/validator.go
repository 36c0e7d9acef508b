package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(placeOrderStructValidation, PlaceOrderRequest{})

	return v
}

// placeOrderStructValidation checks the pieces the tag syntax cannot reach:
// every line needs a resolvable product id and a positive quantity.
func placeOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PlaceOrderRequest)

	for _, it := range req.Items {
		if it.ProductID == "" {
			sl.ReportError(it.ProductID, "items", "Items", "product_id_required", "")
		}
		if it.Quantity < 1 {
			sl.ReportError(it.Quantity, "items", "Items", "quantity_min", "")
		}
	}
}

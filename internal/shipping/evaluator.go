package shipping

import (
	"fmt"
	"strings"

	"github.com/atelierline/storefront-orders/internal/customers"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

// ZoneError reports a destination outside the tenant's allowed delivery zones.
type ZoneError struct {
	Field   string   // "country" or "county"
	Value   string   // the rejected submitted value
	Allowed []string // the configured allow-list
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("delivery %s %q is outside the allowed zones (%s)",
		e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// Evaluate applies the delivery-zone gate and computes the shipping cost.
// A nil address skips zone checks; a nil config means no constraints and
// zero shipping. Matching is trimmed and case-insensitive.
func Evaluate(cfg *tenant.DeliveryConfig, addr *customers.Address, subtotal float64) (float64, error) {
	if cfg == nil {
		return 0, nil
	}

	if cfg.RestrictZones && addr != nil {
		if len(cfg.AllowedCountries) > 0 && !matches(addr.Country, cfg.AllowedCountries) {
			return 0, &ZoneError{Field: "country", Value: addr.Country, Allowed: cfg.AllowedCountries}
		}
		if len(cfg.AllowedRegions) > 0 && !matches(addr.County, cfg.AllowedRegions) {
			return 0, &ZoneError{Field: "county", Value: addr.County, Allowed: cfg.AllowedRegions}
		}
	}

	if cfg.FreeDeliveryThreshold > 0 && subtotal >= cfg.FreeDeliveryThreshold {
		return 0, nil
	}
	return cfg.ShippingCost, nil
}

func matches(value string, allowed []string) bool {
	v := strings.TrimSpace(value)
	for _, a := range allowed {
		if strings.EqualFold(v, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

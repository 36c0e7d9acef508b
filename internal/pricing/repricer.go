package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atelierline/storefront-orders/internal/catalog"
	"github.com/atelierline/storefront-orders/internal/orders"
)

// ErrProductNotFound aborts the whole request when any submitted product id is unresolvable.
var ErrProductNotFound = errors.New("product not found")

// ProductGetter is the catalog lookup the repricer depends on.
type ProductGetter interface {
	GetProduct(ctx context.Context, tenantID, productID string) (*catalog.Product, error)
}

// Repricer re-derives all line amounts from the catalog. Client-submitted
// prices never enter the computation.
type Repricer struct {
	Catalog ProductGetter
}

// NewRepricer returns a Repricer over the given catalog.
func NewRepricer(c ProductGetter) *Repricer {
	return &Repricer{Catalog: c}
}

// Reprice resolves every submitted item against the catalog and recomputes
// unit prices, personalization surcharges and line totals. Returns the
// validated lines and the running subtotal.
func (r *Repricer) Reprice(ctx context.Context, tenantID string, items []catalog.SubmittedItem) ([]orders.LineItem, float64, error) {
	lines := make([]orders.LineItem, 0, len(items))
	var subtotal float64

	for _, it := range items {
		p, err := r.Catalog.GetProduct(ctx, tenantID, it.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("lookup product %s: %w", it.ProductID, err)
		}
		if p == nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}

		unit := p.EffectivePrice()

		var persCost float64
		pers := make([]orders.Personalization, 0, len(it.Personalizations))
		for _, sub := range it.Personalizations {
			resolved := resolvePersonalization(p, sub)
			persCost += resolved.Cost
			pers = append(pers, resolved)
		}

		lineTotal := orders.RoundMoney((unit + persCost) * float64(it.Quantity))
		lines = append(lines, orders.LineItem{
			ProductID:        p.ProductID,
			Title:            p.Title,
			Quantity:         it.Quantity,
			UnitPrice:        unit,
			LineTotal:        lineTotal,
			SelectedVariant:  it.SelectedVariant,
			Personalizations: pers,
			Image:            p.Image,
		})
		subtotal += lineTotal
	}

	return lines, orders.RoundMoney(subtotal), nil
}

// resolvePersonalization matches a submitted personalization against the
// product's declared options by id or label. The declared added cost is
// authoritative; an unknown personalization passes through at zero cost.
func resolvePersonalization(p *catalog.Product, sub catalog.SubmittedPersonalization) orders.Personalization {
	for _, opt := range p.PersonalizationOptions {
		if (sub.ID != "" && sub.ID == opt.ID) ||
			(sub.Label != "" && strings.EqualFold(sub.Label, opt.Label)) {
			return orders.Personalization{
				ID:    opt.ID,
				Label: opt.Label,
				Value: sub.Value,
				Cost:  opt.AddedCost,
			}
		}
	}
	return orders.Personalization{
		ID:    sub.ID,
		Label: sub.Label,
		Value: sub.Value,
		Cost:  0,
	}
}

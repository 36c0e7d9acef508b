package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelierline/storefront-orders/internal/catalog"
)

type fakeCatalog struct {
	products map[string]*catalog.Product
}

func (f *fakeCatalog) GetProduct(ctx context.Context, tenantID, productID string) (*catalog.Product, error) {
	return f.products[productID], nil
}

func flt(v float64) *float64 { return &v }

func TestReprice_UsesServerPrices(t *testing.T) {
	r := NewRepricer(&fakeCatalog{products: map[string]*catalog.Product{
		"p1": {ProductID: "p1", Title: "Mug", Price: 30},
		"p2": {ProductID: "p2", Title: "Frame", Price: 100, SalePrice: flt(80)},
	}})

	lines, subtotal, err := r.Reprice(context.Background(), "t1", []catalog.SubmittedItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1, SelectedVariant: "A4"},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.Equal(t, 30.0, lines[0].UnitPrice)
	require.Equal(t, 60.0, lines[0].LineTotal)
	require.Equal(t, 80.0, lines[1].UnitPrice, "sale price wins over list price")
	require.Equal(t, "A4", lines[1].SelectedVariant)
	require.Equal(t, 140.0, subtotal)
}

func TestReprice_PersonalizationCosts(t *testing.T) {
	r := NewRepricer(&fakeCatalog{products: map[string]*catalog.Product{
		"p1": {
			ProductID: "p1", Title: "Mug", Price: 30,
			PersonalizationOptions: []catalog.PersonalizationOption{
				{ID: "engraving", Label: "Engraving", AddedCost: 10},
				{ID: "giftwrap", Label: "Gift wrap", AddedCost: 5},
			},
		},
	}})

	lines, subtotal, err := r.Reprice(context.Background(), "t1", []catalog.SubmittedItem{
		{
			ProductID: "p1",
			Quantity:  2,
			Personalizations: []catalog.SubmittedPersonalization{
				{ID: "engraving", Value: "Maria"},
				{Label: "gift WRAP"}, // label match is case-insensitive
				{ID: "sticker", Value: "x"},
			},
		},
	})
	require.NoError(t, err)

	// (30 + 10 + 5 + 0) * 2; the unknown "sticker" contributes nothing
	require.Equal(t, 90.0, lines[0].LineTotal)
	require.Equal(t, 90.0, subtotal)
	require.Equal(t, 0.0, lines[0].Personalizations[2].Cost)
	require.Equal(t, 10.0, lines[0].Personalizations[0].Cost)
	require.Equal(t, "Maria", lines[0].Personalizations[0].Value)
}

func TestReprice_ProductNotFound(t *testing.T) {
	r := NewRepricer(&fakeCatalog{products: map[string]*catalog.Product{
		"p1": {ProductID: "p1", Price: 30},
	}})

	_, _, err := r.Reprice(context.Background(), "t1", []catalog.SubmittedItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProductNotFound))
}

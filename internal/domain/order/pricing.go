package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/atelier-api/internal/domain/product"
)

// TaxRate is the fixed tax applied to every order subtotal.
var TaxRate = decimal.RequireFromString("0.10")

// LineItemRequest is one requested line of an order before pricing.
type LineItemRequest struct {
	ProductID      string
	Tier           product.Tier
	Quantity       int
	Customizations []Customization
}

// PriceLineItem resolves a line item request against the catalog product and
// returns the priced item. The unit price is copied from the tier's current
// price, so the resulting item is immune to later catalog edits. Tier defaults
// to base and quantity to 1 when unset.
func PriceLineItem(p *product.Product, req LineItemRequest) (Item, error) {
	tier := req.Tier
	if tier == "" {
		tier = product.TierBase
	}

	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return Item{}, &ValidationError{Fields: []FieldError{
			{Field: "items.quantity", Message: "must be a positive integer"},
		}}
	}

	price, ok := p.TierPrice(tier)
	if !ok {
		return Item{}, &InvalidTierError{ProductID: p.ID, Tier: tier}
	}

	return Item{
		ProductID:      p.ID,
		ProductName:    p.Name,
		Category:       p.Category,
		Tier:           tier,
		Quantity:       qty,
		UnitPrice:      price,
		Customizations: req.Customizations,
	}, nil
}

// Totals computes subtotal, tax, and total for a set of priced items using the
// fixed tax rate. All three are rounded to 2 decimal places.
func Totals(items []Item) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(TaxRate).Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

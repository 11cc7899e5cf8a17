package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Tier names a pricing level offered by a catalog item.
type Tier string

const (
	TierBase       Tier = "base"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Product represents a catalog item available for ordering. Pricing maps each
// offered tier to its unit price; a product does not have to offer every tier.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Pricing     map[Tier]decimal.Decimal
	Image       Image
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// TierPrice returns the unit price for the given tier and whether the product
// offers that tier. A zero price counts as not offered.
func (p *Product) TierPrice(t Tier) (decimal.Decimal, bool) {
	price, ok := p.Pricing[t]
	if !ok || price.IsZero() {
		return decimal.Decimal{}, false
	}
	return price, true
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Package analytics derives read-only reporting views over the order, product,
// and user collections. Nothing here is cached or materialized; every request
// replays the aggregation queries against storage.
package analytics

import (
	"context"

	"github.com/shopspring/decimal"
)

// DailyCount is one calendar-day bucket of a counted series.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// DailyRevenue is one calendar-day bucket of summed order totals.
type DailyRevenue struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
}

// MonthlyRevenue is one year-month bucket of summed order totals.
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// StatusCount is the number of orders currently in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TopProduct is one entry of the best-seller ranking: total quantity ordered
// across all orders, joined with current product display data.
type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Thumbnail string `json:"thumbnail"`
	Quantity  int64  `json:"totalQuantity"`
}

// Totals are the headline counters for the dashboard. Revenue is the sum of
// the stored order totals, the canonical pricing source.
type Totals struct {
	Users   int64           `json:"totalUsers"`
	Orders  int64           `json:"totalOrders"`
	Revenue decimal.Decimal `json:"totalRevenue"`
}

// Repository defines the aggregation queries the analytics service relies on.
// Bucketed series are returned in ascending bucket order; TopProducts is
// ordered by quantity descending with product ID as the deterministic
// tie-break.
type Repository interface {
	DailyOrders(ctx context.Context) ([]DailyCount, error)
	DailyRevenue(ctx context.Context) ([]DailyRevenue, error)
	DailySignups(ctx context.Context) ([]DailyCount, error)
	MonthlyRevenue(ctx context.Context) ([]MonthlyRevenue, error)
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	Totals(ctx context.Context) (*Totals, error)
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/atelier-api/internal/domain/analytics"
)

const (
	dailyOrdersSQL = `SELECT to_char(created_at, 'YYYY-MM-DD') AS day, count(*)
		FROM orders GROUP BY day ORDER BY day`

	dailyRevenueSQL = `SELECT to_char(created_at, 'YYYY-MM-DD') AS day, sum(total)
		FROM orders GROUP BY day ORDER BY day`

	dailySignupsSQL = `SELECT to_char(created_at, 'YYYY-MM-DD') AS day, count(*)
		FROM users GROUP BY day ORDER BY day`

	monthlyRevenueSQL = `SELECT to_char(created_at, 'YYYY-MM') AS month, sum(total)
		FROM orders GROUP BY month ORDER BY month`

	statusBreakdownSQL = `SELECT status, count(*) FROM orders GROUP BY status`

	// topProductsSQL flattens every order's items, sums quantities per product,
	// and joins current catalog display data. Product ID is the tie-break so
	// the ranking is deterministic.
	topProductsSQL = `SELECT
			it->>'productId' AS product_id,
			coalesce(p.name, it->>'productName') AS name,
			coalesce(p.category, it->>'category') AS category,
			coalesce(p.image_thumbnail, '') AS thumbnail,
			sum((it->>'quantity')::bigint) AS total_quantity
		FROM orders o
		CROSS JOIN LATERAL jsonb_array_elements(o.items) AS it
		LEFT JOIN products p ON p.id = it->>'productId'
		GROUP BY product_id, name, category, thumbnail
		ORDER BY total_quantity DESC, product_id ASC
		LIMIT $1`

	totalsSQL = `SELECT
		(SELECT count(*) FROM users),
		(SELECT count(*) FROM orders),
		(SELECT coalesce(sum(total), 0) FROM orders)`
)

var _ analytics.Repository = (*AnalyticsRepository)(nil)

// AnalyticsRepository implements analytics.Repository by pushing every
// aggregation into SQL. Revenue sums always read the stored order totals.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// DailyOrders returns the order count per calendar day, ascending.
func (r *AnalyticsRepository) DailyOrders(ctx context.Context) ([]analytics.DailyCount, error) {
	rows, err := r.pool.Query(ctx, dailyOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily orders: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.DailyCount])
}

// DailyRevenue returns the summed order totals per calendar day, ascending.
func (r *AnalyticsRepository) DailyRevenue(ctx context.Context) ([]analytics.DailyRevenue, error) {
	rows, err := r.pool.Query(ctx, dailyRevenueSQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily revenue: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.DailyRevenue])
}

// DailySignups returns the new-user count per calendar day, ascending.
func (r *AnalyticsRepository) DailySignups(ctx context.Context) ([]analytics.DailyCount, error) {
	rows, err := r.pool.Query(ctx, dailySignupsSQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily signups: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.DailyCount])
}

// MonthlyRevenue returns the summed order totals per year-month, ascending.
func (r *AnalyticsRepository) MonthlyRevenue(ctx context.Context) ([]analytics.MonthlyRevenue, error) {
	rows, err := r.pool.Query(ctx, monthlyRevenueSQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly revenue: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.MonthlyRevenue])
}

// StatusBreakdown returns the order count per lifecycle status.
func (r *AnalyticsRepository) StatusBreakdown(ctx context.Context) ([]analytics.StatusCount, error) {
	rows, err := r.pool.Query(ctx, statusBreakdownSQL)
	if err != nil {
		return nil, fmt.Errorf("aggregating status breakdown: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.StatusCount])
}

// TopProducts returns the best-selling products by total ordered quantity.
func (r *AnalyticsRepository) TopProducts(ctx context.Context, limit int) ([]analytics.TopProduct, error) {
	rows, err := r.pool.Query(ctx, topProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregating top products: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[analytics.TopProduct])
}

// Totals returns the headline user, order, and revenue counters.
func (r *AnalyticsRepository) Totals(ctx context.Context) (*analytics.Totals, error) {
	var t analytics.Totals
	if err := r.pool.QueryRow(ctx, totalsSQL).Scan(&t.Users, &t.Orders, &t.Revenue); err != nil {
		return nil, fmt.Errorf("aggregating totals: %w", err)
	}
	return &t, nil
}

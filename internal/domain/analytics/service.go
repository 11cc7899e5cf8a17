package analytics

import (
	"context"

	"github.com/go-faster/errors"
)

// topSellerLimit caps the best-seller ranking on the dashboard.
const topSellerLimit = 5

// Dashboard is the consolidated admin analytics payload: chart series plus
// headline stats, assembled from the individual aggregations.
type Dashboard struct {
	DailyOrders     []DailyCount     `json:"dailyOrders"`
	DailyRevenue    []DailyRevenue   `json:"dailyRevenue"`
	DailySignups    []DailyCount     `json:"dailySignups"`
	MonthlyRevenue  []MonthlyRevenue `json:"monthlyRevenue"`
	StatusBreakdown []StatusCount    `json:"statusBreakdown"`
	TopProducts     []TopProduct     `json:"topProducts"`
	Totals          Totals           `json:"totals"`
}

// Stats is the lighter order-centric summary for the admin stats endpoint.
type Stats struct {
	Totals          Totals        `json:"totals"`
	StatusBreakdown []StatusCount `json:"statusBreakdown"`
}

// Service assembles dashboard payloads from the aggregation repository.
type Service struct {
	repo Repository
}

// NewService creates an analytics Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard recomputes every chart series and counter for the admin dashboard.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	dailyOrders, err := s.repo.DailyOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "daily orders")
	}
	dailyRevenue, err := s.repo.DailyRevenue(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "daily revenue")
	}
	dailySignups, err := s.repo.DailySignups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "daily signups")
	}
	monthlyRevenue, err := s.repo.MonthlyRevenue(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "monthly revenue")
	}
	breakdown, err := s.repo.StatusBreakdown(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "status breakdown")
	}
	top, err := s.repo.TopProducts(ctx, topSellerLimit)
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "totals")
	}

	return &Dashboard{
		DailyOrders:     dailyOrders,
		DailyRevenue:    dailyRevenue,
		DailySignups:    dailySignups,
		MonthlyRevenue:  monthlyRevenue,
		StatusBreakdown: breakdown,
		TopProducts:     top,
		Totals:          *totals,
	}, nil
}

// Stats recomputes the order totals and status breakdown.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "totals")
	}
	breakdown, err := s.repo.StatusBreakdown(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "status breakdown")
	}
	return &Stats{
		Totals:          *totals,
		StatusBreakdown: breakdown,
	}, nil
}

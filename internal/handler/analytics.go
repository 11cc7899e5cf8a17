package handler

import (
	"net/http"

	"github.com/xenking/atelier-api/internal/domain/analytics"
	"github.com/xenking/atelier-api/internal/domain/auth"
	"github.com/xenking/atelier-api/internal/domain/order"
)

type dashboardResponse struct {
	Success   bool                 `json:"success"`
	Analytics *analytics.Dashboard `json:"analytics"`
}

type statsResponse struct {
	Success      bool             `json:"success"`
	Stats        *analytics.Stats `json:"stats"`
	RecentOrders []orderJSON      `json:"recentOrders"`
}

// Dashboard handles GET /admin/analytics (admin only): the consolidated chart
// and counter payload, recomputed on every request.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Success: true, Analytics: d})
}

// recentOrdersLimit bounds the order preview on the admin stats endpoint.
const recentOrdersLimit = 5

// AdminStats handles GET /orders/admin/stats (admin only): headline counters,
// the status breakdown, and the most recent orders.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	stats, err := h.analytics.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	recent, err := h.recentOrders(r, principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Success:      true,
		Stats:        stats,
		RecentOrders: recent,
	})
}

func (h *Handler) recentOrders(r *http.Request, principal auth.Principal) ([]orderJSON, error) {
	result, err := h.orders.List(r.Context(), order.ListQuery{Page: 1, Limit: recentOrdersLimit}, principal)
	if err != nil {
		return nil, err
	}
	out := make([]orderJSON, len(result.Orders))
	for i := range result.Orders {
		out[i] = toOrderJSON(&result.Orders[i])
	}
	return out, nil
}

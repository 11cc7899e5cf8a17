package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/user"
)

// orderJSON is the wire shape of an order.
type orderJSON struct {
	ID                 string                `json:"id"`
	OrderNumber        string                `json:"orderNumber"`
	Customer           *user.Summary         `json:"customer"`
	Items              []itemJSON            `json:"items"`
	Pricing            pricingJSON           `json:"pricing"`
	ShippingAddress    order.ShippingAddress `json:"shippingAddress"`
	PaymentInfo        order.PaymentInfo     `json:"paymentInfo"`
	Status             order.Status          `json:"status"`
	Communication      []order.Message       `json:"communication"`
	ActualDeliveryDate *time.Time            `json:"actualDeliveryDate,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

type itemJSON struct {
	ProductID      string                `json:"productId"`
	ProductName    string                `json:"productName"`
	Category       string                `json:"category"`
	PackageType    string                `json:"packageType"`
	Quantity       int                   `json:"quantity"`
	Price          float64               `json:"price"`
	Customizations []order.Customization `json:"customizations"`
}

type pricingJSON struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

func toOrderJSON(o *order.Order) orderJSON {
	items := make([]itemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemJSON{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Category:       it.Category,
			PackageType:    string(it.Tier),
			Quantity:       it.Quantity,
			Price:          it.UnitPrice.InexactFloat64(),
			Customizations: it.Customizations,
		}
	}
	return orderJSON{
		ID:          o.ID,
		OrderNumber: o.Number,
		Customer:    o.Customer,
		Items:       items,
		Pricing: pricingJSON{
			Subtotal: o.Subtotal.InexactFloat64(),
			Tax:      o.Tax.InexactFloat64(),
			Total:    o.Total.InexactFloat64(),
		},
		ShippingAddress:    o.Shipping,
		PaymentInfo:        o.Payment,
		Status:             o.Status,
		Communication:      o.Communication,
		ActualDeliveryDate: o.ActualDeliveryDate,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

type orderResponse struct {
	Success bool      `json:"success"`
	Order   orderJSON `json:"order"`
}

type orderListResponse struct {
	Success    bool        `json:"success"`
	Orders     []orderJSON `json:"orders"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// CreateOrder handles POST /orders: order intake from raw JSON or a multipart
// form wrapping the JSON in a "data" field.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	req, err := parseCreateOrder(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req.CustomerID = principal.UserID

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Success: true, Order: toOrderJSON(o)})
}

// GetOrder handles GET /orders/{ref}: lookup by UUID or order number, scoped
// to the owner unless the caller is an administrator.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "ref"), principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: toOrderJSON(o)})
}

// ListOrders handles GET /orders: paginated, filterable listing.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	q, err := parseListQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	result, err := h.orders.List(r.Context(), q, principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	orders := make([]orderJSON, len(result.Orders))
	for i := range result.Orders {
		orders[i] = toOrderJSON(&result.Orders[i])
	}
	writeJSON(w, http.StatusOK, orderListResponse{
		Success:    true,
		Orders:     orders,
		Page:       result.Page,
		Limit:      result.Limit,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// UpdateStatus handles PUT /orders/{ref}/status (admin only).
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var body struct {
		Status  order.Status `json:"status"`
		Message string       `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "must be a valid JSON body", nil)
		return
	}

	o, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "ref"), body.Status, body.Message, principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: toOrderJSON(o)})
}

// AddMessage handles POST /orders/{ref}/communication.
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var body struct {
		Message string            `json:"message"`
		Type    order.MessageType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "must be a valid JSON body", nil)
		return
	}

	o, err := h.orders.AddMessage(r.Context(), chi.URLParam(r, "ref"), body.Message, body.Type, principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: toOrderJSON(o)})
}

// CancelOrder handles PUT /orders/{ref}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "ref"), principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: toOrderJSON(o)})
}

// parseListQuery reads pagination and filter parameters. Dates accept either
// YYYY-MM-DD or RFC 3339.
func parseListQuery(r *http.Request) (order.ListQuery, error) {
	q := order.ListQuery{
		Status: order.Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Page:   intParam(r, "page"),
		Limit:  intParam(r, "limit"),
	}

	start, err := dateParam(r, "startDate")
	if err != nil {
		return order.ListQuery{}, err
	}
	end, err := dateParam(r, "endDate")
	if err != nil {
		return order.ListQuery{}, err
	}
	q.StartDate, q.EndDate = start, end
	return q, nil
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, &order.ValidationError{Fields: []order.FieldError{
		{Field: name, Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"},
	}}
}

package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xenking/atelier-api/internal/domain/order"
)

var exportHeader = []string{
	"Order Number", "Customer Name", "Customer Email", "Status", "Total Amount",
	"Items Count", "Products", "Created Date", "Updated Date", "Shipping Address", "Phone",
}

// ExportCSV handles GET /orders/export/csv (admin only): streams every order
// as one CSV row. encoding/csv takes care of RFC 4180 quoting, so embedded
// quotes come out doubled.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	orders, err := h.orders.Export(r.Context(), principal)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("orders_export_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for i := range orders {
		_ = cw.Write(exportRow(&orders[i]))
	}
	cw.Flush()
}

// exportRow renders one order as a CSV record.
func exportRow(o *order.Order) []string {
	products := make([]string, len(o.Items))
	for i, it := range o.Items {
		products[i] = fmt.Sprintf("%s (%s, Qty: %d)", it.ProductName, it.Tier, it.Quantity)
	}

	var customerName, customerEmail string
	if o.Customer != nil {
		customerName, customerEmail = o.Customer.Name, o.Customer.Email
	}

	return []string{
		o.Number,
		customerName,
		customerEmail,
		string(o.Status),
		o.Total.StringFixed(2),
		fmt.Sprintf("%d", len(o.Items)),
		strings.Join(products, "; "),
		o.CreatedAt.Format("2006-01-02"),
		o.UpdatedAt.Format("2006-01-02"),
		joinAddress(o.Shipping),
		o.Shipping.Phone,
	}
}

func joinAddress(a order.ShippingAddress) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

package handler

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/product"
	"github.com/xenking/atelier-api/internal/domain/user"
)

func TestExportCSV(t *testing.T) {
	o := storedOrder(order.StatusCompleted)
	o.CreatedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	o.UpdatedAt = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	o.Shipping = order.ShippingAddress{
		Phone:      "+1555000111",
		Street:     "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
	orders := &mockOrderRepo{listOrders: []order.Order{*o}, listTotal: 1}
	router := newRouter(newCatalog(), orders)

	rec := doRequest(router, http.MethodGet, "/orders/export/csv", adminKey, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Zero(t, orders.listFilter.Limit, "export must not page")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])

	row := records[1]
	assert.Equal(t, "ORD-1-0001", row[0])
	assert.Equal(t, "Dana", row[1])
	assert.Equal(t, "dana@example.com", row[2])
	assert.Equal(t, "completed", row[3])
	assert.Equal(t, "1100.00", row[4])
	assert.Equal(t, "1", row[5])
	assert.Equal(t, "Logo Design (base, Qty: 2)", row[6])
	assert.Equal(t, "2026-08-01", row[7])
	assert.Equal(t, "2026-08-15", row[8])
	assert.Equal(t, "1 Main St, Springfield, 12345, US", row[9])
	assert.Equal(t, "+1555000111", row[10])
}

func TestExportCSV_QuotesAndCommasEscaped(t *testing.T) {
	o := storedOrder(order.StatusPending)
	o.Customer = &user.Summary{ID: "u1", Name: `Dana "Dee" Example`, Email: "dana@example.com"}
	o.Items = []order.Item{{
		ProductName: `Logo, "Deluxe"`,
		Tier:        product.TierBase,
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("50.00"),
	}}
	orders := &mockOrderRepo{listOrders: []order.Order{*o}, listTotal: 1}
	router := newRouter(newCatalog(), orders)

	rec := doRequest(router, http.MethodGet, "/orders/export/csv", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Raw output doubles embedded quotes and wraps the field in quotes.
	assert.Contains(t, rec.Body.String(), `"Dana ""Dee"" Example"`)
	assert.Contains(t, rec.Body.String(), `"Logo, ""Deluxe"" (base, Qty: 1)"`)

	// And a conforming reader round-trips the original values.
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `Dana "Dee" Example`, records[1][1])
}

func TestExportRow_NoCustomer(t *testing.T) {
	o := storedOrder(order.StatusPending)
	o.Customer = nil

	row := exportRow(o)

	assert.Empty(t, row[1])
	assert.Empty(t, row[2])
}

package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/product"
)

func TestParseCreateOrder_JSON(t *testing.T) {
	payload := `{
		"items": [{
			"productId": "p1",
			"packageType": "premium",
			"quantity": 2,
			"customizations": {"Color": "blue", "Font": "serif"}
		}],
		"shippingAddress": {"fullName": "Dana", "email": "d@e.com", "phone": "1"},
		"paymentMethod": "manual_transfer",
		"manualTransactionId": "tx-42"
	}`
	r := httptest.NewRequest("POST", "/orders", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	req, err := parseCreateOrder(r)

	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	it := req.Items[0]
	assert.Equal(t, "p1", it.ProductID)
	assert.Equal(t, product.TierPremium, it.Tier)
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, []order.Customization{
		{OptionName: "Color", SelectedValue: "blue"},
		{OptionName: "Font", SelectedValue: "serif"},
	}, it.Customizations)
	assert.Equal(t, "tx-42", req.TransactionID)
	assert.Equal(t, "Dana", req.Shipping.FullName)
}

func TestParseCreateOrder_TierFieldWins(t *testing.T) {
	payload := `{"items": [{"productId": "p1", "tier": "enterprise", "packageType": "base"}]}`
	r := httptest.NewRequest("POST", "/orders", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	req, err := parseCreateOrder(r)

	require.NoError(t, err)
	assert.Equal(t, product.TierEnterprise, req.Items[0].Tier)
}

func TestParseCreateOrder_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", `{
		"items": [{"productId": "p1", "quantity": 1}],
		"shippingAddress": {"fullName": "Dana", "email": "d@e.com", "phone": "1"}
	}`))
	fw, err := mw.CreateFormFile("paymentScreenshot", "receipt.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/orders", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	req, err := parseCreateOrder(r)

	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "receipt.png", req.PaymentScreenshot)
}

func TestParseCreateOrder_MultipartMissingData(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/orders", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	_, err := parseCreateOrder(r)

	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "data", vErr.Fields[0].Field)
}

func TestFlattenCustomizations_PreservesClientOrder(t *testing.T) {
	raw := json.RawMessage(`{"zeta": "last?", "alpha": "first?", "mid": "middle"}`)

	out, err := flattenCustomizations(raw)

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "zeta", out[0].OptionName)
	assert.Equal(t, "alpha", out[1].OptionName)
	assert.Equal(t, "mid", out[2].OptionName)
}

func TestFlattenCustomizations_NonStringValues(t *testing.T) {
	raw := json.RawMessage(`{"Revisions": 3, "Rush": true}`)

	out, err := flattenCustomizations(raw)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "3", out[0].SelectedValue)
	assert.Equal(t, "true", out[1].SelectedValue)
}

func TestFlattenCustomizations_EmptyAndNull(t *testing.T) {
	out, err := flattenCustomizations(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = flattenCustomizations(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFlattenCustomizations_NotAnObject(t *testing.T) {
	_, err := flattenCustomizations(json.RawMessage(`["a", "b"]`))
	require.Error(t, err)
}

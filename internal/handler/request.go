package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/product"
)

// maxBodyBytes caps order intake payloads, including multipart uploads.
const maxBodyBytes = 32 << 20

// createOrderBody is the typed shape of an order intake request. The
// customizations object is kept raw so its key order can be preserved.
type createOrderBody struct {
	Items           []createItemBody      `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	TransactionID   string                `json:"manualTransactionId"`
}

type createItemBody struct {
	ProductID      string          `json:"productId"`
	Tier           product.Tier    `json:"tier"`
	PackageType    product.Tier    `json:"packageType"` // legacy alias for tier
	Quantity       int             `json:"quantity"`
	Customizations json.RawMessage `json:"customizations"`
}

// parseCreateOrder decodes an order intake request. The body is either raw
// JSON or a multipart form carrying the JSON under a "data" field, with the
// payment screenshot as an optional file part.
func parseCreateOrder(r *http.Request) (order.CreateRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	var (
		body       createOrderBody
		screenshot string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return order.CreateRequest{}, &order.ValidationError{Fields: []order.FieldError{
				{Field: "body", Message: "invalid multipart form"},
			}}
		}
		data := r.FormValue("data")
		if data == "" {
			return order.CreateRequest{}, &order.ValidationError{Fields: []order.FieldError{
				{Field: "data", Message: "is required"},
			}}
		}
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return order.CreateRequest{}, &order.ValidationError{Fields: []order.FieldError{
				{Field: "data", Message: "must be a valid JSON order"},
			}}
		}
		if file, header, err := r.FormFile("paymentScreenshot"); err == nil {
			_, _ = io.Copy(io.Discard, file)
			_ = file.Close()
			screenshot = header.Filename
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return order.CreateRequest{}, &order.ValidationError{Fields: []order.FieldError{
				{Field: "body", Message: "must be a valid JSON order"},
			}}
		}
	}

	items := make([]order.LineItemRequest, len(body.Items))
	for i, it := range body.Items {
		tier := it.Tier
		if tier == "" {
			tier = it.PackageType
		}
		customizations, err := flattenCustomizations(it.Customizations)
		if err != nil {
			return order.CreateRequest{}, &order.ValidationError{Fields: []order.FieldError{
				{Field: "items.customizations", Message: "must be a JSON object"},
			}}
		}
		items[i] = order.LineItemRequest{
			ProductID:      it.ProductID,
			Tier:           tier,
			Quantity:       it.Quantity,
			Customizations: customizations,
		}
	}

	return order.CreateRequest{
		Items:             items,
		Shipping:          body.ShippingAddress,
		PaymentMethod:     body.PaymentMethod,
		TransactionID:     body.TransactionID,
		PaymentScreenshot: screenshot,
	}, nil
}

// flattenCustomizations converts the free-form customization object into an
// ordered option list. Decoding walks the raw JSON token by token, so the
// client's key order survives (a plain map would shuffle it).
func flattenCustomizations(raw json.RawMessage) ([]order.Customization, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	d := jx.DecodeBytes(raw)
	var out []order.Customization
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var value string
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			value = s
		default:
			v, err := d.Raw()
			if err != nil {
				return err
			}
			value = v.String()
		}
		out = append(out, order.Customization{OptionName: key, SelectedValue: value})
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode customizations")
	}
	return out, nil
}

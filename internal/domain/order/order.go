package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/atelier-api/internal/domain/product"
	"github.com/xenking/atelier-api/internal/domain/user"
)

// Order represents one customer purchase request. Items and pricing are fixed
// at creation time; only status, communication, payment info, and the delivery
// date change over the order's lifetime.
type Order struct {
	ID                 string
	Number             string
	CustomerID         string
	Customer           *user.Summary
	Items              []Item
	Subtotal           decimal.Decimal
	Tax                decimal.Decimal
	Total              decimal.Decimal
	Shipping           ShippingAddress
	Payment            PaymentInfo
	Status             Status
	Communication      []Message
	ActualDeliveryDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Item is one line of an order. ProductName, Category, and UnitPrice are
// snapshots taken when the order was placed; later catalog edits never alter
// existing orders.
type Item struct {
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	Category       string          `json:"category"`
	Tier           product.Tier    `json:"packageType"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"price"`
	Customizations []Customization `json:"customizations"`
}

// Customization is one selected option on a line item. The slice order matches
// the order the client supplied the options in.
type Customization struct {
	OptionName    string `json:"optionName"`
	SelectedValue string `json:"selectedValue"`
}

// ShippingAddress is a snapshot of delivery details at order time, decoupled
// from the live user record so historical orders survive profile edits.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentInfo records how the customer pays for the order.
type PaymentInfo struct {
	Method              string `json:"method"`
	ManualTransactionID string `json:"manualTransactionId,omitempty"`
	PaymentScreenshot   string `json:"paymentScreenshot,omitempty"`
	PaymentStatus       string `json:"paymentStatus"`
}

// MessageType classifies communication log entries.
type MessageType string

const (
	MessageTypeMessage         MessageType = "message"
	MessageTypeFileUpload      MessageType = "file_upload"
	MessageTypeRevisionRequest MessageType = "revision_request"
	MessageTypeStatusUpdate    MessageType = "status_update"
)

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeMessage, MessageTypeFileUpload, MessageTypeRevisionRequest, MessageTypeStatusUpdate:
		return true
	}
	return false
}

// Message is one entry in an order's append-only communication log.
type Message struct {
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ListFilter narrows and pages List results. A zero Limit means no paging.
type ListFilter struct {
	CustomerID string
	Status     Status
	Search     string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// Repository defines persistence operations for orders. GetByRef accepts
// either the order UUID or the human-readable order number. Update must write
// status, communication, payment info, delivery date, and updated_at in a
// single statement so a lifecycle transition commits atomically.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByRef(ctx context.Context, ref string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	Update(ctx context.Context, o *Order) error
}

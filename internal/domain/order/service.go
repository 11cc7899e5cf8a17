package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/xenking/atelier-api/internal/domain/auth"
	"github.com/xenking/atelier-api/internal/domain/product"
	"github.com/xenking/atelier-api/internal/domain/user"
)

// Service encapsulates the order lifecycle: intake with pricing, status
// transitions, cancellation, and the communication log.
type Service struct {
	products product.Repository
	orders   Repository
	users    user.Repository
}

// NewService creates an order Service with the required dependencies.
func NewService(products product.Repository, orders Repository, users user.Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
		users:    users,
	}
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	CustomerID        string
	Items             []LineItemRequest
	Shipping          ShippingAddress
	PaymentMethod     string
	TransactionID     string
	PaymentScreenshot string
}

// Create validates the request, prices every line item against the catalog,
// computes totals, and persists the order in a single write with status
// pending. Any failure aborts the whole order; nothing is persisted partially.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateShipping(req.Shipping); err != nil {
		return nil, err
	}

	// Batch fetch all referenced products in a single query.
	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	items := make([]Item, len(req.Items))
	for i, it := range req.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		item, err := PriceLineItem(p, it)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	subtotal, tax, total := Totals(items)

	// Resolve the customer summary up front so the create response carries
	// it without a second read.
	cust, err := s.users.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("get customer %q: %w", req.CustomerID, err)
	}

	method := req.PaymentMethod
	if method == "" {
		method = "manual_transfer"
	}

	o := &Order{
		ID:         uuid.New().String(),
		Number:     newOrderNumber(),
		CustomerID: req.CustomerID,
		Customer:   &user.Summary{ID: cust.ID, Name: cust.Name, Email: cust.Email},
		Items:      items,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      total,
		Shipping:   req.Shipping,
		Payment: PaymentInfo{
			Method:              method,
			ManualTransactionID: req.TransactionID,
			PaymentScreenshot:   req.PaymentScreenshot,
			PaymentStatus:       "pending",
		},
		Status:        StatusPending,
		Communication: []Message{},
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Get returns the order identified by ref (UUID or order number). Customers
// may only read their own orders.
func (s *Service) Get(ctx context.Context, ref string, actor auth.Principal) (*Order, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.CustomerID != actor.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListResult is one page of orders plus paging metadata.
type ListResult struct {
	Orders     []Order
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ListQuery narrows and pages the order listing.
type ListQuery struct {
	Status    Status
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// List returns a page of orders. Administrators see every order; customers
// only their own.
func (s *Service) List(ctx context.Context, q ListQuery, actor auth.Principal) (*ListResult, error) {
	if q.Status != "" && !ValidStatus(q.Status) {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "status", Message: fmt.Sprintf("unknown status %q", q.Status)},
		}}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	f := ListFilter{
		Status:    q.Status,
		Search:    q.Search,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if !actor.IsAdmin() {
		f.CustomerID = actor.UserID
	}

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &ListResult{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Export returns every order, newest first, for administrative export.
func (s *Service) Export(ctx context.Context, actor auth.Principal) ([]Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	orders, _, err := s.orders.List(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// SetStatus moves an order to newStatus. Only administrators may call it; the
// transition must be legal per the lifecycle table. Exactly one communication
// entry is appended, and the delivery date is stamped set-once on the first
// transition to completed. The whole mutation is persisted in one write.
func (s *Service) SetStatus(ctx context.Context, ref string, newStatus Status, note string, actor auth.Principal) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "status", Message: fmt.Sprintf("unknown status %q", newStatus)},
		}}
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, newStatus) {
		return nil, &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	content := note
	if content == "" {
		content = fmt.Sprintf("Order status changed from %s to %s", o.Status, newStatus)
	}

	now := time.Now().UTC()
	o.Status = newStatus
	o.Communication = append(o.Communication, Message{
		Sender:    senderLabel(actor),
		Content:   content,
		Type:      MessageTypeStatusUpdate,
		CreatedAt: now,
	})
	if newStatus == StatusCompleted && o.ActualDeliveryDate == nil {
		o.ActualDeliveryDate = &now
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %q: %w", o.ID, err)
	}
	return o, nil
}

// Cancel moves an order to cancelled. The owning customer or an administrator
// may cancel any order not already in a terminal state.
func (s *Service) Cancel(ctx context.Context, ref string, actor auth.Principal) (*Order, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.CustomerID != actor.UserID {
		return nil, ErrForbidden
	}
	if o.Status.IsTerminal() {
		return nil, &IllegalStateError{Status: o.Status, Op: "cancel"}
	}

	o.Status = StatusCancelled
	o.Communication = append(o.Communication, Message{
		Sender:    senderLabel(actor),
		Content:   fmt.Sprintf("Order cancelled by %s", senderLabel(actor)),
		Type:      MessageTypeStatusUpdate,
		CreatedAt: time.Now().UTC(),
	})

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %q: %w", o.ID, err)
	}
	return o, nil
}

// AddMessage appends one entry to the order's communication log without
// touching the status. The owning customer or an administrator may post.
func (s *Service) AddMessage(ctx context.Context, ref, content string, typ MessageType, actor auth.Principal) (*Order, error) {
	if typ == "" {
		typ = MessageTypeMessage
	}
	var fields []FieldError
	if l := utf8.RuneCountInString(content); l < 1 || l > 1000 {
		fields = append(fields, FieldError{Field: "message", Message: "must be between 1 and 1000 characters"})
	}
	if !ValidMessageType(typ) {
		fields = append(fields, FieldError{Field: "type", Message: fmt.Sprintf("unknown message type %q", typ)})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.CustomerID != actor.UserID {
		return nil, ErrForbidden
	}

	o.Communication = append(o.Communication, Message{
		Sender:    senderLabel(actor),
		Content:   content,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	})

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %q: %w", o.ID, err)
	}
	return o, nil
}

func senderLabel(actor auth.Principal) string {
	if actor.IsAdmin() {
		return "admin"
	}
	return "customer"
}

// newOrderNumber generates the human-readable alternate key, unique enough in
// practice and guarded by the storage unique index.
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), rand.IntN(10000))
}

func validateShipping(a ShippingAddress) error {
	var fields []FieldError
	if a.FullName == "" {
		fields = append(fields, FieldError{Field: "shippingAddress.fullName", Message: "is required"})
	}
	if a.Email == "" {
		fields = append(fields, FieldError{Field: "shippingAddress.email", Message: "is required"})
	}
	if a.Phone == "" {
		fields = append(fields, FieldError{Field: "shippingAddress.phone", Message: "is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

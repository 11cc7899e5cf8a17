package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/atelier-api/internal/domain/auth"
	"github.com/xenking/atelier-api/internal/domain/product"
	"github.com/xenking/atelier-api/internal/domain/user"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockUserRepo struct {
	byID map[string]*user.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type mockOrderRepo struct {
	stored    *Order
	created   *Order
	updated   *Order
	updates   int
	createErr error
	getErr    error
	updateErr error

	listFilter ListFilter
	listOrders []Order
	listTotal  int
	listErr    error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.created = o
	return m.createErr
}

func (m *mockOrderRepo) GetByRef(_ context.Context, ref string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.stored == nil || (m.stored.ID != ref && m.stored.Number != ref) {
		return nil, ErrNotFound
	}
	cp := *m.stored
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context, f ListFilter) ([]Order, int, error) {
	m.listFilter = f
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listOrders, m.listTotal, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	m.updated = o
	m.updates++
	return m.updateErr
}

// --- Helpers ---

var (
	customerActor = auth.Principal{UserID: "u1", Name: "Dana", Role: auth.RoleCustomer}
	otherCustomer = auth.Principal{UserID: "u2", Name: "Sam", Role: auth.RoleCustomer}
	adminActor    = auth.Principal{UserID: "a1", Name: "Ops", Role: auth.RoleAdmin}
)

func newCatalog(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func newUsers() *mockUserRepo {
	return &mockUserRepo{byID: map[string]*user.User{
		"u1": {ID: "u1", Name: "Dana", Email: "dana@example.com", Role: "customer"},
		"u2": {ID: "u2", Name: "Sam", Email: "sam@example.com", Role: "customer"},
		"a1": {ID: "a1", Name: "Ops", Email: "ops@example.com", Role: "admin"},
	}}
}

func validShipping() ShippingAddress {
	return ShippingAddress{
		FullName: "Dana Example",
		Email:    "dana@example.com",
		Phone:    "+1555000111",
		Street:   "1 Main St",
		City:     "Springfield",
		Country:  "US",
	}
}

func storedOrder(status Status) *Order {
	return &Order{
		ID:         "o1",
		Number:     "ORD-1-0001",
		CustomerID: "u1",
		Status:     status,
		Items: []Item{
			{ProductID: "p1", ProductName: "Logo Design", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
		},
		Communication: []Message{},
	}
}

// --- Create ---

func TestCreate_EmptyItems(t *testing.T) {
	svc := NewService(newCatalog(), &mockOrderRepo{}, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{CustomerID: "u1"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_MissingShippingFields(t *testing.T) {
	p := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "50.00"})
	svc := NewService(newCatalog(p), &mockOrderRepo{}, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items:      []LineItemRequest{{ProductID: "p1", Quantity: 1}},
		Shipping:   ShippingAddress{FullName: "Dana Example"},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestCreate_ProductNotFound(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items:      []LineItemRequest{{ProductID: "missing", Quantity: 1}},
		Shipping:   validShipping(),
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
	assert.Nil(t, repo.created, "nothing may be persisted when pricing fails")
}

func TestCreate_InvalidTierAbortsWholeOrder(t *testing.T) {
	p1 := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "50.00"})
	p2 := newTieredProduct("p2", "Brand Kit", map[product.Tier]string{product.TierBase: "200.00"})
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(p1, p2), repo, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items: []LineItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Tier: product.TierEnterprise, Quantity: 1},
		},
		Shipping: validShipping(),
	})

	var tierErr *InvalidTierError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, "p2", tierErr.ProductID)
	assert.Nil(t, repo.created)
}

func TestCreate_Totals(t *testing.T) {
	p := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "500.00"})
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(p), repo, newUsers())

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items:      []LineItemRequest{{ProductID: "p1", Quantity: 2}},
		Shipping:   validShipping(),
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1000.00").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("100.00").Equal(o.Tax))
	assert.True(t, decimal.RequireFromString("1100.00").Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.CustomerID)
	assert.NotEmpty(t, o.ID)
	assert.Regexp(t, `^ORD-\d+-\d{4}$`, o.Number)
	assert.Equal(t, "manual_transfer", o.Payment.Method)
	assert.Equal(t, "pending", o.Payment.PaymentStatus)
	assert.NotNil(t, repo.created)
}

func TestCreate_RepoError(t *testing.T) {
	p := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "50.00"})
	svc := NewService(newCatalog(p), &mockOrderRepo{createErr: errors.New("db write failed")}, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items:      []LineItemRequest{{ProductID: "p1", Quantity: 1}},
		Shipping:   validShipping(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestCreate_ResolvesCustomerSummary(t *testing.T) {
	p := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "50.00"})
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(p), repo, newUsers())

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "u1",
		Items:      []LineItemRequest{{ProductID: "p1", Quantity: 1}},
		Shipping:   validShipping(),
	})

	require.NoError(t, err)
	require.NotNil(t, o.Customer, "created order must carry the customer summary")
	assert.Equal(t, "u1", o.Customer.ID)
	assert.Equal(t, "Dana", o.Customer.Name)
	assert.Equal(t, "dana@example.com", o.Customer.Email)
	assert.Same(t, o, repo.created, "persisted order carries the same summary")
}

func TestCreate_UnknownCustomer(t *testing.T) {
	p := newTieredProduct("p1", "Logo Design", map[product.Tier]string{product.TierBase: "50.00"})
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(p), repo, newUsers())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "ghost",
		Items:      []LineItemRequest{{ProductID: "p1", Quantity: 1}},
		Shipping:   validShipping(),
	})

	require.ErrorIs(t, err, user.ErrNotFound)
	assert.Nil(t, repo.created)
}

// --- Get ---

func TestGet_OwnerAndAdmin(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.Get(context.Background(), "o1", customerActor)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	o, err = svc.Get(context.Background(), "ORD-1-0001", adminActor)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestGet_ForbiddenForOtherCustomer(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.Get(context.Background(), "o1", otherCustomer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newCatalog(), &mockOrderRepo{}, newUsers())

	_, err := svc.Get(context.Background(), "nope", adminActor)
	require.ErrorIs(t, err, ErrNotFound)
}

// --- List ---

func TestList_CustomerScopedAndPaged(t *testing.T) {
	repo := &mockOrderRepo{listOrders: []Order{*storedOrder(StatusPending)}, listTotal: 21}
	svc := NewService(newCatalog(), repo, newUsers())

	res, err := svc.List(context.Background(), ListQuery{Page: 2, Limit: 10}, customerActor)

	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listFilter.CustomerID)
	assert.Equal(t, 10, repo.listFilter.Limit)
	assert.Equal(t, 10, repo.listFilter.Offset)
	assert.Equal(t, 21, res.Total)
	assert.Equal(t, 3, res.TotalPages)
}

func TestList_AdminSeesAll(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newCatalog(), repo, newUsers())

	res, err := svc.List(context.Background(), ListQuery{}, adminActor)

	require.NoError(t, err)
	assert.Empty(t, repo.listFilter.CustomerID)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.Limit)
}

func TestList_UnknownStatus(t *testing.T) {
	svc := NewService(newCatalog(), &mockOrderRepo{}, newUsers())

	_, err := svc.List(context.Background(), ListQuery{Status: "shipped"}, adminActor)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

// --- Export ---

func TestExport_AdminOnly(t *testing.T) {
	repo := &mockOrderRepo{listOrders: []Order{*storedOrder(StatusPending)}, listTotal: 1}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.Export(context.Background(), customerActor)
	require.ErrorIs(t, err, ErrForbidden)

	orders, err := svc.Export(context.Background(), adminActor)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Zero(t, repo.listFilter.Limit, "export must not page")
}

// --- SetStatus ---

func TestSetStatus_AdminOnly(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.SetStatus(context.Background(), "o1", StatusConfirmed, "", customerActor)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	svc := NewService(newCatalog(), &mockOrderRepo{stored: storedOrder(StatusPending)}, newUsers())

	_, err := svc.SetStatus(context.Background(), "o1", "shipped", "", adminActor)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSetStatus_IllegalTransition(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.SetStatus(context.Background(), "o1", StatusCompleted, "", adminActor)

	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusPending, trErr.From)
	assert.Equal(t, StatusCompleted, trErr.To)
	assert.Nil(t, repo.updated)
}

func TestSetStatus_AppendsOneMessage(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.SetStatus(context.Background(), "o1", StatusConfirmed, "", adminActor)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	require.Len(t, o.Communication, 1)
	msg := o.Communication[0]
	assert.Equal(t, "admin", msg.Sender)
	assert.Equal(t, MessageTypeStatusUpdate, msg.Type)
	assert.Equal(t, "Order status changed from pending to confirmed", msg.Content)
	assert.Equal(t, 1, repo.updates)
}

func TestSetStatus_CustomNote(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusReview)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.SetStatus(context.Background(), "o1", StatusRevision, "please fix the colors", adminActor)

	require.NoError(t, err)
	require.Len(t, o.Communication, 1)
	assert.Equal(t, "please fix the colors", o.Communication[0].Content)
}

func TestSetStatus_StampsDeliveryDateOnce(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusReview)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.SetStatus(context.Background(), "o1", StatusCompleted, "", adminActor)

	require.NoError(t, err)
	require.NotNil(t, o.ActualDeliveryDate)
	assert.WithinDuration(t, time.Now().UTC(), *o.ActualDeliveryDate, time.Minute)
}

func TestSetStatus_KeepsExistingDeliveryDate(t *testing.T) {
	earlier := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stored := storedOrder(StatusReview)
	stored.ActualDeliveryDate = &earlier
	repo := &mockOrderRepo{stored: stored}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.SetStatus(context.Background(), "o1", StatusCompleted, "", adminActor)

	require.NoError(t, err)
	require.NotNil(t, o.ActualDeliveryDate)
	assert.True(t, o.ActualDeliveryDate.Equal(earlier))
}

// --- Cancel ---

func TestCancel_Owner(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusInProgress)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.Cancel(context.Background(), "o1", customerActor)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, o.Communication, 1)
	assert.Equal(t, "customer", o.Communication[0].Sender)
	assert.Equal(t, "Order cancelled by customer", o.Communication[0].Content)
}

func TestCancel_ForbiddenForOtherCustomer(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusPending)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.Cancel(context.Background(), "o1", otherCustomer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_TerminalStates(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		repo := &mockOrderRepo{stored: storedOrder(status)}
		svc := NewService(newCatalog(), repo, newUsers())

		_, err := svc.Cancel(context.Background(), "o1", adminActor)

		var stErr *IllegalStateError
		require.ErrorAs(t, err, &stErr, "status %s", status)
		assert.Equal(t, status, stErr.Status)
		assert.Nil(t, repo.updated)
	}
}

// --- AddMessage ---

func TestAddMessage_DefaultsType(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusInProgress)}
	svc := NewService(newCatalog(), repo, newUsers())

	o, err := svc.AddMessage(context.Background(), "o1", "how is it going?", "", customerActor)

	require.NoError(t, err)
	require.Len(t, o.Communication, 1)
	assert.Equal(t, MessageTypeMessage, o.Communication[0].Type)
	assert.Equal(t, "customer", o.Communication[0].Sender)
}

func TestAddMessage_ValidatesContentAndType(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusInProgress)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.AddMessage(context.Background(), "o1", "", MessageTypeMessage, customerActor)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.AddMessage(context.Background(), "o1", string(long), MessageTypeMessage, customerActor)
	require.ErrorAs(t, err, &vErr)

	_, err = svc.AddMessage(context.Background(), "o1", "hello", "carrier_pigeon", customerActor)
	require.ErrorAs(t, err, &vErr)
	assert.Nil(t, repo.updated)
}

// Content length is bounded in characters, not bytes; a multibyte message
// under the limit must be accepted.
func TestAddMessage_MultibyteContentLength(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusInProgress)}
	svc := NewService(newCatalog(), repo, newUsers())

	// 1000 runes, 3000 bytes.
	o, err := svc.AddMessage(context.Background(), "o1", strings.Repeat("界", 1000), MessageTypeMessage, customerActor)
	require.NoError(t, err)
	require.Len(t, o.Communication, 1)

	_, err = svc.AddMessage(context.Background(), "o1", strings.Repeat("界", 1001), MessageTypeMessage, customerActor)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestAddMessage_ForbiddenForOtherCustomer(t *testing.T) {
	repo := &mockOrderRepo{stored: storedOrder(StatusInProgress)}
	svc := NewService(newCatalog(), repo, newUsers())

	_, err := svc.AddMessage(context.Background(), "o1", "hello", MessageTypeMessage, otherCustomer)
	require.ErrorIs(t, err, ErrForbidden)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/user"
)

const (
	orderColumns = `o.id, o.order_number, o.customer_id, o.items, o.subtotal, o.tax, o.total,
		o.shipping_address, o.payment_info, o.status, o.communication,
		o.actual_delivery_date, o.created_at, o.updated_at,
		u.name, u.email`

	createOrderSQL = `INSERT INTO orders
		(id, order_number, customer_id, items, subtotal, tax, total,
		 shipping_address, payment_info, status, communication)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderByRefSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.customer_id
		WHERE o.id::text = $1 OR o.order_number = $1`

	// updateOrderSQL commits every mutable field in one statement so a status
	// transition, its communication entry, and the delivery date stamp land
	// atomically.
	updateOrderSQL = `UPDATE orders SET
		status = $2,
		communication = $3,
		payment_info = $4,
		actual_delivery_date = $5,
		updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items, the address snapshot, payment info, and the communication log live in
// JSONB columns; money lives in NUMERIC columns scanned as decimals.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order in a single insert.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, shipping, payment, communication, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.CustomerID, items, o.Subtotal, o.Tax, o.Total,
		shipping, payment, o.Status, communication,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	row := r.pool.QueryRow(ctx, `SELECT created_at, updated_at FROM orders WHERE id = $1`, o.ID)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("reading timestamps for order %q: %w", o.ID, err)
	}
	return nil
}

// GetByRef returns the order matching either the UUID or the order number.
func (r *OrderRepository) GetByRef(ctx context.Context, ref string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByRefSQL, ref)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", ref, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", ref, err)
	}
	return &o, nil
}

// List returns one page of orders matching the filter, newest first, plus the
// total match count for pagination.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	where, args := buildOrderFilter(f)

	var total int
	countSQL := `SELECT count(*) FROM orders o` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	listSQL := `SELECT ` + orderColumns + ` FROM orders o JOIN users u ON u.id = o.customer_id` +
		where + ` ORDER BY o.created_at DESC`
	if f.Limit > 0 {
		listSQL += fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit, f.Offset)
	}

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// Update persists the mutable fields of an order in a single statement.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	communication, err := json.Marshal(o.Communication)
	if err != nil {
		return fmt.Errorf("marshaling communication for %q: %w", o.ID, err)
	}
	payment, err := json.Marshal(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling payment info for %q: %w", o.ID, err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, communication, payment, o.ActualDeliveryDate,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func buildOrderFilter(f order.ListFilter) (where string, args []any) {
	var conds []string
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CustomerID != "" {
		conds = append(conds, "o.customer_id = "+arg(f.CustomerID))
	}
	if f.Status != "" {
		conds = append(conds, "o.status = "+arg(string(f.Status)))
	}
	if f.Search != "" {
		conds = append(conds, "o.order_number ILIKE "+arg("%"+f.Search+"%"))
	}
	if f.StartDate != nil {
		conds = append(conds, "o.created_at >= "+arg(*f.StartDate))
	}
	if f.EndDate != nil {
		conds = append(conds, "o.created_at <= "+arg(*f.EndDate))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalOrderDocs(o *order.Order) (items, shipping, payment, communication []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling items for %q: %w", o.ID, err)
	}
	if shipping, err = json.Marshal(o.Shipping); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling shipping address for %q: %w", o.ID, err)
	}
	if payment, err = json.Marshal(o.Payment); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling payment info for %q: %w", o.ID, err)
	}
	if communication, err = json.Marshal(o.Communication); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshaling communication for %q: %w", o.ID, err)
	}
	return items, shipping, payment, communication, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		items         []byte
		shipping      []byte
		payment       []byte
		communication []byte
		customer      user.Summary
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &items, &o.Subtotal, &o.Tax, &o.Total,
		&shipping, &payment, &o.Status, &communication,
		&o.ActualDeliveryDate, &o.CreatedAt, &o.UpdatedAt,
		&customer.Name, &customer.Email,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling items for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling shipping address for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling payment info for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(communication, &o.Communication); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling communication for %q: %w", o.ID, err)
	}

	customer.ID = o.CustomerID
	o.Customer = &customer
	return o, nil
}

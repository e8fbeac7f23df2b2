package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomcart/storefront-api/internal/model"
)

// ErrDuplicateOrderNumber signals a collision on the unique order_number
// index; callers retry with a fresh random suffix.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

type OrderRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, q Querier, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.OrderStatus) error
	UpdatePayment(ctx context.Context, q Querier, id uuid.UUID, payment model.OrderPayment) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const orderColumns = `id, user_id, order_number, items, shipping_address, billing_address,
	payment, status, shipping, discounts, subtotal, shipping_cost, tax, total, notes,
	created_at, updated_at`

func (r *pgOrderRepo) Create(ctx context.Context, q Querier, order *model.Order) error {
	order.ID = uuid.New()
	err := q.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, order_number, items, shipping_address, billing_address,
			payment, status, shipping, discounts, subtotal, shipping_cost, tax, total, notes,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.OrderNumber, order.Items, order.ShippingAddress,
		order.BillingAddress, order.Payment, order.Status, order.Shipping, order.Discounts,
		order.Subtotal, order.ShippingCost, order.Tax, order.Total, order.Notes,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Items, &o.ShippingAddress,
		&o.BillingAddress, &o.Payment, &o.Status, &o.Shipping, &o.Discounts,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := r.scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *pgOrderRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	return orders, total, err
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		err := rows.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Items, &o.ShippingAddress,
			&o.BillingAddress, &o.Payment, &o.Status, &o.Shipping, &o.Discounts,
			&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.OrderStatus) error {
	ct, err := q.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) UpdatePayment(ctx context.Context, q Querier, id uuid.UUID, payment model.OrderPayment) error {
	ct, err := q.Exec(ctx,
		`UPDATE orders SET payment = $2, updated_at = NOW() WHERE id = $1`, id, payment)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

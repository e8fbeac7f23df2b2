package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomcart/storefront-api/internal/model"
)

type PaymentRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, q Querier, payment *model.Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Payment, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error)
	Update(ctx context.Context, q Querier, payment *model.Payment) error
}

type pgPaymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &pgPaymentRepo{pool: pool}
}

func (r *pgPaymentRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const paymentColumns = `id, order_id, user_id, razorpay_order_id, razorpay_payment_id,
	razorpay_signature, amount, currency, status, method, details, refunds, created_at, updated_at`

func (r *pgPaymentRepo) Create(ctx context.Context, q Querier, payment *model.Payment) error {
	payment.ID = uuid.New()
	err := q.QueryRow(ctx,
		`INSERT INTO payments (id, order_id, user_id, razorpay_order_id, razorpay_payment_id,
			razorpay_signature, amount, currency, status, method, details, refunds, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		payment.ID, payment.OrderID, payment.UserID, payment.RazorpayOrderID,
		payment.RazorpayPaymentID, payment.RazorpaySignature, payment.Amount,
		payment.Currency, payment.Status, payment.Method, payment.Details, payment.Refunds,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *pgPaymentRepo) getBy(ctx context.Context, where string, arg any) (*model.Payment, error) {
	p := &model.Payment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+where, arg,
	).Scan(&p.ID, &p.OrderID, &p.UserID, &p.RazorpayOrderID, &p.RazorpayPaymentID,
		&p.RazorpaySignature, &p.Amount, &p.Currency, &p.Status, &p.Method,
		&p.Details, &p.Refunds, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *pgPaymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	return r.getBy(ctx, `order_id = $1`, orderID)
}

func (r *pgPaymentRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Payment, error) {
	return r.getBy(ctx, `razorpay_order_id = $1`, gatewayOrderID)
}

func (r *pgPaymentRepo) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	return r.getBy(ctx, `razorpay_payment_id = $1`, gatewayPaymentID)
}

func (r *pgPaymentRepo) Update(ctx context.Context, q Querier, payment *model.Payment) error {
	err := q.QueryRow(ctx,
		`UPDATE payments SET razorpay_order_id=$2, razorpay_payment_id=$3, razorpay_signature=$4,
			amount=$5, currency=$6, status=$7, method=$8, details=$9, refunds=$10, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		payment.ID, payment.RazorpayOrderID, payment.RazorpayPaymentID, payment.RazorpaySignature,
		payment.Amount, payment.Currency, payment.Status, payment.Method, payment.Details, payment.Refunds,
	).Scan(&payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

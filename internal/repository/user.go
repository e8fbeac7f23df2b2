package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bloomcart/storefront-api/internal/model"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	List(ctx context.Context, search string, limit, offset int) ([]model.User, int, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	DeleteByExternalID(ctx context.Context, externalID string) error
	SetLastSignIn(ctx context.Context, externalID string, at time.Time) error
	PushOrderRef(ctx context.Context, q Querier, userID uuid.UUID, ref model.UserOrderRef) error
	UpdateOrderRefStatus(ctx context.Context, q Querier, userID, orderID uuid.UUID, status model.OrderStatus) error
	IncrementRefundStats(ctx context.Context, q Querier, userID uuid.UUID, amount decimal.Decimal) error
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

const userColumns = `id, external_id, email, first_name, last_name, username, profile_image_url,
	email_verified, phone_number, last_sign_in, addresses, orders, reviews, wishlist, cart,
	preferences, total_orders, total_spent, last_order_date, total_refunds, total_refund_amount,
	created_at, updated_at`

// Upsert inserts the user keyed by external id, or refreshes the mirrored
// profile fields when the identity is already known. Local state (addresses,
// order history, reviews, wishlist, cart, statistics) is never touched by an
// upsert.
func (r *pgUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, external_id, email, first_name, last_name, username,
			profile_image_url, email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			profile_image_url = EXCLUDED.profile_image_url,
			email_verified = EXCLUDED.email_verified,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		user.ID, user.ExternalID, user.Email, user.FirstName, user.LastName,
		user.Username, user.ProfileImageURL, user.EmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName, &u.Username,
		&u.ProfileImageURL, &u.EmailVerified, &u.PhoneNumber, &u.LastSignIn,
		&u.Addresses, &u.Orders, &u.Reviews, &u.Wishlist, &u.Cart, &u.Preferences,
		&u.Statistics.TotalOrders, &u.Statistics.TotalSpent, &u.Statistics.LastOrderDate,
		&u.Statistics.TotalRefunds, &u.Statistics.TotalRefundAmount,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *pgUserRepo) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	u, err := r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by external id: %w", err)
	}
	return u, nil
}

func (r *pgUserRepo) List(ctx context.Context, search string, limit, offset int) ([]model.User, int, error) {
	where := `($1 = '' OR email ILIKE '%' || $1 || '%'
		OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+
			` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		err := rows.Scan(&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.LastName, &u.Username,
			&u.ProfileImageURL, &u.EmailVerified, &u.PhoneNumber, &u.LastSignIn,
			&u.Addresses, &u.Orders, &u.Reviews, &u.Wishlist, &u.Cart, &u.Preferences,
			&u.Statistics.TotalOrders, &u.Statistics.TotalSpent, &u.Statistics.LastOrderDate,
			&u.Statistics.TotalRefunds, &u.Statistics.TotalRefundAmount,
			&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *pgUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET phone_number=$2, addresses=$3, preferences=$4, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		user.ID, user.PhoneNumber, user.Addresses, user.Preferences,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

func (r *pgUserRepo) DeleteByExternalID(ctx context.Context, externalID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) SetLastSignIn(ctx context.Context, externalID string, at time.Time) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE users SET last_sign_in = $2, updated_at = NOW() WHERE external_id = $1`,
		externalID, at); err != nil {
		return fmt.Errorf("set last sign in: %w", err)
	}
	return nil
}

// PushOrderRef appends the denormalized history entry and bumps the order
// statistics in one statement.
func (r *pgUserRepo) PushOrderRef(ctx context.Context, q Querier, userID uuid.UUID, ref model.UserOrderRef) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET
			orders = orders || $2::jsonb,
			total_orders = total_orders + 1,
			total_spent = total_spent + $3,
			last_order_date = NOW(),
			updated_at = NOW()
		 WHERE id = $1`,
		userID, ref, ref.TotalAmount)
	if err != nil {
		return fmt.Errorf("push order ref: %w", err)
	}
	return nil
}

func (r *pgUserRepo) UpdateOrderRefStatus(ctx context.Context, q Querier, userID, orderID uuid.UUID, status model.OrderStatus) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET orders = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN elem->>'order_id' = $2::text
				     THEN jsonb_set(elem, '{status}', to_jsonb($3::text))
				     ELSE elem END), '[]'::jsonb)
			FROM jsonb_array_elements(orders) AS elem
		 ), updated_at = NOW()
		 WHERE id = $1`,
		userID, orderID, status)
	if err != nil {
		return fmt.Errorf("update order ref status: %w", err)
	}
	return nil
}

func (r *pgUserRepo) IncrementRefundStats(ctx context.Context, q Querier, userID uuid.UUID, amount decimal.Decimal) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET
			total_refunds = total_refunds + 1,
			total_refund_amount = total_refund_amount + $2,
			updated_at = NOW()
		 WHERE id = $1`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("increment refund stats: %w", err)
	}
	return nil
}

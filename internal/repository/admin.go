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

type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

type pgAdminRepo struct{ pool *pgxpool.Pool }

func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &pgAdminRepo{pool: pool}
}

func (r *pgAdminRepo) Create(ctx context.Context, admin *model.Admin) error {
	admin.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (id, email, password_hash, name, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`,
		admin.ID, admin.Email, admin.Password, admin.Name, admin.Role, admin.IsActive,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func (r *pgAdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *pgAdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return r.getBy(ctx, `email = $1`, email)
}

func (r *pgAdminRepo) getBy(ctx context.Context, where string, arg any) (*model.Admin, error) {
	a := &model.Admin{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		 FROM admins WHERE `+where, arg,
	).Scan(&a.ID, &a.Email, &a.Password, &a.Name, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

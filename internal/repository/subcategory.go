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

type SubcategoryRepository interface {
	Create(ctx context.Context, sub *model.Subcategory) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subcategory, error)
	List(ctx context.Context, categoryID *uuid.UUID, search string) ([]model.Subcategory, error)
	Update(ctx context.Context, sub *model.Subcategory) error
	Delete(ctx context.Context, q Querier, id uuid.UUID) error
	DeleteByCategory(ctx context.Context, q Querier, categoryID uuid.UUID) error
}

type pgSubcategoryRepo struct{ pool *pgxpool.Pool }

func NewSubcategoryRepository(pool *pgxpool.Pool) SubcategoryRepository {
	return &pgSubcategoryRepo{pool: pool}
}

func (r *pgSubcategoryRepo) Create(ctx context.Context, sub *model.Subcategory) error {
	sub.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subcategories (id, category_id, name, slug, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`,
		sub.ID, sub.CategoryID, sub.Name, sub.Slug, sub.Description,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create subcategory: %w", err)
	}
	return nil
}

func (r *pgSubcategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Subcategory, error) {
	s := &model.Subcategory{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, name, slug, description, created_at, updated_at
		 FROM subcategories WHERE id = $1`, id,
	).Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	return s, nil
}

func (r *pgSubcategoryRepo) List(ctx context.Context, categoryID *uuid.UUID, search string) ([]model.Subcategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name, slug, description, created_at, updated_at
		 FROM subcategories
		 WHERE ($1::uuid IS NULL OR category_id = $1)
		   AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		 ORDER BY name`, categoryID, search,
	)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var subs []model.Subcategory
	for rows.Next() {
		var s model.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubcategoryRepo) Update(ctx context.Context, sub *model.Subcategory) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE subcategories SET category_id=$2, name=$3, slug=$4, description=$5, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		sub.ID, sub.CategoryID, sub.Name, sub.Slug, sub.Description,
	).Scan(&sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update subcategory: %w", err)
	}
	return nil
}

func (r *pgSubcategoryRepo) Delete(ctx context.Context, q Querier, id uuid.UUID) error {
	ct, err := q.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgSubcategoryRepo) DeleteByCategory(ctx context.Context, q Querier, categoryID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM subcategories WHERE category_id = $1`, categoryID); err != nil {
		return fmt.Errorf("delete subcategories by category: %w", err)
	}
	return nil
}

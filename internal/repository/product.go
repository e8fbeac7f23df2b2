package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bloomcart/storefront-api/internal/model"
)

// ProductFilter is the allow-listed query shape for product listings. Sort
// fields are re-validated here so a bad value can never reach the ORDER BY.
type ProductFilter struct {
	Search        string
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Sort          string
	Order         string
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySubcategory(ctx context.Context, q Querier, subcategoryID uuid.UUID) error
	DeleteByCategory(ctx context.Context, q Querier, categoryID uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (id, category_id, subcategory_id, name, slug, description, price, stock, images, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`,
		product.ID, product.CategoryID, product.SubcategoryID, product.Name, product.Slug,
		product.Description, product.Price, product.Stock, product.Images,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, subcategory_id, name, slug, description, price, stock, images, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.CategoryID, &p.SubcategoryID, &p.Name, &p.Slug, &p.Description,
		&p.Price, &p.Stock, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true}
	if !allowedSorts[f.Sort] {
		f.Sort = "created_at"
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}

	where := `($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		AND ($2::uuid IS NULL OR category_id = $2)
		AND ($3::uuid IS NULL OR subcategory_id = $3)
		AND ($4::numeric IS NULL OR price >= $4)
		AND ($5::numeric IS NULL OR price <= $5)`

	var total int
	countQ := `SELECT COUNT(*) FROM products WHERE ` + where
	err := r.pool.QueryRow(ctx, countQ,
		f.Search, f.CategoryID, f.SubcategoryID, f.MinPrice, f.MaxPrice,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, category_id, subcategory_id, name, slug, description, price, stock, images, created_at, updated_at
		 FROM products WHERE %s ORDER BY %s %s LIMIT $6 OFFSET $7`, where, f.Sort, f.Order)

	rows, err := r.pool.Query(ctx, query,
		f.Search, f.CategoryID, f.SubcategoryID, f.MinPrice, f.MaxPrice, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.SubcategoryID, &p.Name, &p.Slug,
			&p.Description, &p.Price, &p.Stock, &p.Images, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE products SET category_id=$2, subcategory_id=$3, name=$4, slug=$5, description=$6,
			price=$7, stock=$8, images=$9, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		product.ID, product.CategoryID, product.SubcategoryID, product.Name, product.Slug,
		product.Description, product.Price, product.Stock, product.Images,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) DeleteBySubcategory(ctx context.Context, q Querier, subcategoryID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM products WHERE subcategory_id = $1`, subcategoryID); err != nil {
		return fmt.Errorf("delete products by subcategory: %w", err)
	}
	return nil
}

func (r *pgProductRepo) DeleteByCategory(ctx context.Context, q Querier, categoryID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM products WHERE category_id = $1`, categoryID); err != nil {
		return fmt.Errorf("delete products by category: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrProductNotFound     = errors.New("product not found")
	// ErrSubcategoryMismatch: the product's subcategory does not belong to
	// the product's stated category.
	ErrSubcategoryMismatch = errors.New("subcategory does not belong to the specified category")
)

const productCacheTTL = 60 * time.Second

type CatalogService struct {
	categoryRepo    repository.CategoryRepository
	subcategoryRepo repository.SubcategoryRepository
	productRepo     repository.ProductRepository
	redisClient     *redis.Client
}

func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	subcategoryRepo repository.SubcategoryRepository,
	productRepo repository.ProductRepository,
	redisClient *redis.Client,
) *CatalogService {
	return &CatalogService{
		categoryRepo:    categoryRepo,
		subcategoryRepo: subcategoryRepo,
		productRepo:     productRepo,
		redisClient:     redisClient,
	}
}

// --- Categories ---

func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*model.Category, error) {
	category := &model.Category{
		Name:        req.Name,
		Slug:        slugOrDefault(req.Slug, req.Name),
		Description: req.Description,
		Image:       req.Image,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, search string) ([]model.Category, error) {
	return s.categoryRepo.List(ctx, search)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Slug != nil {
		category.Slug = *req.Slug
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Image != nil {
		category.Image = *req.Image
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes the category and cascades to its subcategories and
// their products inside one transaction.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	tx, err := s.categoryRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.DeleteByCategory(ctx, tx, id); err != nil {
		return err
	}
	if err := s.subcategoryRepo.DeleteByCategory(ctx, tx, id); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Subcategories ---

func (s *CatalogService) CreateSubcategory(ctx context.Context, req dto.CreateSubcategoryRequest) (*model.Subcategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	sub := &model.Subcategory{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        slugOrDefault(req.Slug, req.Name),
		Description: req.Description,
	}
	if err := s.subcategoryRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subcategory: %w", err)
	}
	return sub, nil
}

func (s *CatalogService) GetSubcategory(ctx context.Context, id uuid.UUID) (*model.Subcategory, error) {
	sub, err := s.subcategoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	if sub == nil {
		return nil, ErrSubcategoryNotFound
	}
	return sub, nil
}

func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID *uuid.UUID, search string) ([]model.Subcategory, error) {
	return s.subcategoryRepo.List(ctx, categoryID, search)
}

func (s *CatalogService) UpdateSubcategory(ctx context.Context, id uuid.UUID, req dto.UpdateSubcategoryRequest) (*model.Subcategory, error) {
	sub, err := s.subcategoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	if sub == nil {
		return nil, ErrSubcategoryNotFound
	}

	if req.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		sub.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.Slug != nil {
		sub.Slug = *req.Slug
	}
	if req.Description != nil {
		sub.Description = *req.Description
	}

	if err := s.subcategoryRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subcategory: %w", err)
	}
	return sub, nil
}

// DeleteSubcategory removes the subcategory and cascades to its products.
func (s *CatalogService) DeleteSubcategory(ctx context.Context, id uuid.UUID) error {
	sub, err := s.subcategoryRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get subcategory: %w", err)
	}
	if sub == nil {
		return ErrSubcategoryNotFound
	}

	tx, err := s.categoryRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.DeleteBySubcategory(ctx, tx, id); err != nil {
		return err
	}
	if err := s.subcategoryRepo.Delete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Products ---

func (s *CatalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error) {
	if err := s.checkProductRefs(ctx, req.CategoryID, req.SubcategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Name:          req.Name,
		Slug:          slugOrDefault(req.Slug, req.Name),
		Description:   req.Description,
		Price:         req.Price,
		Stock:         req.Stock,
		Images:        req.Images,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	cacheKey := "product:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var p model.Product
			if json.Unmarshal([]byte(cached), &p) == nil {
				return &p, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{
		Search:        req.Search,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		Sort:          req.Sort,
		Order:         req.Order,
		Limit:         req.Limit,
		Offset:        (req.Page - 1) * req.Limit,
	}
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &dto.ProductListResponse{Products: products, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.SubcategoryID != nil {
		product.SubcategoryID = *req.SubcategoryID
	}
	if req.CategoryID != nil || req.SubcategoryID != nil {
		if err := s.checkProductRefs(ctx, product.CategoryID, product.SubcategoryID); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Slug != nil {
		product.Slug = *req.Slug
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Images != nil {
		product.Images = req.Images
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidateProductCache(ctx, id)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateProductCache(ctx, id)
	return nil
}

// checkProductRefs enforces the cross-reference invariant: the subcategory
// must exist and belong to the stated category.
func (s *CatalogService) checkProductRefs(ctx context.Context, categoryID, subcategoryID uuid.UUID) error {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	sub, err := s.subcategoryRepo.GetByID(ctx, subcategoryID)
	if err != nil {
		return fmt.Errorf("get subcategory: %w", err)
	}
	if sub == nil {
		return ErrSubcategoryNotFound
	}
	if sub.CategoryID != categoryID {
		return ErrSubcategoryMismatch
	}
	return nil
}

func (s *CatalogService) invalidateProductCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func slugOrDefault(slug, name string) string {
	if slug != "" {
		return slug
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

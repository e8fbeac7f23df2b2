package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// catalogError maps the catalog sentinels onto HTTP statuses.
func catalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		fail(c, http.StatusNotFound, "category not found")
	case errors.Is(err, service.ErrSubcategoryNotFound):
		fail(c, http.StatusNotFound, "subcategory not found")
	case errors.Is(err, service.ErrProductNotFound):
		fail(c, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrSubcategoryMismatch):
		fail(c, http.StatusBadRequest, "subcategory does not belong to the specified category")
	default:
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

// --- Categories ---

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusCreated, category)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, category)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context(), c.Query("q"))
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "category deleted"})
}

// --- Subcategories ---

func (h *CatalogHandler) CreateSubcategory(c *gin.Context) {
	var req dto.CreateSubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := h.catalogService.CreateSubcategory(c.Request.Context(), req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusCreated, sub)
}

func (h *CatalogHandler) GetSubcategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sub, err := h.catalogService.GetSubcategory(c.Request.Context(), id)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, sub)
}

func (h *CatalogHandler) ListSubcategories(c *gin.Context) {
	var categoryID *uuid.UUID
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid category id")
			return
		}
		categoryID = &id
	}
	subs, err := h.catalogService.ListSubcategories(c.Request.Context(), categoryID, c.Query("q"))
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, subs)
}

// ListCategorySubcategories lists the subcategories nested under a category.
func (h *CatalogHandler) ListCategorySubcategories(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.catalogService.GetCategory(c.Request.Context(), id); err != nil {
		catalogError(c, err)
		return
	}
	subs, err := h.catalogService.ListSubcategories(c.Request.Context(), &id, c.Query("q"))
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, subs)
}

func (h *CatalogHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateSubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := h.catalogService.UpdateSubcategory(c.Request.Context(), id, req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, sub)
}

func (h *CatalogHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalogService.DeleteSubcategory(c.Request.Context(), id); err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "subcategory deleted"})
}

// --- Products ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.catalogService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.catalogService.ListProducts(c.Request.Context(), req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// ListSubcategoryProducts lists products nested under a subcategory, with the
// same allow-listed filters as the flat listing.
func (h *CatalogHandler) ListSubcategoryProducts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.catalogService.GetSubcategory(c.Request.Context(), id); err != nil {
		catalogError(c, err)
		return
	}
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	req.SubcategoryID = &id
	resp, err := h.catalogService.ListProducts(c.Request.Context(), req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		catalogError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "product deleted"})
}

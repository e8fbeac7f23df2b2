package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/middleware"
	"github.com/bloomcart/storefront-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, service.ErrTotalMismatch) {
			fail(c, http.StatusBadRequest, "order total does not match its components")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	isAdmin := middleware.GetAdminID(c) != uuid.Nil

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID, userID, isAdmin)
	if err != nil {
		orderError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.orderService.ListUserOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(c, http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := h.orderService.ListAllOrders(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(c, http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orderService.CancelOrder(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		orderError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// UpdateStatus is the admin override; it accepts any valid lifecycle state.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.AdminOverrideStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		orderError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		fail(c, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrOrderAccessDenied):
		fail(c, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrNotCancellable):
		fail(c, http.StatusBadRequest, "order cannot be cancelled at this stage")
	case errors.Is(err, service.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, "invalid order status")
	default:
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/middleware"
	"github.com/bloomcart/storefront-api/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		userError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		userError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, total, err := h.userService.ListUsers(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(c, http.StatusOK, gin.H{"users": users, "total": total})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), id)
	if err != nil {
		userError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// IdentityWebhook receives user lifecycle events from the identity provider.
// Like the payment webhook, the signature covers the raw body.
func (h *UserHandler) IdentityWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read body")
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if err := h.userService.HandleIdentityWebhook(c.Request.Context(), body, signature); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			fail(c, http.StatusBadRequest, "invalid webhook signature")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusOK, gin.H{"received": true})
}

func userError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	fail(c, http.StatusInternalServerError, "internal server error")
}

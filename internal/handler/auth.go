package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.AdminRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrAdminAlreadyExists) {
			fail(c, http.StatusConflict, "admin already exists")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAdminDisabled):
			fail(c, http.StatusForbidden, "account disabled")
		default:
			fail(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	// The dashboard reads the cookie; API clients use the token field.
	c.SetCookie("admin_token", resp.Token, 24*3600, "/", "", false, true)
	respond(c, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("admin_token", "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"message": "logged out"})
}

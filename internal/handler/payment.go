package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/service"
)

// maxWebhookBody bounds gateway webhook payloads.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) CreatePaymentOrder(c *gin.Context) {
	var req dto.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.paymentService.CreatePaymentOrder(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			fail(c, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrPaymentAlreadyCompleted):
			fail(c, http.StatusConflict, "payment already completed for this order")
		default:
			fail(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			fail(c, http.StatusBadRequest, "invalid payment signature")
		case errors.Is(err, service.ErrPaymentNotFound):
			fail(c, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrPaymentAlreadyCompleted):
			fail(c, http.StatusConflict, "payment already settled for this order")
		default:
			fail(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respond(c, http.StatusOK, payment)
}

// Webhook receives gateway events. The signature covers the raw body, so the
// body is read before any JSON binding.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read body")
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	eventID := c.GetHeader("X-Razorpay-Event-Id")

	if err := h.paymentService.HandleWebhook(c.Request.Context(), eventID, body, signature); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			fail(c, http.StatusBadRequest, "invalid webhook signature")
			return
		}
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(c, http.StatusOK, gin.H{"received": true})
}

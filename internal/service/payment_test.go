package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPaymentService(pr *mockPaymentRepo, or *mockOrderRepo, gw *mockGateway) *PaymentService {
	return NewPaymentService(pr, or, gw, nil, "key-secret", "webhook-secret", testLogger())
}

func TestPaymentService_CreatePaymentOrder(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	gw := &mockGateway{order: gateway.GatewayOrder{ID: "order_rp1"}}
	svc := newTestPaymentService(paymentRepo, orderRepo, gw)

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{
		ID: orderID, UserID: uuid.New(), OrderNumber: "ORD-260314-0001",
		Status: model.OrderStatusPending,
	}

	resp, err := svc.CreatePaymentOrder(context.Background(), dto.CreatePaymentOrderRequest{
		OrderID: orderID, Amount: decimal.NewFromFloat(115.50),
	})
	require.NoError(t, err)

	assert.Equal(t, "order_rp1", resp.RazorpayOrderID)
	assert.Equal(t, int64(11550), resp.Amount) // minor units
	assert.Equal(t, "INR", resp.Currency)

	payment, err := paymentRepo.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, "order_rp1", payment.RazorpayOrderID)
	assert.Equal(t, model.GatewayPending, payment.RazorpayPaymentID)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)

	// The order's embedded payment sub-record mirrors the intent.
	assert.Equal(t, "order_rp1", orderRepo.orders[orderID].Payment.RazorpayOrderID)
}

func TestPaymentService_CreatePaymentOrder_ReissueUpdatesExisting(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	gw := &mockGateway{order: gateway.GatewayOrder{ID: "order_rp2"}}
	svc := newTestPaymentService(paymentRepo, orderRepo, gw)

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{ID: orderID, UserID: uuid.New(), OrderNumber: "ORD-260314-0002"}

	existing := &model.Payment{
		OrderID: orderID, RazorpayOrderID: "order_old",
		RazorpayPaymentID: model.GatewayPending, Status: model.PaymentStatusPending,
		Amount: decimal.NewFromInt(100),
	}
	require.NoError(t, paymentRepo.Create(context.Background(), nil, existing))

	_, err := svc.CreatePaymentOrder(context.Background(), dto.CreatePaymentOrderRequest{
		OrderID: orderID, Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	// Re-issue overwrites the gateway order id instead of creating a second
	// ledger entry.
	assert.Len(t, paymentRepo.payments, 1)
	payment, _ := paymentRepo.GetByOrderID(context.Background(), orderID)
	assert.Equal(t, "order_rp2", payment.RazorpayOrderID)
}

func TestPaymentService_CreatePaymentOrder_CompletedGuard(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	gw := &mockGateway{}
	svc := newTestPaymentService(paymentRepo, orderRepo, gw)

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{ID: orderID, UserID: uuid.New()}
	require.NoError(t, paymentRepo.Create(context.Background(), nil, &model.Payment{
		OrderID: orderID, Status: model.PaymentStatusCompleted,
	}))

	_, err := svc.CreatePaymentOrder(context.Background(), dto.CreatePaymentOrderRequest{
		OrderID: orderID, Amount: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrPaymentAlreadyCompleted)
	assert.Zero(t, gw.created)
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	gw := &mockGateway{payment: gateway.GatewayPayment{Method: "upi", VPA: "alice@upi"}}
	svc := newTestPaymentService(paymentRepo, orderRepo, gw)

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{ID: orderID, UserID: uuid.New(), Status: model.OrderStatusPending}
	require.NoError(t, paymentRepo.Create(context.Background(), nil, &model.Payment{
		OrderID: orderID, RazorpayOrderID: "order_rp3",
		RazorpayPaymentID: model.GatewayPending, Status: model.PaymentStatusPending,
	}))

	sig := gateway.PaymentSignature("key-secret", "order_rp3", "pay_1")
	payment, err := svc.VerifyPayment(context.Background(), dto.VerifyPaymentRequest{
		RazorpayOrderID: "order_rp3", RazorpayPaymentID: "pay_1", RazorpaySignature: sig,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "pay_1", payment.RazorpayPaymentID)
	assert.Equal(t, model.SubMethodUPI, payment.Method)
	require.NotNil(t, payment.Details.UPI)
	assert.Equal(t, "alice@upi", payment.Details.UPI.VPA)

	order := orderRepo.orders[orderID]
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, model.PaymentStatusCompleted, order.Payment.Status)
}

func TestPaymentService_VerifyPayment_BadSignature(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	svc := newTestPaymentService(paymentRepo, orderRepo, &mockGateway{})

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{ID: orderID, Status: model.OrderStatusPending}
	require.NoError(t, paymentRepo.Create(context.Background(), nil, &model.Payment{
		OrderID: orderID, RazorpayOrderID: "order_rp4", Status: model.PaymentStatusPending,
	}))

	_, err := svc.VerifyPayment(context.Background(), dto.VerifyPaymentRequest{
		RazorpayOrderID: "order_rp4", RazorpayPaymentID: "pay_1", RazorpaySignature: "forged",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Nothing mutated on rejection.
	payment, _ := paymentRepo.GetByOrderID(context.Background(), orderID)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)
	assert.Equal(t, model.OrderStatusPending, orderRepo.orders[orderID].Status)
}

func TestPaymentService_VerifyPayment_RefundedNotDowngraded(t *testing.T) {
	orderRepo := newMockOrderRepo()
	paymentRepo := newMockPaymentRepo()
	svc := newTestPaymentService(paymentRepo, orderRepo, &mockGateway{})

	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{ID: orderID, Status: model.OrderStatusCancelled}
	require.NoError(t, paymentRepo.Create(context.Background(), nil, &model.Payment{
		OrderID: orderID, RazorpayOrderID: "order_rp5", RazorpayPaymentID: "pay_1",
		Status: model.PaymentStatusRefunded,
	}))

	// A replayed verify request carries a signature that is still valid; it
	// must not flip the refunded payment back to completed.
	sig := gateway.PaymentSignature("key-secret", "order_rp5", "pay_1")
	_, err := svc.VerifyPayment(context.Background(), dto.VerifyPaymentRequest{
		RazorpayOrderID: "order_rp5", RazorpayPaymentID: "pay_1", RazorpaySignature: sig,
	})
	assert.ErrorIs(t, err, ErrPaymentAlreadyCompleted)

	payment, _ := paymentRepo.GetByOrderID(context.Background(), orderID)
	assert.Equal(t, model.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, model.OrderStatusCancelled, orderRepo.orders[orderID].Status)
}

func TestPaymentService_HandleWebhook_BadSignature(t *testing.T) {
	svc := newTestPaymentService(newMockPaymentRepo(), newMockOrderRepo(), &mockGateway{})

	body := []byte(`{"event":"payment.captured"}`)
	err := svc.HandleWebhook(context.Background(), "evt_1", body, "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPaymentService_HandleWebhook_UnknownEventIgnored(t *testing.T) {
	svc := newTestPaymentService(newMockPaymentRepo(), newMockOrderRepo(), &mockGateway{})

	// Properly signed but not in the dispatch allow-list: dropped with
	// success, no publish attempted (the channel is nil).
	body := []byte(`{"event":"order.paid"}`)
	err := svc.HandleWebhook(context.Background(), "evt_2", body, gateway.WebhookSignature("webhook-secret", body))
	assert.NoError(t, err)
}

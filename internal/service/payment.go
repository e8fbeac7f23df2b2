package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidSignature is security relevant: the request is rejected
	// before any state is touched.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrPaymentAlreadyCompleted guards a completed ledger entry against
	// having its gateway ids overwritten by a re-issued intent.
	ErrPaymentAlreadyCompleted = errors.New("payment already completed for this order")
)

// WebhookQueueName is the durable queue carrying verified gateway events.
const WebhookQueueName = "payment.events"

type PaymentService struct {
	paymentRepo   repository.PaymentRepository
	orderRepo     repository.OrderRepository
	razorpay      gateway.RazorpayClient
	amqpCh        *amqp.Channel
	keySecret     string
	webhookSecret string
	log           *slog.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	razorpay gateway.RazorpayClient,
	amqpCh *amqp.Channel,
	keySecret, webhookSecret string,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		orderRepo:     orderRepo,
		razorpay:      razorpay,
		amqpCh:        amqpCh,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// CreatePaymentOrder opens a gateway intent for the order and records (or
// idempotently re-issues) the Payment ledger entry. Re-issuing for an order
// whose payment already completed is rejected.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, req dto.CreatePaymentOrderRequest) (*dto.CreatePaymentOrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	subMethod := req.PaymentMethod
	if subMethod == "" || subMethod == model.PayMethodRazorpay {
		subMethod = model.SubMethodCard
	}

	existing, err := s.paymentRepo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if existing != nil && existing.Status == model.PaymentStatusCompleted {
		return nil, ErrPaymentAlreadyCompleted
	}

	// The gateway works in minor units.
	amountMinor := req.Amount.Shift(2).Round(0).IntPart()
	gwOrder, err := s.razorpay.CreateOrder(ctx, amountMinor, currency, order.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	tx, err := s.paymentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if existing != nil {
		existing.RazorpayOrderID = gwOrder.ID
		existing.Amount = req.Amount
		existing.Currency = currency
		if req.PaymentMethod != "" && req.PaymentMethod != model.PayMethodRazorpay {
			existing.Method = req.PaymentMethod
		}
		if err := s.paymentRepo.Update(ctx, tx, existing); err != nil {
			return nil, fmt.Errorf("update payment: %w", err)
		}
	} else {
		payment := &model.Payment{
			OrderID:           req.OrderID,
			UserID:            order.UserID,
			RazorpayOrderID:   gwOrder.ID,
			RazorpayPaymentID: model.GatewayPending,
			RazorpaySignature: model.GatewayPending,
			Amount:            req.Amount,
			Currency:          currency,
			Status:            model.PaymentStatusPending,
			Method:            subMethod,
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
	}

	order.Payment.Method = model.PayMethodRazorpay
	order.Payment.Status = model.PaymentStatusPending
	order.Payment.RazorpayOrderID = gwOrder.ID
	order.Payment.Amount = req.Amount
	order.Payment.Currency = currency
	if err := s.orderRepo.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, fmt.Errorf("update order payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment intent: %w", err)
	}

	return &dto.CreatePaymentOrderResponse{
		RazorpayOrderID: gwOrder.ID,
		Amount:          gwOrder.Amount,
		Currency:        gwOrder.Currency,
		PaymentMethod:   subMethod,
	}, nil
}

// VerifyPayment handles the synchronous client confirmation: recompute the
// checkout signature, fetch the authoritative transaction detail, mark the
// Payment completed and confirm the Order.
func (s *PaymentService) VerifyPayment(ctx context.Context, req dto.VerifyPaymentRequest) (*model.Payment, error) {
	if !gateway.VerifyPaymentSignature(s.keySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return nil, ErrInvalidSignature
	}

	payment, err := s.paymentRepo.GetByGatewayOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	// A verify request stays validly signed forever, so a replay must not
	// downgrade a payment that has since been refunded.
	if !model.PaymentStatusCompleted.Supersedes(payment.Status) {
		return nil, ErrPaymentAlreadyCompleted
	}

	// The gateway is authoritative for the instrument actually used; the
	// client-asserted sub-method is only a fallback.
	gwPayment, err := s.razorpay.FetchPayment(ctx, req.RazorpayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch gateway payment: %w", err)
	}
	subMethod, details := resolveGatewayPayment(gwPayment, req.PaymentMethod)

	tx, err := s.paymentRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payment.RazorpayPaymentID = req.RazorpayPaymentID
	payment.RazorpaySignature = req.RazorpaySignature
	payment.Status = model.PaymentStatusCompleted
	payment.Method = subMethod
	payment.Details = details
	if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	order.Payment.Status = model.PaymentStatusCompleted
	order.Payment.RazorpayPaymentID = req.RazorpayPaymentID
	order.Payment.RazorpaySignature = req.RazorpaySignature
	order.Payment.Method = model.PayMethodRazorpay
	order.Payment.SubMethod = subMethod
	if err := s.orderRepo.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, fmt.Errorf("update order payment: %w", err)
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusConfirmed); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit verification: %w", err)
	}
	return payment, nil
}

// knownWebhookEvents is the dispatch allow-list; anything else is logged and
// dropped with a success ack.
var knownWebhookEvents = map[string]bool{
	"payment.captured": true,
	"payment.failed":   true,
	"refund.created":   true,
}

type webhookEnvelope struct {
	Event string `json:"event"`
}

// HandleWebhook is the trust boundary for gateway-initiated mutations: it
// checks the HMAC over the raw body and publishes the verified event to the
// durable queue. State is applied asynchronously by the payment worker.
func (s *PaymentService) HandleWebhook(ctx context.Context, eventID string, body []byte, signature string) error {
	if !gateway.VerifyWebhookSignature(s.webhookSecret, body, signature) {
		return ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode webhook envelope: %w", err)
	}

	if !knownWebhookEvents[envelope.Event] {
		s.log.Info("ignoring unhandled webhook event", "event", envelope.Event)
		return nil
	}

	msg, err := json.Marshal(model.WebhookEventMessage{
		EventID: eventID,
		Event:   envelope.Event,
		Payload: body,
	})
	if err != nil {
		return fmt.Errorf("marshal event message: %w", err)
	}

	if s.amqpCh == nil {
		return fmt.Errorf("event queue unavailable")
	}
	err = s.amqpCh.PublishWithContext(ctx, "", WebhookQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish webhook event: %w", err)
	}
	return nil
}

// resolveGatewayPayment maps the gateway's view of a transaction to our
// sub-method and detail sub-record. fallback is the client-asserted
// sub-method, used only when the gateway omits the field.
func resolveGatewayPayment(gw *gateway.GatewayPayment, fallback string) (string, model.PaymentDetails) {
	subMethod := fallback
	if subMethod == "" {
		subMethod = model.SubMethodCard
	}
	switch gw.Method {
	case "upi", "upi_intent":
		subMethod = model.SubMethodUPI
	case "netbanking":
		subMethod = model.SubMethodNetbanking
	case "wallet":
		subMethod = model.SubMethodWallet
	case "emi":
		subMethod = model.SubMethodEMI
	case "card":
		subMethod = model.SubMethodCard
	}

	var details model.PaymentDetails
	switch subMethod {
	case model.SubMethodUPI:
		details.UPI = &model.UPIDetails{VPA: orUnknown(gw.VPA)}
	case model.SubMethodNetbanking:
		details.Bank = &model.BankDetails{Name: orUnknown(gw.Bank), IFSC: orUnknown(gw.IFSC)}
	case model.SubMethodWallet:
		details.Wallet = &model.WalletDetails{Name: orUnknown(gw.Wallet)}
	case model.SubMethodCard, model.SubMethodEMI:
		card := &model.CardDetails{Last4: "unknown", Network: "unknown", Issuer: "unknown"}
		if gw.Card != nil {
			card.Last4 = orUnknown(gw.Card.Last4)
			card.Network = orUnknown(gw.Card.Network)
			card.Issuer = orUnknown(gw.Card.Issuer)
		}
		details.Card = card
	}
	return subMethod, details
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

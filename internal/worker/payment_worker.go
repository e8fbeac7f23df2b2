package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

const (
	eventQueueName = "payment.events"
	dlxExchange    = "payment.events.dlx"
	dlqQueueName   = "payment.events.dlq"
	idempotencyTTL = 24 * time.Hour
)

// PaymentWorker applies verified gateway events to the payment ledger and the
// affected order. The webhook handler only authenticates and enqueues; every
// state mutation happens here, exactly once per event id.
type PaymentWorker struct {
	channel     *amqp.Channel
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	redisClient *redis.Client
	mailer      gateway.Mailer
	log         *slog.Logger
	done        chan struct{}
}

func NewPaymentWorker(
	ch *amqp.Channel,
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	mailer gateway.Mailer,
	log *slog.Logger,
) *PaymentWorker {
	return &PaymentWorker{
		channel:     ch,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		redisClient: redisClient,
		mailer:      mailer,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares the event queue with its DLX/DLQ pair.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, eventQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(eventQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": eventQueueName,
	}); err != nil {
		return fmt.Errorf("declare event queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *PaymentWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(eventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("payment worker started")
	return nil
}

func (w *PaymentWorker) Stop() { close(w.done) }

func (w *PaymentWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var eventMsg model.WebhookEventMessage
	if err := json.Unmarshal(msg.Body, &eventMsg); err != nil {
		w.log.Error("unmarshal event message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("event_id", eventMsg.EventID, "event", eventMsg.Event)

	idempotencyKey := "webhook_event:" + eventMsg.EventID
	if eventMsg.EventID != "" {
		exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
		if err != nil {
			log.Error("check idempotency key", "error", err)
			_ = msg.Nack(false, true)
			return
		}
		if exists > 0 {
			log.Info("event already processed, skipping")
			_ = msg.Ack(false)
			return
		}
	}

	if err := w.ApplyEvent(ctx, eventMsg); err != nil {
		log.Error("apply event failed", "error", err)
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	// Marked processed only after the event applied, so a dead-lettered
	// delivery stays retryable under the same event id.
	if eventMsg.EventID != "" {
		if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
			log.Error("set idempotency key", "error", err)
		}
	}

	_ = msg.Ack(false)
	log.Info("event applied")
}

// gatewayEventBody is the raw gateway payload shape shared by the events we
// handle. Amounts arrive in minor units.
type gatewayEventBody struct {
	Payload struct {
		Payment *paymentEntity `json:"payment"`
		Refund  *refundEntity  `json:"refund"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
	VPA     string `json:"vpa"`
	Bank    string `json:"bank"`
	Wallet  string `json:"wallet"`
	Card    *struct {
		Last4   string `json:"last4"`
		Network string `json:"network"`
		Issuer  string `json:"issuer"`
	} `json:"card"`
	ErrorDescription string `json:"error_description"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// ApplyEvent dispatches one verified gateway event. Events referencing
// transactions we never recorded are logged and dropped rather than retried.
func (w *PaymentWorker) ApplyEvent(ctx context.Context, msg model.WebhookEventMessage) error {
	var body gatewayEventBody
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}

	switch msg.Event {
	case "payment.captured":
		if body.Payload.Payment == nil {
			return fmt.Errorf("captured event without payment entity")
		}
		return w.applyCaptured(ctx, body.Payload.Payment)
	case "payment.failed":
		if body.Payload.Payment == nil {
			return fmt.Errorf("failed event without payment entity")
		}
		return w.applyFailed(ctx, body.Payload.Payment)
	case "refund.created":
		if body.Payload.Refund == nil {
			return fmt.Errorf("refund event without refund entity")
		}
		return w.applyRefund(ctx, body.Payload.Refund)
	default:
		w.log.Info("ignoring unhandled event", "event", msg.Event)
		return nil
	}
}

// findPayment resolves the ledger entry for a gateway payment entity. The
// capture webhook can arrive before the client verify call fills in the
// payment id, so the gateway order id is the fallback key.
func (w *PaymentWorker) findPayment(ctx context.Context, entity *paymentEntity) (*model.Payment, error) {
	payment, err := w.paymentRepo.GetByGatewayPaymentID(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil && entity.OrderID != "" {
		payment, err = w.paymentRepo.GetByGatewayOrderID(ctx, entity.OrderID)
		if err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (w *PaymentWorker) applyCaptured(ctx context.Context, entity *paymentEntity) error {
	payment, err := w.findPayment(ctx, entity)
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		w.log.Warn("captured event for unknown payment", "gateway_payment_id", entity.ID)
		return nil
	}
	if !model.PaymentStatusCompleted.Supersedes(payment.Status) {
		w.log.Info("skipping capture, payment already terminal",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}

	subMethod, details := resolveEntity(entity)

	tx, err := w.paymentRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payment.RazorpayPaymentID = entity.ID
	payment.Status = model.PaymentStatusCompleted
	payment.Method = subMethod
	payment.Details = details
	if err := w.paymentRepo.Update(ctx, tx, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	order, err := w.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", payment.OrderID)
	}

	order.Payment.Status = model.PaymentStatusCompleted
	order.Payment.RazorpayPaymentID = entity.ID
	order.Payment.SubMethod = subMethod
	if err := w.orderRepo.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if order.Status == model.OrderStatusPending {
		if err := w.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusConfirmed); err != nil {
			return fmt.Errorf("confirm order: %w", err)
		}
		if err := w.userRepo.UpdateOrderRefStatus(ctx, tx, order.UserID, order.ID, model.OrderStatusConfirmed); err != nil {
			return fmt.Errorf("update user order history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit capture: %w", err)
	}

	// Confirmation mail is best effort; a mail failure never fails the event.
	if user, err := w.userRepo.GetByID(ctx, order.UserID); err == nil && user != nil {
		if err := w.mailer.SendOrderConfirmation(user.Email, order.OrderNumber, order.Total.StringFixed(2)); err != nil {
			w.log.Error("send order confirmation", "order_id", order.ID, "error", err)
		}
	}
	return nil
}

func (w *PaymentWorker) applyFailed(ctx context.Context, entity *paymentEntity) error {
	payment, err := w.findPayment(ctx, entity)
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		w.log.Warn("failed event for unknown payment", "gateway_payment_id", entity.ID)
		return nil
	}
	// A late failure webhook must not downgrade a completed or refunded
	// payment.
	if !model.PaymentStatusFailed.Supersedes(payment.Status) {
		w.log.Info("skipping failure, payment already terminal",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}

	tx, err := w.paymentRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payment.RazorpayPaymentID = entity.ID
	payment.Status = model.PaymentStatusFailed
	if err := w.paymentRepo.Update(ctx, tx, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	order, err := w.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order != nil {
		// Only the payment sub-record flips; the order stays in its current
		// lifecycle state so the user can retry.
		order.Payment.Status = model.PaymentStatusFailed
		if err := w.orderRepo.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
			return fmt.Errorf("update order payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	return nil
}

func (w *PaymentWorker) applyRefund(ctx context.Context, entity *refundEntity) error {
	payment, err := w.paymentRepo.GetByGatewayPaymentID(ctx, entity.PaymentID)
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		w.log.Warn("refund event for unknown payment", "gateway_payment_id", entity.PaymentID)
		return nil
	}

	status := entity.Status
	if status == "" {
		status = "processed"
	}
	reason := entity.Reason
	if reason == "" {
		reason = "Customer request"
	}

	amount := decimal.NewFromInt(entity.Amount).Shift(-2)
	payment.Refunds = append(payment.Refunds, model.Refund{
		Amount:    amount,
		Status:    status,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	fullRefund := payment.RefundedTotal().GreaterThanOrEqual(payment.Amount)
	if fullRefund {
		payment.Status = model.PaymentStatusRefunded
	}

	tx, err := w.paymentRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := w.paymentRepo.Update(ctx, tx, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if err := w.userRepo.IncrementRefundStats(ctx, tx, payment.UserID, amount); err != nil {
		return fmt.Errorf("update refund stats: %w", err)
	}

	if fullRefund {
		order, err := w.orderRepo.GetByID(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if order != nil {
			order.Payment.Status = model.PaymentStatusRefunded
			if err := w.orderRepo.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
				return fmt.Errorf("update order payment: %w", err)
			}
			if err := w.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled); err != nil {
				return fmt.Errorf("cancel order: %w", err)
			}
			if err := w.userRepo.UpdateOrderRefStatus(ctx, tx, order.UserID, order.ID, model.OrderStatusCancelled); err != nil {
				return fmt.Errorf("update user order history: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refund: %w", err)
	}
	return nil
}

func resolveEntity(entity *paymentEntity) (string, model.PaymentDetails) {
	subMethod := model.SubMethodCard
	switch entity.Method {
	case "upi", "upi_intent":
		subMethod = model.SubMethodUPI
	case "netbanking":
		subMethod = model.SubMethodNetbanking
	case "wallet":
		subMethod = model.SubMethodWallet
	case "emi":
		subMethod = model.SubMethodEMI
	}

	var details model.PaymentDetails
	switch subMethod {
	case model.SubMethodUPI:
		details.UPI = &model.UPIDetails{VPA: valueOr(entity.VPA)}
	case model.SubMethodNetbanking:
		details.Bank = &model.BankDetails{Name: valueOr(entity.Bank), IFSC: "unknown"}
	case model.SubMethodWallet:
		details.Wallet = &model.WalletDetails{Name: valueOr(entity.Wallet)}
	default:
		card := &model.CardDetails{Last4: "unknown", Network: "unknown", Issuer: "unknown"}
		if entity.Card != nil {
			card.Last4 = valueOr(entity.Card.Last4)
			card.Network = valueOr(entity.Card.Network)
			card.Issuer = valueOr(entity.Card.Issuer)
		}
		details.Card = card
	}
	return subMethod, details
}

func valueOr(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// rank orders statuses by precedence: a later webhook may never downgrade a
// payment to a lower-ranked status.
func (s PaymentStatus) rank() int {
	switch s {
	case PaymentStatusRefunded:
		return 3
	case PaymentStatusCompleted:
		return 2
	case PaymentStatusFailed:
		return 1
	default:
		return 0
	}
}

// Supersedes reports whether s may replace prev.
func (s PaymentStatus) Supersedes(prev PaymentStatus) bool {
	return s.rank() >= prev.rank()
}

// Sub-methods: the specific instrument used, distinct from the top-level
// order payment method (razorpay vs cod).
const (
	SubMethodPending    = "pending"
	SubMethodCard       = "card"
	SubMethodNetbanking = "netbanking"
	SubMethodWallet     = "wallet"
	SubMethodUPI        = "upi"
	SubMethodEMI        = "emi"
)

// GatewayPending is the placeholder written into gateway id fields until the
// gateway confirms the transaction.
const GatewayPending = "pending"

type CardDetails struct {
	Last4   string `json:"last4"`
	Network string `json:"network"`
	Issuer  string `json:"issuer"`
}

type BankDetails struct {
	Name string `json:"name"`
	IFSC string `json:"ifsc"`
}

type WalletDetails struct {
	Name string `json:"name"`
}

type UPIDetails struct {
	VPA string `json:"vpa"`
}

type PaymentDetails struct {
	Card   *CardDetails   `json:"card,omitempty"`
	Bank   *BankDetails   `json:"bank,omitempty"`
	Wallet *WalletDetails `json:"wallet,omitempty"`
	UPI    *UPIDetails    `json:"upi,omitempty"`
}

type Refund struct {
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payment is the ledger record correlating one Order to one gateway
// transaction. At most one live Payment exists per order.
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	UserID            uuid.UUID
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	Method            string
	Details           PaymentDetails
	Refunds           []Refund
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RefundedTotal sums all recorded refund amounts.
func (p *Payment) RefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// WebhookEventMessage is what the webhook handler publishes to RabbitMQ
// after the signature check passed. Payload is the raw gateway event body.
type WebhookEventMessage struct {
	EventID string `json:"event_id"`
	Event   string `json:"event"`
	Payload []byte `json:"payload"`
}

package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bloomcart/storefront-api/internal/config"
)

// RazorpayClient talks to the payment gateway's REST API. Amounts cross the
// boundary in minor units (paise).
type RazorpayClient interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayPayment is the authoritative transaction detail fetched after a
// successful checkout; Method tells us the instrument actually used.
type GatewayPayment struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	VPA    string `json:"vpa"`
	Bank   string `json:"bank"`
	IFSC   string `json:"ifsc"`
	Wallet string `json:"wallet"`
	Card   *struct {
		Last4   string `json:"last4"`
		Network string `json:"network"`
		Issuer  string `json:"issuer"`
	} `json:"card"`
}

type razorpayClient struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

func NewRazorpayClient(cfg config.RazorpayConfig) RazorpayClient {
	return &razorpayClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
	}
}

func (c *razorpayClient) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	payload := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	var order GatewayOrder
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return &order, nil
}

func (c *razorpayClient) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	var payment GatewayPayment
	if err := c.do(req, &payment); err != nil {
		return nil, fmt.Errorf("fetch gateway payment: %w", err)
	}
	return &payment, nil
}

func (c *razorpayClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway responded %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// PaymentSignature computes the expected checkout confirmation signature:
// HMAC-SHA256(secret, orderID + "|" + paymentID), hex encoded.
func PaymentSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature compares the supplied signature against the expected
// one in constant time.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	expected := PaymentSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSignature computes the HMAC-SHA256 of a raw webhook body, hex
// encoded.
func WebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the raw webhook body against the signature
// header. This is the trust boundary for all webhook-driven mutations.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	expected := WebhookSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

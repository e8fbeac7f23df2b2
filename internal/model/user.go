package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User mirrors the profile held by the external identity provider, keyed by
// ExternalID. One local record exists per external identity.
type User struct {
	ID              uuid.UUID
	ExternalID      string
	Email           string
	FirstName       string
	LastName        string
	Username        string
	ProfileImageURL string
	EmailVerified   bool
	PhoneNumber     string
	LastSignIn      *time.Time
	Addresses       []UserAddress
	Orders          []UserOrderRef
	Reviews         []UserReview
	Wishlist        []uuid.UUID
	Cart            []CartItem
	Statistics      UserStatistics
	Preferences     UserPreferences
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserAddress struct {
	Address
	IsDefault bool `json:"is_default"`
}

// UserOrderRef is the denormalized order-history entry embedded in the User
// record. Kept eventually consistent with the authoritative Order.
type UserOrderRef struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UserReview is a product review embedded in the User record.
type UserReview struct {
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem is a saved cart line; the wishlist is a plain set of product ids.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type UserStatistics struct {
	TotalOrders       int             `json:"total_orders"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	LastOrderDate     *time.Time      `json:"last_order_date,omitempty"`
	TotalRefunds      int             `json:"total_refunds"`
	TotalRefundAmount decimal.Decimal `json:"total_refund_amount"`
}

type UserPreferences struct {
	EmailNotifications     bool   `json:"email_notifications"`
	SMSNotifications       bool   `json:"sms_notifications"`
	NewsletterSubscription bool   `json:"newsletter_subscription"`
	DefaultPaymentMethod   string `json:"default_payment_method,omitempty"`
}

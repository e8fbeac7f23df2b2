package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bloomcart/storefront-api/internal/model"
)

// --- Admin auth ---

type AdminRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AdminAuthResponse struct {
	Token string        `json:"token"`
	Admin AdminResponse `json:"admin"`
}

type AdminResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}

// --- Catalog ---

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

type CreateSubcategoryRequest struct {
	CategoryID  uuid.UUID `json:"category_id" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
}

type UpdateSubcategoryRequest struct {
	CategoryID  *uuid.UUID `json:"category_id"`
	Name        *string    `json:"name"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
}

type CreateProductRequest struct {
	CategoryID    uuid.UUID       `json:"category_id" binding:"required"`
	SubcategoryID uuid.UUID       `json:"subcategory_id" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	Stock         int             `json:"stock" binding:"min=0"`
	Images        []string        `json:"images"`
}

type UpdateProductRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	SubcategoryID *uuid.UUID       `json:"subcategory_id"`
	Name          *string          `json:"name"`
	Slug          *string          `json:"slug"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Stock         *int             `json:"stock"`
	Images        []string         `json:"images"`
}

// ListProductsRequest is the allow-listed product filter: only these keys
// are accepted, anything else in the query string is dropped by binding.
type ListProductsRequest struct {
	Page          int              `form:"page,default=1" binding:"min=1"`
	Limit         int              `form:"limit,default=20" binding:"min=1,max=100"`
	Search        string           `form:"q"`
	CategoryID    *uuid.UUID       `form:"category"`
	SubcategoryID *uuid.UUID       `form:"subcategory"`
	MinPrice      *decimal.Decimal `form:"min_price"`
	MaxPrice      *decimal.Decimal `form:"max_price"`
	Sort          string           `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order         string           `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductListResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

// --- Orders ---

type OrderItemRequest struct {
	ProductID  *uuid.UUID      `json:"product_id"`
	Name       string          `json:"name" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,min=1"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	TotalPrice decimal.Decimal `json:"total_price" binding:"required"`
	Image      string          `json:"image"`
	Variant    string          `json:"variant"`
}

type AddressRequest struct {
	Type    string `json:"type"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

type OrderPaymentRequest struct {
	Method   string          `json:"method"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type CreateOrderRequest struct {
	Items                 []OrderItemRequest  `json:"items" binding:"required,min=1,dive"`
	ShippingAddress       AddressRequest      `json:"shipping_address" binding:"required"`
	BillingAddress        *AddressRequest     `json:"billing_address"`
	Payment               OrderPaymentRequest `json:"payment"`
	SelectedPaymentMethod string              `json:"selected_payment_method"`
	Discounts             []model.Discount    `json:"discounts"`
	Subtotal              decimal.Decimal     `json:"subtotal" binding:"required"`
	ShippingCost          decimal.Decimal     `json:"shipping_cost"`
	Tax                   decimal.Decimal     `json:"tax"`
	Total                 decimal.Decimal     `json:"total" binding:"required"`
	Notes                 string              `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// OrderWithPayment pairs an order with its ledger record, when one exists.
type OrderWithPayment struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment,omitempty"`
}

// --- Payments ---

type CreatePaymentOrderRequest struct {
	OrderID       uuid.UUID       `json:"order_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

// CreatePaymentOrderResponse returns the gateway order (client token) the
// frontend hands to the checkout widget.
type CreatePaymentOrderResponse struct {
	RazorpayOrderID string `json:"order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethod   string `json:"payment_method"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	PaymentMethod     string `json:"payment_method"`
}

// --- Users ---

type UpdateUserRequest struct {
	PhoneNumber *string                `json:"phone_number"`
	Addresses   []model.UserAddress    `json:"addresses"`
	Preferences *model.UserPreferences `json:"preferences"`
}

type UserResponse struct {
	ID              uuid.UUID             `json:"id"`
	ExternalID      string                `json:"external_id"`
	Email           string                `json:"email"`
	FirstName       string                `json:"first_name"`
	LastName        string                `json:"last_name"`
	Username        string                `json:"username"`
	ProfileImageURL string                `json:"profile_image_url"`
	EmailVerified   bool                  `json:"email_verified"`
	PhoneNumber     string                `json:"phone_number"`
	Addresses       []model.UserAddress   `json:"addresses"`
	Orders          []model.UserOrderRef  `json:"orders"`
	Reviews         []model.UserReview    `json:"reviews"`
	Wishlist        []uuid.UUID           `json:"wishlist"`
	Cart            []model.CartItem      `json:"cart"`
	Statistics      model.UserStatistics  `json:"statistics"`
	Preferences     model.UserPreferences `json:"preferences"`
	CreatedAt       time.Time             `json:"created_at"`
}

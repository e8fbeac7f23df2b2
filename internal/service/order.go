package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
	ErrTotalMismatch     = errors.New("order total does not match subtotal + shipping + tax - discounts")
	ErrNotCancellable    = errors.New("order cannot be cancelled at this stage")
	ErrInvalidStatus     = errors.New("invalid order status")
)

const orderNumberAttempts = 5

type OrderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
) *OrderService {
	return &OrderService{orderRepo: orderRepo, paymentRepo: paymentRepo, userRepo: userRepo}
}

// CreateOrder persists a new order for userID. For the online gateway method
// it also opens a placeholder Payment ledger entry, and in all cases pushes
// the denormalized history entry and order statistics onto the user record.
// The three writes share one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	order := buildOrder(userID, req)

	if !order.Total.Equal(order.Subtotal.Add(order.ShippingCost).Add(order.Tax).Sub(order.DiscountTotal())) {
		return nil, ErrTotalMismatch
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The date+random order number can collide; retry with a fresh suffix.
	for attempt := 0; ; attempt++ {
		order.OrderNumber = generateOrderNumber(time.Now())
		err = s.orderRepo.Create(ctx, tx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) || attempt+1 >= orderNumberAttempts {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	if order.Payment.Method == model.PayMethodRazorpay {
		subMethod := req.SelectedPaymentMethod
		if subMethod == "" {
			subMethod = model.SubMethodCard
		}
		payment := &model.Payment{
			OrderID:           order.ID,
			UserID:            userID,
			RazorpayOrderID:   model.GatewayPending,
			RazorpayPaymentID: model.GatewayPending,
			RazorpaySignature: model.GatewayPending,
			Amount:            order.Total,
			Currency:          order.Payment.Currency,
			Status:            model.PaymentStatusPending,
			Method:            subMethod,
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return nil, fmt.Errorf("create payment record: %w", err)
		}
	}

	ref := model.UserOrderRef{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.Total,
		CreatedAt:   order.CreatedAt,
	}
	if err := s.userRepo.PushOrderRef(ctx, tx, userID, ref); err != nil {
		return nil, fmt.Errorf("update user order history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return order, nil
}

func buildOrder(userID uuid.UUID, req dto.CreateOrderRequest) *model.Order {
	items := make([]model.OrderItem, len(req.Items))
	for i, it := range req.Items {
		productID := uuid.New()
		if it.ProductID != nil {
			productID = *it.ProductID
		}
		items[i] = model.OrderItem{
			ProductID:  productID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      it.Price,
			TotalPrice: it.TotalPrice,
			Image:      it.Image,
			Variant:    it.Variant,
		}
	}

	shipping := toAddress(req.ShippingAddress)
	billing := shipping
	if req.BillingAddress != nil {
		billing = toAddress(*req.BillingAddress)
	}

	method := req.Payment.Method
	if method == "" {
		method = model.PayMethodCOD
	}
	currency := req.Payment.Currency
	if currency == "" {
		currency = "INR"
	}

	return &model.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Payment: model.OrderPayment{
			Method:   method,
			Status:   model.PaymentStatusPending,
			Amount:   req.Total,
			Currency: currency,
		},
		Status:       model.OrderStatusPending,
		Shipping:     model.Shipping{Method: "standard"},
		Discounts:    req.Discounts,
		Subtotal:     req.Subtotal,
		ShippingCost: req.ShippingCost,
		Tax:          req.Tax,
		Total:        req.Total,
		Notes:        req.Notes,
	}
}

func toAddress(req dto.AddressRequest) model.Address {
	addrType := req.Type
	if addrType == "" {
		addrType = "home"
	}
	return model.Address{
		Type:    addrType,
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		Country: req.Country,
		ZipCode: req.ZipCode,
	}
}

// generateOrderNumber builds ORD-YYMMDD-RRRR with a zero-padded random
// 4-digit suffix.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("060102"), rand.Intn(10000))
}

// GetOrder returns the order with its payment ledger entry. Non-admin callers
// may only read their own orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*dto.OrderWithPayment, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID && !isAdmin {
		return nil, ErrOrderAccessDenied
	}

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &dto.OrderWithPayment{Order: order, Payment: payment}, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]dto.OrderWithPayment, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := make([]dto.OrderWithPayment, 0, len(orders))
	for i := range orders {
		payment, err := s.paymentRepo.GetByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get payment: %w", err)
		}
		result = append(result, dto.OrderWithPayment{Order: &orders[i], Payment: payment})
	}
	return result, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	return s.orderRepo.ListAll(ctx, limit, offset)
}

// CancelOrder performs the user-initiated cancel transition. Only pending and
// confirmed orders may be cancelled; everything else is rejected unchanged.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	if !order.Status.Cancellable() {
		return nil, ErrNotCancellable
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, model.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := s.userRepo.UpdateOrderRefStatus(ctx, tx, order.UserID, orderID, model.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("update user order history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	order.Status = model.OrderStatusCancelled
	return order, nil
}

// AdminOverrideStatus is the privileged transition: it skips lifecycle
// validation (only the status value itself is checked) and keeps the user's
// denormalized history entry in sync.
func (s *OrderService) AdminOverrideStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := s.userRepo.UpdateOrderRefStatus(ctx, tx, order.UserID, orderID, status); err != nil {
		return nil, fmt.Errorf("update user order history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	order.Status = status
	return order, nil
}

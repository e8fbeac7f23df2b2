package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/storefront-api/internal/model"
)

func TestCategoryRepo_CRUD(t *testing.T) {
	cleanupTable(t, "products", "subcategories", "categories")

	repo := NewCategoryRepository(testPool)
	ctx := context.Background()

	category := &model.Category{Name: "Shoes", Slug: "shoes", Description: "Footwear"}
	require.NoError(t, repo.Create(ctx, category))
	assert.NotEqual(t, uuid.Nil, category.ID)

	found, err := repo.GetByID(ctx, category.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Shoes", found.Name)

	category.Name = "Sneakers"
	require.NoError(t, repo.Update(ctx, category))
	found, _ = repo.GetByID(ctx, category.ID)
	assert.Equal(t, "Sneakers", found.Name)

	listed, err := repo.List(ctx, "sneak")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.Delete(ctx, testPool, category.ID))
	found, _ = repo.GetByID(ctx, category.ID)
	assert.Nil(t, found)
}

func TestSubcategoryRepo_DeleteByCategory(t *testing.T) {
	cleanupTable(t, "products", "subcategories", "categories")

	categoryRepo := NewCategoryRepository(testPool)
	subRepo := NewSubcategoryRepository(testPool)
	ctx := context.Background()

	category := &model.Category{Name: "C", Slug: "c"}
	require.NoError(t, categoryRepo.Create(ctx, category))

	for _, name := range []string{"s1", "s2"} {
		require.NoError(t, subRepo.Create(ctx, &model.Subcategory{
			CategoryID: category.ID, Name: name, Slug: name,
		}))
	}

	require.NoError(t, subRepo.DeleteByCategory(ctx, testPool, category.ID))
	subs, err := subRepo.List(ctx, &category.ID, "")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestProductRepo_ListFilters(t *testing.T) {
	cleanupTable(t, "products", "subcategories", "categories")

	categoryRepo := NewCategoryRepository(testPool)
	subRepo := NewSubcategoryRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	category := &model.Category{Name: "C", Slug: "c"}
	require.NoError(t, categoryRepo.Create(ctx, category))
	sub := &model.Subcategory{CategoryID: category.ID, Name: "S", Slug: "s"}
	require.NoError(t, subRepo.Create(ctx, sub))

	for _, p := range []struct {
		name  string
		price int64
	}{{"Cheap Widget", 10}, {"Mid Widget", 50}, {"Premium Gizmo", 200}} {
		require.NoError(t, productRepo.Create(ctx, &model.Product{
			CategoryID: category.ID, SubcategoryID: sub.ID,
			Name: p.name, Slug: p.name, Price: decimal.NewFromInt(p.price),
			Images: []string{"https://cdn.example.com/p.jpg"},
		}))
	}

	min := decimal.NewFromInt(20)
	max := decimal.NewFromInt(100)
	products, total, err := productRepo.List(ctx, ProductFilter{
		CategoryID: &category.ID, MinPrice: &min, MaxPrice: &max,
		Sort: "price", Order: "asc", Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Mid Widget", products[0].Name)

	products, total, err = productRepo.List(ctx, ProductFilter{
		Search: "widget", Sort: "price", Order: "asc", Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Cheap Widget", products[0].Name)
	assert.Equal(t, []string{"https://cdn.example.com/p.jpg"}, products[0].Images)
}

func testOrder(userID uuid.UUID, number string) *model.Order {
	return &model.Order{
		UserID:      userID,
		OrderNumber: number,
		Items: []model.OrderItem{{
			ProductID: uuid.New(), Name: "Widget", Quantity: 2,
			Price: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(100),
		}},
		ShippingAddress: model.Address{Type: "home", Street: "1 Main St", City: "Pune"},
		BillingAddress:  model.Address{Type: "home", Street: "1 Main St", City: "Pune"},
		Payment: model.OrderPayment{
			Method: model.PayMethodRazorpay, Status: model.PaymentStatusPending,
			Amount: decimal.NewFromInt(100), Currency: "INR",
		},
		Status:   model.OrderStatusPending,
		Shipping: model.Shipping{Method: "standard"},
		Subtotal: decimal.NewFromInt(100),
		Total:    decimal.NewFromInt(100),
	}
}

func seedUser(t *testing.T, externalID string) *model.User {
	t.Helper()
	user := &model.User{ExternalID: externalID, Email: externalID + "@example.com"}
	require.NoError(t, NewUserRepository(testPool).Upsert(context.Background(), user))
	return user
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_order")
	order := testOrder(user.ID, "ORD-260314-0001")
	require.NoError(t, orderRepo.Create(ctx, testPool, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ORD-260314-0001", found.OrderNumber)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Widget", found.Items[0].Name)
	assert.Equal(t, model.PayMethodRazorpay, found.Payment.Method)
	assert.True(t, found.Total.Equal(decimal.NewFromInt(100)))
}

func TestOrderRepo_DuplicateOrderNumber(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_dup")
	require.NoError(t, orderRepo.Create(ctx, testPool, testOrder(user.ID, "ORD-260314-0002")))

	err := orderRepo.Create(ctx, testPool, testOrder(user.ID, "ORD-260314-0002"))
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestOrderRepo_UpdateStatusAndPayment(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_status")
	order := testOrder(user.ID, "ORD-260314-0003")
	require.NoError(t, orderRepo.Create(ctx, testPool, order))

	require.NoError(t, orderRepo.UpdateStatus(ctx, testPool, order.ID, model.OrderStatusConfirmed))

	payment := order.Payment
	payment.Status = model.PaymentStatusCompleted
	payment.RazorpayOrderID = "order_rp1"
	payment.RazorpayPaymentID = "pay_1"
	require.NoError(t, orderRepo.UpdatePayment(ctx, testPool, order.ID, payment))

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, found.Status)
	assert.Equal(t, model.PaymentStatusCompleted, found.Payment.Status)
	assert.Equal(t, "pay_1", found.Payment.RazorpayPaymentID)
}

func TestPaymentRepo_CreateAndLookups(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	orderRepo := NewOrderRepository(testPool)
	paymentRepo := NewPaymentRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_pay")
	order := testOrder(user.ID, "ORD-260314-0004")
	require.NoError(t, orderRepo.Create(ctx, testPool, order))

	payment := &model.Payment{
		OrderID: order.ID, UserID: user.ID,
		RazorpayOrderID: "order_rp9", RazorpayPaymentID: model.GatewayPending,
		RazorpaySignature: model.GatewayPending,
		Amount:            decimal.NewFromInt(100), Currency: "INR",
		Status: model.PaymentStatusPending, Method: model.SubMethodCard,
	}
	require.NoError(t, paymentRepo.Create(ctx, testPool, payment))

	byOrder, err := paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, byOrder)

	byGwOrder, err := paymentRepo.GetByGatewayOrderID(ctx, "order_rp9")
	require.NoError(t, err)
	require.NotNil(t, byGwOrder)
	assert.Equal(t, payment.ID, byGwOrder.ID)

	payment.RazorpayPaymentID = "pay_9"
	payment.Status = model.PaymentStatusCompleted
	payment.Details = model.PaymentDetails{UPI: &model.UPIDetails{VPA: "buyer@upi"}}
	payment.Refunds = []model.Refund{{
		Amount: decimal.NewFromInt(40), Status: "processed", CreatedAt: time.Now(),
	}}
	require.NoError(t, paymentRepo.Update(ctx, testPool, payment))

	byGwPayment, err := paymentRepo.GetByGatewayPaymentID(ctx, "pay_9")
	require.NoError(t, err)
	require.NotNil(t, byGwPayment)
	assert.Equal(t, model.PaymentStatusCompleted, byGwPayment.Status)
	require.NotNil(t, byGwPayment.Details.UPI)
	assert.Equal(t, "buyer@upi", byGwPayment.Details.UPI.VPA)
	require.Len(t, byGwPayment.Refunds, 1)
	assert.True(t, byGwPayment.Refunds[0].Amount.Equal(decimal.NewFromInt(40)))
}

func TestUserRepo_UpsertKeepsLocalState(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	userRepo := NewUserRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_upsert")
	require.NoError(t, userRepo.PushOrderRef(ctx, testPool, user.ID, model.UserOrderRef{
		OrderID: uuid.New(), Status: model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(100), CreatedAt: time.Now(),
	}))

	productID := uuid.New()
	reviews := []model.UserReview{{ProductID: productID, Rating: 5, Comment: "great", CreatedAt: time.Now()}}
	wishlist := []uuid.UUID{productID}
	cart := []model.CartItem{{ProductID: productID, Quantity: 2, AddedAt: time.Now()}}
	_, err := testPool.Exec(ctx,
		`UPDATE users SET reviews=$2, wishlist=$3, cart=$4 WHERE id=$1`,
		user.ID, reviews, wishlist, cart)
	require.NoError(t, err)

	// A later identity sync must not erase history, statistics, or the
	// review/wishlist/cart collections.
	again := &model.User{ExternalID: "ext_upsert", Email: "renamed@example.com", FirstName: "New"}
	require.NoError(t, userRepo.Upsert(ctx, again))
	assert.Equal(t, user.ID, again.ID)

	found, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed@example.com", found.Email)
	assert.Len(t, found.Orders, 1)
	assert.Equal(t, 1, found.Statistics.TotalOrders)
	assert.True(t, found.Statistics.TotalSpent.Equal(decimal.NewFromInt(100)))
	require.Len(t, found.Reviews, 1)
	assert.Equal(t, productID, found.Reviews[0].ProductID)
	assert.Equal(t, 5, found.Reviews[0].Rating)
	assert.Equal(t, []uuid.UUID{productID}, found.Wishlist)
	require.Len(t, found.Cart, 1)
	assert.Equal(t, 2, found.Cart[0].Quantity)
}

func TestUserRepo_OrderRefStatusAndRefunds(t *testing.T) {
	cleanupTable(t, "payments", "orders", "users")

	userRepo := NewUserRepository(testPool)
	ctx := context.Background()

	user := seedUser(t, "ext_refs")
	orderID := uuid.New()
	require.NoError(t, userRepo.PushOrderRef(ctx, testPool, user.ID, model.UserOrderRef{
		OrderID: orderID, Status: model.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(100), CreatedAt: time.Now(),
	}))

	require.NoError(t, userRepo.UpdateOrderRefStatus(ctx, testPool, user.ID, orderID, model.OrderStatusCancelled))
	require.NoError(t, userRepo.IncrementRefundStats(ctx, testPool, user.ID, decimal.NewFromInt(100)))

	found, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, found.Orders, 1)
	assert.Equal(t, model.OrderStatusCancelled, found.Orders[0].Status)
	assert.Equal(t, 1, found.Statistics.TotalRefunds)
	assert.True(t, found.Statistics.TotalRefundAmount.Equal(decimal.NewFromInt(100)))
}

func TestAdminRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTable(t, "admins")

	repo := NewAdminRepository(testPool)
	ctx := context.Background()

	admin := &model.Admin{
		Email: "staff@example.com", Password: "hashed", Name: "Staff",
		Role: model.AdminRoleAdmin, IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, admin))
	assert.NotEqual(t, uuid.Nil, admin.ID)

	found, err := repo.GetByEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, admin.ID, found.ID)
	assert.True(t, found.IsActive)
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

// fakeTx satisfies pgx.Tx for services that group writes in a transaction.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(context.Context) error          { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                         { return nil }

// --- orders ---

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	// dupes makes the next N creates fail with a duplicate order number.
	dupes int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockOrderRepo) Create(_ context.Context, _ repository.Querier, order *model.Order) error {
	if m.dupes > 0 {
		m.dupes--
		return repository.ErrDuplicateOrderNumber
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, _, _ int) ([]model.Order, int, error) {
	var orders []model.Order
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	return orders, len(orders), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ repository.Querier, id uuid.UUID, status model.OrderStatus) error {
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

func (m *mockOrderRepo) UpdatePayment(_ context.Context, _ repository.Querier, id uuid.UUID, payment model.OrderPayment) error {
	if o, ok := m.orders[id]; ok {
		o.Payment = payment
	}
	return nil
}

// --- payments ---

type mockPaymentRepo struct {
	payments map[uuid.UUID]*model.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (m *mockPaymentRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockPaymentRepo) Create(_ context.Context, _ repository.Querier, payment *model.Payment) error {
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	m.payments[payment.ID] = payment
	return nil
}

func (m *mockPaymentRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.RazorpayOrderID == gatewayOrderID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) GetByGatewayPaymentID(_ context.Context, gatewayPaymentID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.RazorpayPaymentID == gatewayPaymentID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) Update(_ context.Context, _ repository.Querier, payment *model.Payment) error {
	m.payments[payment.ID] = payment
	return nil
}

// --- users ---

type mockUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.ExternalID == user.ExternalID {
			u.Email = user.Email
			u.FirstName = user.FirstName
			u.LastName = user.LastName
			u.Username = user.Username
			u.ProfileImageURL = user.ProfileImageURL
			u.EmailVerified = user.EmailVerified
			*user = *u
			return nil
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	for _, u := range m.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) List(_ context.Context, _ string, _, _ int) ([]model.User, int, error) {
	var users []model.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) DeleteByExternalID(_ context.Context, externalID string) error {
	for id, u := range m.users {
		if u.ExternalID == externalID {
			delete(m.users, id)
		}
	}
	return nil
}

func (m *mockUserRepo) SetLastSignIn(_ context.Context, externalID string, at time.Time) error {
	for _, u := range m.users {
		if u.ExternalID == externalID {
			u.LastSignIn = &at
		}
	}
	return nil
}

func (m *mockUserRepo) PushOrderRef(_ context.Context, _ repository.Querier, userID uuid.UUID, ref model.UserOrderRef) error {
	if u, ok := m.users[userID]; ok {
		u.Orders = append(u.Orders, ref)
		u.Statistics.TotalOrders++
		u.Statistics.TotalSpent = u.Statistics.TotalSpent.Add(ref.TotalAmount)
	}
	return nil
}

func (m *mockUserRepo) UpdateOrderRefStatus(_ context.Context, _ repository.Querier, userID, orderID uuid.UUID, status model.OrderStatus) error {
	if u, ok := m.users[userID]; ok {
		for i := range u.Orders {
			if u.Orders[i].OrderID == orderID {
				u.Orders[i].Status = status
			}
		}
	}
	return nil
}

func (m *mockUserRepo) IncrementRefundStats(_ context.Context, _ repository.Querier, userID uuid.UUID, amount decimal.Decimal) error {
	if u, ok := m.users[userID]; ok {
		u.Statistics.TotalRefunds++
		u.Statistics.TotalRefundAmount = u.Statistics.TotalRefundAmount.Add(amount)
	}
	return nil
}

// --- catalog ---

type mockCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[uuid.UUID]*model.Category)}
}

func (m *mockCategoryRepo) BeginTx(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	category.ID = uuid.New()
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	return m.categories[id], nil
}

func (m *mockCategoryRepo) List(_ context.Context, _ string) ([]model.Category, error) {
	var categories []model.Category
	for _, c := range m.categories {
		categories = append(categories, *c)
	}
	return categories, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, category *model.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, _ repository.Querier, id uuid.UUID) error {
	delete(m.categories, id)
	return nil
}

type mockSubcategoryRepo struct {
	subs map[uuid.UUID]*model.Subcategory
}

func newMockSubcategoryRepo() *mockSubcategoryRepo {
	return &mockSubcategoryRepo{subs: make(map[uuid.UUID]*model.Subcategory)}
}

func (m *mockSubcategoryRepo) Create(_ context.Context, sub *model.Subcategory) error {
	sub.ID = uuid.New()
	m.subs[sub.ID] = sub
	return nil
}

func (m *mockSubcategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Subcategory, error) {
	return m.subs[id], nil
}

func (m *mockSubcategoryRepo) List(_ context.Context, categoryID *uuid.UUID, _ string) ([]model.Subcategory, error) {
	var subs []model.Subcategory
	for _, s := range m.subs {
		if categoryID == nil || s.CategoryID == *categoryID {
			subs = append(subs, *s)
		}
	}
	return subs, nil
}

func (m *mockSubcategoryRepo) Update(_ context.Context, sub *model.Subcategory) error {
	m.subs[sub.ID] = sub
	return nil
}

func (m *mockSubcategoryRepo) Delete(_ context.Context, _ repository.Querier, id uuid.UUID) error {
	delete(m.subs, id)
	return nil
}

func (m *mockSubcategoryRepo) DeleteByCategory(_ context.Context, _ repository.Querier, categoryID uuid.UUID) error {
	for id, s := range m.subs {
		if s.CategoryID == categoryID {
			delete(m.subs, id)
		}
	}
	return nil
}

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	product.ID = uuid.New()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, _ repository.ProductFilter) ([]model.Product, int, error) {
	var products []model.Product
	for _, p := range m.products {
		products = append(products, *p)
	}
	return products, len(products), nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DeleteBySubcategory(_ context.Context, _ repository.Querier, subcategoryID uuid.UUID) error {
	for id, p := range m.products {
		if p.SubcategoryID == subcategoryID {
			delete(m.products, id)
		}
	}
	return nil
}

func (m *mockProductRepo) DeleteByCategory(_ context.Context, _ repository.Querier, categoryID uuid.UUID) error {
	for id, p := range m.products {
		if p.CategoryID == categoryID {
			delete(m.products, id)
		}
	}
	return nil
}

// --- gateway ---

type mockGateway struct {
	order   gateway.GatewayOrder
	payment gateway.GatewayPayment
	created int
}

func (m *mockGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*gateway.GatewayOrder, error) {
	m.created++
	order := m.order
	if order.ID == "" {
		order.ID = "order_mock"
	}
	order.Amount = amountMinor
	order.Currency = currency
	order.Receipt = receipt
	return &order, nil
}

func (m *mockGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.GatewayPayment, error) {
	payment := m.payment
	payment.ID = paymentID
	return &payment, nil
}

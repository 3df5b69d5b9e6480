package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/priyanshu-sharma/storefront/pkg/stripe"
	"github.com/stretchr/testify/mock"
)

type mockCartRepository struct {
	mock.Mock
}

func newMockCartRepository(t *testing.T) *mockCartRepository {
	m := &mockCartRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)

	return args.Error(0)
}

func (m *mockCartRepository) Load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func newMockProductRepository(t *testing.T) *mockProductRepository {
	m := &mockProductRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockProductRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)

	if product, ok := args.Get(0).(*models.Product); ok {
		return product, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockProductRepository) ListProducts(ctx context.Context, page, size int) ([]models.Product, int, error) {
	args := m.Called(ctx, page, size)

	if products, ok := args.Get(0).([]models.Product); ok {
		return products, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

type mockOrderRepository struct {
	mock.Mock
}

func newMockOrderRepository(t *testing.T) *mockOrderRepository {
	m := &mockOrderRepository{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockOrderRepository) InsertOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)

	return args.Error(0)
}

func (m *mockOrderRepository) InsertOrderLines(ctx context.Context, lines []models.OrderLine) error {
	args := m.Called(ctx, lines)

	return args.Error(0)
}

func (m *mockOrderRepository) DeleteOrder(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *mockOrderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)

	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

type mockStripeClient struct {
	mock.Mock
}

func newMockStripeClient(t *testing.T) *mockStripeClient {
	m := &mockStripeClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *mockStripeClient) CreateAuthorization(amount int64, currency string, description string) (string, error) {
	args := m.Called(amount, currency, description)

	return args.String(0), args.Error(1)
}

func (m *mockStripeClient) Capture(authorizationID string) (string, error) {
	args := m.Called(authorizationID)

	return args.String(0), args.Error(1)
}

func (m *mockStripeClient) CancelAuthorization(authorizationID string) error {
	args := m.Called(authorizationID)

	return args.Error(0)
}

func (m *mockStripeClient) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)

	if event, ok := args.Get(0).(stripe.Event); ok {
		return event, args.Error(1)
	}

	return stripe.Event{}, args.Error(1)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	args := m.Called(ctx, to, order)

	return args.Error(0)
}

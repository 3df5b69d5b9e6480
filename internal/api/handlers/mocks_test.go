package handlers_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/priyanshu-sharma/storefront/internal/models"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/pkg/stripe"
	"github.com/stretchr/testify/mock"
)

type mockCartService struct {
	mock.Mock
}

func (m *mockCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	args := m.Called(ctx, userID, req)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	args := m.Called(ctx, userID, req)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID int64) (*models.Cart, error) {
	args := m.Called(ctx, userID, productID)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)

	if product, ok := args.Get(0).(*models.Product); ok {
		return product, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockProductService) ListProducts(ctx context.Context, page, size int) (*models.ProductListResponse, error) {
	args := m.Called(ctx, page, size)

	if list, ok := args.Get(0).(*models.ProductListResponse); ok {
		return list, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) Commit(ctx context.Context, userID uuid.UUID, cart *models.Cart,
	shipping models.ShippingInfo, outcome models.PaymentOutcome, method models.PaymentMethod) (*models.Order, error) {
	args := m.Called(ctx, userID, cart, shipping, outcome, method)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Order, error) {
	args := m.Called(ctx, userID, id)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOrderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)

	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

type mockCheckoutService struct {
	mock.Mock
}

func (m *mockCheckoutService) Begin(ctx context.Context, userID uuid.UUID) (service.CheckoutState, error) {
	args := m.Called(ctx, userID)

	return args.Get(0).(service.CheckoutState), args.Error(1)
}

func (m *mockCheckoutService) SubmitShipping(ctx context.Context, userID uuid.UUID, shipping models.ShippingInfo) (service.CheckoutState, error) {
	args := m.Called(ctx, userID, shipping)

	return args.Get(0).(service.CheckoutState), args.Error(1)
}

func (m *mockCheckoutService) Pay(ctx context.Context, userID uuid.UUID, email string, adapter service.PaymentAdapter) (*models.Order, error) {
	args := m.Called(ctx, userID, email, adapter)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCheckoutService) Cancel(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

func (m *mockCheckoutService) State(userID uuid.UUID) service.CheckoutState {
	args := m.Called(userID)

	return args.Get(0).(service.CheckoutState)
}

func (m *mockCheckoutService) ResolveApproval(authorizationID string, approved bool) bool {
	args := m.Called(authorizationID, approved)

	return args.Bool(0)
}

type mockStripeClient struct {
	mock.Mock
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

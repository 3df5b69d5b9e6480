package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appErrors "github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

func checkoutFixture(t *testing.T) (service.CheckoutService, *mockCartService, *mockOrderService, *mockNotificationService) {
	t.Helper()

	carts := &mockCartService{}
	orders := &mockOrderService{}
	notifier := &mockNotificationService{}

	t.Cleanup(func() {
		carts.AssertExpectations(t)
		orders.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	return service.NewCheckoutService(carts, orders, notifier), carts, orders, notifier
}

func TestCheckoutHappyPath(t *testing.T) {
	// Arrange: a full cash-on-delivery run from Begin to Completed
	ctx := context.Background()
	userID := uuid.New()
	checkout, carts, orders, notifier := checkoutFixture(t)

	cart := twoLineCart(userID)
	shipping := validShipping()
	committed := &models.Order{ID: 201, UserID: userID, TotalAmount: decimal.RequireFromString("4098.00")}

	carts.On("Get", ctx, userID).Return(cart, nil).Twice()
	orders.On("Commit", ctx, userID, cart, shipping, models.PendingOutcome(), models.PaymentMethodCOD).
		Return(committed, nil).Once()
	carts.On("Clear", ctx, userID).Return(nil).Once()
	notifier.On("SendOrderConfirmation", ctx, "asha@example.com", committed).Return(nil).Once()

	// Act
	state, err := checkout.Begin(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, service.StateCollectingShipping, state)

	state, err = checkout.SubmitShipping(ctx, userID, shipping)
	require.NoError(t, err)
	assert.Equal(t, service.StateAwaitingPayment, state)

	order, err := checkout.Pay(ctx, userID, "asha@example.com", service.NewCODAdapter())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(201), order.ID)
	assert.Equal(t, service.StateCompleted, checkout.State(userID))
	carts.AssertNumberOfCalls(t, "Clear", 1)
}

func TestCheckoutBegin(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Failure - Empty Cart", func(t *testing.T) {
		// Arrange
		checkout, carts, _, _ := checkoutFixture(t)
		carts.On("Get", ctx, userID).Return(models.NewCart(userID), nil).Once()

		// Act
		state, err := checkout.Begin(ctx, userID)

		// Assert: no attempt exists at all
		assert.Error(t, err)
		assert.Equal(t, service.StateIdle, state)
		assert.Equal(t, service.StateIdle, checkout.State(userID))

		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
	})

	t.Run("Success - Restart Replaces Collected Shipping", func(t *testing.T) {
		// Arrange
		checkout, carts, _, _ := checkoutFixture(t)
		carts.On("Get", ctx, userID).Return(twoLineCart(userID), nil).Twice()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, validShipping())
		require.NoError(t, err)

		// Act: beginning again resets to shipping collection
		state, err := checkout.Begin(ctx, userID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, service.StateCollectingShipping, state)
	})
}

func TestCheckoutSubmitShipping(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Failure - Not Started", func(t *testing.T) {
		// Arrange
		checkout, _, _, _ := checkoutFixture(t)

		// Act
		_, err := checkout.SubmitShipping(ctx, userID, validShipping())

		// Assert
		assert.Error(t, err)
	})

	t.Run("Failure - Missing Fields Keep State", func(t *testing.T) {
		// Arrange
		checkout, carts, _, _ := checkoutFixture(t)
		carts.On("Get", ctx, userID).Return(twoLineCart(userID), nil).Once()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)

		// Act
		state, err := checkout.SubmitShipping(ctx, userID, models.ShippingInfo{FullName: "Asha Rao"})

		// Assert: still collecting, retry with complete fields allowed
		assert.Error(t, err)
		assert.Equal(t, service.StateCollectingShipping, state)
		assert.Equal(t, service.StateCollectingShipping, checkout.State(userID))
	})
}

func TestCheckoutPay(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Failure - Not Started", func(t *testing.T) {
		// Arrange
		checkout, _, _, _ := checkoutFixture(t)

		// Act
		_, err := checkout.Pay(ctx, userID, "", service.NewCODAdapter())

		// Assert
		assert.Error(t, err)
	})

	t.Run("Failure - Shipping Not Collected", func(t *testing.T) {
		// Arrange
		checkout, carts, _, _ := checkoutFixture(t)
		carts.On("Get", ctx, userID).Return(twoLineCart(userID), nil).Once()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)

		// Act
		_, err = checkout.Pay(ctx, userID, "", service.NewCODAdapter())

		// Assert
		assert.Error(t, err)

		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
	})

	t.Run("Failure - Commit Error Keeps Cart And Allows Retry", func(t *testing.T) {
		// Arrange
		checkout, carts, orders, notifier := checkoutFixture(t)

		cart := twoLineCart(userID)
		shipping := validShipping()
		commitErr := appErrors.PartialCommitError("Order could not be completed and was rolled back")

		carts.On("Get", ctx, userID).Return(cart, nil).Times(3)
		orders.On("Commit", ctx, userID, cart, shipping, models.PendingOutcome(), models.PaymentMethodCOD).
			Return(nil, commitErr).Once()
		orders.On("Commit", ctx, userID, cart, shipping, models.PendingOutcome(), models.PaymentMethodCOD).
			Return(&models.Order{ID: 202, UserID: userID}, nil).Once()
		carts.On("Clear", ctx, userID).Return(nil).Once()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, shipping)
		require.NoError(t, err)

		// Act: first attempt fails at the commit
		_, err = checkout.Pay(ctx, userID, "", service.NewCODAdapter())

		// Assert: cart untouched, attempt failed but retryable
		assert.ErrorIs(t, err, commitErr)
		assert.Equal(t, service.StateFailed, checkout.State(userID))
		carts.AssertNotCalled(t, "Clear", ctx, userID)

		// Act: retry with the same shipping details
		order, err := checkout.Pay(ctx, userID, "", service.NewCODAdapter())

		// Assert: the cart is cleared exactly once, on the successful attempt
		require.NoError(t, err)
		assert.Equal(t, int64(202), order.ID)
		carts.AssertNumberOfCalls(t, "Clear", 1)
		notifier.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Declined Payment Is Retryable", func(t *testing.T) {
		// Arrange
		checkout, carts, orders, _ := checkoutFixture(t)

		cart := twoLineCart(userID)
		carts.On("Get", ctx, userID).Return(cart, nil).Twice()

		mockClient := newMockStripeClient(t)
		adapter, err := service.NewExternalCaptureAdapter(mockClient, checkoutConfig(time.Second))
		require.NoError(t, err)

		mockClient.On("CreateAuthorization", mock.Anything, "usd", mock.Anything).
			Return("", errors.New("card declined")).Once()

		_, err = checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, validShipping())
		require.NoError(t, err)

		// Act
		_, err = checkout.Pay(ctx, userID, "", adapter)

		// Assert: no order, cart intact, shipping retained for retry
		assert.Error(t, err)

		var appErr *appErrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrCodePaymentFailed, appErr.Code)
		assert.Equal(t, service.StateFailed, checkout.State(userID))
		orders.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("Success - Clear Failure Still Completes The Order", func(t *testing.T) {
		// Arrange
		checkout, carts, orders, _ := checkoutFixture(t)

		cart := twoLineCart(userID)
		shipping := validShipping()
		committed := &models.Order{ID: 203, UserID: userID}

		carts.On("Get", ctx, userID).Return(cart, nil).Twice()
		orders.On("Commit", ctx, userID, cart, shipping, models.PendingOutcome(), models.PaymentMethodCOD).
			Return(committed, nil).Once()
		carts.On("Clear", ctx, userID).Return(errors.New("redis down")).Once()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, shipping)
		require.NoError(t, err)

		// Act
		order, err := checkout.Pay(ctx, userID, "", service.NewCODAdapter())

		// Assert: the order is durable, the stale snapshot is a log line
		require.NoError(t, err)
		assert.Equal(t, int64(203), order.ID)
		assert.Equal(t, service.StateCompleted, checkout.State(userID))
	})
}

// A payment form submitted twice must yield one order. The duplicate has to
// be refused even while the first call is still inside the cart load, where
// both would otherwise see AwaitingPayment.
func TestCheckoutPayDoubleSubmit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	userID := uuid.New()
	checkout, carts, orders, _ := checkoutFixture(t)

	cart := twoLineCart(userID)
	shipping := validShipping()

	entered := make(chan struct{})
	release := make(chan struct{})

	carts.On("Get", ctx, userID).Return(cart, nil).Once()
	carts.On("Get", ctx, userID).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(cart, nil).Once()
	orders.On("Commit", ctx, userID, cart, shipping, models.PendingOutcome(), models.PaymentMethodCOD).
		Return(&models.Order{ID: 205, UserID: userID}, nil).Once()
	carts.On("Clear", ctx, userID).Return(nil).Once()

	_, err := checkout.Begin(ctx, userID)
	require.NoError(t, err)
	_, err = checkout.SubmitShipping(ctx, userID, shipping)
	require.NoError(t, err)

	results := make(chan error, 1)

	go func() {
		_, payErr := checkout.Pay(ctx, userID, "", service.NewCODAdapter())
		results <- payErr
	}()

	<-entered

	// Act: the duplicate lands while the first submission is in flight
	_, err = checkout.Pay(ctx, userID, "", service.NewCODAdapter())

	// Assert: refused outright, no second cart load and no second commit
	var appErr *appErrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)

	close(release)
	require.NoError(t, <-results)

	assert.Equal(t, service.StateCompleted, checkout.State(userID))
	orders.AssertNumberOfCalls(t, "Commit", 1)
	carts.AssertNumberOfCalls(t, "Clear", 1)
}

func TestCheckoutExternalApproval(t *testing.T) {
	// Arrange: the webhook path resolves a suspended card payment
	ctx := context.Background()
	userID := uuid.New()
	checkout, carts, orders, _ := checkoutFixture(t)

	cart := twoLineCart(userID)
	shipping := validShipping()
	committed := &models.Order{ID: 204, UserID: userID, TransactionID: "txn_1"}

	mockClient := newMockStripeClient(t)
	adapter, err := service.NewExternalCaptureAdapter(mockClient, checkoutConfig(time.Second))
	require.NoError(t, err)

	// 4098.00 INR / 83 = 49.37 USD
	mockClient.On("CreateAuthorization", int64(4937), "usd", "storefront order").Return("auth_1", nil).Once()
	mockClient.On("Capture", "auth_1").Return("txn_1", nil).Once()

	carts.On("Get", ctx, userID).Return(cart, nil).Twice()
	orders.On("Commit", ctx, userID, cart, shipping, models.CompletedOutcome("txn_1"), models.PaymentMethodCard).
		Return(committed, nil).Once()
	carts.On("Clear", ctx, userID).Return(nil).Once()

	_, err = checkout.Begin(ctx, userID)
	require.NoError(t, err)
	_, err = checkout.SubmitShipping(ctx, userID, shipping)
	require.NoError(t, err)

	// Act: Pay suspends until the approval callback lands
	type payResult struct {
		order *models.Order
		err   error
	}

	results := make(chan payResult, 1)

	go func() {
		order, payErr := checkout.Pay(ctx, userID, "", adapter)
		results <- payResult{order, payErr}
	}()

	require.Eventually(t, func() bool {
		return adapter.AuthorizationID() != ""
	}, time.Second, time.Millisecond)

	assert.False(t, checkout.ResolveApproval("auth_unknown", true), "unknown authorization must not resolve")
	assert.True(t, checkout.ResolveApproval("auth_1", true))

	result := <-results

	// Assert
	require.NoError(t, result.err)
	assert.Equal(t, "txn_1", result.order.TransactionID)
	assert.Equal(t, service.StateCompleted, checkout.State(userID))
}

func TestCheckoutCancel(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success - Abandons Attempt And Shipping", func(t *testing.T) {
		// Arrange
		checkout, carts, _, _ := checkoutFixture(t)
		carts.On("Get", ctx, userID).Return(twoLineCart(userID), nil).Once()

		_, err := checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, validShipping())
		require.NoError(t, err)

		// Act
		err = checkout.Cancel(ctx, userID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, service.StateIdle, checkout.State(userID))
	})

	t.Run("Success - Cancel Unblocks A Suspended Card Payment", func(t *testing.T) {
		// Arrange: an hour-long approval window, so only an immediate abort
		// can end the wait in time
		checkout, carts, orders, _ := checkoutFixture(t)

		carts.On("Get", ctx, userID).Return(twoLineCart(userID), nil).Twice()

		mockClient := newMockStripeClient(t)
		adapter, err := service.NewExternalCaptureAdapter(mockClient, checkoutConfig(time.Hour))
		require.NoError(t, err)

		authorized := make(chan struct{})
		mockClient.On("CreateAuthorization", mock.Anything, "usd", mock.Anything).
			Run(func(mock.Arguments) { close(authorized) }).
			Return("auth_1", nil).Once()
		mockClient.On("CancelAuthorization", "auth_1").Return(nil).Once()

		_, err = checkout.Begin(ctx, userID)
		require.NoError(t, err)
		_, err = checkout.SubmitShipping(ctx, userID, validShipping())
		require.NoError(t, err)

		results := make(chan error, 1)

		go func() {
			_, payErr := checkout.Pay(ctx, userID, "", adapter)
			results <- payErr
		}()

		<-authorized

		// Act: the buyer abandons while the payment is suspended
		require.NoError(t, checkout.Cancel(ctx, userID))

		// Assert: the suspended payment fails promptly, the hold is released
		select {
		case payErr := <-results:
			var appErr *appErrors.AppError
			require.True(t, errors.As(payErr, &appErr))
			assert.Equal(t, appErrors.ErrCodePaymentFailed, appErr.Code)
		case <-time.After(time.Second):
			t.Fatal("cancellation did not unblock the payment")
		}

		assert.Equal(t, service.StateIdle, checkout.State(userID))
		orders.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success - Cancel Without Attempt Is A No-Op", func(t *testing.T) {
		// Arrange
		checkout, _, _, _ := checkoutFixture(t)

		// Act & Assert
		assert.NoError(t, checkout.Cancel(ctx, userID))
	})
}

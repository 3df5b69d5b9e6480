package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/metrics"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/priyanshu-sharma/storefront/internal/pricing"
)

type CheckoutState string

const (
	StateIdle               CheckoutState = "idle"
	StateCollectingShipping CheckoutState = "collecting_shipping"
	StateAwaitingPayment    CheckoutState = "awaiting_payment"
	StateCommitting         CheckoutState = "committing"
	StateCompleted          CheckoutState = "completed"
	StateFailed             CheckoutState = "failed"
)

// CheckoutService sequences cart, payment and commit for one attempt per
// user. The one property everything here protects: the cart is cleared
// exactly once, strictly after the order is durable, and never on failure.
type CheckoutService interface {
	Begin(ctx context.Context, userID uuid.UUID) (CheckoutState, error)
	SubmitShipping(ctx context.Context, userID uuid.UUID, shipping models.ShippingInfo) (CheckoutState, error)
	Pay(ctx context.Context, userID uuid.UUID, email string, adapter PaymentAdapter) (*models.Order, error)
	Cancel(ctx context.Context, userID uuid.UUID) error
	State(userID uuid.UUID) CheckoutState
	// ResolveApproval routes a processor approval or cancellation callback to
	// the checkout holding that authorization. Returns false when no attempt
	// is waiting on it.
	ResolveApproval(authorizationID string, approved bool) bool
}

type checkoutSession struct {
	state    CheckoutState
	shipping *models.ShippingInfo
	// true for the whole duration of a Pay call, whatever the method
	paying bool
	// in-flight external payment, set only while Collect is blocked
	adapter *ExternalCaptureAdapter
}

type checkoutService struct {
	carts    CartService
	orders   OrderService
	notifier NotificationService

	mu       sync.Mutex
	sessions map[uuid.UUID]*checkoutSession
}

func NewCheckoutService(carts CartService, orders OrderService, notifier NotificationService) CheckoutService {
	return &checkoutService{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		sessions: make(map[uuid.UUID]*checkoutSession),
	}
}

// Begin enters checkout. An empty cart is rejected before any state exists,
// so there is nothing to cancel or clean up afterwards.
func (s *checkoutService) Begin(ctx context.Context, userID uuid.UUID) (CheckoutState, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return StateIdle, err
	}

	if cart.IsEmpty() {
		return StateIdle, apperrors.ValidationError("Cannot checkout with an empty cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[userID]; ok && existing.state == StateCommitting {
		return existing.state, apperrors.BadRequestError("Checkout is already being finalized")
	}

	s.sessions[userID] = &checkoutSession{state: StateCollectingShipping}

	return StateCollectingShipping, nil
}

// SubmitShipping moves to AwaitingPayment once the required fields are
// present; otherwise the attempt stays where it is and the caller is told
// what is missing.
func (s *checkoutService) SubmitShipping(ctx context.Context, userID uuid.UUID, shipping models.ShippingInfo) (CheckoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return StateIdle, apperrors.BadRequestError("Checkout has not been started")
	}

	if session.state == StateCommitting {
		return session.state, apperrors.BadRequestError("Checkout is already being finalized")
	}

	if missing := missingShippingFields(shipping); len(missing) > 0 {
		return session.state, apperrors.ValidationError("Missing required shipping fields").
			WithDetail("required: full name, address, city")
	}

	session.shipping = &shipping
	session.state = StateAwaitingPayment

	return session.state, nil
}

// Pay runs the payment adapter and, on a committable outcome, the order
// commit. A failed payment leaves the attempt retryable with the same
// shipping details; a failed commit does the same and keeps the cart intact.
func (s *checkoutService) Pay(ctx context.Context, userID uuid.UUID, email string, adapter PaymentAdapter) (*models.Order, error) {
	s.mu.Lock()

	session, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()

		return nil, apperrors.BadRequestError("Checkout has not been started")
	}

	switch session.state {
	case StateAwaitingPayment, StateFailed:
		// payment (and payment retry) entry points
	case StateCollectingShipping:
		s.mu.Unlock()

		return nil, apperrors.ValidationError("Shipping details are required before payment")
	default:
		s.mu.Unlock()

		return nil, apperrors.BadRequestError("Checkout is not awaiting payment")
	}

	if session.shipping == nil {
		s.mu.Unlock()

		return nil, apperrors.ValidationError("Shipping details are required before payment")
	}

	if session.paying {
		s.mu.Unlock()

		return nil, apperrors.BadRequestError("A payment is already in progress")
	}

	session.paying = true
	session.state = StateAwaitingPayment
	shipping := *session.shipping

	if external, isExternal := adapter.(*ExternalCaptureAdapter); isExternal {
		session.adapter = external
	}

	s.mu.Unlock()

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		s.finishPayment(session, StateFailed)

		return nil, err
	}

	if cart.IsEmpty() {
		s.finishPayment(session, StateFailed)

		return nil, apperrors.ValidationError("Cannot checkout with an empty cart")
	}

	// Suspension point: for external capture this blocks until approval,
	// cancellation or timeout.
	outcome := adapter.Collect(ctx, pricing.Total(cart))

	if !outcome.Committable() {
		s.finishPayment(session, StateFailed)
		metrics.RecordCheckoutAttempt(metrics.ResultPaymentFailed)

		return nil, apperrors.PaymentFailedError(outcome.Reason)
	}

	// From here the attempt runs to completion; cancellation is no longer
	// honored.
	s.finishPayment(session, StateCommitting)

	order, err := s.orders.Commit(ctx, userID, cart, shipping, outcome, adapter.Method())
	if err != nil {
		s.setState(session, StateFailed)
		metrics.RecordCheckoutAttempt(metrics.ResultCommitFailed)

		return nil, err
	}

	// The order is durable: clear the cart now and only now.
	if err := s.carts.Clear(ctx, userID); err != nil {
		slog.Error("Order committed but cart could not be cleared",
			slog.Int64("orderId", order.ID),
			slog.String("error", err.Error()))
	}

	s.setState(session, StateCompleted)

	metrics.RecordCheckoutAttempt(metrics.ResultCompleted)

	s.sendConfirmation(ctx, email, order)

	return order, nil
}

func (s *checkoutService) finishPayment(session *checkoutSession, state CheckoutState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.paying = false
	session.adapter = nil
	session.state = state
}

func (s *checkoutService) setState(session *checkoutSession, state CheckoutState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.state = state
}

// Cancel abandons the attempt and discards collected shipping details. Once
// the commit has started it can no longer be cancelled.
func (s *checkoutService) Cancel(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()

	session, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()

		return nil
	}

	if session.state == StateCommitting {
		s.mu.Unlock()

		return apperrors.BadRequestError("Checkout is being finalized and can no longer be cancelled")
	}

	adapter := session.adapter
	delete(s.sessions, userID)
	s.mu.Unlock()

	if adapter != nil {
		adapter.Abort()
	}

	return nil
}

func (s *checkoutService) State(userID uuid.UUID) CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok {
		return session.state
	}

	return StateIdle
}

func (s *checkoutService) ResolveApproval(authorizationID string, approved bool) bool {
	if authorizationID == "" {
		return false
	}

	s.mu.Lock()

	var target *ExternalCaptureAdapter

	for _, session := range s.sessions {
		if session.adapter != nil && session.adapter.AuthorizationID() == authorizationID {
			target = session.adapter

			break
		}
	}

	s.mu.Unlock()

	if target == nil {
		return false
	}

	if approved {
		target.Approve(authorizationID)
	} else {
		target.Cancel(authorizationID)
	}

	return true
}

func (s *checkoutService) sendConfirmation(ctx context.Context, email string, order *models.Order) {
	if s.notifier == nil || email == "" {
		return
	}

	if err := s.notifier.SendOrderConfirmation(ctx, email, order); err != nil {
		slog.Warn("Failed to send order confirmation email",
			slog.Int64("orderId", order.ID),
			slog.String("error", err.Error()))
	}
}

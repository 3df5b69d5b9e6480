package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/priyanshu-sharma/storefront/internal/config"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/priyanshu-sharma/storefront/pkg/stripe"
	"github.com/shopspring/decimal"
)

// ReasonCancelled marks an approval the buyer abandoned, timed out on, or
// explicitly cancelled. The orchestrator treats all three the same way.
const ReasonCancelled = "cancelled"

// PaymentAdapter collects payment for a display-currency amount and reports a
// normalized outcome. Collect blocks until the outcome is known; it never
// returns an unresolved state.
type PaymentAdapter interface {
	Method() models.PaymentMethod
	Collect(ctx context.Context, amount decimal.Decimal) models.PaymentOutcome
}

// codAdapter is the manual-confirmation path: the order is placed unpaid and
// settled on delivery, so the outcome is Pending with no transaction id.
type codAdapter struct{}

func NewCODAdapter() PaymentAdapter {
	return codAdapter{}
}

func (codAdapter) Method() models.PaymentMethod {
	return models.PaymentMethodCOD
}

func (codAdapter) Collect(_ context.Context, _ decimal.Decimal) models.PaymentOutcome {
	return models.PendingOutcome()
}

// ExternalCaptureAdapter drives the three-step processor protocol: authorize
// the converted amount, suspend until the buyer approves, then capture. One
// adapter serves exactly one checkout attempt; capture runs at most once no
// matter how many approval callbacks arrive.
type ExternalCaptureAdapter struct {
	client   stripe.Client
	rate     decimal.Decimal
	currency string
	timeout  time.Duration

	mu              sync.Mutex
	authorizationID string
	resolved        bool
	approvals       chan bool
	abort           chan struct{}
	abortOnce       sync.Once
}

func NewExternalCaptureAdapter(client stripe.Client, cfg config.Checkout) (*ExternalCaptureAdapter, error) {
	rate, err := decimal.NewFromString(cfg.ConversionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion rate %q: %w", cfg.ConversionRate, err)
	}

	if !rate.IsPositive() {
		return nil, fmt.Errorf("conversion rate must be positive, got %s", rate)
	}

	return &ExternalCaptureAdapter{
		client:    client,
		rate:      rate,
		currency:  cfg.ProcessorCurrency,
		timeout:   cfg.ApprovalTimeout,
		approvals: make(chan bool, 1),
		abort:     make(chan struct{}),
	}, nil
}

func (a *ExternalCaptureAdapter) Method() models.PaymentMethod {
	return models.PaymentMethodCard
}

// ConvertAmount maps a display-currency amount into the processor currency:
// divide by the fixed rate, round half away from zero to two decimals.
func (a *ExternalCaptureAdapter) ConvertAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.DivRound(a.rate, 2)
}

// AuthorizationID is the processor-side id of the in-flight authorization,
// empty until Collect has authorized.
func (a *ExternalCaptureAdapter) AuthorizationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.authorizationID
}

func (a *ExternalCaptureAdapter) Collect(ctx context.Context, amount decimal.Decimal) models.PaymentOutcome {
	charge := a.ConvertAmount(amount)
	minorUnits := charge.Shift(2).IntPart()

	if minorUnits <= 0 {
		return models.FailedOutcome("converted amount is too small to charge")
	}

	authID, err := a.client.CreateAuthorization(minorUnits, a.currency, "storefront order")
	if err != nil {
		slog.Warn("Payment authorization failed", slog.String("error", err.Error()))

		return models.FailedOutcome("payment authorization was declined")
	}

	a.mu.Lock()
	a.authorizationID = authID
	a.mu.Unlock()

	approved, reason := a.awaitApproval(ctx)

	a.mu.Lock()
	a.resolved = true
	a.mu.Unlock()

	if !approved {
		if err := a.client.CancelAuthorization(authID); err != nil {
			slog.Warn("Failed to release abandoned authorization",
				slog.String("authorizationId", authID),
				slog.String("error", err.Error()))
		}

		return models.FailedOutcome(reason)
	}

	transactionID, err := a.client.Capture(authID)
	if err != nil {
		slog.Error("Payment capture failed",
			slog.String("authorizationId", authID),
			slog.String("error", err.Error()))

		return models.FailedOutcome("payment capture failed")
	}

	return models.CompletedOutcome(transactionID)
}

// awaitApproval is the suspension point: it blocks until the buyer approves,
// cancels or aborts, the caller's context ends, or the approval window
// closes. An abandoned approval is always reported as cancelled, never as
// pending.
func (a *ExternalCaptureAdapter) awaitApproval(ctx context.Context) (bool, string) {
	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case approved := <-a.approvals:
		if !approved {
			return false, ReasonCancelled
		}

		return true, ""
	case <-a.abort:
		return false, ReasonCancelled
	case <-ctx.Done():
		return false, ReasonCancelled
	case <-timer.C:
		return false, ReasonCancelled
	}
}

// Approve signals buyer approval for the given authorization. Approvals for
// an unknown authorization, or after the attempt resolved, are ignored; only
// the first one can lead to a capture.
func (a *ExternalCaptureAdapter) Approve(authorizationID string) {
	a.signal(authorizationID, true)
}

// Cancel aborts the in-flight approval wait.
func (a *ExternalCaptureAdapter) Cancel(authorizationID string) {
	a.signal(authorizationID, false)
}

// Abort fails the collection outright, whether or not an authorization exists
// yet. A Collect suspended on approval returns cancelled right away; an
// authorization already obtained is released on the way out.
func (a *ExternalCaptureAdapter) Abort() {
	a.abortOnce.Do(func() { close(a.abort) })
}

func (a *ExternalCaptureAdapter) signal(authorizationID string, approved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resolved || authorizationID == "" || authorizationID != a.authorizationID {
		return
	}

	select {
	case a.approvals <- approved:
	default:
		// a signal is already queued; duplicates are dropped
	}
}

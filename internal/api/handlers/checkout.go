package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/priyanshu-sharma/storefront/internal/api/middleware"
	"github.com/priyanshu-sharma/storefront/internal/config"
	"github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/internal/utils"
	"github.com/priyanshu-sharma/storefront/internal/utils/response"
	stripeClient "github.com/priyanshu-sharma/storefront/pkg/stripe"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	stripe          stripeClient.Client
	checkoutCfg     config.Checkout
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService, stripe stripeClient.Client, checkoutCfg config.Checkout) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		stripe:          stripe,
		checkoutCfg:     checkoutCfg,
		validator:       validator.New(),
	}
}

type checkoutStateResponse struct {
	State service.CheckoutState `json:"state"`
}

func (h *CheckoutHandler) Begin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		state, err := h.checkoutService.Begin(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, checkoutStateResponse{State: state})
	}
}

func (h *CheckoutHandler) SubmitShipping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		var req models.SubmitShippingRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			response.Error(w, errors.BadRequestError(err.Error()))

			return
		}

		if err := h.validator.Struct(req); err != nil {
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				response.ValidationError(w, validationErrs)

				return
			}

			response.Error(w, errors.BadRequestError("Invalid input"))

			return
		}

		state, err := h.checkoutService.SubmitShipping(r.Context(), claims.UserID, req.ToShippingInfo())
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, checkoutStateResponse{State: state})
	}
}

// PayCOD places the order with payment collected on delivery.
func (h *CheckoutHandler) PayCOD() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pay(w, r, func() (service.PaymentAdapter, error) {
			return service.NewCODAdapter(), nil
		})
	}
}

// PayCard authorizes a card charge and holds the request open until the buyer
// approves, cancels, or the approval window closes.
func (h *CheckoutHandler) PayCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pay(w, r, func() (service.PaymentAdapter, error) {
			return service.NewExternalCaptureAdapter(h.stripe, h.checkoutCfg)
		})
	}
}

func (h *CheckoutHandler) pay(w http.ResponseWriter, r *http.Request, newAdapter func() (service.PaymentAdapter, error)) {
	logger := middleware.LoggerFromContext(r.Context())

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		response.Error(w, errors.UnauthorizedError("Authentication required"))

		return
	}

	adapter, err := newAdapter()
	if err != nil {
		logger.Error("Failed to build payment adapter", slog.String("error", err.Error()))
		response.Error(w, errors.InternalError("Payment is not available right now"))

		return
	}

	order, err := h.checkoutService.Pay(r.Context(), claims.UserID, claims.Email, adapter)
	if err != nil {
		logger.Warn("Checkout payment failed", slog.String("error", err.Error()))
		response.Error(w, err)

		return
	}

	logger.Info("Checkout completed",
		slog.Int64("orderId", order.ID),
		slog.String("paymentMethod", string(order.PaymentMethod)))
	response.Success(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		if err := h.checkoutService.Cancel(r.Context(), claims.UserID); err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, checkoutStateResponse{State: service.StateIdle})
	}
}

func (h *CheckoutHandler) GetState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		response.Success(w, http.StatusOK, checkoutStateResponse{State: h.checkoutService.State(claims.UserID)})
	}
}

// Webhook receives processor callbacks and routes them to the suspended
// checkout holding the authorization. Unknown authorizations are acknowledged
// with 200 so the processor stops retrying them.
func (h *CheckoutHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			response.Error(w, errors.BadRequestError("Failed to read webhook payload"))

			return
		}

		defer r.Body.Close()

		event, err := h.stripe.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			logger.Warn("Webhook signature verification failed", slog.String("error", err.Error()))
			response.Error(w, errors.UnauthorizedError("Invalid webhook signature"))

			return
		}

		var authorizationID string
		if event.Data != nil {
			authorizationID, _ = event.Data.Object["id"].(string)
		}

		var resolved bool

		switch event.Type {
		case "payment_intent.amount_capturable_updated":
			resolved = h.checkoutService.ResolveApproval(authorizationID, true)
		case "payment_intent.canceled", "payment_intent.payment_failed":
			resolved = h.checkoutService.ResolveApproval(authorizationID, false)
		default:
			logger.Info("Ignoring webhook event", slog.String("type", string(event.Type)))
		}

		if !resolved && authorizationID != "" {
			logger.Info("No checkout waiting on authorization",
				slog.String("authorizationId", authorizationID),
				slog.String("type", string(event.Type)))
		}

		w.WriteHeader(http.StatusOK)
	}
}

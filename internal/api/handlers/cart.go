package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/priyanshu-sharma/storefront/internal/api/middleware"
	"github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/internal/utils"
	"github.com/priyanshu-sharma/storefront/internal/utils/response"
)

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		cart, err := h.cartService.Get(r.Context(), claims.UserID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to load cart", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		var req models.AddItemRequest
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

		cart, err := h.cartService.AddItem(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Warn("Failed to add cart item",
				slog.Int64("productId", req.ProductID),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Item added to cart", slog.Int64("productId", req.ProductID))
		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) UpdateQuantity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		var req models.UpdateQuantityRequest
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

		cart, err := h.cartService.UpdateQuantity(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Warn("Failed to update cart quantity",
				slog.Int64("productId", req.ProductID),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		if err := h.cartService.Clear(r.Context(), claims.UserID); err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to clear cart", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, models.NewCart(claims.UserID))
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		productID, err := utils.ParseID(r, "productId")
		if err != nil {
			response.Error(w, errors.BadRequestError("Invalid product id"))

			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), claims.UserID, productID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to remove cart item",
				slog.Int64("productId", productID),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/priyanshu-sharma/storefront/internal/api/middleware"
	"github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/internal/utils"
	"github.com/priyanshu-sharma/storefront/internal/utils/response"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, errors.BadRequestError("Invalid order id"))

			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), claims.UserID, id)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to fetch order",
				slog.Int64("orderId", id),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		page, size := utils.ParsePagination(r)

		orders, total, err := h.orderService.ListOrdersByUser(r.Context(), claims.UserID, page, size)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to list orders", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, models.OrderHistoryResponse{
			Orders: orders,
			Total:  total,
			Page:   page,
			Size:   size,
		})
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/priyanshu-sharma/storefront/internal/api/middleware"
	"github.com/priyanshu-sharma/storefront/internal/errors"
	service "github.com/priyanshu-sharma/storefront/internal/services"
	"github.com/priyanshu-sharma/storefront/internal/utils"
	"github.com/priyanshu-sharma/storefront/internal/utils/response"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, errors.BadRequestError("Invalid product id"))

			return
		}

		product, err := h.productService.GetProduct(r.Context(), id)
		if err != nil {
			logger.Warn("Failed to fetch product", slog.Int64("productId", id), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		page, size := utils.ParsePagination(r)

		products, err := h.productService.ListProducts(r.Context(), page, size)
		if err != nil {
			logger.Error("Failed to list products", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, products)
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/metrics"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/priyanshu-sharma/storefront/internal/pricing"
	repository "github.com/priyanshu-sharma/storefront/internal/repositories"
)

// OrderService turns a cart into a durable order. Commit is the only write
// path; everything else is the read side for confirmation and history pages.
type OrderService interface {
	Commit(ctx context.Context, userID uuid.UUID, cart *models.Cart, shipping models.ShippingInfo,
		outcome models.PaymentOutcome, method models.PaymentMethod) (*models.Order, error)
	GetOrderByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

// Commit validates everything before touching the store, then writes the
// header, then the lines. The store has no cross-table transaction, so a
// failed line write is compensated by deleting the header; a partial order is
// never reported as success.
func (s *orderService) Commit(ctx context.Context, userID uuid.UUID, cart *models.Cart,
	shipping models.ShippingInfo, outcome models.PaymentOutcome, method models.PaymentMethod) (*models.Order, error) {

	if cart == nil || cart.IsEmpty() {
		return nil, apperrors.ValidationError("Cannot place an order with an empty cart")
	}

	if missing := missingShippingFields(shipping); len(missing) > 0 {
		return nil, apperrors.ValidationError("Missing required shipping fields").
			WithDetail(strings.Join(missing, ", "))
	}

	if !outcome.Committable() {
		return nil, apperrors.BadRequestError("A failed payment cannot be turned into an order")
	}

	// Total is computed from the cart exactly once; the stored scalar is the
	// order's source of truth from here on.
	totalAmount := pricing.Total(cart)

	order := &models.Order{
		UserID:          userID,
		TotalAmount:     totalAmount,
		PaymentMethod:   method,
		PaymentStatus:   outcome.PaymentStatus(),
		TransactionID:   outcome.TransactionID,
		ShippingAddress: shipping,
		Status:          models.OrderStatusPending,
	}

	if err := s.repo.InsertOrder(ctx, order); err != nil {
		return nil, apperrors.DatabaseError("Failed to create order").WithError(err)
	}

	lines := make([]models.OrderLine, 0, len(cart.Lines))
	for _, cartLine := range cart.Lines {
		lines = append(lines, models.OrderLine{
			OrderID:   order.ID,
			ProductID: cartLine.ProductID,
			Quantity:  cartLine.Quantity,
			Price:     cartLine.UnitPrice,
		})
	}

	if err := s.repo.InsertOrderLines(ctx, lines); err != nil {
		return nil, s.compensate(ctx, order, outcome, err)
	}

	order.Lines = lines

	return order, nil
}

// compensate removes the orphaned header left behind by a failed line write.
// Whatever happens, the caller gets a partial-commit error, not a success.
func (s *orderService) compensate(ctx context.Context, order *models.Order,
	outcome models.PaymentOutcome, cause error) error {

	metrics.RecordOrderCompensation()

	logger := slog.Default().With(
		slog.Int64("orderId", order.ID),
		slog.String("transactionId", outcome.TransactionID),
	)
	logger.Error("Order line write failed after header insert", slog.String("error", cause.Error()))

	if delErr := s.repo.DeleteOrder(ctx, order.ID); delErr != nil {
		logger.Error("Compensating delete failed; order header is orphaned",
			slog.String("error", delErr.Error()))

		return apperrors.OrphanedOrderError(order.ID).WithError(cause)
	}

	logger.Info("Orphaned order header removed")

	return apperrors.PartialCommitError("Order could not be completed and was rolled back").WithError(cause)
}

func (s *orderService) GetOrderByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if order.UserID != userID {
		return nil, apperrors.ForbiddenError("You do not have access to this order")
	}

	return order, nil
}

func (s *orderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 10
	}

	orders, total, err := s.repo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

func missingShippingFields(shipping models.ShippingInfo) []string {
	var missing []string

	if strings.TrimSpace(shipping.FullName) == "" {
		missing = append(missing, "full_name")
	}

	if strings.TrimSpace(shipping.Address) == "" {
		missing = append(missing, "address")
	}

	if strings.TrimSpace(shipping.City) == "" {
		missing = append(missing, "city")
	}

	return missing
}

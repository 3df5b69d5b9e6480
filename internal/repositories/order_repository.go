package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/priyanshu-sharma/storefront/internal/utils"
)

// OrderRepository exposes the header and line writes as separate operations
// on purpose: the commit protocol in the order service needs to compensate a
// header whose lines failed, and the store has no cross-table transaction.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLines(ctx context.Context, lines []models.OrderLine) error
	DeleteOrder(ctx context.Context, id int64) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// InsertOrder writes the header and fills in the store-assigned id and
// creation time on the passed order.
func (r *orderRepository) InsertOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	shippingAddress, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	transactionID := sql.NullString{String: order.TransactionID, Valid: order.TransactionID != ""}

	query := `
		INSERT INTO orders (user_id, total_amount, payment_method, payment_status, transaction_id, shipping_address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err = r.DB.QueryRowContext(dbCtx, query,
		order.UserID, order.TotalAmount, order.PaymentMethod, order.PaymentStatus,
		transactionID, shippingAddress, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// InsertOrderLines writes all lines in a single statement so an order never
// ends up with a partial subset of its lines.
func (r *orderRepository) InsertOrderLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("no order lines to insert")
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	values := make([]string, 0, len(lines))
	args := make([]any, 0, len(lines)*4)

	for i, line := range lines {
		base := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, line.OrderID, line.ProductID, line.Quantity, line.Price)
	}

	query := `INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ` + strings.Join(values, ", ")

	if _, err := r.DB.ExecContext(dbCtx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}

	return nil
}

// DeleteOrder removes an order header. Used as the compensating action when
// the line insert fails after the header already landed.
func (r *orderRepository) DeleteOrder(ctx context.Context, id int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deleted rows: %w", err)
	}

	if deleted == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{ID: id}

	query := `
		SELECT user_id, total_amount, payment_method, payment_status, transaction_id, shipping_address, status, created_at
		FROM orders
		WHERE id = $1
	`

	var (
		transactionID sql.NullString
		shippingJSON  []byte
	)

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&order.UserID, &order.TotalAmount, &order.PaymentMethod, &order.PaymentStatus,
		&transactionID, &shippingJSON, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	order.TransactionID = transactionID.String

	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	lines, err := r.linesForOrder(dbCtx, id)
	if err != nil {
		return nil, err
	}

	order.Lines = lines

	return order, nil
}

func (r *orderRepository) linesForOrder(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	query := `
		SELECT product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	var lines []models.OrderLine

	for rows.Next() {
		line := models.OrderLine{OrderID: orderID}

		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := r.DB.QueryRowContext(dbCtx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `
		SELECT id, total_amount, payment_method, payment_status, transaction_id, shipping_address, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var orders []models.Order

	for rows.Next() {
		order := models.Order{UserID: userID}

		var (
			transactionID sql.NullString
			shippingJSON  []byte
		)

		err := rows.Scan(&order.ID, &order.TotalAmount, &order.PaymentMethod, &order.PaymentStatus,
			&transactionID, &shippingJSON, &order.Status, &order.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan the orders: %w", err)
		}

		order.TransactionID = transactionID.String

		if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		lines, err := r.linesForOrder(dbCtx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}

		orders[i].Lines = lines
	}

	return orders, total, nil
}

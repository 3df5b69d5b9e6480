package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	apperrors "github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	repository "github.com/priyanshu-sharma/storefront/internal/repositories"
)

// CartService owns the customer's cart. Every mutation runs load-modify-save
// against the snapshot store, so the persisted cart is never more than one
// in-flight call behind what the customer sees.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID int64) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{repo: repo, products: products}
}

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to load cart").WithError(err)
	}

	return cart, nil
}

// AddItem merges into an existing line for the same product, or appends a new
// line with the product's name, price and image copied at add time.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	cart, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to load cart").WithError(err)
	}

	if idx := cart.LineIndex(req.ProductID); idx >= 0 {
		cart.Lines[idx].Quantity += quantity
	} else {
		product, err := s.products.GetProductByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.NotFoundError("Product not found").WithError(err)
			}

			return nil, apperrors.DatabaseError("Failed to look up product").WithError(err)
		}

		cart.Lines = append(cart.Lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
			ImageURL:  product.ImageURL,
		})
	}

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to save cart").WithError(err)
	}

	return cart, nil
}

// UpdateQuantity sets a line's quantity in place. Anything at or below zero
// behaves exactly like removing the line.
func (s *cartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	if req.Quantity <= 0 {
		return s.RemoveItem(ctx, userID, req.ProductID)
	}

	cart, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to load cart").WithError(err)
	}

	idx := cart.LineIndex(req.ProductID)
	if idx < 0 {
		return nil, apperrors.BadRequestError("Item not found in the cart")
	}

	cart.Lines[idx].Quantity = req.Quantity

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to save cart").WithError(err)
	}

	return cart, nil
}

// RemoveItem deletes the line if present. Removing a product that is not in
// the cart is a no-op, not an error, and skips the snapshot write.
func (s *cartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID int64) (*models.Cart, error) {
	cart, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to load cart").WithError(err)
	}

	idx := cart.LineIndex(productID)
	if idx < 0 {
		return cart, nil
	}

	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to save cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return apperrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

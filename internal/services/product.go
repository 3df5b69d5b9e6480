package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/priyanshu-sharma/storefront/internal/cache"
	apperrors "github.com/priyanshu-sharma/storefront/internal/errors"
	"github.com/priyanshu-sharma/storefront/internal/models"
	repository "github.com/priyanshu-sharma/storefront/internal/repositories"
)

type ProductService interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, page, size int) (*models.ProductListResponse, error)
}

type productService struct {
	repo  repository.ProductRepository
	cache cache.Cache
}

func NewProductService(repo repository.ProductRepository, cache cache.Cache) ProductService {
	return &productService{repo: repo, cache: cache}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	key := productCacheKey(id)

	if s.cache != nil {
		var cached models.Product
		if found, err := s.cache.Get(ctx, key, &cached); err != nil {
			slog.Warn("Product cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		} else if found {
			return &cached, nil
		}
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, product, 0); err != nil {
			slog.Warn("Product cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, page, size int) (*models.ProductListResponse, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 50 {
		size = 10
	}

	products, total, err := s.repo.ListProducts(ctx, page, size)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return &models.ProductListResponse{
		Products: products,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

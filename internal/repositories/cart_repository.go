package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/priyanshu-sharma/storefront/internal/models"
	"github.com/redis/go-redis/v9"
)

// CartRepository persists one snapshot per user. Save writes the whole cart
// synchronously so a crash never loses more than the in-flight mutation.
type CartRepository interface {
	Save(ctx context.Context, cart *models.Cart) error
	Load(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisCartRepository struct {
	client *redis.Client
}

func NewCartRepo(client *redis.Client) CartRepository {
	return &redisCartRepository{client: client}
}

func cartKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

func (r *redisCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	// Snapshots have no TTL; a cart survives until checkout clears it.
	if err := r.client.Set(ctx, cartKey(cart.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}

	return nil
}

// Load returns the last saved snapshot. A missing or unreadable snapshot
// degrades to an empty cart rather than an error: the customer starts over,
// the storefront never crashes on stale data.
func (r *redisCartRepository) Load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.NewCart(userID), nil
		}

		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	cart := &models.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		slog.Warn("Discarding corrupt cart snapshot",
			slog.String("userId", userID.String()),
			slog.String("error", err.Error()))

		return models.NewCart(userID), nil
	}

	cart.UserID = userID
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}

	return cart, nil
}

func (r *redisCartRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}

	return nil
}

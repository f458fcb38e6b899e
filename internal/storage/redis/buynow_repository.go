package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type buyNowRepositoryRedis struct {
	client *redis.Client
}

// NewBuyNowRepository создаёт хранилище слотов "купить сейчас" поверх Redis.
// Срок жизни слота обеспечивается TTL ключа, поэтому DeleteExpired — no-op.
func NewBuyNowRepository(client *redis.Client) domain.BuyNowRepository {
	return &buyNowRepositoryRedis{client: client}
}

func buyNowKey(userID string) string {
	return fmt.Sprintf("buynow:%s", userID)
}

func (r *buyNowRepositoryRedis) Put(item domain.BuyNowItem) error {
	if item.UserID == "" {
		return domain.ErrUserRequired
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal buy-now item: %w", err)
	}

	ttl := time.Until(item.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrBuyNowExpired
	}

	ctx, cancel := opContext()
	defer cancel()

	if err := r.client.Set(ctx, buyNowKey(item.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set buy-now item: %w", err)
	}
	return nil
}

func (r *buyNowRepositoryRedis) Get(userID string) (domain.BuyNowItem, error) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := r.client.Get(ctx, buyNowKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BuyNowItem{}, domain.ErrBuyNowNotFound
	}
	if err != nil {
		return domain.BuyNowItem{}, fmt.Errorf("redis get buy-now item: %w", err)
	}

	var item domain.BuyNowItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.BuyNowItem{}, fmt.Errorf("unmarshal buy-now item: %w", err)
	}
	if item.Expired(time.Now().UTC()) {
		return domain.BuyNowItem{}, domain.ErrBuyNowExpired
	}
	return item, nil
}

func (r *buyNowRepositoryRedis) Delete(userID string) error {
	ctx, cancel := opContext()
	defer cancel()

	if err := r.client.Del(ctx, buyNowKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete buy-now item: %w", err)
	}
	return nil
}

// DeleteExpired не нужен в Redis: просроченные ключи вычищает сам сервер.
func (r *buyNowRepositoryRedis) DeleteExpired(before time.Time, limit int) (int, error) {
	return 0, nil
}

var _ domain.BuyNowRepository = (*buyNowRepositoryRedis)(nil)

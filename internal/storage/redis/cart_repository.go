package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultCartTTL = 30 * 24 * time.Hour

type cartRepositoryRedis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository создаёт репозиторий корзин поверх Redis.
// Каждая запись перезаписывает корзину целиком: при гонке двух вкладок
// побеждает последняя запись, Redis — источник истины.
func NewCartRepository(client *redis.Client) domain.CartRepository {
	return &cartRepositoryRedis{
		client: client,
		ttl:    defaultCartTTL,
	}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func (r *cartRepositoryRedis) Get(userID string) (domain.Cart, error) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Отсутствующая корзина — пустая, не ошибка.
		return domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart: %w", err)
	}
	return cart, nil
}

func (r *cartRepositoryRedis) Save(cart domain.Cart) error {
	if cart.UserID == "" {
		return domain.ErrUserRequired
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	ctx, cancel := opContext()
	defer cancel()

	if err := r.client.Set(ctx, cartKey(cart.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *cartRepositoryRedis) Delete(userID string) error {
	ctx, cancel := opContext()
	defer cancel()

	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepositoryRedis)(nil)

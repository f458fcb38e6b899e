package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// buyNowRepositoryInMemory хранит слоты "купить сейчас" в памяти, по одному на покупателя.
type buyNowRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.BuyNowItem
}

// NewBuyNowRepository создаёт in-memory реализацию BuyNowRepository.
func NewBuyNowRepository() domain.BuyNowRepository {
	return &buyNowRepositoryInMemory{
		items: make(map[string]domain.BuyNowItem),
	}
}

// Put сохраняет слот, вытесняя предыдущий.
func (r *buyNowRepositoryInMemory) Put(item domain.BuyNowItem) error {
	if item.UserID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.UserID] = item
	return nil
}

// Get возвращает слот или ErrBuyNowNotFound. Просроченный слот считается отсутствующим.
func (r *buyNowRepositoryInMemory) Get(userID string) (domain.BuyNowItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID]
	if !ok {
		return domain.BuyNowItem{}, domain.ErrBuyNowNotFound
	}
	if item.Expired(time.Now().UTC()) {
		return domain.BuyNowItem{}, domain.ErrBuyNowExpired
	}
	return item, nil
}

// Delete удаляет слот. Отсутствующий слот — не ошибка.
func (r *buyNowRepositoryInMemory) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, userID)
	return nil
}

// DeleteExpired удаляет слоты с истёкшим сроком порциями limit, возвращает число удалённых.
func (r *buyNowRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for userID, item := range r.items {
		if item.ExpiresAt.IsZero() || item.ExpiresAt.After(before) {
			continue
		}

		delete(r.items, userID)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

var _ domain.BuyNowRepository = (*buyNowRepositoryInMemory)(nil)

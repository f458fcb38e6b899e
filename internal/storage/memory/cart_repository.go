package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory — простая in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

// NewCartRepository возвращает in-memory репозиторий корзин для локальной разработки и тестов.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		carts: make(map[string]domain.Cart),
	}
}

// Get возвращает корзину покупателя; если её ещё нет — пустую.
func (r *cartRepositoryInMemory) Get(userID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return domain.Cart{UserID: userID}, nil
	}
	return cloneCart(cart), nil
}

// Save перезаписывает корзину целиком (last-write-wins между вкладками).
func (r *cartRepositoryInMemory) Save(cart domain.Cart) error {
	if cart.UserID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.UserID] = cloneCart(cart)
	return nil
}

// Delete удаляет корзину. Отсутствующая корзина — не ошибка.
func (r *cartRepositoryInMemory) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

// cloneCart копирует корзину вместе с позициями, чтобы избежать мутаций извне.
func cloneCart(src domain.Cart) domain.Cart {
	dst := src
	dst.Items = append([]domain.LineItem(nil), src.Items...)
	return dst
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)

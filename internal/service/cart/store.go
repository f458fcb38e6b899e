package cart

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

// QuoteObserver получает свежий расклад стоимости после каждой мутации корзины.
// Push-модель: потребители (бейдж в шапке, страница корзины) не опрашивают
// корзину сами и потому не показывают устаревший итог при параллельных правках.
type QuoteObserver func(userID string, breakdown domain.PricingBreakdown)

// VariantPatch — частичное обновление варианта позиции.
// nil-поле означает "не трогать", пустая строка — "сбросить выбор".
type VariantPatch struct {
	Color *string
	Size  *string
}

// Store управляет корзинами покупателей: мутации, пересчёт стоимости,
// оповещение подписчиков. Источник истины — репозиторий; при гонке двух
// вкладок побеждает последняя запись.
type Store struct {
	repo    domain.CartRepository
	catalog domain.ProductCatalog
	engine  *pricing.Engine
	logger  *log.Entry

	mu        sync.Mutex
	observers map[string]QuoteObserver
}

// StoreOption настраивает Store.
type StoreOption func(*Store)

// WithLogger задаёт logger хранилища корзин.
func WithLogger(logger *log.Entry) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore создаёт сервис корзины.
func NewStore(repo domain.CartRepository, catalog domain.ProductCatalog, engine *pricing.Engine, options ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		catalog:   catalog,
		engine:    engine,
		observers: make(map[string]QuoteObserver),
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "cart-store")
	}
	return s
}

// Subscribe регистрирует наблюдателя раскладов. Возвращённая функция снимает подписку.
func (s *Store) Subscribe(observer QuoteObserver) func() {
	id := uuid.NewString()

	s.mu.Lock()
	s.observers[id] = observer
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Get возвращает корзину покупателя; отсутствующая корзина — пустая, не ошибка.
func (s *Store) Get(userID string) (domain.Cart, error) {
	return s.repo.Get(userID)
}

// Quote считает расклад стоимости текущей корзины под выбранный способ оплаты.
func (s *Store) Quote(userID string, method domain.PaymentMethod) (domain.PricingBreakdown, error) {
	cart, err := s.repo.Get(userID)
	if err != nil {
		return domain.PricingBreakdown{}, fmt.Errorf("get cart: %w", err)
	}
	return s.engine.Breakdown(cart.Items, method), nil
}

// Add добавляет товар в корзину. Совпадение товар+вариант сливается в
// существующую позицию (суммируются количества, слепок обновляется),
// иначе добавляется новая позиция в конец.
func (s *Store) Add(userID, productID string, qty int32, sel domain.VariantSelection) (domain.LineItem, error) {
	if qty < 1 {
		return domain.LineItem{}, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.Product(productID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	cart, err := s.repo.Get(userID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("get cart: %w", err)
	}
	cart.UserID = userID

	now := time.Now().UTC()
	var item domain.LineItem

	if idx := cart.FindByVariant(domain.VariantKey(productID, sel)); idx >= 0 {
		cart.Items[idx].Qty += qty
		cart.Items[idx].Snapshot = domain.SnapshotOf(product)
		cart.Items[idx].Qty = clampToStock(cart.Items[idx].Qty, product.Stock, s.logger, cart.Items[idx].ID)
		cart.Items[idx].UpdatedAt = now
		item = cart.Items[idx]
	} else {
		item = domain.LineItem{
			ID:        uuid.NewString(),
			ProductID: productID,
			Qty:       clampToStock(qty, product.Stock, s.logger, ""),
			Color:     sel.Color,
			Size:      sel.Size,
			Snapshot:  domain.SnapshotOf(product),
			CreatedAt: now,
			UpdatedAt: now,
		}
		cart.Items = append(cart.Items, item)
	}
	cart.UpdatedAt = now

	if err := s.repo.Save(cart); err != nil {
		return domain.LineItem{}, fmt.Errorf("save cart: %w", err)
	}
	s.notify(userID, cart)

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"qty":        item.Qty,
	}).Debug("cart item added")

	return item, nil
}

// UpdateQuantity выставляет количество позиции. Значение меньше 1 — ошибка
// ErrInvalidQuantity (сведение к нулю вызывающий код выражает через Remove).
// Превышение известного остатка не отклоняется, а обрезается; второй результат
// сообщает, что обрезка произошла, чтобы UI показал предупреждение.
func (s *Store) UpdateQuantity(userID, itemID string, qty int32) (domain.LineItem, bool, error) {
	if qty < 1 {
		return domain.LineItem{}, false, domain.ErrInvalidQuantity
	}

	cart, err := s.repo.Get(userID)
	if err != nil {
		return domain.LineItem{}, false, fmt.Errorf("get cart: %w", err)
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return domain.LineItem{}, false, domain.ErrLineItemNotFound
	}

	clamped := false
	if stock := cart.Items[idx].Snapshot.Stock; stock > 0 && qty > stock {
		qty = stock
		clamped = true
	}

	now := time.Now().UTC()
	cart.Items[idx].Qty = qty
	cart.Items[idx].UpdatedAt = now
	cart.UpdatedAt = now

	if err := s.repo.Save(cart); err != nil {
		return domain.LineItem{}, false, fmt.Errorf("save cart: %w", err)
	}
	s.notify(userID, cart)

	if clamped {
		s.logger.WithFields(log.Fields{
			"user_id": userID,
			"item_id": itemID,
			"qty":     qty,
		}).Warn("requested quantity clamped to stock")
	}

	return cart.Items[idx], clamped, nil
}

// UpdateVariant частично обновляет выбранный вариант позиции:
// можно поменять только цвет или только размер.
func (s *Store) UpdateVariant(userID, itemID string, patch VariantPatch) (domain.LineItem, error) {
	cart, err := s.repo.Get(userID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("get cart: %w", err)
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return domain.LineItem{}, domain.ErrLineItemNotFound
	}

	if patch.Color != nil {
		cart.Items[idx].Color = *patch.Color
	}
	if patch.Size != nil {
		cart.Items[idx].Size = *patch.Size
	}
	now := time.Now().UTC()
	cart.Items[idx].UpdatedAt = now
	cart.UpdatedAt = now

	if err := s.repo.Save(cart); err != nil {
		return domain.LineItem{}, fmt.Errorf("save cart: %w", err)
	}
	s.notify(userID, cart)

	return cart.Items[idx], nil
}

// Remove удаляет позицию. Идемпотентна: удаление отсутствующего ID — no-op.
func (s *Store) Remove(userID, itemID string) error {
	cart, err := s.repo.Get(userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.notify(userID, cart)

	return nil
}

// Clear опустошает корзину. Используется оформлением после успешного заказа.
func (s *Store) Clear(userID string) error {
	if err := s.repo.Delete(userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	s.notify(userID, domain.Cart{UserID: userID})
	return nil
}

// notify рассылает подписчикам свежий расклад. Метод оплаты здесь ещё
// не выбран, поэтому расклад считается без скидки за способ оплаты.
func (s *Store) notify(userID string, cart domain.Cart) {
	breakdown := s.engine.Breakdown(cart.Items, "")

	s.mu.Lock()
	observers := make([]QuoteObserver, 0, len(s.observers))
	for _, observer := range s.observers {
		observers = append(observers, observer)
	}
	s.mu.Unlock()

	for _, observer := range observers {
		observer(userID, breakdown)
	}
}

func clampToStock(qty, stock int32, logger *log.Entry, itemID string) int32 {
	if stock > 0 && qty > stock {
		logger.WithFields(log.Fields{
			"item_id": itemID,
			"stock":   stock,
		}).Warn("quantity exceeds stock, clamping")
		return stock
	}
	return qty
}

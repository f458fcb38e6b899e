package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultBuyNowTTL = 30 * time.Minute

// BuyNowService управляет короткоживущими слотами "купить сейчас".
// Слот живёт вне корзины, существует на время одной попытки оформления
// и не подчиняется корзинным инвариантам.
type BuyNowService struct {
	repo    domain.BuyNowRepository
	catalog domain.ProductCatalog
	ttl     time.Duration
	logger  *log.Entry
}

// BuyNowOption настраивает BuyNowService.
type BuyNowOption func(*BuyNowService)

// WithBuyNowTTL задаёт срок жизни слота.
func WithBuyNowTTL(ttl time.Duration) BuyNowOption {
	return func(s *BuyNowService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBuyNowLogger задаёт logger сервиса.
func WithBuyNowLogger(logger *log.Entry) BuyNowOption {
	return func(s *BuyNowService) {
		s.logger = logger
	}
}

// NewBuyNowService создаёт сервис слотов "купить сейчас".
func NewBuyNowService(repo domain.BuyNowRepository, catalog domain.ProductCatalog, options ...BuyNowOption) *BuyNowService {
	s := &BuyNowService{
		repo:    repo,
		catalog: catalog,
		ttl:     defaultBuyNowTTL,
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "buynow-service")
	}
	return s
}

// Create создаёт слот по клику "купить сейчас", вытесняя предыдущий слот
// покупателя: попытка оформления всегда одна.
func (s *BuyNowService) Create(userID, productID string, qty int32, sel domain.VariantSelection) (domain.BuyNowItem, error) {
	if qty < 1 {
		return domain.BuyNowItem{}, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.Product(productID)
	if err != nil {
		return domain.BuyNowItem{}, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	now := time.Now().UTC()
	item := domain.BuyNowItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Qty:       qty,
		Color:     sel.Color,
		Size:      sel.Size,
		Snapshot:  domain.SnapshotOf(product),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Put(item); err != nil {
		return domain.BuyNowItem{}, fmt.Errorf("save buy-now slot: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
	}).Debug("buy-now slot created")

	return item, nil
}

// Get возвращает слот покупателя или ErrBuyNowNotFound / ErrBuyNowExpired.
func (s *BuyNowService) Get(userID string) (domain.BuyNowItem, error) {
	return s.repo.Get(userID)
}

// Consume удаляет слот после размещения заказа. Отсутствующий слот — не ошибка:
// повторное подтверждение не должно падать.
func (s *BuyNowService) Consume(userID string) error {
	return s.repo.Delete(userID)
}

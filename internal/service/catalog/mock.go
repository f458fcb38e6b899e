package catalog

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockService — конфигурируемая заглушка ProductCatalog для тестов и локального запуска.
type MockService struct {
	mu       sync.RWMutex
	products map[string]domain.Product

	// Err, если задана, возвращается из всех вызовов (имитация сетевого сбоя).
	Err error

	ProductCalls  int
	ProductsCalls int
}

// NewMockService возвращает пустой каталог-заглушку.
func NewMockService() *MockService {
	return &MockService{products: make(map[string]domain.Product)}
}

// Seed кладёт товары в каталог, вытесняя предыдущее состояние.
func (m *MockService) Seed(products ...domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		m.products[p.ID] = p
	}
}

// SetStock меняет остаток товара; неизвестный товар игнорируется.
func (m *MockService) SetStock(productID string, stock int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; ok {
		p.Stock = stock
		m.products[productID] = p
	}
}

// Product возвращает товар или ErrProductNotFound.
func (m *MockService) Product(productID string) (domain.Product, error) {
	m.mu.Lock()
	m.ProductCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return domain.Product{}, m.Err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// Products возвращает найденные товары одним обращением; отсутствующие пропускаются.
func (m *MockService) Products(productIDs []string) (map[string]domain.Product, error) {
	m.mu.Lock()
	m.ProductsCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := m.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

var _ domain.ProductCatalog = (*MockService)(nil)

package gateway

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Prefill — контактные данные, предзаполняемые в платёжном окне.
type Prefill struct {
	Name  string
	Email string
	Phone string
}

// Session открывает платёжную сессию шлюза и дожидается её исхода.
// Ровно одна сессия на вызов; закрытие окна покупателем — это исход
// GatewayStatusCancelled, а не ошибка.
type Session interface {
	Pay(intent domain.PaymentIntent, prefill Prefill) (domain.GatewayResult, error)
}

// Opener — callback-стиль нижележащего виджета: открыть окно и один раз
// позвать done с результатом.
type Opener func(intent domain.PaymentIntent, prefill Prefill, done func(domain.GatewayResult))

// CallbackSession адаптирует callback-виджет к обычному запрос-ответному виду.
// Адаптация происходит один раз на этой границе: остальной код оформления
// работает с результатом как с возвращаемым значением.
type CallbackSession struct {
	open   Opener
	logger *log.Entry

	mu       sync.Mutex
	inflight map[string]bool
}

// NewCallbackSession создаёт адаптер поверх callback-виджета шлюза.
func NewCallbackSession(open Opener, logger *log.Entry) *CallbackSession {
	if logger == nil {
		logger = log.WithField("component", "gateway-session")
	}
	return &CallbackSession{
		open:     open,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Pay открывает ровно одну платёжную сессию по intent и блокируется до исхода.
// Повторный вызов с тем же intent, пока сессия открыта или уже завершена,
// возвращает ErrIntentConsumed: intent не переиспользуется между попытками.
func (s *CallbackSession) Pay(intent domain.PaymentIntent, prefill Prefill) (domain.GatewayResult, error) {
	if s.open == nil {
		return domain.GatewayResult{}, domain.ErrGatewayUnavailable
	}
	if intent.GatewayOrderID == "" {
		return domain.GatewayResult{}, domain.ErrGatewayUnavailable
	}

	s.mu.Lock()
	if s.inflight[intent.GatewayOrderID] {
		s.mu.Unlock()
		return domain.GatewayResult{}, domain.ErrIntentConsumed
	}
	s.inflight[intent.GatewayOrderID] = true
	s.mu.Unlock()

	resultCh := make(chan domain.GatewayResult, 1)
	var once sync.Once
	s.open(intent, prefill, func(result domain.GatewayResult) {
		// Виджет обязуется звать done один раз; повторные вызовы глушим.
		once.Do(func() {
			resultCh <- result
		})
	})

	result := <-resultCh

	s.logger.WithFields(log.Fields{
		"gateway_order_id": intent.GatewayOrderID,
		"status":           result.Status,
	}).Debug("gateway session resolved")

	return result, nil
}

var _ Session = (*CallbackSession)(nil)

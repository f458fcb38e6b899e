package gateway

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	mu sync.Mutex

	NotReady  bool
	IntentErr error
	VerifyErr error

	IntentCalls int
	VerifyCalls int

	// nextIntent нумерует созданные intents, чтобы повторная попытка
	// получала свежий идентификатор.
	nextIntent int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Ready отражает сконфигурированность шлюза.
func (m *MockGateway) Ready() bool {
	return !m.NotReady
}

// CreateIntent возвращает свежий intent или настроенную ошибку.
func (m *MockGateway) CreateIntent(order domain.Order) (domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IntentCalls++
	if m.NotReady {
		return domain.PaymentIntent{}, domain.ErrGatewayUnavailable
	}
	if m.IntentErr != nil {
		return domain.PaymentIntent{}, m.IntentErr
	}

	m.nextIntent++
	return domain.PaymentIntent{
		GatewayOrderID: fmt.Sprintf("rzp_test_%d", m.nextIntent),
		OrderID:        order.ID,
		Key:            "rzp_test_key",
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
	}, nil
}

// VerifySignature возвращает настроенный результат и считает вызовы.
func (m *MockGateway) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerifyCalls++
	return m.VerifyErr
}

// ScriptedSession — Session с заранее заданной последовательностью исходов.
type ScriptedSession struct {
	mu      sync.Mutex
	Results []domain.GatewayResult
	Err     error

	PayCalls int
	// LastIntent запоминает intent последнего вызова для проверок.
	LastIntent domain.PaymentIntent
}

// Pay возвращает следующий исход из сценария; по исчерпании — Completed.
func (s *ScriptedSession) Pay(intent domain.PaymentIntent, prefill Prefill) (domain.GatewayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PayCalls++
	s.LastIntent = intent
	if s.Err != nil {
		return domain.GatewayResult{}, s.Err
	}
	if len(s.Results) == 0 {
		return domain.GatewayResult{
			Status:         domain.GatewayStatusCompleted,
			PaymentID:      "pay_test",
			GatewayOrderID: intent.GatewayOrderID,
			Signature:      "sig_test",
		}, nil
	}

	result := s.Results[0]
	s.Results = s.Results[1:]
	if result.GatewayOrderID == "" {
		result.GatewayOrderID = intent.GatewayOrderID
	}
	return result, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
var _ Session = (*ScriptedSession)(nil)

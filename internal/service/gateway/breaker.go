package gateway

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultBreakerMaxFailures  = 5
	defaultBreakerResetTimeout = 30 * time.Second
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker защищает создание ордеров на стороне шлюза: после серии сетевых
// сбоев вызовы блокируются до остывания, и оформление проваливается быстро
// через Ready() == false вместо ожидания очередного таймаута.
// Проверка подписи локальная и через breaker не ходит.
type Breaker struct {
	inner domain.PaymentGateway

	maxFailures  int
	resetTimeout time.Duration
	logger       *log.Entry

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       breakerState
}

// BreakerOption настраивает Breaker.
type BreakerOption func(*Breaker)

// WithBreakerThreshold задаёт число сбоев подряд до размыкания.
func WithBreakerThreshold(maxFailures int) BreakerOption {
	return func(b *Breaker) {
		if maxFailures > 0 {
			b.maxFailures = maxFailures
		}
	}
}

// WithBreakerResetTimeout задаёт время остывания разомкнутого breaker.
func WithBreakerResetTimeout(timeout time.Duration) BreakerOption {
	return func(b *Breaker) {
		if timeout > 0 {
			b.resetTimeout = timeout
		}
	}
}

// WithBreakerLogger задаёт logger.
func WithBreakerLogger(logger *log.Entry) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// NewBreaker оборачивает шлюз circuit breaker-ом.
func NewBreaker(inner domain.PaymentGateway, options ...BreakerOption) *Breaker {
	b := &Breaker{
		inner:        inner,
		maxFailures:  defaultBreakerMaxFailures,
		resetTimeout: defaultBreakerResetTimeout,
		state:        breakerClosed,
	}
	for _, option := range options {
		option(b)
	}
	if b.logger == nil {
		b.logger = log.WithField("component", "gateway-breaker")
	}
	return b
}

// Ready сообщает, примет ли шлюз вызов прямо сейчас: внутренний клиент
// должен быть сконфигурирован, а breaker — замкнут либо готов к пробе.
func (b *Breaker) Ready() bool {
	return b.inner.Ready() && b.allow(false)
}

// CreateIntent делегирует создание ордера внутреннему шлюзу, учитывая исход.
func (b *Breaker) CreateIntent(order domain.Order) (domain.PaymentIntent, error) {
	if !b.allow(true) {
		return domain.PaymentIntent{}, domain.ErrGatewayUnavailable
	}

	intent, err := b.inner.CreateIntent(order)
	b.observe(err)
	return intent, err
}

// VerifySignature — локальная HMAC-проверка, состояние breaker не трогает.
func (b *Breaker) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	return b.inner.VerifySignature(gatewayOrderID, paymentID, signature)
}

// allow отвечает, пропускать ли вызов. При transition=true разомкнутый
// breaker после остывания переходит в half-open и пропускает одну пробу.
func (b *Breaker) allow(transition bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != breakerOpen {
		return true
	}
	if time.Since(b.lastFailure) <= b.resetTimeout {
		return false
	}
	if transition {
		b.state = breakerHalfOpen
		b.logger.Info("gateway breaker half-open, probing")
	}
	return true
}

func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
			b.state = breakerOpen
			b.logger.WithField("failures", b.failures).Warn("gateway breaker opened")
		}
		return
	}

	if b.state == breakerHalfOpen {
		b.logger.Info("gateway breaker closed")
	}
	b.state = breakerClosed
	b.failures = 0
}

var _ domain.PaymentGateway = (*Breaker)(nil)

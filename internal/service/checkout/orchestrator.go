package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/gateway"
)

// State — состояние машины оформления.
type State string

const (
	StateIdle           State = "idle"
	StateFormReview     State = "form_review"
	StateGatewayPending State = "gateway_pending"
	StateCodSubmitting  State = "cod_submitting"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Terminal сообщает, конечное ли это состояние. Из конечного состояния
// выхода нет: повторная попытка — это новый Run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// FailureKind — таксономия причин провала оформления.
type FailureKind string

const (
	// FailureValidationBlocked — не прошли проверки наличия/варианта; покупатель правит корзину.
	FailureValidationBlocked FailureKind = "validation_blocked"
	// FailureNetwork — сетевой сбой; тот же шаг можно повторить вручную.
	FailureNetwork FailureKind = "network_failure"
	// FailureGatewayUnavailable — клиент шлюза не сконфигурирован; intent не создавался.
	FailureGatewayUnavailable FailureKind = "gateway_unavailable"
	// FailureVerification — подпись или сумма не сошлись; заказ не подтверждён.
	FailureVerification FailureKind = "payment_verification_failed"
	// FailureServerRejected — бизнес-отказ сервера; текст показывается как есть.
	FailureServerRejected FailureKind = "server_rejected"
)

// Failure — приведённый к таксономии провал для показа покупателю.
// Сырые ошибки транспорта до UI не доходят.
type Failure struct {
	Kind    FailureKind
	Message string
	Reasons []BlockReason
}

// Error реализует error, чтобы провал можно было возвращать из операций сервиса.
func (f *Failure) Error() string {
	return fmt.Sprintf("checkout failed (%s): %s", f.Kind, f.Message)
}

// AsFailure достаёт Failure из цепочки ошибок.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ShippingForm — данные доставки, заполненные на шаге оформления.
type ShippingForm struct {
	Name         string
	Email        string
	Phone        string
	Address      string
	Instructions string
}

// Service — серверная сторона оформления: валидация, создание заказов,
// проверка оплаты, события. Поверх него Run ведёт машину состояний
// одной попытки оформления.
type Service struct {
	cartStore *cart.Store
	buyNow    *cart.BuyNowService
	validator *Validator
	engine    *pricing.Engine
	gateway   domain.PaymentGateway
	orders    domain.OrderRepository
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository

	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// ServiceOption настраивает Service.
type ServiceOption func(*Service)

// WithServiceLogger задаёт logger сервиса.
func WithServiceLogger(logger *log.Entry) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics подключает метрики оформления.
func WithMetrics(m *metrics.CheckoutMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithKafkaProducer подключает публикацию событий оформления в Kafka.
func WithKafkaProducer(producer *kafka.Producer) ServiceOption {
	return func(s *Service) {
		s.kafkaProducer = producer
	}
}

// NewService создаёт сервис оформления.
func NewService(
	cartStore *cart.Store,
	buyNow *cart.BuyNowService,
	validator *Validator,
	engine *pricing.Engine,
	paymentGateway domain.PaymentGateway,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	options ...ServiceOption,
) *Service {
	s := &Service{
		cartStore: cartStore,
		buyNow:    buyNow,
		validator: validator,
		engine:    engine,
		gateway:   paymentGateway,
		orders:    orders,
		outbox:    outbox,
		timeline:  timeline,
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "checkout")
	}
	return s
}

// Validate прогоняет текущие позиции покупателя через проверки оформления.
func (s *Service) Validate(userID string, source domain.CheckoutSource) (ValidationResult, error) {
	items, err := s.loadItems(userID, source)
	if err != nil {
		return ValidationResult{}, err
	}
	return s.validator.Validate(items, source)
}

// Quote считает расклад стоимости по проверенным позициям покупателя.
func (s *Service) Quote(userID string, source domain.CheckoutSource, method domain.PaymentMethod) (domain.PricingBreakdown, error) {
	validation, err := s.Validate(userID, source)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}
	return s.engine.Breakdown(validation.Eligible, method), nil
}

// CreateGatewayOrder — серверная часть POST /api/payment/create-order:
// проверяет позиции, сверяет сумму клиента с пересчитанной, создаёт заказ
// в статусе pending и ордер на стороне шлюза. clientAmountMinor < 0 означает,
// что клиент сумму не прислал и сверка пропускается.
func (s *Service) CreateGatewayOrder(userID string, source domain.CheckoutSource, form ShippingForm, clientAmountMinor int64) (domain.PaymentIntent, error) {
	if !s.gateway.Ready() {
		// Fail fast: без клиента шлюза intent не создаём.
		return domain.PaymentIntent{}, &Failure{Kind: FailureGatewayUnavailable, Message: domain.ErrGatewayUnavailable.Error()}
	}

	items, err := s.loadItems(userID, source)
	if err != nil {
		return domain.PaymentIntent{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}
	validation, err := s.validator.Validate(items, source)
	if err != nil {
		return domain.PaymentIntent{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}
	if validation.Blocked {
		if s.metrics != nil {
			s.metrics.RecordCheckoutBlocked()
		}
		return domain.PaymentIntent{}, &Failure{
			Kind:    FailureValidationBlocked,
			Message: "cart is not ready for checkout",
			Reasons: validation.Reasons,
		}
	}

	breakdown := s.engine.Breakdown(validation.Eligible, domain.PaymentMethodGateway)
	if clientAmountMinor >= 0 && clientAmountMinor != breakdown.GrandTotalMinor {
		s.logger.WithFields(log.Fields{
			"user_id":       userID,
			"client_amount": clientAmountMinor,
			"server_amount": breakdown.GrandTotalMinor,
		}).Warn("client amount does not match server pricing")
		return domain.PaymentIntent{}, &Failure{Kind: FailureServerRejected, Message: domain.ErrAmountMismatch.Error()}
	}

	order, err := s.createOrder(userID, source, form, domain.PaymentMethodGateway, validation.Eligible, breakdown, domain.OrderStatusPending)
	if err != nil {
		return domain.PaymentIntent{}, &Failure{Kind: FailureServerRejected, Message: err.Error()}
	}

	intent, err := s.gateway.CreateIntent(order)
	if err != nil {
		s.failOrder(&order, err)
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			return domain.PaymentIntent{}, &Failure{Kind: FailureGatewayUnavailable, Message: err.Error()}
		}
		return domain.PaymentIntent{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}

	order.GatewayOrderID = intent.GatewayOrderID
	if err := s.saveOrder(&order); err != nil {
		return domain.PaymentIntent{}, &Failure{Kind: FailureServerRejected, Message: err.Error()}
	}

	return intent, nil
}

// CompleteGatewayPayment — серверная часть POST /api/payment/verify: сверяет
// подпись callback-а и подтверждает заказ. Несошедшаяся подпись трактуется как
// потенциальное мошенничество: заказ помечается failed и непригоден.
// Повторный callback по уже оплаченному заказу идемпотентен.
func (s *Service) CompleteGatewayPayment(cb domain.GatewayCallback) (domain.Order, error) {
	order, err := s.lookupOrder(cb)
	if err != nil {
		return domain.Order{}, &Failure{Kind: FailureVerification, Message: err.Error()}
	}

	if order.Status.Terminal() {
		if order.Status == domain.OrderStatusPaid && order.GatewayPaymentID == cb.RazorpayPaymentID {
			return order, nil
		}
		return domain.Order{}, &Failure{Kind: FailureVerification, Message: domain.ErrOrderTerminal.Error()}
	}

	if err := s.gateway.VerifySignature(cb.RazorpayOrderID, cb.RazorpayPaymentID, cb.RazorpaySignature); err != nil {
		if s.metrics != nil {
			s.metrics.RecordPaymentFailed()
		}
		s.failOrder(&order, err)
		s.publishOrderEvent(kafka.EventTypePaymentFailed, &order, map[string]interface{}{
			"reason": err.Error(),
		})
		return domain.Order{}, &Failure{Kind: FailureVerification, Message: err.Error()}
	}

	order.GatewayPaymentID = cb.RazorpayPaymentID
	if err := s.updateStatus(&order, domain.OrderStatusPaid); err != nil {
		return domain.Order{}, &Failure{Kind: FailureServerRejected, Message: err.Error()}
	}
	if s.metrics != nil {
		s.metrics.RecordPaymentVerified()
	}
	s.publishOrderEvent(kafka.EventTypePaymentVerified, &order, map[string]interface{}{
		"payment_id": cb.RazorpayPaymentID,
	})

	s.clearSource(order.UserID, order.Source)

	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": cb.RazorpayPaymentID,
	}).Info("gateway payment verified")

	return order, nil
}

// ProcessCOD — серверная часть POST /api/payment/process-cod: проверяет
// позиции и сразу размещает заказ с оплатой при доставке.
func (s *Service) ProcessCOD(userID string, source domain.CheckoutSource, form ShippingForm) (domain.Order, error) {
	items, err := s.loadItems(userID, source)
	if err != nil {
		return domain.Order{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}
	validation, err := s.validator.Validate(items, source)
	if err != nil {
		return domain.Order{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}
	if validation.Blocked {
		if s.metrics != nil {
			s.metrics.RecordCheckoutBlocked()
		}
		return domain.Order{}, &Failure{
			Kind:    FailureValidationBlocked,
			Message: "cart is not ready for checkout",
			Reasons: validation.Reasons,
		}
	}

	breakdown := s.engine.Breakdown(validation.Eligible, domain.PaymentMethodCOD)
	return s.placeCODOrder(userID, source, form, validation.Eligible, breakdown)
}

// placeCODOrder размещает COD-заказ из уже проверенных (замороженных) позиций.
func (s *Service) placeCODOrder(userID string, source domain.CheckoutSource, form ShippingForm, items []domain.LineItem, breakdown domain.PricingBreakdown) (domain.Order, error) {
	order, err := s.createOrder(userID, source, form, domain.PaymentMethodCOD, items, breakdown, domain.OrderStatusPlaced)
	if err != nil {
		if _, ok := AsFailure(err); ok {
			return domain.Order{}, err
		}
		return domain.Order{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}

	s.publishOrderEvent(kafka.EventTypeOrderPlaced, &order, nil)
	s.clearSource(userID, source)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"amount":   order.AmountMinor,
	}).Info("cod order placed")

	return order, nil
}

// OrderTimeline возвращает историю событий заказа.
func (s *Service) OrderTimeline(orderID string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(orderID); err != nil {
		return nil, err
	}
	return s.timeline.List(orderID)
}

// Order возвращает заказ по идентификатору.
func (s *Service) Order(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// OrdersByUser возвращает заказы покупателя, свежие первыми.
func (s *Service) OrdersByUser(userID string, limit int) ([]domain.Order, error) {
	return s.orders.ListByUser(userID, limit)
}

func (s *Service) loadItems(userID string, source domain.CheckoutSource) ([]domain.LineItem, error) {
	switch source {
	case domain.CheckoutSourceBuyNow:
		slot, err := s.buyNow.Get(userID)
		if err != nil {
			return nil, err
		}
		return []domain.LineItem{slot.AsLineItem()}, nil
	default:
		userCart, err := s.cartStore.Get(userID)
		if err != nil {
			return nil, err
		}
		return userCart.Items, nil
	}
}

// createOrder собирает и сохраняет заказ из замороженных позиций и расклада.
// Сумма берётся из расклада, зафиксированного на шаге проверки формы,
// и не пересчитывается из живой корзины: между показом цены и списанием
// не должно быть гонки.
func (s *Service) createOrder(
	userID string,
	source domain.CheckoutSource,
	form ShippingForm,
	method domain.PaymentMethod,
	items []domain.LineItem,
	breakdown domain.PricingBreakdown,
	status domain.OrderStatus,
) (domain.Order, error) {
	now := time.Now().UTC()

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  item.ProductID,
			Name:       item.Snapshot.Name,
			Qty:        item.Qty,
			PriceMinor: item.EffectivePriceMinor(),
			Color:      item.Color,
			Size:       item.Size,
			CreatedAt:  now,
		})
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          status,
		Source:          source,
		PaymentMethod:   method,
		ShippingAddress: form.Address,
		Instructions:    form.Instructions,
		Currency:        breakdown.Currency,
		AmountMinor:     breakdown.GrandTotalMinor,
		Items:           orderItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, &Failure{Kind: FailureServerRejected, Message: errors.Join(errs...).Error()}
	}

	if err := s.orders.Create(order); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated(string(method))
	}
	s.emitEvent(&order, "OrderCreated", map[string]interface{}{
		"status": string(status),
		"amount": order.AmountMinor,
		"ts":     now.Format(time.RFC3339Nano),
	})
	s.publishOrderEvent(kafka.EventTypeOrderCreated, &order, nil)

	return order, nil
}

func (s *Service) lookupOrder(cb domain.GatewayCallback) (domain.Order, error) {
	if cb.OrderID != "" {
		return s.orders.Get(cb.OrderID)
	}
	return s.orders.GetByGatewayOrderID(cb.RazorpayOrderID)
}

func (s *Service) failOrder(order *domain.Order, rootErr error) {
	if err := s.updateStatus(order, domain.OrderStatusFailed); err != nil {
		return
	}
	s.emitEvent(order, "OrderFailed", map[string]interface{}{
		"reason": rootErr.Error(),
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Service) clearSource(userID string, source domain.CheckoutSource) {
	var err error
	switch source {
	case domain.CheckoutSourceBuyNow:
		err = s.buyNow.Consume(userID)
	default:
		err = s.cartStore.Clear(userID)
	}
	if err != nil {
		// Заказ уже размещён; неубранная корзина — мелочь, логируем и едем дальше.
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"source":  source,
		}).Warn("failed to clear checkout source")
	}
}

// updateStatus меняет статус заказа и эмитит событие статуса.
// Конфликты версий разрешаются повтором с exponential backoff.
func (s *Service) updateStatus(order *domain.Order, newStatus domain.OrderStatus) error {
	if order.Status == newStatus {
		return nil
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		previousStatus := order.Status
		order.Status = newStatus
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := s.orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					s.logger.WithError(loadErr).WithField("order_id", order.ID).Error("failed to reload order after conflict")
					return loadErr
				}
				*order = fresh

				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}

			order.Status = previousStatus
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return err
		}

		order.Version = prevVersion + 1
		s.emitEvent(order, "OrderStatusChanged", map[string]interface{}{
			"status":     string(order.Status),
			"updated_at": order.UpdatedAt.Format(time.RFC3339Nano),
			"ts":         order.UpdatedAt.Format(time.RFC3339Nano),
		})
		return nil
	}

	return domain.ErrOrderVersionConflict
}

// saveOrder сохраняет изменения полей заказа без смены статуса.
func (s *Service) saveOrder(order *domain.Order) error {
	prevVersion := order.Version
	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.Save(*order); err != nil {
		return err
	}
	order.Version = prevVersion + 1
	return nil
}

// emitEvent кладёт событие в outbox и timeline.
func (s *Service) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		occurred := time.Now().UTC()
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Reason:   reason,
			Occurred: occurred,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (s *Service) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if s.kafkaProducer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.UserID, string(order.Status), metadata)
	event.PaymentMethod = string(order.PaymentMethod)
	event.AmountMinor = order.AmountMinor
	event.Currency = order.Currency

	if err := s.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		// Kafka опциональна: ошибку логируем, оформление не прерываем.
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}

// Run — одна попытка оформления: машина состояний
// Idle → FormReview → {GatewayPending, CodSubmitting} → {Succeeded, Failed}.
// Конечные состояния не переигрываются; новая попытка — новый Run.
type Run struct {
	svc    *Service
	userID string
	source domain.CheckoutSource

	mu    sync.Mutex
	state State
	busy  bool

	form   ShippingForm
	method domain.PaymentMethod
	// items и breakdown замораживаются при входе в FormReview:
	// отправка использует проверенные данные, а не живую корзину.
	items     []domain.LineItem
	breakdown domain.PricingBreakdown

	orderID string
	failure *Failure
}

// NewRun начинает попытку оформления в состоянии Idle.
func (s *Service) NewRun(userID string, source domain.CheckoutSource) *Run {
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}
	return &Run{
		svc:    s,
		userID: userID,
		source: source,
		state:  StateIdle,
	}
}

// State возвращает текущее состояние попытки.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OrderID возвращает идентификатор созданного заказа для страницы подтверждения.
func (r *Run) OrderID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orderID
}

// Failure возвращает причину провала, если попытка завершилась в Failed.
func (r *Run) Failure() *Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

// Breakdown возвращает замороженный расклад стоимости.
func (r *Run) Breakdown() domain.PricingBreakdown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breakdown
}

// Begin валидирует позиции, замораживает данные и переводит попытку в
// FormReview. Блокировка валидацией оставляет попытку в Idle: результат
// с причинами возвращается для показа, покупатель правит корзину.
func (r *Run) Begin(form ShippingForm, method domain.PaymentMethod) (ValidationResult, error) {
	if !method.Valid() {
		return ValidationResult{}, domain.ErrPaymentMethodInvalid
	}

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ValidationResult{}, domain.ErrCheckoutState
	}
	r.mu.Unlock()

	items, err := r.svc.loadItems(r.userID, r.source)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load items: %w", err)
	}
	validation, err := r.svc.validator.Validate(items, r.source)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate: %w", err)
	}
	if validation.Blocked {
		if r.svc.metrics != nil {
			r.svc.metrics.RecordCheckoutBlocked()
		}
		return validation, nil
	}

	breakdown := r.svc.engine.Breakdown(validation.Eligible, method)

	r.mu.Lock()
	r.form = form
	r.method = method
	r.items = validation.Eligible
	r.breakdown = breakdown
	r.state = StateFormReview
	r.mu.Unlock()

	return validation, nil
}

// SubmitCOD отправляет COD-заказ из замороженных данных. Повторная проверка
// не выполняется: содержимое попытки зафиксировано в Begin. Автоматических
// повторов нет — после Failed покупатель начинает новый Run.
func (r *Run) SubmitCOD() (string, error) {
	if err := r.enter(StateCodSubmitting, domain.PaymentMethodCOD); err != nil {
		return "", err
	}

	order, err := r.svc.placeCODOrder(r.userID, r.source, r.form, r.items, r.breakdown)
	if err != nil {
		failure, ok := AsFailure(err)
		if !ok {
			failure = &Failure{Kind: FailureNetwork, Message: err.Error()}
		}
		r.fail(failure)
		return "", failure
	}

	r.succeed(order.ID)
	return order.ID, nil
}

// PayWithGateway проводит оплату через шлюз: создаёт заказ и intent,
// открывает платёжную сессию и сверяет подпись результата. Закрытие окна
// покупателем возвращает попытку в FormReview; повторная оплата запрашивает
// свежий intent, отменённый не переиспользуется.
func (r *Run) PayWithGateway(session gateway.Session, prefill gateway.Prefill) (string, error) {
	if err := r.enter(StateGatewayPending, domain.PaymentMethodGateway); err != nil {
		return "", err
	}

	if !r.svc.gateway.Ready() {
		// Fail fast до создания intent: без клиента шлюза платить нечем.
		failure := &Failure{Kind: FailureGatewayUnavailable, Message: domain.ErrGatewayUnavailable.Error()}
		r.fail(failure)
		return "", failure
	}

	order, err := r.svc.createOrder(r.userID, r.source, r.form, domain.PaymentMethodGateway, r.items, r.breakdown, domain.OrderStatusPending)
	if err != nil {
		failure, ok := AsFailure(err)
		if !ok {
			failure = &Failure{Kind: FailureNetwork, Message: err.Error()}
		}
		r.fail(failure)
		return "", failure
	}

	intent, err := r.svc.gateway.CreateIntent(order)
	if err != nil {
		r.svc.failOrder(&order, err)
		failure := &Failure{Kind: FailureNetwork, Message: err.Error()}
		r.fail(failure)
		return "", failure
	}
	order.GatewayOrderID = intent.GatewayOrderID
	if err := r.svc.saveOrder(&order); err != nil {
		failure := &Failure{Kind: FailureServerRejected, Message: err.Error()}
		r.fail(failure)
		return "", failure
	}

	result, err := session.Pay(intent, prefill)
	if err != nil {
		r.svc.failOrder(&order, err)
		failure := &Failure{Kind: FailureNetwork, Message: err.Error()}
		r.fail(failure)
		return "", failure
	}

	switch result.Status {
	case domain.GatewayStatusCancelled:
		// Не ошибка: покупатель передумал. Intent выброшен, заказ закрыт,
		// попытка возвращается к проверке формы за свежим intent-ом.
		if r.svc.metrics != nil {
			r.svc.metrics.RecordPaymentCancelled()
		}
		r.svc.failOrder(&order, errors.New("payment cancelled by customer"))
		r.reenterFormReview()
		return "", nil

	case domain.GatewayStatusCompleted:
		verified, err := r.svc.CompleteGatewayPayment(domain.GatewayCallback{
			RazorpayPaymentID: result.PaymentID,
			RazorpayOrderID:   result.GatewayOrderID,
			RazorpaySignature: result.Signature,
			OrderID:           order.ID,
		})
		if err != nil {
			failure, ok := AsFailure(err)
			if !ok {
				failure = &Failure{Kind: FailureVerification, Message: err.Error()}
			}
			r.fail(failure)
			return "", failure
		}
		r.succeed(verified.ID)
		return verified.ID, nil

	default:
		reason := result.Reason
		if reason == "" {
			reason = "payment failed"
		}
		if r.svc.metrics != nil {
			r.svc.metrics.RecordPaymentFailed()
		}
		r.svc.failOrder(&order, errors.New(reason))
		r.svc.publishOrderEvent(kafka.EventTypePaymentFailed, &order, map[string]interface{}{
			"reason": reason,
		})
		failure := &Failure{Kind: FailureServerRejected, Message: reason}
		r.fail(failure)
		return "", failure
	}
}

// enter занимает busy-флаг и переводит попытку из FormReview в промежуточное
// состояние. Вторая отправка, пока первая в полёте, отклоняется.
func (r *Run) enter(next State, method domain.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return domain.ErrCheckoutBusy
	}
	if r.state != StateFormReview {
		return domain.ErrCheckoutState
	}
	if r.method != method {
		return domain.ErrPaymentMethodInvalid
	}

	r.busy = true
	r.state = next
	return nil
}

func (r *Run) succeed(orderID string) {
	r.mu.Lock()
	r.state = StateSucceeded
	r.orderID = orderID
	r.busy = false
	r.mu.Unlock()

	if r.svc.metrics != nil {
		r.svc.metrics.RecordCheckoutSucceeded()
	}
}

func (r *Run) fail(failure *Failure) {
	r.mu.Lock()
	r.state = StateFailed
	r.failure = failure
	r.busy = false
	r.mu.Unlock()

	if r.svc.metrics != nil {
		r.svc.metrics.RecordCheckoutFailed()
	}
	r.svc.logger.WithFields(log.Fields{
		"user_id": r.userID,
		"kind":    failure.Kind,
	}).Warn("checkout attempt failed")
}

func (r *Run) reenterFormReview() {
	r.mu.Lock()
	r.state = StateFormReview
	r.busy = false
	r.mu.Unlock()
}

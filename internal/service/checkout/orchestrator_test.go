package checkout_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// rupeePolicy считает в целых рупиях, чтобы числа в тестах читались глазами.
func rupeePolicy() pricing.Policy {
	return pricing.Policy{
		Currency:               "INR",
		DeliveryChargeMinor:    40,
		UniversalDiscountMinor: 40,
		GatewayThresholdMinor:  1000,
		GatewayBelowPct:        1,
		GatewayAtOrAbovePct:    5,
	}
}

type env struct {
	svc       *checkout.Service
	catalog   *catalog.MockService
	gateway   *gateway.MockGateway
	cartStore *cart.Store
	buyNow    *cart.BuyNowService
	orders    domain.OrderRepository
	timeline  domain.TimelineRepository
}

func newEnv(t *testing.T, orders domain.OrderRepository, products ...domain.Product) *env {
	t.Helper()

	mockCatalog := catalog.NewMockService()
	mockCatalog.Seed(products...)

	engine := pricing.NewEngine(rupeePolicy())
	cartStore := cart.NewStore(memory.NewCartRepository(), mockCatalog, engine)
	buyNow := cart.NewBuyNowService(memory.NewBuyNowRepository(), mockCatalog)
	validator := checkout.NewValidator(mockCatalog)
	mockGateway := gateway.NewMockGateway()
	timeline := memory.NewTimelineRepository()

	if orders == nil {
		orders = memory.NewOrderRepository()
	}

	svc := checkout.NewService(
		cartStore, buyNow, validator, engine, mockGateway,
		orders, memory.NewOutboxRepository(), timeline,
	)

	return &env{
		svc:       svc,
		catalog:   mockCatalog,
		gateway:   mockGateway,
		cartStore: cartStore,
		buyNow:    buyNow,
		orders:    orders,
		timeline:  timeline,
	}
}

func testForm() checkout.ShippingForm {
	return checkout.ShippingForm{
		Name:    "Asha",
		Email:   "asha@example.com",
		Phone:   "9999999999",
		Address: "12 MG Road, Bengaluru",
	}
}

type failingOrderRepo struct {
	domain.OrderRepository
}

func (failingOrderRepo) Create(domain.Order) error {
	return errors.New("connection reset by peer")
}

func TestRun_BuyNowCODEndToEnd(t *testing.T) {
	book := domain.Product{ID: "p-book", Name: "Book", PriceMinor: 500, Stock: 3}
	e := newEnv(t, nil, book)

	_, err := e.buyNow.Create("user-1", "p-book", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceBuyNow)

	validation, err := run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)
	assert.False(t, validation.Blocked)
	assert.Equal(t, checkout.StateFormReview, run.State())

	// 500 + 40 доставка − 40 универсальная скидка, без процентной скидки за COD.
	assert.EqualValues(t, 500, run.Breakdown().GrandTotalMinor)

	orderID, err := run.SubmitCOD()
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	assert.Equal(t, checkout.StateSucceeded, run.State())
	assert.Equal(t, orderID, run.OrderID())

	order, err := e.orders.Get(orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
	assert.Equal(t, domain.CheckoutSourceBuyNow, order.Source)
	assert.EqualValues(t, 500, order.AmountMinor)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Book", order.Items[0].Name)

	// Слот потреблён успешным размещением.
	_, err = e.buyNow.Get("user-1")
	assert.True(t, errors.Is(err, domain.ErrBuyNowNotFound))

	events, err := e.timeline.List(orderID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestRun_CODSubmissionFailureKeepsSlot(t *testing.T) {
	book := domain.Product{ID: "p-book", Name: "Book", PriceMinor: 500, Stock: 3}
	e := newEnv(t, failingOrderRepo{memory.NewOrderRepository()}, book)

	_, err := e.buyNow.Create("user-1", "p-book", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceBuyNow)
	_, err = run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	_, err = run.SubmitCOD()
	require.Error(t, err)

	assert.Equal(t, checkout.StateFailed, run.State())
	require.NotNil(t, run.Failure())
	assert.Equal(t, checkout.FailureNetwork, run.Failure().Kind)

	// Слот переживает провал отправки: покупатель повторяет попытку новым Run.
	_, err = e.buyNow.Get("user-1")
	assert.NoError(t, err)
}

func TestRun_CartCODClearsCart(t *testing.T) {
	mug := domain.Product{ID: "p-mug", Name: "Mug", PriceMinor: 200, Stock: 10}
	e := newEnv(t, nil, mug)

	_, err := e.cartStore.Add("user-1", "p-mug", 2, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	orderID, err := run.SubmitCOD()
	require.NoError(t, err)

	order, err := e.orders.Get(orderID)
	require.NoError(t, err)
	assert.EqualValues(t, 400, order.AmountMinor)

	got, err := e.cartStore.Get("user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRun_GatewayHappyPath(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodGateway)
	require.NoError(t, err)

	// 1200 над порогом: скидка 5% от 1200 = 60.
	assert.EqualValues(t, 1140, run.Breakdown().GrandTotalMinor)

	session := &gateway.ScriptedSession{}
	orderID, err := run.PayWithGateway(session, gateway.Prefill{Name: "Asha"})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	assert.Equal(t, checkout.StateSucceeded, run.State())

	order, err := e.orders.Get(orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "pay_test", order.GatewayPaymentID)
	assert.NotEmpty(t, order.GatewayOrderID)
	assert.EqualValues(t, 1140, order.AmountMinor)

	assert.Equal(t, 1, e.gateway.VerifyCalls)

	got, err := e.cartStore.Get("user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRun_GatewayCancelReturnsToFormReview(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodGateway)
	require.NoError(t, err)

	session := &gateway.ScriptedSession{
		Results: []domain.GatewayResult{{Status: domain.GatewayStatusCancelled}},
	}

	orderID, err := run.PayWithGateway(session, gateway.Prefill{})
	require.NoError(t, err)
	assert.Empty(t, orderID)

	// Закрытое окно — не провал: попытка вернулась к проверке формы.
	assert.Equal(t, checkout.StateFormReview, run.State())
	assert.Nil(t, run.Failure())

	// Повторная оплата получает свежий intent, отменённый не переиспользуется.
	orderID, err = run.PayWithGateway(session, gateway.Prefill{})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	assert.Equal(t, checkout.StateSucceeded, run.State())
	assert.Equal(t, 2, e.gateway.IntentCalls)
	assert.Equal(t, "rzp_test_2", session.LastIntent.GatewayOrderID)
}

func TestRun_GatewayUnavailableFailsFast(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)
	e.gateway.NotReady = true

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodGateway)
	require.NoError(t, err)

	_, err = run.PayWithGateway(&gateway.ScriptedSession{}, gateway.Prefill{})
	require.Error(t, err)

	assert.Equal(t, checkout.StateFailed, run.State())
	require.NotNil(t, run.Failure())
	assert.Equal(t, checkout.FailureGatewayUnavailable, run.Failure().Kind)

	// Intent не создавался: провал случился до обращения к шлюзу.
	assert.Equal(t, 0, e.gateway.IntentCalls)
}

func TestRun_SignatureMismatchFails(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)
	e.gateway.VerifyErr = domain.ErrSignatureMismatch

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodGateway)
	require.NoError(t, err)

	_, err = run.PayWithGateway(&gateway.ScriptedSession{}, gateway.Prefill{})
	require.Error(t, err)

	assert.Equal(t, checkout.StateFailed, run.State())
	require.NotNil(t, run.Failure())
	assert.Equal(t, checkout.FailureVerification, run.Failure().Kind)

	// Заказ непригоден, корзина не тронута.
	orders, err := e.orders.ListByUser("user-1", 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusFailed, orders[0].Status)

	got, err := e.cartStore.Get("user-1")
	require.NoError(t, err)
	assert.False(t, got.IsEmpty())
}

func TestRun_BlockedValidationStaysIdle(t *testing.T) {
	soldOut := domain.Product{ID: "p-plate", Name: "Plate", PriceMinor: 300, Stock: 0}
	e := newEnv(t, nil, soldOut)

	_, err := e.buyNow.Create("user-1", "p-plate", 1, domain.VariantSelection{})
	require.NoError(t, err)

	// Слот создан до распродажи остатка; живой остаток уже нулевой.
	e.catalog.SetStock("p-plate", 0)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceBuyNow)
	validation, err := run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	assert.True(t, validation.Blocked)
	assert.Equal(t, checkout.StateIdle, run.State())

	_, err = run.SubmitCOD()
	assert.True(t, errors.Is(err, domain.ErrCheckoutState))
}

func TestRun_StateGuards(t *testing.T) {
	mug := domain.Product{ID: "p-mug", Name: "Mug", PriceMinor: 200, Stock: 10}
	e := newEnv(t, nil, mug)

	_, err := e.cartStore.Add("user-1", "p-mug", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)

	// До FormReview отправка запрещена.
	_, err = run.SubmitCOD()
	assert.True(t, errors.Is(err, domain.ErrCheckoutState))

	_, err = run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	// Выбранный способ оплаты — одностороння развилка.
	_, err = run.PayWithGateway(&gateway.ScriptedSession{}, gateway.Prefill{})
	assert.True(t, errors.Is(err, domain.ErrPaymentMethodInvalid))

	_, err = run.SubmitCOD()
	require.NoError(t, err)

	// Конечное состояние не переигрывается.
	_, err = run.SubmitCOD()
	assert.True(t, errors.Is(err, domain.ErrCheckoutState))
	_, err = run.Begin(testForm(), domain.PaymentMethodCOD)
	assert.True(t, errors.Is(err, domain.ErrCheckoutState))
}

func TestRun_PricingFrozenAtFormReview(t *testing.T) {
	mug := domain.Product{ID: "p-mug", Name: "Mug", PriceMinor: 200, Stock: 10}
	e := newEnv(t, nil, mug)

	_, err := e.cartStore.Add("user-1", "p-mug", 1, domain.VariantSelection{})
	require.NoError(t, err)

	run := e.svc.NewRun("user-1", domain.CheckoutSourceCart)
	_, err = run.Begin(testForm(), domain.PaymentMethodCOD)
	require.NoError(t, err)

	// Цена в каталоге меняется после заморозки — списывается показанная сумма.
	e.catalog.Seed(domain.Product{ID: "p-mug", Name: "Mug", PriceMinor: 999, Stock: 10})

	orderID, err := run.SubmitCOD()
	require.NoError(t, err)

	order, err := e.orders.Get(orderID)
	require.NoError(t, err)
	assert.EqualValues(t, 200, order.AmountMinor)
}

func TestService_CreateGatewayOrderAmountMismatch(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	// Клиент прислал сумму до скидки — сервер отклоняет расхождение.
	_, err = e.svc.CreateGatewayOrder("user-1", domain.CheckoutSourceCart, testForm(), 1200)
	require.Error(t, err)
	failure, ok := checkout.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, checkout.FailureServerRejected, failure.Kind)

	intent, err := e.svc.CreateGatewayOrder("user-1", domain.CheckoutSourceCart, testForm(), 1140)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.GatewayOrderID)

	order, err := e.orders.Get(intent.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, intent.GatewayOrderID, order.GatewayOrderID)
}

func TestService_CompleteGatewayPaymentIdempotent(t *testing.T) {
	lamp := domain.Product{ID: "p-lamp", Name: "Lamp", PriceMinor: 1200, Stock: 4}
	e := newEnv(t, nil, lamp)

	_, err := e.cartStore.Add("user-1", "p-lamp", 1, domain.VariantSelection{})
	require.NoError(t, err)

	intent, err := e.svc.CreateGatewayOrder("user-1", domain.CheckoutSourceCart, testForm(), -1)
	require.NoError(t, err)

	// Внутренний orderId в callback не обязателен: заказ ищется по ордеру шлюза.
	cb := domain.GatewayCallback{
		RazorpayPaymentID: "pay_42",
		RazorpayOrderID:   intent.GatewayOrderID,
		RazorpaySignature: "sig_42",
	}

	first, err := e.svc.CompleteGatewayPayment(cb)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, first.Status)

	second, err := e.svc.CompleteGatewayPayment(cb)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Подпись проверялась один раз: повтор распознан по статусу заказа.
	assert.Equal(t, 1, e.gateway.VerifyCalls)
}

func TestService_ProcessCODBlockedOnEmptyCart(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.svc.ProcessCOD("user-1", domain.CheckoutSourceCart, testForm())
	require.Error(t, err)

	failure, ok := checkout.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, checkout.FailureValidationBlocked, failure.Kind)
}

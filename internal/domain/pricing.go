package domain

// PaymentMethod — способ оплаты, выбранный на шаге оформления.
type PaymentMethod string

const (
	// PaymentMethodGateway — онлайн-оплата через платёжный шлюз.
	PaymentMethodGateway PaymentMethod = "razorpay"
	// PaymentMethodCOD — оплата наличными при доставке.
	PaymentMethodCOD PaymentMethod = "cod"
)

// Valid проверяет, что способ оплаты поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodCOD:
		return true
	default:
		return false
	}
}

// PricingBreakdown — расклад стоимости заказа. Все суммы в минимальных
// денежных единицах (пайсы), неотрицательные целые.
// Инвариант: GrandTotalMinor = SubtotalMinor + DeliveryChargeMinor −
// UniversalDiscountMinor − MethodDiscountMinor + CODFeeMinor.
type PricingBreakdown struct {
	Currency               string
	SubtotalMinor          int64
	DeliveryChargeMinor    int64
	UniversalDiscountMinor int64
	// MethodDiscountPct — процент скидки за способ оплаты (0 для COD).
	MethodDiscountPct   int64
	MethodDiscountMinor int64
	CODFeeMinor         int64
	GrandTotalMinor     int64
}

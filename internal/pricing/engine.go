package pricing

import "github.com/vladislavdragonenkov/storefront/internal/domain"

// Engine — чистый калькулятор стоимости заказа. Без I/O, детерминирован,
// никогда не возвращает ошибку: некорректные входные данные (отсутствующая
// цена) считаются нулём, за целостность отвечает валидация выше по потоку.
type Engine struct {
	policy Policy
}

// NewEngine создаёт движок с заданной политикой.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy возвращает действующую политику движка.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Breakdown считает расклад стоимости в фиксированном порядке:
// подытог по позициям в наличии, доставка, универсальная скидка,
// скидка за способ оплаты, итог. Все суммы в пайсах, итог не бывает
// отрицательным. Повторный вызов на тех же входных данных даёт то же целое.
func (e *Engine) Breakdown(items []domain.LineItem, method domain.PaymentMethod) domain.PricingBreakdown {
	b := domain.PricingBreakdown{
		Currency:               e.policy.Currency,
		DeliveryChargeMinor:    e.policy.DeliveryChargeMinor,
		UniversalDiscountMinor: e.policy.UniversalDiscountMinor,
	}

	for _, item := range items {
		// Позиции не в наличии в подытог не входят: их отсеивает валидация,
		// здесь отсев повторён, чтобы расклад был корректен на любом входе.
		if item.Snapshot.Stock <= 0 {
			continue
		}
		qty := int64(item.Qty)
		if qty < 0 {
			qty = 0
		}
		b.SubtotalMinor += item.EffectivePriceMinor() * qty
	}

	base := b.SubtotalMinor + b.DeliveryChargeMinor - b.UniversalDiscountMinor
	if base < 0 {
		base = 0
	}

	switch method {
	case domain.PaymentMethodGateway:
		b.MethodDiscountPct = e.policy.GatewayBelowPct
		if base >= e.policy.GatewayThresholdMinor {
			b.MethodDiscountPct = e.policy.GatewayAtOrAbovePct
		}
		b.MethodDiscountMinor = roundHalfUpPct(base, b.MethodDiscountPct)
	case domain.PaymentMethodCOD:
		b.CODFeeMinor = e.policy.CODFeeMinor
	}

	b.GrandTotalMinor = base - b.MethodDiscountMinor + b.CODFeeMinor
	if b.GrandTotalMinor < 0 {
		b.GrandTotalMinor = 0
	}

	return b
}

// roundHalfUpPct возвращает pct процентов от amount, округляя половину вверх.
func roundHalfUpPct(amount, pct int64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	return (amount*pct + 50) / 100
}

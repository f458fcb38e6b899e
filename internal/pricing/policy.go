package pricing

// Policy — именованные константы ценовой политики витрины.
// Вынесены из кода, чтобы движок можно было тестировать на произвольных
// значениях без правок логики.
type Policy struct {
	Currency string
	// DeliveryChargeMinor — фиксированная стоимость доставки.
	DeliveryChargeMinor int64
	// UniversalDiscountMinor — скидка каждого заказа независимо от суммы.
	// По действующей политике равна стоимости доставки: доставка компенсируется.
	UniversalDiscountMinor int64
	// GatewayThresholdMinor — порог базовой суммы, с которого скидка за
	// онлайн-оплату вырастает с нижней ставки до верхней.
	GatewayThresholdMinor int64
	// GatewayBelowPct — процент скидки за онлайн-оплату ниже порога.
	GatewayBelowPct int64
	// GatewayAtOrAbovePct — процент скидки на пороге и выше.
	GatewayAtOrAbovePct int64
	// CODFeeMinor — сбор за обработку наложенного платежа; 0 = не взимается.
	CODFeeMinor int64
}

// DefaultPolicy возвращает действующую политику витрины. Суммы в пайсах.
func DefaultPolicy() Policy {
	return Policy{
		Currency:               "INR",
		DeliveryChargeMinor:    4000,
		UniversalDiscountMinor: 4000,
		GatewayThresholdMinor:  100000,
		GatewayBelowPct:        1,
		GatewayAtOrAbovePct:    5,
		CODFeeMinor:            0,
	}
}

package pricing_test

import (
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

// Политика в целых рупиях, чтобы числа в кейсах читались без пересчёта в пайсы.
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

func item(price int64, qty int32, stock int32) domain.LineItem {
	return domain.LineItem{
		ID:        "li",
		ProductID: "prod",
		Qty:       qty,
		Snapshot:  domain.ProductSnapshot{PriceMinor: price, Stock: stock},
	}
}

func TestBreakdown_GatewayBelowThreshold(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	b := engine.Breakdown([]domain.LineItem{item(900, 1, 5)}, domain.PaymentMethodGateway)

	if b.SubtotalMinor != 900 {
		t.Fatalf("subtotal = %d, want 900", b.SubtotalMinor)
	}
	if b.MethodDiscountPct != 1 {
		t.Fatalf("discount pct = %d, want 1", b.MethodDiscountPct)
	}
	if b.MethodDiscountMinor != 9 {
		t.Fatalf("discount = %d, want 9", b.MethodDiscountMinor)
	}
	if b.GrandTotalMinor != 891 {
		t.Fatalf("grand total = %d, want 891", b.GrandTotalMinor)
	}
}

func TestBreakdown_GatewayAtThreshold(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	b := engine.Breakdown([]domain.LineItem{item(1000, 1, 5)}, domain.PaymentMethodGateway)

	if b.MethodDiscountPct != 5 {
		t.Fatalf("discount pct = %d, want 5", b.MethodDiscountPct)
	}
	if b.MethodDiscountMinor != 50 {
		t.Fatalf("discount = %d, want 50", b.MethodDiscountMinor)
	}
	if b.GrandTotalMinor != 950 {
		t.Fatalf("grand total = %d, want 950", b.GrandTotalMinor)
	}
}

func TestBreakdown_CODNoPercentageDiscount(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	b := engine.Breakdown([]domain.LineItem{item(900, 1, 5)}, domain.PaymentMethodCOD)

	if b.MethodDiscountMinor != 0 || b.MethodDiscountPct != 0 {
		t.Fatalf("cod must not carry a percentage discount, got %d%%/%d", b.MethodDiscountPct, b.MethodDiscountMinor)
	}
	if b.GrandTotalMinor != 900 {
		t.Fatalf("grand total = %d, want 900", b.GrandTotalMinor)
	}
}

func TestBreakdown_CODHandlingFee(t *testing.T) {
	policy := rupeePolicy()
	policy.CODFeeMinor = 25
	engine := pricing.NewEngine(policy)

	b := engine.Breakdown([]domain.LineItem{item(900, 1, 5)}, domain.PaymentMethodCOD)

	if b.CODFeeMinor != 25 {
		t.Fatalf("cod fee = %d, want 25", b.CODFeeMinor)
	}
	if b.GrandTotalMinor != 925 {
		t.Fatalf("grand total = %d, want 925", b.GrandTotalMinor)
	}
}

func TestBreakdown_Invariant(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	carts := [][]domain.LineItem{
		nil,
		{item(0, 1, 5)},
		{item(900, 1, 5)},
		{item(499, 3, 10), item(350, 2, 1)},
		{item(100000, 7, 2)},
		{item(900, 1, 5), item(777, 1, 0)}, // вторая позиция не в наличии
	}

	for _, items := range carts {
		for _, method := range []domain.PaymentMethod{domain.PaymentMethodGateway, domain.PaymentMethodCOD} {
			b := engine.Breakdown(items, method)

			want := b.SubtotalMinor + b.DeliveryChargeMinor - b.UniversalDiscountMinor -
				b.MethodDiscountMinor + b.CODFeeMinor
			if want < 0 {
				want = 0
			}
			if b.GrandTotalMinor != want {
				t.Fatalf("grand total %d breaks the invariant, want %d (%+v)", b.GrandTotalMinor, want, b)
			}
			if b.GrandTotalMinor < 0 {
				t.Fatalf("grand total must never be negative, got %d", b.GrandTotalMinor)
			}
		}
	}
}

func TestBreakdown_OutOfStockExcluded(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	items := []domain.LineItem{
		item(900, 2, 5),
		item(12345, 1, 0),
	}
	b := engine.Breakdown(items, domain.PaymentMethodCOD)

	if b.SubtotalMinor != 1800 {
		t.Fatalf("subtotal = %d, want 1800 (out-of-stock item excluded)", b.SubtotalMinor)
	}
}

func TestBreakdown_DiscountedPriceWins(t *testing.T) {
	engine := pricing.NewEngine(rupeePolicy())

	li := item(900, 1, 5)
	li.Snapshot.DiscountedMinor = 600
	b := engine.Breakdown([]domain.LineItem{li}, domain.PaymentMethodCOD)

	if b.SubtotalMinor != 600 {
		t.Fatalf("subtotal = %d, want discounted 600", b.SubtotalMinor)
	}
}

func TestBreakdown_Deterministic(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultPolicy())

	items := []domain.LineItem{item(33333, 3, 9), item(10101, 2, 4)}
	first := engine.Breakdown(items, domain.PaymentMethodGateway)
	for i := 0; i < 100; i++ {
		if got := engine.Breakdown(items, domain.PaymentMethodGateway); got != first {
			t.Fatalf("recomputation diverged: %+v vs %+v", got, first)
		}
	}
}

func TestBreakdown_RoundHalfUp(t *testing.T) {
	// База 150: 1% = 1.5 — округляется вверх до 2.
	policy := rupeePolicy()
	engine := pricing.NewEngine(policy)

	b := engine.Breakdown([]domain.LineItem{item(150, 1, 5)}, domain.PaymentMethodGateway)
	if b.MethodDiscountMinor != 2 {
		t.Fatalf("discount = %d, want 2 (round half up)", b.MethodDiscountMinor)
	}
}

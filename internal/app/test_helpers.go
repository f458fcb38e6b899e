package app

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// newTestOrder создаёт тестовый заказ для использования в тестах.
func newTestOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:              "test-order-1",
		UserID:          "test-user-1",
		Status:          domain.OrderStatusPending,
		Source:          domain.CheckoutSourceCart,
		PaymentMethod:   domain.PaymentMethodGateway,
		ShippingAddress: "221B Baker Street",
		Currency:        "INR",
		AmountMinor:     100000,
		Items: []domain.OrderItem{
			{
				ID:         "item-1",
				ProductID:  "prod-test",
				Name:       "Test Product",
				Qty:        1,
				PriceMinor: 100000,
				CreatedAt:  now,
			},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

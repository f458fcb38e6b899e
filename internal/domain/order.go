package domain

import "time"

// OrderStatus описывает жизненный цикл заказа витрины.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан под оплату через шлюз, подтверждение ещё не пришло.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — подпись шлюза проверена, оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusPlaced — заказ с оплатой при доставке принят.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusFailed — оплата не состоялась или не прошла проверку; заказ непригоден.
	OrderStatusFailed OrderStatus = "failed"
)

// Terminal сообщает, достиг ли заказ конечного состояния.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusPlaced, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// CheckoutSource — откуда пришли позиции заказа: корзина или слот "купить сейчас".
// От источника зависит, что очищается после успешного размещения.
type CheckoutSource string

const (
	CheckoutSourceCart   CheckoutSource = "cart"
	CheckoutSourceBuyNow CheckoutSource = "buy_now"
)

// OrderItem — одна позиция заказа: слепок позиции корзины на момент оформления.
type OrderItem struct {
	ID         string
	ProductID  string
	Name       string
	Qty        int32
	PriceMinor int64
	Color      string
	Size       string
	CreatedAt  time.Time
}

// Order — заказ, отправляемый в хранилище. После создания не мутирует:
// изменения оформляются новым заказом, а не правкой существующего.
type Order struct {
	ID              string
	UserID          string
	Status          OrderStatus
	Source          CheckoutSource
	PaymentMethod   PaymentMethod
	ShippingAddress string
	Instructions    string
	Currency        string
	// AmountMinor — итог из зафиксированного расклада цены, включая доставку и скидки.
	AmountMinor      int64
	GatewayOrderID   string
	GatewayPaymentID string
	Items            []OrderItem
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.ShippingAddress == "" {
		errs = append(errs, ErrAddressRequired)
	}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

package domain

import "time"

// PaymentIntent — серверный ордер платёжного шлюза. Потребляется ровно один раз:
// повторная попытка оплаты запрашивает свежий intent, а не переиспользует старый.
type PaymentIntent struct {
	// GatewayOrderID — идентификатор ордера на стороне шлюза.
	GatewayOrderID string
	// OrderID — внутренний заказ, под который создан intent.
	OrderID     string
	Key         string
	AmountMinor int64
	Currency    string
	CreatedAt   time.Time
}

// GatewayStatus — исход платёжной сессии шлюза.
type GatewayStatus string

const (
	// GatewayStatusCompleted — покупатель завершил оплату, шлюз вернул подпись.
	GatewayStatusCompleted GatewayStatus = "completed"
	// GatewayStatusCancelled — покупатель закрыл платёжное окно, не оплатив.
	// Это не ошибка: оформление возвращается к проверке формы.
	GatewayStatusCancelled GatewayStatus = "cancelled"
	// GatewayStatusFailed — шлюз сообщил о неуспехе платежа.
	GatewayStatusFailed GatewayStatus = "failed"
)

// GatewayResult — результат платёжной сессии, приведённый к обычному
// запрос-ответному виду на границе с callback-виджетом.
type GatewayResult struct {
	Status GatewayStatus
	// PaymentID, GatewayOrderID и Signature заполнены только при Completed.
	PaymentID      string
	GatewayOrderID string
	Signature      string
	// Reason — текст от шлюза при Failed.
	Reason string
}

// GatewayCallback — сырой payload подтверждения от клиентского виджета шлюза
// плюс внутренний идентификатор заказа.
type GatewayCallback struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
}

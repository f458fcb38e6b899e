package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле заказа.
// Лента используется страницей подтверждения и поддержкой.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

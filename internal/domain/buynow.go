package domain

import "time"

// BuyNowItem — разовая позиция "купить сейчас", живущая вне корзины.
// Создаётся по клику, существует на время одной попытки оформления
// и удаляется после размещения заказа или по истечении срока.
type BuyNowItem struct {
	ID        string
	UserID    string
	ProductID string
	Qty       int32
	Color     string
	Size      string
	Snapshot  ProductSnapshot
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AsLineItem представляет разовую позицию в виде позиции корзины,
// чтобы валидация и прайсинг работали с единым типом.
func (b BuyNowItem) AsLineItem() LineItem {
	return LineItem{
		ID:        b.ID,
		ProductID: b.ProductID,
		Qty:       b.Qty,
		Color:     b.Color,
		Size:      b.Size,
		Snapshot:  b.Snapshot,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.CreatedAt,
	}
}

// Expired сообщает, истёк ли срок жизни слота к моменту now.
func (b BuyNowItem) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt)
}

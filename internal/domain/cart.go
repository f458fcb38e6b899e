package domain

import (
	"strings"
	"time"
)

// VariantSelection — выбранные покупателем параметры товара.
// Пустая строка означает "не выбрано".
type VariantSelection struct {
	Color string
	Size  string
}

// LineItem — одна позиция корзины. ID уникален в пределах корзины, а не товара:
// один и тот же товар с разными вариантами даёт разные позиции.
type LineItem struct {
	ID        string
	ProductID string
	// Qty всегда >= 1: удаление моделируется операцией Remove, а не нулём.
	Qty       int32
	Color     string
	Size      string
	Snapshot  ProductSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectivePriceMinor возвращает продажную цену позиции за единицу.
func (li LineItem) EffectivePriceMinor() int64 {
	return li.Snapshot.EffectivePriceMinor()
}

// VariantKey возвращает ключ слияния: товар + вариант.
// Add с совпадающим ключом увеличивает количество существующей позиции.
func (li LineItem) VariantKey() string {
	return VariantKey(li.ProductID, VariantSelection{Color: li.Color, Size: li.Size})
}

// VariantKey строит ключ слияния позиций по товару и выбранному варианту.
func VariantKey(productID string, sel VariantSelection) string {
	return strings.Join([]string{productID, sel.Color, sel.Size}, "|")
}

// Cart — упорядоченный набор позиций одного покупателя.
type Cart struct {
	UserID    string
	Items     []LineItem
	UpdatedAt time.Time
}

// FindItem возвращает индекс позиции по её ID или -1.
func (c Cart) FindItem(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindByVariant возвращает индекс позиции с таким же ключом товар+вариант или -1.
func (c Cart) FindByVariant(key string) int {
	for i := range c.Items {
		if c.Items[i].VariantKey() == key {
			return i
		}
	}
	return -1
}

// IsEmpty сообщает, что в корзине нет позиций.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

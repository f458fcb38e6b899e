package domain

// Product — актуальное состояние товара из каталога (живые остатки и цены).
type Product struct {
	ID            string
	Name          string
	PriceMinor    int64
	// DiscountedMinor — акционная цена; 0 означает, что акции нет.
	DiscountedMinor int64
	// OriginalMinor — цена до уценки, используется витриной для зачёркнутого ценника.
	OriginalMinor int64
	Stock         int32
	HasVariants   bool
	Colors        []string
	Sizes         []string
}

// EffectivePriceMinor возвращает цену, по которой товар реально продаётся.
func (p Product) EffectivePriceMinor() int64 {
	if p.DiscountedMinor > 0 {
		return p.DiscountedMinor
	}
	return p.PriceMinor
}

// InStock сообщает, остались ли единицы товара.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductSnapshot — денормализованная копия товара на момент добавления в корзину.
// Это слепок, а не живая ссылка: устаревание терпимо до следующего прохода валидации.
type ProductSnapshot struct {
	Name            string
	PriceMinor      int64
	DiscountedMinor int64
	OriginalMinor   int64
	Stock           int32
	HasVariants     bool
}

// SnapshotOf делает слепок товара для хранения внутри позиции корзины.
func SnapshotOf(p Product) ProductSnapshot {
	return ProductSnapshot{
		Name:            p.Name,
		PriceMinor:      p.PriceMinor,
		DiscountedMinor: p.DiscountedMinor,
		OriginalMinor:   p.OriginalMinor,
		Stock:           p.Stock,
		HasVariants:     p.HasVariants,
	}
}

// EffectivePriceMinor возвращает продажную цену из слепка.
// Отсутствующая цена трактуется как 0: целостность данных — зона ответственности каталога.
func (s ProductSnapshot) EffectivePriceMinor() int64 {
	if s.DiscountedMinor > 0 {
		return s.DiscountedMinor
	}
	if s.PriceMinor > 0 {
		return s.PriceMinor
	}
	return 0
}

package checkout

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// BlockReasonKind — вид причины, мешающей оформлению.
type BlockReasonKind string

const (
	// BlockReasonOutOfStock — живой остаток товара исчерпан.
	BlockReasonOutOfStock BlockReasonKind = "out_of_stock"
	// BlockReasonVariantMissing — у товара с вариантами не выбран цвет или размер.
	BlockReasonVariantMissing BlockReasonKind = "variant_missing"
)

// BlockReason — описание одной проблемы для показа покупателю.
// Это текст для UI, а не ошибка: оформление останавливает оркестратор,
// отказываясь идти дальше при Blocked, а не паника валидатора.
type BlockReason struct {
	Kind        BlockReasonKind
	ItemID      string
	ProductID   string
	ProductName string
	Message     string
}

// ValidationResult — итог проверки корзины перед оформлением.
type ValidationResult struct {
	// Blocked запрещает оформление целиком.
	Blocked bool
	Reasons []BlockReason
	// Eligible — позиции, участвующие в расчёте стоимости
	// (с обновлёнными из каталога слепками).
	Eligible []domain.LineItem
}

// Validator решает, можно ли оформлять заказ. Два независимых правила —
// наличие и полнота варианта — проверяются оба, без короткого замыкания,
// чтобы покупатель увидел все проблемы сразу.
type Validator struct {
	catalog domain.ProductCatalog
	logger  *log.Entry
}

// ValidatorOption настраивает Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger задаёт logger валидатора.
func WithValidatorLogger(logger *log.Entry) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator создаёт валидатор оформления.
func NewValidator(catalog domain.ProductCatalog, options ...ValidatorOption) *Validator {
	v := &Validator{catalog: catalog}
	for _, option := range options {
		option(v)
	}
	if v.logger == nil {
		v.logger = log.WithField("component", "checkout-validator")
	}
	return v
}

// Validate перечитывает живые остатки из каталога (слепкам в корзине не
// доверяем) и проверяет позиции. В режиме корзины товар не в наличии
// исключается из расчёта и попадает в причины, но не блокирует остальные;
// в режиме "купить сейчас" единственная позиция блокирует всё.
// Ошибка возвращается только при сбое обращения к каталогу.
func (v *Validator) Validate(items []domain.LineItem, source domain.CheckoutSource) (ValidationResult, error) {
	result := ValidationResult{}
	if len(items) == 0 {
		result.Blocked = true
		return result, nil
	}

	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	live, err := v.catalog.Products(productIDs)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("refetch products: %w", err)
	}

	for _, item := range items {
		product, known := live[item.ProductID]

		// Пропавший из каталога товар равнозначен отсутствию на складе.
		if !known || !product.InStock() {
			result.Reasons = append(result.Reasons, BlockReason{
				Kind:        BlockReasonOutOfStock,
				ItemID:      item.ID,
				ProductID:   item.ProductID,
				ProductName: item.Snapshot.Name,
				Message:     fmt.Sprintf("%s is out of stock", item.Snapshot.Name),
			})
			if source == domain.CheckoutSourceBuyNow {
				result.Blocked = true
			}
			continue
		}

		hasVariants := product.HasVariants
		if hasVariants && (item.Color == "" || item.Size == "") {
			result.Reasons = append(result.Reasons, BlockReason{
				Kind:        BlockReasonVariantMissing,
				ItemID:      item.ID,
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Message:     fmt.Sprintf("select color and size for %s", product.Name),
			})
			// Неполный вариант блокирует всегда: непонятно, что отгружать.
			result.Blocked = true
		}

		item.Snapshot = domain.SnapshotOf(product)
		result.Eligible = append(result.Eligible, item)
	}

	// Если после отсева ничего не осталось, оформлять нечего.
	if len(result.Eligible) == 0 {
		result.Blocked = true
	}

	if result.Blocked {
		v.logger.WithFields(log.Fields{
			"source":  source,
			"reasons": len(result.Reasons),
		}).Debug("checkout blocked by validation")
	}

	return result, nil
}

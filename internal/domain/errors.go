package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего адреса доставки.
	ErrAddressRequired = errors.New("shipping address is required")
	// Ошибка неподдерживаемого способа оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method is not supported")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")

	// ErrInvalidQuantity возвращается при попытке выставить количество меньше 1.
	// Уменьшение до нуля вызывающая сторона отображает в Remove.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrLineItemNotFound возвращается, если позиция корзины не найдена.
	ErrLineItemNotFound = errors.New("cart line item not found")
	// ErrProductNotFound — каталог не знает такой товар.
	ErrProductNotFound = errors.New("product not found")
	// ErrBuyNowNotFound — слот "купить сейчас" пуст или уже потреблён.
	ErrBuyNowNotFound = errors.New("buy-now item not found")
	// ErrBuyNowExpired — слот "купить сейчас" просрочен.
	ErrBuyNowExpired = errors.New("buy-now item expired")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderTerminal — заказ уже в конечном статусе, повторная обработка запрещена.
	ErrOrderTerminal = errors.New("order already in terminal status")

	// ErrGatewayUnavailable — клиент шлюза не сконфигурирован или не загрузился.
	// Попытка оплаты проваливается до создания intent.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrSignatureMismatch — подпись шлюза не сошлась; заказ не подтверждается.
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrIntentConsumed — платёжная сессия по этому intent уже открыта или завершена.
	ErrIntentConsumed = errors.New("payment intent already consumed")
	// ErrAmountMismatch — сумма из запроса клиента разошлась с пересчитанной на сервере.
	ErrAmountMismatch = errors.New("order amount mismatch")
	// ErrCheckoutBusy — попытка оформления уже выполняется; повторная отправка отклонена.
	ErrCheckoutBusy = errors.New("checkout already in flight")
	// ErrCheckoutState — операция недопустима в текущем состоянии оформления.
	ErrCheckoutState = errors.New("operation not allowed in current checkout state")

	// Ошибка отсутствующего idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// Ошибка отсутствующего хэша запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись с таким ключом не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже занят другим запросом в обработке.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — тот же ключ пришёл с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

package domain

import "time"

// ProductCatalog описывает взаимодействие с каталогом товаров.
// Валидация оформления перечитывает живые остатки именно через этот порт,
// а не доверяет слепкам в корзине.
type ProductCatalog interface {
	// Product возвращает актуальное состояние товара или ErrProductNotFound.
	Product(productID string) (Product, error)
	// Products возвращает состояние набора товаров одним обращением.
	// Отсутствующие товары в результат не попадают.
	Products(productIDs []string) (map[string]Product, error)
}

// PaymentGateway описывает серверную часть платёжного шлюза.
type PaymentGateway interface {
	// Ready сообщает, сконфигурирован ли клиент шлюза. Если нет, оформление
	// проваливается до создания intent.
	Ready() bool
	// CreateIntent создаёт ордер на стороне шлюза под заказ.
	// Сумма берётся из заказа, а не пересчитывается из живой корзины.
	CreateIntent(order Order) (PaymentIntent, error)
	// VerifySignature сверяет подпись подтверждения оплаты.
	// Возвращает ErrSignatureMismatch при расхождении.
	VerifySignature(gatewayOrderID, paymentID, signature string) error
}

// CartRepository описывает требования к хранилищу корзин.
// Хранилище — источник истины между вкладками; при гонке побеждает последняя запись.
type CartRepository interface {
	// Get возвращает корзину покупателя; если её ещё нет — пустую корзину.
	Get(userID string) (Cart, error)
	// Save перезаписывает корзину целиком.
	Save(cart Cart) error
	// Delete удаляет корзину. Отсутствующая корзина — не ошибка.
	Delete(userID string) error
}

// BuyNowRepository хранит короткоживущие слоты "купить сейчас", по одному на покупателя.
type BuyNowRepository interface {
	// Put сохраняет слот, вытесняя предыдущий.
	Put(item BuyNowItem) error
	// Get возвращает слот или ErrBuyNowNotFound.
	Get(userID string) (BuyNowItem, error)
	// Delete удаляет слот. Отсутствующий слот — не ошибка.
	Delete(userID string) error
	// DeleteExpired удаляет просроченные слоты порциями, возвращает число удалённых.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// GetByGatewayOrderID возвращает заказ по идентификатору ордера шлюза.
	GetByGatewayOrderID(gatewayOrderID string) (Order, error)
	// ListByUser возвращает заказы покупателя с опциональным ограничением на количество.
	ListByUser(userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

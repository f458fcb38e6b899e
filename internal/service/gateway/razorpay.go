package gateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultBaseURL     = "https://api.razorpay.com"
	defaultHTTPTimeout = 10 * time.Second
)

// Client — серверный клиент Razorpay: создание ордера и проверка подписи.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// ClientOption настраивает Client.
type ClientOption func(*Client)

// WithBaseURL переопределяет адрес API (для тестов).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient создаёт клиент шлюза. Пустые ключи допустимы: такой клиент
// отвечает Ready() == false, и оформление проваливается до создания intent.
func NewClient(keyID, keySecret string, options ...ClientOption) *Client {
	c := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = log.WithField("component", "razorpay-client")
	}
	return c
}

// Ready сообщает, сконфигурированы ли ключи шлюза.
func (c *Client) Ready() bool {
	return c.keyID != "" && c.keySecret != ""
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateIntent создаёт ордер на стороне шлюза под заказ. Сумма берётся из
// заказа (зафиксированный расклад), а не пересчитывается из живой корзины.
func (c *Client) CreateIntent(order domain.Order) (domain.PaymentIntent, error) {
	if !c.Ready() {
		return domain.PaymentIntent{}, domain.ErrGatewayUnavailable
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   order.AmountMinor,
		Currency: order.Currency,
		Receipt:  order.ID,
	})
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("marshal gateway order: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("create gateway order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(log.Fields{
			"status":   resp.StatusCode,
			"order_id": order.ID,
		}).Warn("gateway rejected order creation")
		return domain.PaymentIntent{}, fmt.Errorf("gateway order creation failed with status %d", resp.StatusCode)
	}

	var created createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("decode gateway response: %w", err)
	}

	return domain.PaymentIntent{
		GatewayOrderID: created.ID,
		OrderID:        order.ID,
		Key:            c.keyID,
		AmountMinor:    created.Amount,
		Currency:       created.Currency,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// VerifySignature сверяет HMAC-SHA256 подпись подтверждения оплаты.
// Расхождение трактуется как потенциальное мошенничество: заказ не подтверждается.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	if !c.Ready() {
		return domain.ErrGatewayUnavailable
	}
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return domain.ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrSignatureMismatch
	}
	return nil
}

var _ domain.PaymentGateway = (*Client)(nil)

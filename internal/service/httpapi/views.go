package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

type lineItemView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Qty         int32  `json:"qty"`
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`
	PriceMinor  int64  `json:"price_minor"`
	Stock       int32  `json:"stock"`
	HasVariants bool   `json:"has_variants"`
}

type cartView struct {
	UserID    string         `json:"user_id"`
	Items     []lineItemView `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type breakdownView struct {
	Currency               string `json:"currency"`
	SubtotalMinor          int64  `json:"subtotal_minor"`
	DeliveryChargeMinor    int64  `json:"delivery_charge_minor"`
	UniversalDiscountMinor int64  `json:"universal_discount_minor"`
	MethodDiscountPct      int64  `json:"method_discount_pct"`
	MethodDiscountMinor    int64  `json:"method_discount_minor"`
	CODFeeMinor            int64  `json:"cod_fee_minor"`
	GrandTotalMinor        int64  `json:"grand_total_minor"`
}

type orderItemView struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
}

type orderView struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Status           string          `json:"status"`
	Source           string          `json:"source"`
	PaymentMethod    string          `json:"payment_method"`
	ShippingAddress  string          `json:"shipping_address"`
	Instructions     string          `json:"instructions,omitempty"`
	Currency         string          `json:"currency"`
	AmountMinor      int64           `json:"amount_minor"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Items            []orderItemView `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type timelineEventView struct {
	OrderID  string    `json:"order_id"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type validationView struct {
	Blocked bool              `json:"blocked"`
	Reasons []blockReasonView `json:"reasons"`
}

func lineItemToView(item domain.LineItem) lineItemView {
	return lineItemView{
		ID:          item.ID,
		ProductID:   item.ProductID,
		Name:        item.Snapshot.Name,
		Qty:         item.Qty,
		Color:       item.Color,
		Size:        item.Size,
		PriceMinor:  item.EffectivePriceMinor(),
		Stock:       item.Snapshot.Stock,
		HasVariants: item.Snapshot.HasVariants,
	}
}

func cartToView(cart domain.Cart) cartView {
	items := make([]lineItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, lineItemToView(item))
	}
	return cartView{UserID: cart.UserID, Items: items, UpdatedAt: cart.UpdatedAt}
}

func breakdownToView(b domain.PricingBreakdown) breakdownView {
	return breakdownView{
		Currency:               b.Currency,
		SubtotalMinor:          b.SubtotalMinor,
		DeliveryChargeMinor:    b.DeliveryChargeMinor,
		UniversalDiscountMinor: b.UniversalDiscountMinor,
		MethodDiscountPct:      b.MethodDiscountPct,
		MethodDiscountMinor:    b.MethodDiscountMinor,
		CODFeeMinor:            b.CODFeeMinor,
		GrandTotalMinor:        b.GrandTotalMinor,
	}
}

func orderToView(order domain.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			Color:      item.Color,
			Size:       item.Size,
		})
	}
	return orderView{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           string(order.Status),
		Source:           string(order.Source),
		PaymentMethod:    string(order.PaymentMethod),
		ShippingAddress:  order.ShippingAddress,
		Instructions:     order.Instructions,
		Currency:         order.Currency,
		AmountMinor:      order.AmountMinor,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func validationToView(result checkout.ValidationResult) validationView {
	reasons := make([]blockReasonView, 0, len(result.Reasons))
	for _, reason := range result.Reasons {
		reasons = append(reasons, blockReasonView{
			Kind:        string(reason.Kind),
			ItemID:      reason.ItemID,
			ProductID:   reason.ProductID,
			ProductName: reason.ProductName,
			Message:     reason.Message,
		})
	}
	return validationView{Blocked: result.Blocked, Reasons: reasons}
}

package marketplace

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kpiboard/backend/internal/domain/unified"
)

// Lazada order lifecycle statuses as delivered by the raw feed.
const (
	lazadaStatusDelivered = "delivered"
	lazadaStatusShipped   = "shipped"
	lazadaStatusPending   = "pending"
	lazadaStatusCanceled  = "canceled"
)

// LazadaOrder mirrors one row of the landed raw.lazada_orders relation.
// Amounts are native PHP.
type LazadaOrder struct {
	OrderID       int64           `gorm:"column:order_id;primaryKey"`
	CreatedAt     *time.Time      `gorm:"column:created_at"`
	UpdatedAt     *time.Time      `gorm:"column:updated_at"`
	CustomerID    *int64          `gorm:"column:customer_id"`
	BuyerEmail    *string         `gorm:"column:buyer_email"`
	Price         decimal.Decimal `gorm:"column:price"`
	ItemsCount    int             `gorm:"column:items_count"`
	Voucher       decimal.Decimal `gorm:"column:voucher"`
	PaymentMethod string          `gorm:"column:payment_method"`
	Statuses      string          `gorm:"column:statuses"`
	Remarks       *string         `gorm:"column:remarks"`
}

// TableName returns the raw table name.
func (LazadaOrder) TableName() string {
	return "raw_lazada_orders"
}

// LazadaOrderItem mirrors one row of raw.lazada_order_items. Each row is a
// single purchased unit; paid_price is the per-row amount.
type LazadaOrderItem struct {
	OrderItemID   int64           `gorm:"column:order_item_id;primaryKey"`
	OrderID       int64           `gorm:"column:order_id"`
	ProductID     int64           `gorm:"column:product_id"`
	Name          string          `gorm:"column:name"`
	Variation     *string         `gorm:"column:variation"`
	SKU           *string         `gorm:"column:sku"`
	PaidPrice     decimal.Decimal `gorm:"column:paid_price"`
	VoucherAmount decimal.Decimal `gorm:"column:voucher_amount"`
	Status        string          `gorm:"column:status"`
}

// TableName returns the raw table name.
func (LazadaOrderItem) TableName() string {
	return "raw_lazada_order_items"
}

// LazadaAdapter maps the marketplace feed into the unified shape. The feed
// carries a single lifecycle status string that drives both the payment and
// fulfillment columns.
type LazadaAdapter struct {
	db *gorm.DB
}

// NewLazadaAdapter creates a LazadaAdapter reading the landed raw relations.
func NewLazadaAdapter(db *gorm.DB) *LazadaAdapter {
	return &LazadaAdapter{db: db}
}

// Platform returns the platform tag this adapter handles.
func (a *LazadaAdapter) Platform() unified.Platform {
	return unified.PlatformLazada
}

// Extract reads and converts the raw Lazada relations.
func (a *LazadaAdapter) Extract(ctx context.Context) (*unified.Extract, error) {
	var rawOrders []LazadaOrder
	if err := a.db.WithContext(ctx).Find(&rawOrders).Error; err != nil {
		return nil, fmt.Errorf("%w: lazada orders: %v", unified.ErrPlatformDegraded, err)
	}
	var rawItems []LazadaOrderItem
	if err := a.db.WithContext(ctx).Find(&rawItems).Error; err != nil {
		return nil, fmt.Errorf("%w: lazada order items: %v", unified.ErrPlatformDegraded, err)
	}

	ex := &unified.Extract{Quality: unified.DataQuality{Platform: a.Platform()}}
	kept := make(map[unified.OrderKey]struct{}, len(rawOrders))

	for i := range rawOrders {
		order, err := a.toUnifiedOrder(&rawOrders[i])
		if err != nil {
			ex.Quality.SkipOrder(err.Error())
			continue
		}
		kept[order.Key()] = struct{}{}
		ex.Orders = append(ex.Orders, order)
	}

	for i := range rawItems {
		item := a.toUnifiedOrderItem(&rawItems[i])
		if _, ok := kept[item.OrderKey()]; !ok {
			ex.Quality.SkipItem(fmt.Sprintf("lazada order item %d: no parent order %d", rawItems[i].OrderItemID, rawItems[i].OrderID))
			continue
		}
		ex.Items = append(ex.Items, item)
	}

	return ex, nil
}

// toUnifiedOrder converts one raw Lazada order.
func (a *LazadaAdapter) toUnifiedOrder(raw *LazadaOrder) (unified.Order, error) {
	if raw.CreatedAt == nil {
		return unified.Order{}, unified.MissingFieldError("lazada_order", "created_at")
	}

	paymentStatus := unified.PaymentStatusUnknown
	fulfillmentStatus := unified.FulfillmentStatusUnfulfilled
	var cancelledAt *time.Time
	switch raw.Statuses {
	case lazadaStatusDelivered:
		paymentStatus = unified.PaymentStatusPaid
		fulfillmentStatus = unified.FulfillmentStatusDelivered
	case lazadaStatusShipped:
		paymentStatus = unified.PaymentStatusPaid
		fulfillmentStatus = unified.FulfillmentStatusShipped
	case lazadaStatusPending:
		paymentStatus = unified.PaymentStatusPending
	case lazadaStatusCanceled:
		cancelledAt = utcPtr(raw.UpdatedAt)
		if cancelledAt == nil {
			cancelledAt = utcPtr(raw.CreatedAt)
		}
	}

	var customerID *string
	if raw.CustomerID != nil {
		id := strconv.FormatInt(*raw.CustomerID, 10)
		customerID = &id
	} else if raw.BuyerEmail != nil && *raw.BuyerEmail != "" {
		customerID = raw.BuyerEmail
	}

	order := unified.Order{
		OrderID:           strconv.FormatInt(raw.OrderID, 10),
		Platform:          unified.PlatformLazada,
		CreatedAt:         raw.CreatedAt.UTC(),
		UpdatedAt:         coalesceTime(raw.UpdatedAt, *raw.CreatedAt),
		CancelledAt:       cancelledAt,
		CustomerID:        customerID,
		CustomerEmail:     coalesceString(raw.BuyerEmail, ""),
		TotalAmount:       raw.Price,
		SubtotalAmount:    raw.Price,
		TaxAmount:         decimal.Zero,
		DiscountAmount:    raw.Voucher,
		CurrencyCode:      "PHP",
		PaymentStatus:     paymentStatus,
		FulfillmentStatus: fulfillmentStatus,
	}
	return order, nil
}

// toUnifiedOrderItem converts one raw Lazada order item. Quantity is always
// one; multi-unit purchases land as multiple rows.
func (a *LazadaAdapter) toUnifiedOrderItem(raw *LazadaOrderItem) unified.OrderItem {
	return unified.OrderItem{
		LineItemID:       strconv.FormatInt(raw.OrderItemID, 10),
		OrderID:          strconv.FormatInt(raw.OrderID, 10),
		Platform:         unified.PlatformLazada,
		ProductID:        strconv.FormatInt(raw.ProductID, 10),
		ProductName:      raw.Name,
		VariantTitle:     raw.Variation,
		SKU:              raw.SKU,
		Quantity:         1,
		UnitPrice:        raw.PaidPrice,
		LineTotal:        raw.PaidPrice,
		DiscountAmount:   raw.VoucherAmount,
		IsTaxable:        true,
		RequiresShipping: true,
	}
}

// Ensure LazadaAdapter implements the adapter interface.
var _ unified.Adapter = (*LazadaAdapter)(nil)

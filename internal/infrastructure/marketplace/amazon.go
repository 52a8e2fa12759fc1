package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kpiboard/backend/internal/domain/unified"
)

// Amazon order lifecycle statuses as delivered by the raw feed.
const (
	amazonStatusShipped   = "Shipped"
	amazonStatusPending   = "Pending"
	amazonStatusUnshipped = "Unshipped"
	amazonStatusCanceled  = "Canceled"
)

// AmazonOrder mirrors one row of the landed raw.amazon_orders relation.
// Money fields arrive as {Amount, CurrencyCode} JSON objects.
type AmazonOrder struct {
	AmazonOrderID          string          `gorm:"column:amazon_order_id;primaryKey"`
	PurchaseDate           *time.Time      `gorm:"column:purchase_date"`
	LastUpdateDate         *time.Time      `gorm:"column:last_update_date"`
	BuyerEmail             *string         `gorm:"column:buyer_email"`
	OrderTotal             json.RawMessage `gorm:"column:order_total;type:jsonb"`
	PaymentMethod          string          `gorm:"column:payment_method"`
	OrderStatus            string          `gorm:"column:order_status"`
	NumberOfItemsShipped   int             `gorm:"column:number_of_items_shipped"`
	NumberOfItemsUnshipped int             `gorm:"column:number_of_items_unshipped"`
	SalesChannel           string          `gorm:"column:sales_channel"`
}

// TableName returns the raw table name.
func (AmazonOrder) TableName() string {
	return "raw_amazon_orders"
}

// AmazonOrderItem mirrors one row of raw.amazon_order_items. item_price is
// the line total for the whole quantity, not a unit price.
type AmazonOrderItem struct {
	OrderItemID       string          `gorm:"column:order_item_id;primaryKey"`
	AmazonOrderID     string          `gorm:"column:amazon_order_id"`
	ASIN              string          `gorm:"column:asin"`
	Title             string          `gorm:"column:title"`
	SellerSKU         *string         `gorm:"column:seller_sku"`
	QuantityOrdered   int             `gorm:"column:quantity_ordered"`
	QuantityShipped   int             `gorm:"column:quantity_shipped"`
	ItemPrice         json.RawMessage `gorm:"column:item_price;type:jsonb"`
	PromotionDiscount json.RawMessage `gorm:"column:promotion_discount;type:jsonb"`
}

// TableName returns the raw table name.
func (AmazonOrderItem) TableName() string {
	return "raw_amazon_order_items"
}

// AmazonAdapter maps the marketplace feed into the unified shape. The feed
// reports only aggregate totals, so subtotal mirrors total and tax/discount
// default to zero at the order level.
type AmazonAdapter struct {
	db *gorm.DB
}

// NewAmazonAdapter creates an AmazonAdapter reading the landed raw relations.
func NewAmazonAdapter(db *gorm.DB) *AmazonAdapter {
	return &AmazonAdapter{db: db}
}

// Platform returns the platform tag this adapter handles.
func (a *AmazonAdapter) Platform() unified.Platform {
	return unified.PlatformAmazon
}

// Extract reads and converts the raw Amazon relations.
func (a *AmazonAdapter) Extract(ctx context.Context) (*unified.Extract, error) {
	var rawOrders []AmazonOrder
	if err := a.db.WithContext(ctx).Find(&rawOrders).Error; err != nil {
		return nil, fmt.Errorf("%w: amazon orders: %v", unified.ErrPlatformDegraded, err)
	}
	var rawItems []AmazonOrderItem
	if err := a.db.WithContext(ctx).Find(&rawItems).Error; err != nil {
		return nil, fmt.Errorf("%w: amazon order items: %v", unified.ErrPlatformDegraded, err)
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
		item, err := a.toUnifiedOrderItem(&rawItems[i])
		if err != nil {
			ex.Quality.SkipItem(err.Error())
			continue
		}
		if _, ok := kept[item.OrderKey()]; !ok {
			ex.Quality.SkipItem(fmt.Sprintf("amazon order item %s: no parent order %s", rawItems[i].OrderItemID, rawItems[i].AmazonOrderID))
			continue
		}
		ex.Items = append(ex.Items, item)
	}

	return ex, nil
}

// toUnifiedOrder converts one raw Amazon order.
func (a *AmazonAdapter) toUnifiedOrder(raw *AmazonOrder) (unified.Order, error) {
	if raw.AmazonOrderID == "" {
		return unified.Order{}, unified.MissingFieldError("amazon_order", "amazon_order_id")
	}
	if raw.PurchaseDate == nil {
		return unified.Order{}, unified.MissingFieldError("amazon_order", "purchase_date")
	}

	total, currency := decodeMoney(raw.OrderTotal)
	if currency == "" {
		currency = "USD"
	}

	var cancelledAt *time.Time
	paymentStatus := unified.PaymentStatusUnknown
	switch raw.OrderStatus {
	case amazonStatusShipped:
		paymentStatus = unified.PaymentStatusPaid
	case amazonStatusPending, amazonStatusUnshipped:
		paymentStatus = unified.PaymentStatusPending
	case amazonStatusCanceled:
		cancelledAt = utcPtr(raw.LastUpdateDate)
		if cancelledAt == nil {
			cancelledAt = utcPtr(raw.PurchaseDate)
		}
	}

	fulfillmentStatus := unified.FulfillmentStatusUnfulfilled
	if raw.NumberOfItemsShipped > 0 {
		fulfillmentStatus = unified.FulfillmentStatusShipped
	}

	order := unified.Order{
		OrderID:           raw.AmazonOrderID,
		Platform:          unified.PlatformAmazon,
		CreatedAt:         raw.PurchaseDate.UTC(),
		UpdatedAt:         coalesceTime(raw.LastUpdateDate, *raw.PurchaseDate),
		CancelledAt:       cancelledAt,
		CustomerID:        raw.BuyerEmail,
		CustomerEmail:     coalesceString(raw.BuyerEmail, ""),
		TotalAmount:       total,
		SubtotalAmount:    total,
		TaxAmount:         decimal.Zero,
		DiscountAmount:    decimal.Zero,
		CurrencyCode:      currency,
		PaymentStatus:     paymentStatus,
		FulfillmentStatus: fulfillmentStatus,
	}
	return order, nil
}

// toUnifiedOrderItem converts one raw Amazon order item, deriving the unit
// price from the line total and the ordered quantity.
func (a *AmazonAdapter) toUnifiedOrderItem(raw *AmazonOrderItem) (unified.OrderItem, error) {
	if raw.ASIN == "" {
		return unified.OrderItem{}, unified.MissingFieldError("amazon_order_item", "asin")
	}

	quantity := raw.QuantityOrdered
	if quantity <= 0 {
		quantity = 1
	}
	lineTotal, _ := decodeMoney(raw.ItemPrice)
	discount, _ := decodeMoney(raw.PromotionDiscount)
	unitPrice := lineTotal.Div(decimal.NewFromInt(int64(quantity))).Round(2)

	item := unified.OrderItem{
		LineItemID:       raw.OrderItemID,
		OrderID:          raw.AmazonOrderID,
		Platform:         unified.PlatformAmazon,
		ProductID:        raw.ASIN,
		ProductName:      raw.Title,
		SKU:              raw.SellerSKU,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		LineTotal:        lineTotal,
		DiscountAmount:   discount,
		IsTaxable:        true,
		RequiresShipping: true,
	}
	return item, nil
}

// Ensure AmazonAdapter implements the adapter interface.
var _ unified.Adapter = (*AmazonAdapter)(nil)

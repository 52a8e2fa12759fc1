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

// ShopifyOrder mirrors one row of the landed raw.shopify_orders relation.
// Written by the external sync process; read-only here.
type ShopifyOrder struct {
	ID                int64           `gorm:"column:id;primaryKey"`
	CreatedAt         *time.Time      `gorm:"column:created_at"`
	UpdatedAt         *time.Time      `gorm:"column:updated_at"`
	ProcessedAt       *time.Time      `gorm:"column:processed_at"`
	CancelledAt       *time.Time      `gorm:"column:cancelled_at"`
	ClosedAt          *time.Time      `gorm:"column:closed_at"`
	CustomerID        *int64          `gorm:"column:customer_id"`
	Email             string          `gorm:"column:email"`
	TotalPrice        decimal.Decimal `gorm:"column:total_price"`
	SubtotalPrice     decimal.Decimal `gorm:"column:subtotal_price"`
	TotalTax          decimal.Decimal `gorm:"column:total_tax"`
	TotalDiscounts    decimal.Decimal `gorm:"column:total_discounts"`
	Currency          string          `gorm:"column:currency"`
	FinancialStatus   *string         `gorm:"column:financial_status"`
	FulfillmentStatus *string         `gorm:"column:fulfillment_status"`
	CancelReason      *string         `gorm:"column:cancel_reason"`
	LineItemsCount    int             `gorm:"column:line_items_count"`
	SourceName        string          `gorm:"column:source_name"`
}

// TableName returns the raw table name.
func (ShopifyOrder) TableName() string {
	return "raw_shopify_orders"
}

// ShopifyLineItem mirrors one row of raw.shopify_order_line_items.
type ShopifyLineItem struct {
	ID                int64           `gorm:"column:id;primaryKey"`
	OrderID           int64           `gorm:"column:order_id"`
	ProductID         *int64          `gorm:"column:product_id"`
	VariantID         *int64          `gorm:"column:variant_id"`
	Title             string          `gorm:"column:title"`
	VariantTitle      *string         `gorm:"column:variant_title"`
	SKU               *string         `gorm:"column:sku"`
	Quantity          int             `gorm:"column:quantity"`
	Price             decimal.Decimal `gorm:"column:price"`
	TotalDiscount     decimal.Decimal `gorm:"column:total_discount"`
	FulfillmentStatus *string         `gorm:"column:fulfillment_status"`
	GiftCard          bool            `gorm:"column:gift_card"`
	Taxable           bool            `gorm:"column:taxable"`
	RequiresShipping  bool            `gorm:"column:requires_shipping"`
}

// TableName returns the raw table name.
func (ShopifyLineItem) TableName() string {
	return "raw_shopify_order_line_items"
}

// ShopifyAdapter maps the storefront platform's raw shape into the unified
// shape. Shopify money is already USD-equivalent per store configuration and
// tax/discount are first-class columns, so the mapping is mostly structural.
type ShopifyAdapter struct {
	db *gorm.DB
}

// NewShopifyAdapter creates a ShopifyAdapter reading the landed raw relations.
func NewShopifyAdapter(db *gorm.DB) *ShopifyAdapter {
	return &ShopifyAdapter{db: db}
}

// Platform returns the platform tag this adapter handles.
func (a *ShopifyAdapter) Platform() unified.Platform {
	return unified.PlatformShopify
}

// Extract reads and converts the raw Shopify relations.
func (a *ShopifyAdapter) Extract(ctx context.Context) (*unified.Extract, error) {
	var rawOrders []ShopifyOrder
	if err := a.db.WithContext(ctx).Find(&rawOrders).Error; err != nil {
		return nil, fmt.Errorf("%w: shopify orders: %v", unified.ErrPlatformDegraded, err)
	}
	var rawItems []ShopifyLineItem
	if err := a.db.WithContext(ctx).Find(&rawItems).Error; err != nil {
		return nil, fmt.Errorf("%w: shopify line items: %v", unified.ErrPlatformDegraded, err)
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
			ex.Quality.SkipItem(fmt.Sprintf("shopify line item %d: no parent order %d", rawItems[i].ID, rawItems[i].OrderID))
			continue
		}
		ex.Items = append(ex.Items, item)
	}

	return ex, nil
}

// toUnifiedOrder converts one raw Shopify order.
func (a *ShopifyAdapter) toUnifiedOrder(raw *ShopifyOrder) (unified.Order, error) {
	if raw.CreatedAt == nil {
		return unified.Order{}, unified.MissingFieldError("shopify_order", "created_at")
	}

	currency := raw.Currency
	if currency == "" {
		currency = "USD"
	}

	var customerID *string
	if raw.CustomerID != nil {
		id := strconv.FormatInt(*raw.CustomerID, 10)
		customerID = &id
	}

	order := unified.Order{
		OrderID:           strconv.FormatInt(raw.ID, 10),
		Platform:          unified.PlatformShopify,
		CreatedAt:         raw.CreatedAt.UTC(),
		UpdatedAt:         coalesceTime(raw.UpdatedAt, *raw.CreatedAt),
		ProcessedAt:       utcPtr(raw.ProcessedAt),
		CancelledAt:       utcPtr(raw.CancelledAt),
		ClosedAt:          utcPtr(raw.ClosedAt),
		CustomerID:        customerID,
		CustomerEmail:     raw.Email,
		TotalAmount:       raw.TotalPrice,
		SubtotalAmount:    raw.SubtotalPrice,
		TaxAmount:         raw.TotalTax,
		DiscountAmount:    raw.TotalDiscounts,
		CurrencyCode:      currency,
		PaymentStatus:     coalesceString(raw.FinancialStatus, unified.PaymentStatusUnknown),
		FulfillmentStatus: coalesceString(raw.FulfillmentStatus, unified.FulfillmentStatusUnfulfilled),
		CancelReason:      raw.CancelReason,
	}
	return order, nil
}

// toUnifiedOrderItem converts one raw Shopify line item. Shopify carries a
// true unit price, so line_total is quantity times price minus nothing.
func (a *ShopifyAdapter) toUnifiedOrderItem(raw *ShopifyLineItem) unified.OrderItem {
	var productID string
	if raw.ProductID != nil {
		productID = strconv.FormatInt(*raw.ProductID, 10)
	}
	var variantID *string
	if raw.VariantID != nil {
		id := strconv.FormatInt(*raw.VariantID, 10)
		variantID = &id
	}

	return unified.OrderItem{
		LineItemID:       strconv.FormatInt(raw.ID, 10),
		OrderID:          strconv.FormatInt(raw.OrderID, 10),
		Platform:         unified.PlatformShopify,
		ProductID:        productID,
		VariantID:        variantID,
		ProductName:      raw.Title,
		VariantTitle:     raw.VariantTitle,
		SKU:              raw.SKU,
		Quantity:         raw.Quantity,
		UnitPrice:        raw.Price,
		LineTotal:        raw.Price.Mul(decimal.NewFromInt(int64(raw.Quantity))),
		DiscountAmount:   raw.TotalDiscount,
		IsGiftCard:       raw.GiftCard,
		IsTaxable:        raw.Taxable,
		RequiresShipping: raw.RequiresShipping,
	}
}

// Ensure ShopifyAdapter implements the adapter interface.
var _ unified.Adapter = (*ShopifyAdapter)(nil)

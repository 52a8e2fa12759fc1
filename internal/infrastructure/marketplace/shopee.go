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

// Shopee order lifecycle statuses as delivered by the raw feed.
const (
	shopeeStatusCompleted   = "COMPLETED"
	shopeeStatusShipped     = "SHIPPED"
	shopeeStatusReadyToShip = "READY_TO_SHIP"
	shopeeStatusUnpaid      = "UNPAID"
	shopeeStatusCancelled   = "CANCELLED"
)

// ShopeeOrder mirrors one row of the landed raw.shopee_orders relation.
// Timestamps arrive as unix seconds; amounts are native PHP.
type ShopeeOrder struct {
	OrderSN              string          `gorm:"column:order_sn;primaryKey"`
	CreateTime           int64           `gorm:"column:create_time"`
	UpdateTime           int64           `gorm:"column:update_time"`
	PayTime              int64           `gorm:"column:pay_time"`
	BuyerUserID          *int64          `gorm:"column:buyer_user_id"`
	BuyerUsername        string          `gorm:"column:buyer_username"`
	TotalAmount          decimal.Decimal `gorm:"column:total_amount"`
	EstimatedShippingFee decimal.Decimal `gorm:"column:estimated_shipping_fee"`
	VoucherAbsorbed      decimal.Decimal `gorm:"column:voucher_absorbed"`
	Currency             string          `gorm:"column:currency"`
	OrderStatus          string          `gorm:"column:order_status"`
	CancelReason         *string         `gorm:"column:cancel_reason"`
}

// TableName returns the raw table name.
func (ShopeeOrder) TableName() string {
	return "raw_shopee_orders"
}

// ShopeeOrderItem mirrors one row of raw.shopee_order_items. Pricing is
// per-model: discounted price is the effective unit price.
type ShopeeOrderItem struct {
	ID                     int64           `gorm:"column:id;primaryKey"`
	OrderSN                string          `gorm:"column:order_sn"`
	ItemID                 int64           `gorm:"column:item_id"`
	ItemName               string          `gorm:"column:item_name"`
	ModelID                *int64          `gorm:"column:model_id"`
	ModelName              *string         `gorm:"column:model_name"`
	ModelSKU               *string         `gorm:"column:model_sku"`
	ModelQuantityPurchased int             `gorm:"column:model_quantity_purchased"`
	ModelOriginalPrice     decimal.Decimal `gorm:"column:model_original_price"`
	ModelDiscountedPrice   decimal.Decimal `gorm:"column:model_discounted_price"`
}

// TableName returns the raw table name.
func (ShopeeOrderItem) TableName() string {
	return "raw_shopee_order_items"
}

// ShopeeAdapter maps the marketplace feed into the unified shape. The feed has
// no payment column of its own, so payment and fulfillment are both inferred
// from the lifecycle status, and the epoch timestamps are lifted to UTC.
type ShopeeAdapter struct {
	db *gorm.DB
}

// NewShopeeAdapter creates a ShopeeAdapter reading the landed raw relations.
func NewShopeeAdapter(db *gorm.DB) *ShopeeAdapter {
	return &ShopeeAdapter{db: db}
}

// Platform returns the platform tag this adapter handles.
func (a *ShopeeAdapter) Platform() unified.Platform {
	return unified.PlatformShopee
}

// Extract reads and converts the raw Shopee relations.
func (a *ShopeeAdapter) Extract(ctx context.Context) (*unified.Extract, error) {
	var rawOrders []ShopeeOrder
	if err := a.db.WithContext(ctx).Find(&rawOrders).Error; err != nil {
		return nil, fmt.Errorf("%w: shopee orders: %v", unified.ErrPlatformDegraded, err)
	}
	var rawItems []ShopeeOrderItem
	if err := a.db.WithContext(ctx).Find(&rawItems).Error; err != nil {
		return nil, fmt.Errorf("%w: shopee order items: %v", unified.ErrPlatformDegraded, err)
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
			ex.Quality.SkipItem(fmt.Sprintf("shopee order item %d: no parent order %s", rawItems[i].ID, rawItems[i].OrderSN))
			continue
		}
		ex.Items = append(ex.Items, item)
	}

	return ex, nil
}

// toUnifiedOrder converts one raw Shopee order.
func (a *ShopeeAdapter) toUnifiedOrder(raw *ShopeeOrder) (unified.Order, error) {
	if raw.OrderSN == "" {
		return unified.Order{}, unified.MissingFieldError("shopee_order", "order_sn")
	}
	createdAt := epochTime(raw.CreateTime)
	if createdAt == nil {
		return unified.Order{}, unified.MissingFieldError("shopee_order", "create_time")
	}

	paymentStatus := unified.PaymentStatusUnknown
	fulfillmentStatus := unified.FulfillmentStatusUnfulfilled
	var cancelledAt, closedAt *time.Time
	switch raw.OrderStatus {
	case shopeeStatusCompleted:
		paymentStatus = unified.PaymentStatusPaid
		fulfillmentStatus = unified.FulfillmentStatusDelivered
		closedAt = epochTime(raw.UpdateTime)
	case shopeeStatusShipped:
		paymentStatus = unified.PaymentStatusPaid
		fulfillmentStatus = unified.FulfillmentStatusShipped
	case shopeeStatusReadyToShip:
		paymentStatus = unified.PaymentStatusPaid
	case shopeeStatusUnpaid:
		paymentStatus = unified.PaymentStatusPending
	case shopeeStatusCancelled:
		cancelledAt = epochTime(raw.UpdateTime)
		if cancelledAt == nil {
			cancelledAt = createdAt
		}
	}

	currency := raw.Currency
	if currency == "" {
		currency = "PHP"
	}

	var customerID *string
	if raw.BuyerUserID != nil {
		id := strconv.FormatInt(*raw.BuyerUserID, 10)
		customerID = &id
	} else if raw.BuyerUsername != "" {
		username := raw.BuyerUsername
		customerID = &username
	}

	order := unified.Order{
		OrderID:           raw.OrderSN,
		Platform:          unified.PlatformShopee,
		CreatedAt:         *createdAt,
		UpdatedAt:         coalesceTime(epochTime(raw.UpdateTime), *createdAt),
		ProcessedAt:       epochTime(raw.PayTime),
		CancelledAt:       cancelledAt,
		ClosedAt:          closedAt,
		CustomerID:        customerID,
		TotalAmount:       raw.TotalAmount,
		SubtotalAmount:    raw.TotalAmount.Sub(raw.EstimatedShippingFee),
		TaxAmount:         decimal.Zero,
		DiscountAmount:    raw.VoucherAbsorbed,
		CurrencyCode:      currency,
		PaymentStatus:     paymentStatus,
		FulfillmentStatus: fulfillmentStatus,
		CancelReason:      raw.CancelReason,
	}
	return order, nil
}

// toUnifiedOrderItem converts one raw Shopee order item. The per-unit
// discount is the spread between original and discounted model price.
func (a *ShopeeAdapter) toUnifiedOrderItem(raw *ShopeeOrderItem) unified.OrderItem {
	quantity := raw.ModelQuantityPurchased
	if quantity <= 0 {
		quantity = 1
	}
	qty := decimal.NewFromInt(int64(quantity))

	discount := raw.ModelOriginalPrice.Sub(raw.ModelDiscountedPrice).Mul(qty)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	var variantID *string
	if raw.ModelID != nil {
		id := strconv.FormatInt(*raw.ModelID, 10)
		variantID = &id
	}

	return unified.OrderItem{
		LineItemID:       strconv.FormatInt(raw.ID, 10),
		OrderID:          raw.OrderSN,
		Platform:         unified.PlatformShopee,
		ProductID:        strconv.FormatInt(raw.ItemID, 10),
		VariantID:        variantID,
		ProductName:      raw.ItemName,
		VariantTitle:     raw.ModelName,
		SKU:              raw.ModelSKU,
		Quantity:         quantity,
		UnitPrice:        raw.ModelDiscountedPrice,
		LineTotal:        raw.ModelDiscountedPrice.Mul(qty),
		DiscountAmount:   discount,
		IsTaxable:        true,
		RequiresShipping: true,
	}
}

// Ensure ShopeeAdapter implements the adapter interface.
var _ unified.Adapter = (*ShopeeAdapter)(nil)

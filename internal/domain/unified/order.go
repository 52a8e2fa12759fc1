package unified

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shared payment vocabulary. Adapters translate each platform's native status
// set into these values; the paid flag is derived from them in one place.
const (
	PaymentStatusPaid          = "paid"
	PaymentStatusAuthorized    = "authorized"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusPending       = "pending"
	PaymentStatusRefunded      = "refunded"
	PaymentStatusUnknown       = "unknown"
)

// Shared fulfillment vocabulary.
const (
	FulfillmentStatusFulfilled   = "fulfilled"
	FulfillmentStatusShipped     = "shipped"
	FulfillmentStatusDelivered   = "delivered"
	FulfillmentStatusCompleted   = "completed"
	FulfillmentStatusPartial     = "partial"
	FulfillmentStatusUnfulfilled = "unfulfilled"
)

// Order is the canonical, platform-agnostic order entity. Identity is the
// composite (OrderID, Platform); OrderID alone is never unique across
// platforms.
type Order struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	GenerationID uuid.UUID `gorm:"column:generation_id;type:uuid;not null;index"`

	OrderID  string   `gorm:"column:order_id;size:64;not null;index:idx_unified_orders_key"`
	Platform Platform `gorm:"column:platform;size:16;not null;index:idx_unified_orders_key"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	ClosedAt    *time.Time `gorm:"column:closed_at"`

	// CustomerID may be a synthetic identifier (email or username) on
	// marketplaces without a dedicated customer table.
	CustomerID    *string `gorm:"column:customer_id;size:255"`
	CustomerEmail string  `gorm:"column:customer_email;size:255"`

	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(14,2);not null"`
	SubtotalAmount decimal.Decimal `gorm:"column:subtotal_amount;type:decimal(14,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:decimal(14,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(14,2);not null"`
	CurrencyCode   string          `gorm:"column:currency_code;size:8;not null"`
	TotalAmountUSD    decimal.Decimal `gorm:"column:total_amount_usd;type:decimal(14,2);not null"`
	TaxAmountUSD      decimal.Decimal `gorm:"column:tax_amount_usd;type:decimal(14,2);not null"`
	DiscountAmountUSD decimal.Decimal `gorm:"column:discount_amount_usd;type:decimal(14,2);not null"`

	PaymentStatus     string  `gorm:"column:payment_status;size:32;not null"`
	FulfillmentStatus string  `gorm:"column:fulfillment_status;size:32;not null"`
	CancelReason      *string `gorm:"column:cancel_reason;size:255"`

	IsPaid      bool `gorm:"column:is_paid;not null"`
	IsFulfilled bool `gorm:"column:is_fulfilled;not null"`
	IsCancelled bool `gorm:"column:is_cancelled;not null"`

	OrderDate      time.Time `gorm:"column:order_date;type:date;not null;index"`
	OrderWeek      int       `gorm:"column:order_week;not null"`
	OrderMonth     int       `gorm:"column:order_month;not null"`
	OrderQuarter   int       `gorm:"column:order_quarter;not null"`
	OrderYear      int       `gorm:"column:order_year;not null"`
	OrderHour      int       `gorm:"column:order_hour;not null"`
	OrderDayOfWeek int       `gorm:"column:order_day_of_week;not null"`
}

// TableName returns the unified orders table name.
func (Order) TableName() string {
	return "unified_orders"
}

// Key returns the composite identity of the order.
func (o *Order) Key() OrderKey {
	return OrderKey{OrderID: o.OrderID, Platform: o.Platform}
}

// OrderKey is the composite identity used for map/index lookups.
type OrderKey struct {
	OrderID  string
	Platform Platform
}

// Derive computes the fields owned by the unification layer: USD-normalized
// total, calendar buckets and the three boolean status flags. It is the single
// place where status strings collapse into booleans.
func (o *Order) Derive() {
	o.TotalAmountUSD = ToUSD(o.TotalAmount, o.CurrencyCode).Round(2)
	o.TaxAmountUSD = ToUSD(o.TaxAmount, o.CurrencyCode).Round(2)
	o.DiscountAmountUSD = ToUSD(o.DiscountAmount, o.CurrencyCode).Round(2)

	utc := o.CreatedAt.UTC()
	o.OrderDate = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	_, week := utc.ISOWeek()
	o.OrderWeek = week
	o.OrderMonth = int(utc.Month())
	o.OrderQuarter = (int(utc.Month())-1)/3 + 1
	o.OrderYear = utc.Year()
	o.OrderHour = utc.Hour()
	o.OrderDayOfWeek = int(utc.Weekday())

	switch o.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusAuthorized, PaymentStatusPartiallyPaid:
		o.IsPaid = true
	default:
		o.IsPaid = false
	}

	switch o.FulfillmentStatus {
	case FulfillmentStatusFulfilled, FulfillmentStatusShipped,
		FulfillmentStatusDelivered, FulfillmentStatusCompleted:
		o.IsFulfilled = true
	default:
		o.IsFulfilled = false
	}

	o.IsCancelled = o.CancelledAt != nil
}

// OrderItem is a canonical line within an order. Identity is
// (LineItemID, OrderID, Platform).
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	GenerationID uuid.UUID `gorm:"column:generation_id;type:uuid;not null;index"`

	LineItemID string   `gorm:"column:line_item_id;size:64;not null"`
	OrderID    string   `gorm:"column:order_id;size:64;not null;index:idx_unified_order_items_order"`
	Platform   Platform `gorm:"column:platform;size:16;not null;index:idx_unified_order_items_order"`

	ProductID    string  `gorm:"column:product_id;size:64;not null"`
	VariantID    *string `gorm:"column:variant_id;size:64"`
	ProductName  string  `gorm:"column:product_name;size:500;not null"`
	VariantTitle *string `gorm:"column:variant_title;size:255"`
	SKU          *string `gorm:"column:sku;size:100"`

	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:decimal(14,2);not null"`
	LineTotal      decimal.Decimal `gorm:"column:line_total;type:decimal(14,2);not null"`
	LineTotalUSD   decimal.Decimal `gorm:"column:line_total_usd;type:decimal(14,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(14,2);not null"`

	IsGiftCard       bool `gorm:"column:is_gift_card;not null"`
	IsTaxable        bool `gorm:"column:is_taxable;not null"`
	RequiresShipping bool `gorm:"column:requires_shipping;not null"`
}

// TableName returns the unified order items table name.
func (OrderItem) TableName() string {
	return "unified_order_items"
}

// OrderKey returns the composite identity of the parent order.
func (i *OrderItem) OrderKey() OrderKey {
	return OrderKey{OrderID: i.OrderID, Platform: i.Platform}
}

// DeriveUSD normalizes the line total using the parent order's currency.
// Items carry no currency of their own; the order owns it.
func (i *OrderItem) DeriveUSD(currencyCode string) {
	i.LineTotalUSD = ToUSD(i.LineTotal, currencyCode).Round(2)
}

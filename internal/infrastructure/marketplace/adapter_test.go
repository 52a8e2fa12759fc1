package marketplace

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiboard/backend/internal/domain/unified"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func i64(v int64) *int64 { return &v }

func str(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Shopify Tests
// ---------------------------------------------------------------------------

func TestShopifyAdapter_ToUnifiedOrder(t *testing.T) {
	adapter := NewShopifyAdapter(nil)

	t.Run("full order", func(t *testing.T) {
		raw := &ShopifyOrder{
			ID:                5001,
			CreatedAt:         ts("2025-03-10T14:30:00Z"),
			UpdatedAt:         ts("2025-03-11T09:00:00Z"),
			ProcessedAt:       ts("2025-03-10T14:31:00Z"),
			CustomerID:        i64(777),
			Email:             "buyer@example.com",
			TotalPrice:        decimal.RequireFromString("120.50"),
			SubtotalPrice:     decimal.RequireFromString("110.00"),
			TotalTax:          decimal.RequireFromString("10.50"),
			TotalDiscounts:    decimal.RequireFromString("5.00"),
			Currency:          "USD",
			FinancialStatus:   str("paid"),
			FulfillmentStatus: str("fulfilled"),
		}

		order, err := adapter.toUnifiedOrder(raw)
		require.NoError(t, err)

		assert.Equal(t, "5001", order.OrderID)
		assert.Equal(t, unified.PlatformShopify, order.Platform)
		assert.Equal(t, "777", *order.CustomerID)
		assert.Equal(t, "paid", order.PaymentStatus)
		assert.Equal(t, "fulfilled", order.FulfillmentStatus)
		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("120.50")))
		assert.Nil(t, order.CancelledAt)
	})

	t.Run("null statuses default", func(t *testing.T) {
		raw := &ShopifyOrder{
			ID:         5002,
			CreatedAt:  ts("2025-03-10T14:30:00Z"),
			TotalPrice: decimal.RequireFromString("40.00"),
		}

		order, err := adapter.toUnifiedOrder(raw)
		require.NoError(t, err)

		assert.Equal(t, unified.PaymentStatusUnknown, order.PaymentStatus)
		assert.Equal(t, unified.FulfillmentStatusUnfulfilled, order.FulfillmentStatus)
		assert.Equal(t, "USD", order.CurrencyCode)
		assert.Nil(t, order.CustomerID)
	})

	t.Run("missing created_at is rejected", func(t *testing.T) {
		_, err := adapter.toUnifiedOrder(&ShopifyOrder{ID: 5003})
		require.Error(t, err)
		assert.ErrorIs(t, err, unified.ErrMissingField)
	})
}

func TestShopifyAdapter_ToUnifiedOrderItem(t *testing.T) {
	adapter := NewShopifyAdapter(nil)

	item := adapter.toUnifiedOrderItem(&ShopifyLineItem{
		ID:            9001,
		OrderID:       5001,
		ProductID:     i64(31),
		VariantID:     i64(42),
		Title:         "Wireless Earbuds",
		SKU:           str("WE-001"),
		Quantity:      3,
		Price:         decimal.RequireFromString("25.00"),
		TotalDiscount: decimal.RequireFromString("2.50"),
		Taxable:       true,
	})

	assert.Equal(t, "9001", item.LineItemID)
	assert.Equal(t, "5001", item.OrderID)
	assert.Equal(t, "31", item.ProductID)
	assert.Equal(t, "42", *item.VariantID)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("75.00")))
}

// ---------------------------------------------------------------------------
// Amazon Tests
// ---------------------------------------------------------------------------

func TestAmazonAdapter_ToUnifiedOrder(t *testing.T) {
	adapter := NewAmazonAdapter(nil)

	tests := []struct {
		name          string
		status        string
		wantPayment   string
		wantCancelled bool
	}{
		{"shipped is paid", amazonStatusShipped, unified.PaymentStatusPaid, false},
		{"pending stays pending", amazonStatusPending, unified.PaymentStatusPending, false},
		{"unshipped stays pending", amazonStatusUnshipped, unified.PaymentStatusPending, false},
		{"canceled marks cancellation", amazonStatusCanceled, unified.PaymentStatusUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &AmazonOrder{
				AmazonOrderID:  "111-2223334-5556667",
				PurchaseDate:   ts("2025-04-01T08:00:00Z"),
				LastUpdateDate: ts("2025-04-02T08:00:00Z"),
				OrderTotal:     json.RawMessage(`{"Amount": "89.99", "CurrencyCode": "USD"}`),
				OrderStatus:    tt.status,
			}

			order, err := adapter.toUnifiedOrder(raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPayment, order.PaymentStatus)
			if tt.wantCancelled {
				require.NotNil(t, order.CancelledAt)
				assert.Equal(t, ts("2025-04-02T08:00:00Z").UTC(), *order.CancelledAt)
			} else {
				assert.Nil(t, order.CancelledAt)
			}
			assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("89.99")))
			assert.Equal(t, "USD", order.CurrencyCode)
		})
	}

	t.Run("fulfillment from shipped count", func(t *testing.T) {
		raw := &AmazonOrder{
			AmazonOrderID:        "111-0000000-0000001",
			PurchaseDate:         ts("2025-04-01T08:00:00Z"),
			OrderStatus:          amazonStatusShipped,
			NumberOfItemsShipped: 2,
		}
		order, err := adapter.toUnifiedOrder(raw)
		require.NoError(t, err)
		assert.Equal(t, unified.FulfillmentStatusShipped, order.FulfillmentStatus)
	})

	t.Run("malformed order_total yields zero", func(t *testing.T) {
		raw := &AmazonOrder{
			AmazonOrderID: "111-0000000-0000002",
			PurchaseDate:  ts("2025-04-01T08:00:00Z"),
			OrderTotal:    json.RawMessage(`not-json`),
			OrderStatus:   amazonStatusPending,
		}
		order, err := adapter.toUnifiedOrder(raw)
		require.NoError(t, err)
		assert.True(t, order.TotalAmount.IsZero())
	})

	t.Run("missing purchase_date is rejected", func(t *testing.T) {
		_, err := adapter.toUnifiedOrder(&AmazonOrder{AmazonOrderID: "111-x"})
		assert.ErrorIs(t, err, unified.ErrMissingField)
	})
}

func TestAmazonAdapter_ToUnifiedOrderItem(t *testing.T) {
	adapter := NewAmazonAdapter(nil)

	t.Run("unit price from line total", func(t *testing.T) {
		item, err := adapter.toUnifiedOrderItem(&AmazonOrderItem{
			OrderItemID:     "ITEM-1",
			AmazonOrderID:   "111-2223334-5556667",
			ASIN:            "B08XYZ1234",
			Title:           "USB-C Cable",
			QuantityOrdered: 4,
			ItemPrice:       json.RawMessage(`{"Amount": "40.00", "CurrencyCode": "USD"}`),
		})
		require.NoError(t, err)

		assert.Equal(t, "B08XYZ1234", item.ProductID)
		assert.Equal(t, 4, item.Quantity)
		assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("10.00")))
		assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("40.00")))
	})

	t.Run("zero quantity defaults to one", func(t *testing.T) {
		item, err := adapter.toUnifiedOrderItem(&AmazonOrderItem{
			OrderItemID:   "ITEM-2",
			AmazonOrderID: "111-2223334-5556667",
			ASIN:          "B08XYZ1234",
			ItemPrice:     json.RawMessage(`{"Amount": "15.00"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, item.Quantity)
		assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("15.00")))
	})

	t.Run("missing asin is rejected", func(t *testing.T) {
		_, err := adapter.toUnifiedOrderItem(&AmazonOrderItem{OrderItemID: "ITEM-3"})
		assert.ErrorIs(t, err, unified.ErrMissingField)
	})
}

// ---------------------------------------------------------------------------
// Lazada Tests
// ---------------------------------------------------------------------------

func TestLazadaAdapter_ToUnifiedOrder(t *testing.T) {
	adapter := NewLazadaAdapter(nil)

	tests := []struct {
		name            string
		status          string
		wantPayment     string
		wantFulfillment string
		wantCancelled   bool
	}{
		{"delivered", lazadaStatusDelivered, unified.PaymentStatusPaid, unified.FulfillmentStatusDelivered, false},
		{"shipped", lazadaStatusShipped, unified.PaymentStatusPaid, unified.FulfillmentStatusShipped, false},
		{"pending", lazadaStatusPending, unified.PaymentStatusPending, unified.FulfillmentStatusUnfulfilled, false},
		{"canceled", lazadaStatusCanceled, unified.PaymentStatusUnknown, unified.FulfillmentStatusUnfulfilled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &LazadaOrder{
				OrderID:   600123,
				CreatedAt: ts("2025-05-01T10:00:00Z"),
				UpdatedAt: ts("2025-05-03T10:00:00Z"),
				Price:     decimal.RequireFromString("5500.00"),
				Voucher:   decimal.RequireFromString("250.00"),
				Statuses:  tt.status,
			}

			order, err := adapter.toUnifiedOrder(raw)
			require.NoError(t, err)

			assert.Equal(t, "600123", order.OrderID)
			assert.Equal(t, tt.wantPayment, order.PaymentStatus)
			assert.Equal(t, tt.wantFulfillment, order.FulfillmentStatus)
			assert.Equal(t, "PHP", order.CurrencyCode)
			assert.True(t, order.DiscountAmount.Equal(decimal.RequireFromString("250.00")))
			if tt.wantCancelled {
				require.NotNil(t, order.CancelledAt)
				assert.Equal(t, ts("2025-05-03T10:00:00Z").UTC(), *order.CancelledAt)
			} else {
				assert.Nil(t, order.CancelledAt)
			}
		})
	}

	t.Run("php converts near expected usd", func(t *testing.T) {
		raw := &LazadaOrder{
			OrderID:   600124,
			CreatedAt: ts("2025-05-01T10:00:00Z"),
			Price:     decimal.RequireFromString("5500.00"),
			Statuses:  lazadaStatusDelivered,
		}
		order, err := adapter.toUnifiedOrder(raw)
		require.NoError(t, err)

		order.Derive()
		assert.True(t, order.TotalAmountUSD.Equal(decimal.RequireFromString("99.00")),
			"got %s", order.TotalAmountUSD)
	})
}

func TestLazadaAdapter_ToUnifiedOrderItem(t *testing.T) {
	adapter := NewLazadaAdapter(nil)

	item := adapter.toUnifiedOrderItem(&LazadaOrderItem{
		OrderItemID:   800555,
		OrderID:       600123,
		ProductID:     12,
		Name:          "Bluetooth Speaker",
		SKU:           str("BS-12"),
		PaidPrice:     decimal.RequireFromString("1899.00"),
		VoucherAmount: decimal.RequireFromString("100.00"),
	})

	assert.Equal(t, 1, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(item.LineTotal))
	assert.True(t, item.DiscountAmount.Equal(decimal.RequireFromString("100.00")))
}

// ---------------------------------------------------------------------------
// Shopee Tests
// ---------------------------------------------------------------------------

func TestShopeeAdapter_ToUnifiedOrder(t *testing.T) {
	adapter := NewShopeeAdapter(nil)

	createEpoch := int64(1746093600) // 2025-05-01T10:00:00Z
	updateEpoch := int64(1746266400) // 2025-05-03T10:00:00Z

	tests := []struct {
		name        string
		status      string
		wantPayment string
	}{
		{"completed is paid", shopeeStatusCompleted, unified.PaymentStatusPaid},
		{"shipped is paid", shopeeStatusShipped, unified.PaymentStatusPaid},
		{"ready to ship is paid", shopeeStatusReadyToShip, unified.PaymentStatusPaid},
		{"unpaid stays pending", shopeeStatusUnpaid, unified.PaymentStatusPending},
		{"unrecognized is unknown", "IN_REVIEW", unified.PaymentStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &ShopeeOrder{
				OrderSN:     "250501ABCDEF",
				CreateTime:  createEpoch,
				UpdateTime:  updateEpoch,
				TotalAmount: decimal.RequireFromString("1200.00"),
				Currency:    "PHP",
				OrderStatus: tt.status,
			}

			order, err := adapter.toUnifiedOrder(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPayment, order.PaymentStatus)
			assert.Equal(t, time.Unix(createEpoch, 0).UTC(), order.CreatedAt)
		})
	}

	t.Run("completed synthesizes closed_at", func(t *testing.T) {
		order, err := adapter.toUnifiedOrder(&ShopeeOrder{
			OrderSN:     "250501ABCDEF",
			CreateTime:  createEpoch,
			UpdateTime:  updateEpoch,
			OrderStatus: shopeeStatusCompleted,
		})
		require.NoError(t, err)
		require.NotNil(t, order.ClosedAt)
		assert.Equal(t, time.Unix(updateEpoch, 0).UTC(), *order.ClosedAt)
	})

	t.Run("cancelled synthesizes cancelled_at", func(t *testing.T) {
		order, err := adapter.toUnifiedOrder(&ShopeeOrder{
			OrderSN:     "250501ABCDEF",
			CreateTime:  createEpoch,
			UpdateTime:  updateEpoch,
			OrderStatus: shopeeStatusCancelled,
		})
		require.NoError(t, err)
		require.NotNil(t, order.CancelledAt)
		assert.Equal(t, time.Unix(updateEpoch, 0).UTC(), *order.CancelledAt)
	})

	t.Run("pay_time maps to processed_at", func(t *testing.T) {
		payEpoch := createEpoch + 120
		order, err := adapter.toUnifiedOrder(&ShopeeOrder{
			OrderSN:     "250501ABCDEF",
			CreateTime:  createEpoch,
			PayTime:     payEpoch,
			OrderStatus: shopeeStatusShipped,
		})
		require.NoError(t, err)
		require.NotNil(t, order.ProcessedAt)
		assert.Equal(t, time.Unix(payEpoch, 0).UTC(), *order.ProcessedAt)
	})

	t.Run("zero create_time is rejected", func(t *testing.T) {
		_, err := adapter.toUnifiedOrder(&ShopeeOrder{OrderSN: "250501ABCDEF"})
		assert.ErrorIs(t, err, unified.ErrMissingField)
	})

	t.Run("username becomes synthetic customer id", func(t *testing.T) {
		order, err := adapter.toUnifiedOrder(&ShopeeOrder{
			OrderSN:       "250501ABCDEF",
			CreateTime:    createEpoch,
			BuyerUsername: "juan_dc",
			OrderStatus:   shopeeStatusShipped,
		})
		require.NoError(t, err)
		require.NotNil(t, order.CustomerID)
		assert.Equal(t, "juan_dc", *order.CustomerID)
	})
}

func TestShopeeAdapter_ToUnifiedOrderItem(t *testing.T) {
	adapter := NewShopeeAdapter(nil)

	t.Run("discount is price spread times quantity", func(t *testing.T) {
		item := adapter.toUnifiedOrderItem(&ShopeeOrderItem{
			ID:                     42,
			OrderSN:                "250501ABCDEF",
			ItemID:                 700,
			ItemName:               "Phone Case",
			ModelQuantityPurchased: 2,
			ModelOriginalPrice:     decimal.RequireFromString("300.00"),
			ModelDiscountedPrice:   decimal.RequireFromString("250.00"),
		})

		assert.Equal(t, 2, item.Quantity)
		assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("500.00")))
		assert.True(t, item.DiscountAmount.Equal(decimal.RequireFromString("100.00")))
	})

	t.Run("discount never goes negative", func(t *testing.T) {
		item := adapter.toUnifiedOrderItem(&ShopeeOrderItem{
			ID:                     43,
			OrderSN:                "250501ABCDEF",
			ItemID:                 700,
			ModelQuantityPurchased: 1,
			ModelOriginalPrice:     decimal.RequireFromString("200.00"),
			ModelDiscountedPrice:   decimal.RequireFromString("250.00"),
		})
		assert.True(t, item.DiscountAmount.IsZero())
	})
}

// ---------------------------------------------------------------------------
// Money Decoding Tests
// ---------------------------------------------------------------------------

func TestDecodeMoney(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantAmount   string
		wantCurrency string
	}{
		{"valid", `{"Amount": "89.99", "CurrencyCode": "USD"}`, "89.99", "USD"},
		{"empty payload", ``, "0", ""},
		{"null payload", `null`, "0", ""},
		{"malformed", `{broken`, "0", ""},
		{"missing amount", `{"CurrencyCode": "SGD"}`, "0", "SGD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency := decodeMoney(json.RawMessage(tt.raw))
			assert.True(t, amount.Equal(decimal.RequireFromString(tt.wantAmount)))
			assert.Equal(t, tt.wantCurrency, currency)
		})
	}
}

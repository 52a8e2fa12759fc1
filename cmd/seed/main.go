// Command seed fills the raw marketplace tables with demo data so a rebuild
// has something to aggregate. Volumes and status mixes approximate a real
// store: mostly paid and fulfilled orders with a small cancelled tail, spread
// over the trailing window across all four platforms.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kpiboard/backend/internal/infrastructure/config"
	"github.com/kpiboard/backend/internal/infrastructure/logger"
	"github.com/kpiboard/backend/internal/infrastructure/marketplace"
	"github.com/kpiboard/backend/internal/infrastructure/persistence"
)

const insertBatchSize = 500

type options struct {
	orders   int
	products int
	days     int
	seed     int64
	truncate bool
}

func main() {
	var opts options
	flag.IntVar(&opts.orders, "orders", 1000, "Orders to generate per platform")
	flag.IntVar(&opts.products, "products", 100, "Size of the shared product catalog")
	flag.IntVar(&opts.days, "days", 180, "Spread orders over the trailing N days")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "Random seed (fixed seed gives reproducible data)")
	flag.BoolVar(&opts.truncate, "truncate", true, "Delete existing raw rows first")
	flag.Parse()

	if opts.products < 1 {
		opts.products = 1
	}
	if opts.days < 1 {
		opts.days = 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	s := newSeeder(opts, log)
	if err := s.run(db.DB); err != nil {
		log.Fatal("Seed failed", zap.Error(err))
	}

	log.Info("Seed complete",
		zap.Int("orders_per_platform", opts.orders),
		zap.Int("products", opts.products),
		zap.Int("days", opts.days),
		zap.Int64("seed", opts.seed))
}

// product is one entry of the shared demo catalog used by every platform.
type product struct {
	ID       int64
	Title    string
	SKU      string
	PriceUSD decimal.Decimal
}

type seeder struct {
	opts    options
	rng     *rand.Rand
	log     *zap.Logger
	catalog []product
	now     time.Time
}

func newSeeder(opts options, log *zap.Logger) *seeder {
	return &seeder{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.seed)),
		log:  log,
		now:  time.Now().UTC(),
	}
}

func (s *seeder) run(db *gorm.DB) error {
	s.buildCatalog()

	return db.Transaction(func(tx *gorm.DB) error {
		if s.opts.truncate {
			if err := s.truncateRaw(tx); err != nil {
				return err
			}
		}
		if s.opts.orders <= 0 {
			return nil
		}
		for _, platform := range []struct {
			name string
			fn   func(*gorm.DB) error
		}{
			{"shopify", s.seedShopify},
			{"amazon", s.seedAmazon},
			{"lazada", s.seedLazada},
			{"shopee", s.seedShopee},
		} {
			if err := platform.fn(tx); err != nil {
				return fmt.Errorf("%s: %w", platform.name, err)
			}
			s.log.Info("Seeded platform",
				zap.String("platform", platform.name),
				zap.Int("orders", s.opts.orders))
		}
		return nil
	})
}

func (s *seeder) truncateRaw(tx *gorm.DB) error {
	tables := []string{
		"raw_shopify_order_line_items", "raw_shopify_orders",
		"raw_amazon_order_items", "raw_amazon_orders",
		"raw_lazada_order_items", "raw_lazada_orders",
		"raw_shopee_order_items", "raw_shopee_orders",
	}
	for _, table := range tables {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

var productAdjectives = []string{
	"Wireless", "Portable", "Ergonomic", "Compact", "Premium",
	"Foldable", "Rechargeable", "Smart", "Classic", "Heavy-Duty",
}

var productNouns = []string{
	"Mouse", "Keyboard", "Desk Lamp", "Water Bottle", "Backpack",
	"Headphones", "Phone Stand", "Power Bank", "Notebook", "USB Hub",
}

func (s *seeder) buildCatalog() {
	s.catalog = make([]product, s.opts.products)
	for i := range s.catalog {
		adjective := productAdjectives[s.rng.Intn(len(productAdjectives))]
		noun := productNouns[s.rng.Intn(len(productNouns))]
		s.catalog[i] = product{
			ID:       int64(2000000 + i),
			Title:    fmt.Sprintf("%s %s %d", adjective, noun, i+1),
			SKU:      fmt.Sprintf("SKU-%05d", i+1),
			PriceUSD: s.price(10, 500),
		}
	}
}

// randomDate picks a moment within the trailing window.
func (s *seeder) randomDate() time.Time {
	back := time.Duration(s.rng.Intn(s.opts.days*24*60)) * time.Minute
	return s.now.Add(-back)
}

func (s *seeder) price(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + s.rng.Float64()*(max-min)).Round(2)
}

func (s *seeder) pick() product {
	return s.catalog[s.rng.Intn(len(s.catalog))]
}

// weighted returns choices[i] with probability weights[i] (weights sum to 1).
func (s *seeder) weighted(choices []string, weights []float64) string {
	r := s.rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}

// phpRate converts catalog USD prices into native PHP amounts for the two
// Southeast Asian platforms.
var phpRate = decimal.NewFromInt(55)

func (s *seeder) seedShopify(tx *gorm.DB) error {
	statuses := []string{"paid", "pending", "refunded", "partially_refunded"}
	statusWeights := []float64{0.8, 0.1, 0.05, 0.05}
	fulfillments := []string{"fulfilled", "partial", "unfulfilled", ""}
	fulfillmentWeights := []float64{0.7, 0.1, 0.15, 0.05}

	orders := make([]marketplace.ShopifyOrder, 0, s.opts.orders)
	var lineItems []marketplace.ShopifyLineItem

	for i := 0; i < s.opts.orders; i++ {
		orderID := int64(3000000 + i)
		orderDate := s.randomDate()
		customerID := int64(1000000 + i%20)
		numItems := 1 + s.rng.Intn(5)

		subtotal := decimal.Zero
		for j := 0; j < numItems; j++ {
			p := s.pick()
			qty := 1 + s.rng.Intn(3)
			subtotal = subtotal.Add(p.PriceUSD.Mul(decimal.NewFromInt(int64(qty))))
			lineItems = append(lineItems, marketplace.ShopifyLineItem{
				ID:               orderID*100 + int64(j),
				OrderID:          orderID,
				ProductID:        &p.ID,
				VariantID:        &p.ID,
				Title:            p.Title,
				SKU:              strPtr(p.SKU),
				Quantity:         qty,
				Price:            p.PriceUSD,
				TotalDiscount:    decimal.Zero,
				Taxable:          true,
				RequiresShipping: true,
			})
		}

		discount := subtotal.Mul(decimal.NewFromFloat(s.rng.Float64() * 0.15)).Round(2)
		tax := subtotal.Sub(discount).Mul(decimal.NewFromFloat(0.08)).Round(2)
		total := subtotal.Sub(discount).Add(tax).Round(2)

		financial := s.weighted(statuses, statusWeights)
		fulfillment := s.weighted(fulfillments, fulfillmentWeights)

		order := marketplace.ShopifyOrder{
			ID:              orderID,
			CreatedAt:       &orderDate,
			UpdatedAt:       &orderDate,
			ProcessedAt:     &orderDate,
			CustomerID:      &customerID,
			Email:           fmt.Sprintf("buyer%d@example.com", i),
			TotalPrice:      total,
			SubtotalPrice:   subtotal.Round(2),
			TotalTax:        tax,
			TotalDiscounts:  discount,
			Currency:        "USD",
			FinancialStatus: strPtr(financial),
			LineItemsCount:  numItems,
			SourceName:      "web",
		}
		if fulfillment != "" {
			order.FulfillmentStatus = strPtr(fulfillment)
		}
		if financial == "refunded" {
			cancelled := orderDate.Add(time.Duration(1+s.rng.Intn(48)) * time.Hour)
			order.CancelledAt = &cancelled
			order.CancelReason = strPtr("customer")
		}
		if fulfillment == "fulfilled" {
			closed := orderDate.AddDate(0, 0, 1+s.rng.Intn(7))
			order.ClosedAt = &closed
		}
		orders = append(orders, order)
	}

	if err := tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
		return err
	}
	return tx.CreateInBatches(lineItems, insertBatchSize).Error
}

func (s *seeder) seedAmazon(tx *gorm.DB) error {
	statuses := []string{"Shipped", "Pending", "Canceled", "Unshipped"}
	statusWeights := []float64{0.75, 0.1, 0.05, 0.1}

	orders := make([]marketplace.AmazonOrder, 0, s.opts.orders)
	var items []marketplace.AmazonOrderItem

	for i := 0; i < s.opts.orders; i++ {
		orderID := fmt.Sprintf("AMZ-%d", 4000000+i)
		orderDate := s.randomDate()
		numItems := 1 + s.rng.Intn(4)
		status := s.weighted(statuses, statusWeights)

		total := decimal.Zero
		for j := 0; j < numItems; j++ {
			p := s.pick()
			qty := 1 + s.rng.Intn(2)
			lineTotal := p.PriceUSD.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(lineTotal)

			shipped := 0
			if status == "Shipped" {
				shipped = qty
			}
			items = append(items, marketplace.AmazonOrderItem{
				OrderItemID:       fmt.Sprintf("%s-%d", orderID, j),
				AmazonOrderID:     orderID,
				ASIN:              fmt.Sprintf("ASIN%d", p.ID),
				Title:             p.Title,
				SellerSKU:         strPtr(p.SKU),
				QuantityOrdered:   qty,
				QuantityShipped:   shipped,
				ItemPrice:         moneyJSON(lineTotal, "USD"),
				PromotionDiscount: moneyJSON(decimal.Zero, "USD"),
			})
		}

		shippedCount := 0
		if status == "Shipped" {
			shippedCount = numItems
		}
		orders = append(orders, marketplace.AmazonOrder{
			AmazonOrderID:          orderID,
			PurchaseDate:           &orderDate,
			LastUpdateDate:         &orderDate,
			BuyerEmail:             strPtr(fmt.Sprintf("buyer%d@amazon.example", i)),
			OrderTotal:             moneyJSON(total.Round(2), "USD"),
			PaymentMethod:          "Credit Card",
			OrderStatus:            status,
			NumberOfItemsShipped:   shippedCount,
			NumberOfItemsUnshipped: numItems - shippedCount,
			SalesChannel:           "Amazon.com",
		})
	}

	if err := tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
		return err
	}
	return tx.CreateInBatches(items, insertBatchSize).Error
}

func (s *seeder) seedLazada(tx *gorm.DB) error {
	statuses := []string{"delivered", "shipped", "pending", "canceled"}
	statusWeights := []float64{0.7, 0.15, 0.1, 0.05}

	orders := make([]marketplace.LazadaOrder, 0, s.opts.orders)
	var items []marketplace.LazadaOrderItem

	for i := 0; i < s.opts.orders; i++ {
		orderID := int64(5000000 + i)
		orderDate := s.randomDate()
		customerID := int64(1000000 + i%20)
		numItems := 1 + s.rng.Intn(4)
		status := s.weighted(statuses, statusWeights)

		total := decimal.Zero
		for j := 0; j < numItems; j++ {
			p := s.pick()
			pricePHP := p.PriceUSD.Mul(phpRate).Round(2)
			total = total.Add(pricePHP)
			items = append(items, marketplace.LazadaOrderItem{
				OrderItemID:   orderID*100 + int64(j),
				OrderID:       orderID,
				ProductID:     p.ID,
				Name:          p.Title,
				SKU:           strPtr(p.SKU),
				PaidPrice:     pricePHP,
				VoucherAmount: decimal.Zero,
				Status:        status,
			})
		}

		orders = append(orders, marketplace.LazadaOrder{
			OrderID:       orderID,
			CreatedAt:     &orderDate,
			UpdatedAt:     &orderDate,
			CustomerID:    &customerID,
			BuyerEmail:    strPtr(fmt.Sprintf("buyer%d@lazada.example", i)),
			Price:         total.Round(2),
			ItemsCount:    numItems,
			Voucher:       s.price(0, 50),
			PaymentMethod: "COD",
			Statuses:      status,
		})
	}

	if err := tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
		return err
	}
	return tx.CreateInBatches(items, insertBatchSize).Error
}

func (s *seeder) seedShopee(tx *gorm.DB) error {
	statuses := []string{"COMPLETED", "SHIPPED", "READY_TO_SHIP", "UNPAID", "CANCELLED"}
	statusWeights := []float64{0.65, 0.15, 0.1, 0.05, 0.05}

	orders := make([]marketplace.ShopeeOrder, 0, s.opts.orders)
	var items []marketplace.ShopeeOrderItem

	for i := 0; i < s.opts.orders; i++ {
		orderSN := fmt.Sprintf("SHP%d", 6000000+i)
		orderDate := s.randomDate()
		buyerID := int64(1000000 + i%20)
		numItems := 1 + s.rng.Intn(4)
		status := s.weighted(statuses, statusWeights)

		total := decimal.Zero
		for j := 0; j < numItems; j++ {
			p := s.pick()
			pricePHP := p.PriceUSD.Mul(phpRate).Round(2)
			qty := 1 + s.rng.Intn(2)
			total = total.Add(pricePHP.Mul(decimal.NewFromInt(int64(qty))))

			modelID := p.ID * 10
			items = append(items, marketplace.ShopeeOrderItem{
				OrderSN:                orderSN,
				ItemID:                 p.ID,
				ItemName:               p.Title,
				ModelID:                &modelID,
				ModelName:              strPtr("Default"),
				ModelSKU:               strPtr(p.SKU),
				ModelQuantityPurchased: qty,
				ModelOriginalPrice:     pricePHP.Mul(decimal.NewFromFloat(1.1)).Round(2),
				ModelDiscountedPrice:   pricePHP,
			})
		}

		shippingFee := s.price(30, 100)
		order := marketplace.ShopeeOrder{
			OrderSN:              orderSN,
			CreateTime:           orderDate.Unix(),
			UpdateTime:           orderDate.Unix(),
			BuyerUserID:          &buyerID,
			BuyerUsername:        fmt.Sprintf("buyer%d", i),
			TotalAmount:          total.Add(shippingFee).Round(2),
			EstimatedShippingFee: shippingFee,
			VoucherAbsorbed:      s.price(0, 100),
			Currency:             "PHP",
			OrderStatus:          status,
		}
		if status != "UNPAID" {
			order.PayTime = orderDate.Unix()
		}
		if status == "CANCELLED" {
			order.CancelReason = strPtr("Buyer request")
		}
		orders = append(orders, order)
	}

	if err := tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
		return err
	}
	return tx.CreateInBatches(items, insertBatchSize).Error
}

// moneyJSON renders the {Amount, CurrencyCode} object the marketplace feed
// uses for money columns.
func moneyJSON(amount decimal.Decimal, currency string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{
		"Amount":       amount.StringFixed(2),
		"CurrencyCode": currency,
	})
	return raw
}

func strPtr(s string) *string {
	return &s
}

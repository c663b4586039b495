// Command seed-db populates the database with demo products, one offer of
// every type, a few coupons, and a default API key. Safe to run repeatedly:
// every write is an upsert.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promokart/internal/domain/auth"
	"github.com/xenking/promokart/internal/domain/coupon"
	"github.com/xenking/promokart/internal/domain/discount"
	"github.com/xenking/promokart/internal/domain/offer"
	"github.com/xenking/promokart/internal/domain/product"
	"github.com/xenking/promokart/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedOffers(ctx, repository.NewOfferRepository(pool)); err != nil {
		return errors.Wrap(err, "seed offers")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		err := repo.Upsert(ctx, &product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Stock:    p.Stock,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedOffers creates one demo offer of every type, all sharing a one-year
// validity window.
func seedOffers(ctx context.Context, repo *repository.OfferRepository) error {
	slog.Info("seeding demo offers")

	offers := demoOffers(time.Now().UTC().Truncate(time.Hour))
	for i := range offers {
		if err := repo.Upsert(ctx, &offers[i]); err != nil {
			return errors.Wrapf(err, "upsert offer %s", offers[i].ID)
		}
		slog.Info("upserted offer", slog.String("id", offers[i].ID), slog.String("title", offers[i].Title))
	}

	return nil
}

// demoOffers returns one offer of every supported type, valid for a year
// starting at now.
func demoOffers(now time.Time) []offer.Offer {
	until := now.AddDate(1, 0, 0)
	saleEnd := now.AddDate(0, 0, 7)

	return []offer.Offer{
		{
			ID:    "flash-espresso",
			Title: "Espresso Flash Sale",
			Type:  offer.TypeFlashSale,
			Discount: discount.Spec{
				Type:  discount.Percentage,
				Value: decimal.NewFromInt(20),
			},
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   50,
			Spec: offer.FlashSaleSpec{
				Start:      &now,
				End:        &saleEnd,
				ProductIDs: []string{"espresso-machine"},
			},
		},
		{
			ID:    "bogo-mugs",
			Title: "Buy 2 Mugs, Get 1 Free",
			Type:  offer.TypeBOGO,
			Discount: discount.Spec{
				Type:  discount.Percentage,
				Value: decimal.NewFromInt(100),
			},
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   40,
			Spec: offer.BOGOSpec{
				ProductID:   "ceramic-mug",
				BuyQuantity: 2,
				GetQuantity: 1,
			},
		},
		{
			ID:    "beans-10",
			Title: "10% Off All Beans",
			Type:  offer.TypeCategory,
			Discount: discount.Spec{
				Type:      discount.Percentage,
				Value:     decimal.NewFromInt(10),
				MaxAmount: decimal.NewFromInt(50),
			},
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   30,
			Spec: offer.CategorySpec{
				Categories: []string{"beans"},
			},
		},
		{
			ID:    "frother-5-off",
			Title: "$5 Off Milk Frother",
			Type:  offer.TypeProduct,
			Discount: discount.Spec{
				Type:  discount.Fixed,
				Value: decimal.NewFromInt(5),
			},
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   20,
			Spec: offer.ProductSpec{
				ProductIDs: []string{"milk-frother"},
			},
		},
		{
			ID:         "barista-bundle",
			Title:      "Home Barista Bundle",
			Type:       offer.TypeBundle,
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   60,
			Spec: offer.BundleSpec{
				Items: []offer.BundleItem{
					{ProductID: "espresso-machine", Quantity: 1},
					{ProductID: "coffee-grinder", Quantity: 1},
					{ProductID: "arabica-beans-1kg", Quantity: 2},
				},
				Price: decimal.RequireFromString("349.00"),
			},
		},
		{
			ID:         "ship-free-50",
			Title:      "Free Shipping Over $50",
			Type:       offer.TypeFreeShipping,
			ValidFrom:  now,
			ValidUntil: until,
			Active:     true,
			Priority:   10,
			Spec: offer.FreeShippingSpec{
				MinAmount: decimal.NewFromInt(50),
			},
		},
	}
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	slog.Info("seeding demo coupons")

	coupons := demoCoupons(time.Now().UTC().Truncate(time.Hour))
	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", coupons[i].Code)
		}
		slog.Info("upserted coupon", slog.String("code", coupons[i].Code))
	}

	return nil
}

// demoCoupons returns the demo coupon set, valid for a year starting at now.
func demoCoupons(now time.Time) []coupon.Coupon {
	until := now.AddDate(1, 0, 0)

	return []coupon.Coupon{
		{
			ID:   "welcome10",
			Code: "WELCOME10",
			Discount: discount.Spec{
				Type:  discount.Percentage,
				Value: decimal.NewFromInt(10),
			},
			ValidFrom:         now,
			ValidUntil:        until,
			UsageLimitPerUser: 1,
			AppliesTo:         coupon.ScopeAll,
			Active:            true,
		},
		{
			ID:   "beans5",
			Code: "BEANS5",
			Discount: discount.Spec{
				Type:  discount.Fixed,
				Value: decimal.NewFromInt(5),
			},
			MinPurchase: decimal.NewFromInt(30),
			ValidFrom:   now,
			ValidUntil:  until,
			AppliesTo:   coupon.ScopeCategory,
			Categories:  []string{"beans"},
			Active:      true,
		},
		{
			ID:   "vip25",
			Code: "VIP25",
			Discount: discount.Spec{
				Type:      discount.Percentage,
				Value:     decimal.NewFromInt(25),
				MaxAmount: decimal.NewFromInt(100),
			},
			MinPurchase: decimal.NewFromInt(100),
			ValidFrom:   now,
			ValidUntil:  until,
			UsageLimit:  500,
			AppliesTo:   coupon.ScopeAll,
			Active:      true,
		},
	}
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	err := repo.Upsert(ctx, &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default test key",
		Scopes:  []string{"create_order"},
	})
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}

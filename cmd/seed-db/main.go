// Command seed-db loads the product catalog from a JSON file and provisions
// the initial admin account with its API key.
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

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/atelier-api/internal/domain/auth"
	"github.com/xenking/atelier-api/internal/domain/product"
	"github.com/xenking/atelier-api/internal/domain/user"
	"github.com/xenking/atelier-api/internal/repository"
)

type productJSON struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Category    string                     `json:"category"`
	Pricing     map[string]decimal.Decimal `json:"pricing"`
	Image       struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminEmail   string
		adminName    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "admin@atelier.local", "email for the seeded admin account")
	flag.StringVar(&adminName, "admin-name", "Administrator", "name for the seeded admin account")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or ATELIER_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ATELIER_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ATELIER_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ATELIER_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ATELIER_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminName, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminName, apiKey, pepper string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAdmin(ctx, pool, adminEmail, adminName, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var products []productJSON
	if err := json.Unmarshal(raw, &products); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	for _, p := range products {
		pricing := make(map[product.Tier]decimal.Decimal, len(p.Pricing))
		for tier, price := range p.Pricing {
			pricing[product.Tier(tier)] = price
		}
		err := repo.Upsert(ctx, &product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Pricing:     pricing,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		})
		if err != nil {
			return err
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, name, apiKey, pepper string) error {
	users := repository.NewUserRepository(pool)
	apikeys := repository.NewAPIKeyRepository(pool)

	userID, err := users.Upsert(ctx, &user.User{
		ID:    uuid.New().String(),
		Name:  name,
		Email: email,
		Role:  string(auth.RoleAdmin),
	})
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))

	err = apikeys.Upsert(ctx, &auth.APIKeyInfo{
		ID:      uuid.New().String(),
		KeyHash: hex.EncodeToString(mac.Sum(nil)),
		UserID:  userID,
		Name:    "seed-admin",
	})
	if err != nil {
		return err
	}

	slog.Info("admin seeded", slog.String("email", email))
	return nil
}

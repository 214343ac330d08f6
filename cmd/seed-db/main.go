// Command seed-db loads the catalog seed into PostgreSQL and optionally
// registers an API key. Without --products-file the embedded default catalog
// is used; files ending in .gz are decompressed on the fly.
package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aurashop/storefront/db"
	"github.com/aurashop/storefront/internal/storage/postgres"
)

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
}

type seedFile struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
		workers      int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to seed JSON file, .gz supported (default: embedded catalog)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.IntVar(&workers, "workers", 4, "concurrent product upserts")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper, workers); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string, workers int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seed, err := loadSeed(productsFile)
	if err != nil {
		return errors.Wrap(err, "load seed")
	}

	if err := seedCategories(ctx, pool, seed.Categories); err != nil {
		return errors.Wrap(err, "seed categories")
	}
	if err := seedProducts(ctx, pool, seed.Products, workers); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

// loadSeed reads the seed file, falling back to the embedded catalog when no
// path is given.
func loadSeed(path string) (*seedFile, error) {
	var r io.Reader
	if path == "" {
		slog.Info("using embedded catalog seed")
		r = bytes.NewReader(db.SeedProducts)
	} else {
		slog.Info("reading seed file", slog.String("path", path))
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open seed file")
		}
		defer f.Close()
		r = f

		if strings.HasSuffix(path, ".gz") {
			gz, err := pgzip.NewReader(f)
			if err != nil {
				return nil, errors.Wrap(err, "open gzip reader")
			}
			defer gz.Close()
			r = gz
		}
	}

	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}
	return &seed, nil
}

const upsertCategorySQL = `
INSERT INTO categories (id, name, slug)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug`

func seedCategories(ctx context.Context, pool *pgxpool.Pool, categories []categoryJSON) error {
	slog.Info("upserting categories", slog.Int("count", len(categories)))

	for _, c := range categories {
		if _, err := pool.Exec(ctx, upsertCategorySQL, c.ID, c.Name, c.Slug); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}
	}
	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, slug, description, price, category_id, image_url, stock, available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    name        = EXCLUDED.name,
    slug        = EXCLUDED.slug,
    description = EXCLUDED.description,
    price       = EXCLUDED.price,
    category_id = EXCLUDED.category_id,
    image_url   = EXCLUDED.image_url,
    stock       = EXCLUDED.stock,
    available   = EXCLUDED.available`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON, workers int) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range products {
		g.Go(func() error {
			if _, err := pool.Exec(ctx, upsertProductSQL,
				p.ID, p.Name, p.Slug, p.Description, p.Price,
				p.Category, p.Image, p.Stock, p.Available,
			); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL, "default", keyHash, "Default storefront key"); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	return nil
}

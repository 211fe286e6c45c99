// Command seed-db loads a product catalog into the database and provisions a
// demo user with a bearer token, so a fresh deployment is immediately usable.
package main

import (
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
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shopcart-api/internal/domain/auth"
	"github.com/xenking/shopcart-api/internal/domain/product"
	"github.com/xenking/shopcart-api/internal/repository"
)

// seedWorkers bounds concurrent product upserts.
const seedWorkers = 4

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		userEmail    string
		token        string
		tokenPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.gz supported)")
	flag.StringVar(&userEmail, "user-email", "demo@shopcart.local", "email of the demo user to seed")
	flag.StringVar(&token, "token", "", "bearer token to seed (or CART_SEED_TOKEN env)")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for token hashing (or CART_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if token == "" {
		token = os.Getenv("CART_SEED_TOKEN")
	}
	if token == "" {
		slog.Error("token is required: set --token or CART_SEED_TOKEN")
		os.Exit(1)
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("CART_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, userEmail, token, tokenPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, userEmail, token, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrapf(err, "load products from %s", productsFile)
	}
	slog.Info("loaded products", slog.Int("count", len(products)))

	if err := seedProducts(ctx, pool, products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedUserWithToken(ctx, pool, userEmail, token, pepper); err != nil {
		return errors.Wrap(err, "seed user")
	}

	return nil
}

// loadProducts reads the product catalog from a JSON file, transparently
// decompressing .gz dumps.
func loadProducts(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer gz.Close()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// seedProducts upserts the catalog with a bounded worker pool. Upserts are
// independent rows, so they can run concurrently.
func seedProducts(ctx context.Context, db repository.DB, products []productJSON) error {
	repo := repository.NewProductRepository(db)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, pj := range products {
		g.Go(func() error {
			id := pj.ID
			if id == "" {
				id = uuid.New().String()
			}
			return repo.Upsert(ctx, &product.Product{
				ID:          id,
				Name:        pj.Name,
				Description: pj.Description,
				Price:       pj.Price,
				Stock:       pj.Stock,
			})
		})
	}
	return g.Wait()
}

// seedUserWithToken creates the demo user and stores the HMAC hash of its
// bearer token. Only the hash is persisted.
func seedUserWithToken(ctx context.Context, db repository.DB, email, token, pepper string) error {
	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)

	userID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("user:"+email)).String()
	if err := users.Upsert(ctx, userID, email, "Demo User"); err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))

	err := tokens.Insert(ctx, &auth.TokenInfo{
		ID:        uuid.New().String(),
		TokenHash: hex.EncodeToString(mac.Sum(nil)),
		UserID:    userID,
		Name:      "seed",
	})
	if err != nil {
		return err
	}

	slog.Info("seeded demo user", slog.String("email", email))
	return nil
}

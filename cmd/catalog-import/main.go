// Command catalog-import loads product catalogs into the database. Sources
// are CSV files (optionally gzip-compressed) or a remote spreadsheet export
// URL. Files are parsed concurrently; a bloom filter pre-screens duplicate
// product ids across sources before the exact check.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/mastecno/storefront/internal/catalog"
	"github.com/mastecno/storefront/internal/domain/product"
	"github.com/mastecno/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	fetchTimeout  = 30 * time.Second
)

func main() {
	var (
		feedURL     string
		databaseURL string
	)

	flag.StringVar(&feedURL, "feed-url", "", "catalog CSV export URL (fetched in addition to file arguments)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if feedURL == "" && flag.NArg() == 0 {
		slog.Error("nothing to import: pass --feed-url or CSV file paths")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedURL, flag.Args(), databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, feedURL string, files []string, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := collect(ctx, feedURL, files)
	if err != nil {
		return err
	}
	slog.Info("catalog parsed", slog.Int("products", len(products)))

	repo := postgres.NewProductRepository(pool)
	imported := 0
	for i := range products {
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			return errors.Wrapf(err, "upsert product %s", products[i].ID)
		}
		imported++
	}
	slog.Info("catalog imported", slog.Int("products", imported))
	return nil
}

// collect parses every source concurrently and merges the results, keeping
// the first occurrence of each product id.
func collect(ctx context.Context, feedURL string, files []string) ([]product.Product, error) {
	var (
		mu      sync.Mutex
		batches [][]product.Product
	)
	add := func(batch []product.Product) {
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	if feedURL != "" {
		g.Go(func() error {
			client := &http.Client{Timeout: fetchTimeout}
			batch, err := catalog.Fetch(ctx, client, feedURL)
			if err != nil {
				return errors.Wrap(err, "fetch feed")
			}
			slog.Info("feed fetched", slog.String("url", feedURL), slog.Int("products", len(batch)))
			add(batch)
			return nil
		})
	}

	for _, path := range files {
		g.Go(func() error {
			batch, err := readFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			slog.Info("file parsed", slog.String("path", path), slog.Int("products", len(batch)))
			add(batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dedupe(batches), nil
}

func readFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer zr.Close()
		return catalog.ReadProducts(zr)
	}
	return catalog.ReadProducts(f)
}

// dedupe merges batches in order, first id wins. The bloom filter answers
// "definitely new" cheaply; only probable duplicates hit the exact set.
func dedupe(batches [][]product.Product) []product.Product {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seen := make(map[string]struct{})
	var out []product.Product
	dupes := 0

	for _, batch := range batches {
		for _, p := range batch {
			if filter.TestString(p.ID) {
				if _, ok := seen[p.ID]; ok {
					dupes++
					continue
				}
			}
			filter.AddString(p.ID)
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	if dupes > 0 {
		slog.Info("duplicate product ids skipped", slog.Int("count", dupes))
	}
	return out
}

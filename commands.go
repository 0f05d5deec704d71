package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"price-recommender/api"
	"price-recommender/cache"
	"price-recommender/scraper"
	"price-recommender/services"
	"price-recommender/storage"
	"price-recommender/utils"
)

func newCollectCmd(a *app) *cobra.Command {
	var pages, batchSize int
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Scrape catalog pages into the staging table",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyCollectFlags(a, cmd, pages, batchSize)
			return a.withDB(func(db *storage.DB) error {
				return a.collect(cmd.Context(), db)
			})
		},
	}
	addCollectFlags(cmd, &pages, &batchSize)
	return cmd
}

func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Append staged listings to the reference table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				return a.normalize(cmd.Context(), db)
			})
		},
	}
}

func newCleanseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanse",
		Short: "Rebuild the cleaned product table from the reference table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				return a.cleanse(cmd.Context(), db)
			})
		},
	}
}

func newRecommendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Fit per-category models and replace the recommendation table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				return a.recommend(cmd.Context(), db)
			})
		},
	}
}

func newPipelineCmd(a *app) *cobra.Command {
	var pages, batchSize int
	var skipCollect bool
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run collect, normalize, cleanse and recommend in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyCollectFlags(a, cmd, pages, batchSize)
			ctx := cmd.Context()
			return a.withDB(func(db *storage.DB) error {
				start := time.Now()
				stages := []struct {
					name string
					run  func(context.Context, *storage.DB) error
				}{
					{"collect", a.collect},
					{"normalize", a.normalize},
					{"cleanse", a.cleanse},
					{"recommend", a.recommend},
				}
				for _, s := range stages {
					if s.name == "collect" && skipCollect {
						a.logger.Info("[pipeline] Skipping collect, using existing staging rows")
						continue
					}
					a.logger.Info("[pipeline] === %s ===", s.name)
					if err := s.run(ctx, db); err != nil {
						return fmt.Errorf("%s: %w", s.name, err)
					}
				}
				a.logger.Since(start, "[pipeline] All stages complete")
				return nil
			})
		},
	}
	addCollectFlags(cmd, &pages, &batchSize)
	cmd.Flags().BoolVar(&skipCollect, "skip-collect", false, "start from the existing staging table")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTPAddr = addr
			}
			return a.withDB(func(db *storage.DB) error {
				return a.serve(cmd.Context(), db)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}

func addCollectFlags(cmd *cobra.Command, pages, batchSize *int) {
	cmd.Flags().IntVarP(pages, "pages", "p", 2, "catalog pages to scrape")
	cmd.Flags().IntVarP(batchSize, "batch-size", "b", 5, "listings per staging write")
}

func applyCollectFlags(a *app, cmd *cobra.Command, pages, batchSize int) {
	if cmd.Flags().Changed("pages") {
		a.cfg.PagesToScrape = pages
	}
	if cmd.Flags().Changed("batch-size") {
		a.cfg.BatchSize = batchSize
	}
}

// withDB opens the configured database for the duration of fn.
func (a *app) withDB(fn func(db *storage.DB) error) error {
	db, err := storage.Open(a.cfg.DBDriver, a.cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: a.cfg.DBConnectRetries,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Logger:      a.logger,
	})
	if err != nil {
		a.logger.Error("Failed to connect to %s: %v", a.cfg.DBDriver, err)
		if a.cfg.DBDriver == "postgres" {
			a.logger.Error("Make sure Docker is running: docker compose up -d")
		}
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *app) collect(ctx context.Context, db *storage.DB) error {
	profile, err := scraper.LoadProfile(a.cfg.SourceProfile)
	if err != nil {
		return err
	}

	staging, err := storage.NewStagingStore(db, a.cfg.StagingTable)
	if err != nil {
		return err
	}
	if err := staging.CreateIfAbsent(ctx); err != nil {
		return err
	}

	browser, err := scraper.NewBrowser(scraper.BrowserOptions{
		ChromeBin:   a.cfg.ChromeBin,
		Headless:    a.cfg.Headless,
		WaitTime:    a.cfg.WaitTime(),
		PageTimeout: time.Duration(a.cfg.PageTimeoutSec) * time.Second,
		RateLimitMs: a.cfg.RateLimitMs,
	}, a.logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	a.logger.Info("Config: pages: %d | batch size: %d | wait: %dms | platform: %s",
		a.cfg.PagesToScrape, a.cfg.BatchSize, a.cfg.WaitTimeMs, profile.Platform)

	collector := services.NewCollector(browser, profile, staging, a.logger)
	res, err := collector.Collect(ctx, services.CollectorOptions{
		BaseURL:   a.cfg.BaseURL,
		Pages:     a.cfg.PagesToScrape,
		BatchSize: a.cfg.BatchSize,
	})
	if err != nil {
		return err
	}
	if res.Listings == 0 {
		a.logger.Warn("No listings were scraped from %d page(s)", a.cfg.PagesToScrape)
	}
	return nil
}

func (a *app) normalize(ctx context.Context, db *storage.DB) error {
	profile, err := scraper.LoadProfile(a.cfg.SourceProfile)
	if err != nil {
		return err
	}
	staging, err := storage.NewStagingStore(db, a.cfg.StagingTable)
	if err != nil {
		return err
	}
	if err := staging.CreateIfAbsent(ctx); err != nil {
		return err
	}
	reference, err := storage.NewReferenceStore(db, a.cfg.ReferenceTable)
	if err != nil {
		return err
	}
	if err := reference.CreateIfAbsent(ctx); err != nil {
		return err
	}

	_, err = services.NewNormalizer(staging, reference, profile.Platform, a.logger).Run(ctx)
	return err
}

func (a *app) cleanse(ctx context.Context, db *storage.DB) error {
	profile, err := scraper.LoadProfile(a.cfg.SourceProfile)
	if err != nil {
		return err
	}
	rules, err := services.LoadCleaningRules(a.cfg.CleaningRules)
	if err != nil {
		return err
	}
	reference, err := storage.NewReferenceStore(db, a.cfg.ReferenceTable)
	if err != nil {
		return err
	}
	products, err := storage.NewProductStore(db, a.cfg.ProductTable)
	if err != nil {
		return err
	}

	var artifact storage.ProductArtifactWriter
	var csvWriter *storage.CSVWriter
	if a.cfg.CleanedCSVPath != "" {
		csvWriter, err = storage.NewCSVWriter(a.cfg.CleanedCSVPath)
		if err != nil {
			a.logger.Warn("Cleaned CSV disabled: %v", err)
		} else {
			artifact = csvWriter
		}
	}

	res, err := services.NewCleaner(reference, products, artifact, rules, profile.PriceFormat, a.logger).Run(ctx)
	if err != nil {
		return err
	}
	if csvWriter != nil && res.ArtifactWritten {
		a.logger.Info("Cleaned products saved to %s (%d rows)", csvWriter.Path(), res.Cleaned)
	}
	return nil
}

func (a *app) recommend(ctx context.Context, db *storage.DB) error {
	products, err := storage.NewProductStore(db, a.cfg.ProductTable)
	if err != nil {
		return err
	}
	recs, err := storage.NewRecommendationStore(db, a.cfg.RecommendationTable)
	if err != nil {
		return err
	}

	recommender := services.NewRecommender(products, recs, services.RecommenderOptions{
		TestSplit: a.cfg.TestSplit,
		Seed:      a.cfg.RandomSeed,
	}, a.logger)
	run, err := recommender.Run(ctx)
	if err != nil {
		return err
	}

	insights := services.NewInsightService(a.logger)
	insights.Print(insights.Generate(run))

	if len(run.Recommendations) > 0 {
		a.flushCache(ctx)
	}
	return nil
}

// flushCache drops cached responses from a shared cache. An in-process cache
// dies with its server, so only redis needs flushing.
func (a *app) flushCache(ctx context.Context) {
	if a.cfg.CacheDriver != "redis" {
		return
	}
	c, err := a.openCache()
	if err != nil {
		a.logger.Warn("[cache] Flush skipped: %v", err)
		return
	}
	defer c.Close()
	if err := c.DeleteByPrefix(ctx, api.CachePrefix); err != nil {
		a.logger.Warn("[cache] Flush failed: %v", err)
		return
	}
	a.logger.Info("[cache] Flushed cached recommendations")
}

func (a *app) openCache() (cache.Client, error) {
	return cache.New(cache.Config{
		Driver:   a.cfg.CacheDriver,
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
}

func (a *app) serve(ctx context.Context, db *storage.DB) error {
	recs, err := storage.NewRecommendationStore(db, a.cfg.RecommendationTable)
	if err != nil {
		return err
	}
	if err := recs.CreateIfAbsent(ctx); err != nil {
		return err
	}

	c, err := a.openCache()
	if err != nil {
		a.logger.Warn("[cache] %s unavailable, serving uncached: %v", a.cfg.CacheDriver, err)
		c = cache.NopClient{}
	}
	defer c.Close()

	handler := api.NewRecommendationHandler(recs, c, a.cfg.CacheTTL, a.logger)
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, a.logger, a.cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[api] Listening on %s", a.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("[api] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

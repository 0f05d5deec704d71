package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"price-recommender/models"
	"price-recommender/scraper"
	"price-recommender/storage"
	"price-recommender/utils"
)

// CollectorOptions controls one collection run.
type CollectorOptions struct {
	BaseURL   string
	Pages     int
	BatchSize int
	KeepRows  bool // retain every staged row on the result for diagnostics
}

// Collector walks catalog pages, enriches each listing from its detail page,
// and appends fixed-size batches to the staging table.
type Collector struct {
	source  scraper.Source
	profile *scraper.Profile
	staging storage.StagingWriter
	logger  *utils.Logger
	now     func() time.Time
}

// NewCollector wires a Collector to its source, parser profile and staging store.
func NewCollector(source scraper.Source, profile *scraper.Profile, staging storage.StagingWriter, logger *utils.Logger) *Collector {
	return &Collector{
		source:  source,
		profile: profile,
		staging: staging,
		logger:  logger,
		now:     time.Now,
	}
}

// batchBuffer accumulates staged listings and flushes them in one write.
type batchBuffer struct {
	size    int
	rows    []models.StagedListing
	flushed int
}

// Collect runs the collection. Fetch and parse failures are contained to the
// page or listing they hit; a staging write failure aborts the run and is
// returned alongside the partial result.
func (c *Collector) Collect(ctx context.Context, opts CollectorOptions) (*models.CollectResult, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("collector: batch size must be >= 1, got %d", opts.BatchSize)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = c.profile.BaseURL
	}

	result := &models.CollectResult{RunID: uuid.NewString()}
	buf := &batchBuffer{size: opts.BatchSize}
	seen := utils.NewURLSet()

	c.logger.Info("[collector] Run %s starting: %d pages, batch size %d, platform %s",
		result.RunID, opts.Pages, opts.BatchSize, c.profile.Platform)

	for page := 1; page <= opts.Pages; page++ {
		pageURL, err := c.profile.PageURL(baseURL, page)
		if err != nil {
			return result, err
		}

		c.logger.Info("[collector] Scraping page %d: %s", page, pageURL)
		html, err := c.source.Fetch(ctx, pageURL)
		if err != nil || html == "" {
			c.logger.Warn("[collector] Page %d skipped: %v", page, err)
			result.PagesSkipped++
			continue
		}

		listings, err := c.profile.ParseListings(html)
		if err != nil {
			c.logger.Warn("[collector] Page %d unparseable, skipped: %v", page, err)
			result.PagesSkipped++
			continue
		}
		result.PagesFetched++
		c.logger.Debug("[collector] Page %d: %d listing cards", page, len(listings))

		for _, raw := range listings {
			if key := listingKey(raw); key != "" && !seen.Add(key) {
				c.logger.Debug("[collector] Duplicate listing skipped: %s", key)
				result.Duplicates++
				continue
			}

			detail := c.fetchDetail(ctx, raw.Link)
			if detail.IsEmpty() {
				result.DetailFailures++
			}

			row := models.NewStagedListing(result.RunID, raw, detail, c.now())
			result.Listings++
			if opts.KeepRows {
				result.Rows = append(result.Rows, row)
			}
			c.logger.Debug("[collector] Scraped product: %s (%s) %s", row.Name, row.Identifier, row.DiscountedPrice)

			buf.rows = append(buf.rows, row)
			if len(buf.rows) >= buf.size {
				if err := c.flush(ctx, buf, result); err != nil {
					return result, err
				}
			}
		}
	}

	if len(buf.rows) > 0 {
		if err := c.flush(ctx, buf, result); err != nil {
			return result, err
		}
	}

	c.logger.Info("[collector] Run %s complete: %d listings in %d batches (%d unique keys, %d pages fetched, %d skipped, %d detail failures, %d duplicates)",
		result.RunID, buf.flushed, result.Batches, seen.Size(), result.PagesFetched, result.PagesSkipped, result.DetailFailures, result.Duplicates)
	return result, nil
}

// fetchDetail never fails: any fetch or parse error yields an empty detail.
func (c *Collector) fetchDetail(ctx context.Context, link string) models.ListingDetail {
	if link == "" {
		c.logger.Warn("[collector] Listing without link, detail skipped")
		return models.ListingDetail{}
	}
	html, err := c.source.Fetch(ctx, link)
	if err != nil || html == "" {
		c.logger.Warn("[collector] Detail page failed for %s: %v", link, err)
		return models.ListingDetail{}
	}
	detail, err := c.profile.ParseDetail(html)
	if err != nil {
		c.logger.Warn("[collector] Detail page unparseable for %s: %v", link, err)
		return models.ListingDetail{}
	}
	return detail
}

func (c *Collector) flush(ctx context.Context, buf *batchBuffer, result *models.CollectResult) error {
	n := len(buf.rows)
	if err := c.staging.Insert(ctx, buf.rows); err != nil {
		c.logger.Error("[collector] Batch of %d failed to upload: %v", n, err)
		return fmt.Errorf("collector: staging write: %w", err)
	}
	buf.flushed += n
	buf.rows = buf.rows[:0:0]
	result.Batches++
	c.logger.Info("[collector] Uploaded batch %d (%d products, %d total)", result.Batches, n, buf.flushed)
	return nil
}

func listingKey(raw models.RawListing) string {
	if raw.Link != "" {
		return raw.Link
	}
	return raw.Identifier
}

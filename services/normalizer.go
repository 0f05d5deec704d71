package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"price-recommender/models"
	"price-recommender/storage"
	"price-recommender/utils"
)

// Normalizer projects staged listings into the reference schema and appends
// them to the reference table.
type Normalizer struct {
	staging   storage.StagingReader
	reference storage.ReferenceWriter
	platform  string
	logger    *utils.Logger
	now       func() time.Time
}

// NewNormalizer tags every reference row with the given platform.
func NewNormalizer(staging storage.StagingReader, reference storage.ReferenceWriter, platform string, logger *utils.Logger) *Normalizer {
	return &Normalizer{
		staging:   staging,
		reference: reference,
		platform:  platform,
		logger:    logger,
		now:       time.Now,
	}
}

// Run reads every staged row and appends its reference projection in one
// write. Running twice over the same staging snapshot duplicates rows.
func (n *Normalizer) Run(ctx context.Context) (*models.NormalizeResult, error) {
	start := time.Now()

	staged, err := n.staging.SelectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("normalizer: read staging: %w", err)
	}

	result := &models.NormalizeResult{Staged: len(staged)}
	now := n.now().UTC()
	rows := make([]models.ReferenceProduct, 0, len(staged))
	for _, s := range staged {
		ref, ok := n.project(s, now)
		if !ok {
			n.logger.Warn("[normalizer] Skipping %q (%s): no price text", s.Name, s.Identifier)
			result.Skipped++
			continue
		}
		rows = append(rows, ref)
	}

	if len(rows) > 0 {
		if err := n.reference.Insert(ctx, rows); err != nil {
			return nil, fmt.Errorf("normalizer: write reference: %w", err)
		}
	}
	result.Appended = len(rows)

	n.logger.Since(start, "[normalizer] Appended %d of %d staged rows (skipped %d)",
		result.Appended, result.Staged, result.Skipped)
	return result, nil
}

// project fills the reference defaults. It reports false when the listing
// carries no price text at all.
func (n *Normalizer) project(s models.StagedListing, at time.Time) (models.ReferenceProduct, bool) {
	price := strings.TrimSpace(s.DiscountedPrice)
	original := strings.TrimSpace(s.OriginalPrice)
	if price == "" {
		price = original
	}
	if price == "" {
		return models.ReferenceProduct{}, false
	}
	if original == "" {
		original = price
	}

	discount := strings.TrimSpace(s.Discount)
	if discount == "" {
		discount = models.DefaultDiscount
	}

	return models.ReferenceProduct{
		Name:               s.Name,
		Price:              price,
		OriginalPrice:      original,
		DiscountPercentage: discount,
		Detail:             s.Description,
		Platform:           n.platform,
		ProductMasterID:    s.Identifier,
		Category:           s.Category,
		CreateDate:         at,
	}, true
}

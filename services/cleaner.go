package services

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"price-recommender/models"
	"price-recommender/money"
	"price-recommender/storage"
	"price-recommender/utils"
)

//go:embed rules/cleaning.yaml
var defaultRules []byte

// textOp is one named cleaning step.
type textOp func(s string, f money.Format) string

var textOps = map[string]textOp{
	"trim":                func(s string, _ money.Format) string { return strings.TrimSpace(s) },
	"collapse_whitespace": func(s string, _ money.Format) string { return normaliseText(s) },
	"strip_currency":      func(s string, f money.Format) string { return f.StripCurrency(s) },
	"strip_thousands":     func(s string, f money.Format) string { return f.StripThousands(s) },
	"lower":               func(s string, _ money.Format) string { return strings.ToLower(s) },
}

// CleaningRules lists the ops applied to each reference field, in order.
type CleaningRules struct {
	Name            []string `yaml:"name"`
	Detail          []string `yaml:"detail"`
	ProductMasterID []string `yaml:"product_master_id"`
	Category        []string `yaml:"category"`
	Price           []string `yaml:"price"`
	OriginalPrice   []string `yaml:"original_price"`
}

// LoadCleaningRules reads rules from path, or the embedded defaults when path is empty.
func LoadCleaningRules(path string) (*CleaningRules, error) {
	data := defaultRules
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("cleaner: read rules: %w", err)
		}
	}
	return ParseCleaningRules(data)
}

// ParseCleaningRules decodes rules and rejects unknown ops.
func ParseCleaningRules(data []byte) (*CleaningRules, error) {
	var r CleaningRules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("cleaner: decode rules: %w", err)
	}
	for field, ops := range map[string][]string{
		"name":              r.Name,
		"detail":            r.Detail,
		"product_master_id": r.ProductMasterID,
		"category":          r.Category,
		"price":             r.Price,
		"original_price":    r.OriginalPrice,
	} {
		for _, op := range ops {
			if _, ok := textOps[op]; !ok {
				return nil, fmt.Errorf("cleaner: field %s: unknown op %q", field, op)
			}
		}
	}
	return &r, nil
}

func apply(ops []string, s string, f money.Format) string {
	for _, op := range ops {
		s = textOps[op](s, f)
	}
	return s
}

// Cleaner turns reference rows into cleaned products and replaces the
// product table with the result.
type Cleaner struct {
	reference storage.ReferenceReader
	products  storage.ProductWriter
	artifact  storage.ProductArtifactWriter
	rules     *CleaningRules
	format    money.Format
	logger    *utils.Logger
}

// NewCleaner creates a Cleaner. artifact may be nil.
func NewCleaner(reference storage.ReferenceReader, products storage.ProductWriter, artifact storage.ProductArtifactWriter,
	rules *CleaningRules, format money.Format, logger *utils.Logger) *Cleaner {
	return &Cleaner{
		reference: reference,
		products:  products,
		artifact:  artifact,
		rules:     rules,
		format:    format,
		logger:    logger,
	}
}

// Run cleans every reference row in id order. Rows whose prices do not
// coerce are dropped and counted, never zero-filled.
func (c *Cleaner) Run(ctx context.Context) (*models.CleanseResult, error) {
	start := time.Now()

	refs, err := c.reference.SelectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleaner: read reference: %w", err)
	}

	result := &models.CleanseResult{Read: len(refs)}
	cleaned := make([]models.CleanedProduct, 0, len(refs))
	for _, r := range refs {
		p, err := c.Clean(r)
		if err != nil {
			c.logger.Debug("[cleaner] Dropping reference row %d (%s): %v", r.ID, r.ProductMasterID, err)
			result.Rejected++
			continue
		}
		cleaned = append(cleaned, p)
	}

	if err := c.products.ReplaceAll(ctx, cleaned); err != nil {
		return nil, fmt.Errorf("cleaner: replace products: %w", err)
	}
	result.Cleaned = len(cleaned)
	result.Products = cleaned

	if c.artifact != nil {
		if err := c.artifact.WriteProducts(cleaned); err != nil {
			c.logger.Warn("[cleaner] Audit artifact not written: %v", err)
		} else {
			result.ArtifactWritten = true
		}
	}

	c.logger.Since(start, "[cleaner] Cleaned %d → %d products (dropped %d)",
		result.Read, result.Cleaned, result.Rejected)
	return result, nil
}

// Clean applies the rules to one reference row.
func (c *Cleaner) Clean(r models.ReferenceProduct) (models.CleanedProduct, error) {
	price, err := c.parsePrice(c.rules.Price, r.Price)
	if err != nil {
		return models.CleanedProduct{}, fmt.Errorf("price: %w", err)
	}
	original, err := c.parsePrice(c.rules.OriginalPrice, r.OriginalPrice)
	if err != nil {
		return models.CleanedProduct{}, fmt.Errorf("original price: %w", err)
	}

	return models.CleanedProduct{
		ProductMasterID: apply(c.rules.ProductMasterID, r.ProductMasterID, c.format),
		Name:            apply(c.rules.Name, r.Name, c.format),
		Category:        apply(c.rules.Category, r.Category, c.format),
		Price:           price.Value,
		OriginalPrice:   original.Value,
		Detail:          apply(c.rules.Detail, r.Detail, c.format),
		Platform:        r.Platform,
	}, nil
}

func (c *Cleaner) parsePrice(ops []string, raw string) (money.Amount, error) {
	d, err := money.ToDecimal(apply(ops, raw, c.format))
	if err != nil {
		return money.Amount{}, err
	}
	return money.Amount{Value: d.Round(2), Currency: c.format.Currency}, nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDiscount is written when a staged listing carries no discount text.
const DefaultDiscount = "0%"

// ReferenceProduct is a canonicalised staged listing. Prices are still in
// their scraped string form; OriginalPrice and DiscountPercentage are never empty.
type ReferenceProduct struct {
	ID                 int64
	Name               string
	Price              string
	OriginalPrice      string
	DiscountPercentage string
	Detail             string
	Platform           string
	ProductMasterID    string
	Category           string
	CreateDate         time.Time
}

// CleanedProduct is a reference row whose prices parsed as valid non-negative amounts.
type CleanedProduct struct {
	ProductMasterID string
	Name            string
	Category        string
	Price           decimal.Decimal
	OriginalPrice   decimal.Decimal
	Detail          string
	Platform        string
}

// NormalizeResult summarises one ReferenceNormalizer run.
type NormalizeResult struct {
	Staged   int
	Appended int
	Skipped  int
}

// CleanseResult summarises one Cleanser run.
type CleanseResult struct {
	Read     int
	Cleaned  int
	Rejected int
	Products []CleanedProduct
	// ArtifactWritten is set once the audit file holds this run's snapshot.
	ArtifactWritten bool
}

package models

import "time"

// RawListing holds the field strings extracted from one listing card on a
// catalog page. Missing fields are empty strings.
type RawListing struct {
	Name       string
	Link       string
	Identifier string
}

// ListingDetail holds the field strings extracted from a listing's own page.
// A failed detail fetch yields the zero value.
type ListingDetail struct {
	Discount        string
	OriginalPrice   string
	DiscountedPrice string
	Description     string
	StoreInfo       string
	Category        string
}

// IsEmpty reports whether no detail field was captured.
func (d ListingDetail) IsEmpty() bool {
	return d == ListingDetail{}
}

// StagedListing is the first-landed scrape record written to the staging table.
// It is only ever written as part of a complete batch and never updated.
type StagedListing struct {
	RunID           string
	Name            string
	Link            string
	Identifier      string
	Discount        string
	OriginalPrice   string
	DiscountedPrice string
	Description     string
	StoreInfo       string
	Category        string
	CreatedAt       time.Time
}

// NewStagedListing merges a listing card with its detail page.
func NewStagedListing(runID string, raw RawListing, detail ListingDetail, at time.Time) StagedListing {
	return StagedListing{
		RunID:           runID,
		Name:            raw.Name,
		Link:            raw.Link,
		Identifier:      raw.Identifier,
		Discount:        detail.Discount,
		OriginalPrice:   detail.OriginalPrice,
		DiscountedPrice: detail.DiscountedPrice,
		Description:     detail.Description,
		StoreInfo:       detail.StoreInfo,
		Category:        detail.Category,
		CreatedAt:       at,
	}
}

// CollectResult summarises one BatchCollector run.
type CollectResult struct {
	RunID          string
	PagesFetched   int
	PagesSkipped   int
	Listings       int
	Duplicates     int
	DetailFailures int
	Batches        int
	Rows           []StagedListing // only kept when diagnostics are requested
}

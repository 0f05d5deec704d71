package storage

import (
	"context"

	"price-recommender/models"
)

// StagingWriter appends complete batches of staged listings.
type StagingWriter interface {
	Insert(ctx context.Context, rows []models.StagedListing) error
}

// StagingReader returns every staged listing in write order.
type StagingReader interface {
	SelectAll(ctx context.Context) ([]models.StagedListing, error)
}

// ReferenceWriter appends reference products in one transaction.
type ReferenceWriter interface {
	Insert(ctx context.Context, rows []models.ReferenceProduct) error
}

// ReferenceReader returns every reference product in id order.
type ReferenceReader interface {
	SelectAll(ctx context.Context) ([]models.ReferenceProduct, error)
}

// ProductWriter replaces the cleaned product table.
type ProductWriter interface {
	ReplaceAll(ctx context.Context, rows []models.CleanedProduct) error
}

// ProductReader returns the cleaned product table.
type ProductReader interface {
	SelectAll(ctx context.Context) ([]models.CleanedProduct, error)
}

// RecommendationWriter persists one run's recommendations.
type RecommendationWriter interface {
	CreateIfAbsent(ctx context.Context) error
	ReplaceAll(ctx context.Context, rows []models.PriceRecommendation) error
}

// RecommendationReader serves read-only lookups.
type RecommendationReader interface {
	FindByCategory(ctx context.Context, category string) (*models.PriceRecommendation, error)
	List(ctx context.Context, skip, limit int) ([]models.PriceRecommendation, error)
	Count(ctx context.Context) (int, error)
}

// ProductArtifactWriter writes the cleaned set to a side-channel file.
type ProductArtifactWriter interface {
	WriteProducts(rows []models.CleanedProduct) error
	Close() error
}

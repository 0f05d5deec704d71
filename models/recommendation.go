package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryModel is a fitted single-feature linear model for one category:
// price = Intercept + Slope * originalPrice. It lives only for one run.
type CategoryModel struct {
	Category  string
	Intercept float64
	Slope     float64
	TrainRows int
	TestRows  int
	MSE       float64
}

// Predict returns the model's price for the given original price.
func (m CategoryModel) Predict(originalPrice float64) float64 {
	return m.Intercept + m.Slope*originalPrice
}

// PriceRecommendation is one persisted model prediction.
type PriceRecommendation struct {
	ProductMasterID string          `json:"productMasterId"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Date            time.Time       `json:"date"`
}

// CategoryFailure records a category whose fit failed without aborting the run.
type CategoryFailure struct {
	Category string
	Err      error
}

// RecommendationRun is the in-memory outcome of one CategoryRecommender run.
type RecommendationRun struct {
	Models          []CategoryModel
	Recommendations []PriceRecommendation
	Skipped         []string
	Failed          []CategoryFailure
	MissingIDs      int
}

// RunReport holds summary analytics over a recommendation run.
type RunReport struct {
	Categories           int
	Trained              int
	Skipped              int
	Failed               int
	TotalRecommendations int
	AverageMSE           float64
	WorstFit             *CategoryModel
	LargestCategory      *CategoryModel
	RecommendationsByCat map[string]int
	Models               []CategoryModel
	Failures             []CategoryFailure
}

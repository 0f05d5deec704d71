package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"price-recommender/models"
	"price-recommender/money"
	"price-recommender/storage"
	"price-recommender/utils"
)

// RecommenderOptions controls the held-out evaluation.
type RecommenderOptions struct {
	TestSplit float64
	Seed      int64
}

// DefaultRecommenderOptions is an 80/20 split with seed 42.
var DefaultRecommenderOptions = RecommenderOptions{TestSplit: 0.2, Seed: 42}

// Recommender fits one price model per category and persists a recommended
// price for every product in a trained category.
type Recommender struct {
	products storage.ProductReader
	store    storage.RecommendationWriter
	opts     RecommenderOptions
	logger   *utils.Logger
	now      func() time.Time
}

// NewRecommender creates a Recommender.
func NewRecommender(products storage.ProductReader, store storage.RecommendationWriter, opts RecommenderOptions, logger *utils.Logger) *Recommender {
	return &Recommender{
		products: products,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Run loads the cleaned products, trains every category independently and
// replaces the recommendation table with the run's output. A load or write
// failure aborts the run; a single category's failure does not.
func (r *Recommender) Run(ctx context.Context) (*models.RecommendationRun, error) {
	start := time.Now()

	products, err := r.products.SelectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("recommender: load products: %w", err)
	}
	if err := r.store.CreateIfAbsent(ctx); err != nil {
		return nil, fmt.Errorf("recommender: create table: %w", err)
	}

	byCategory := make(map[string][]models.CleanedProduct)
	for _, p := range products {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	run := &models.RecommendationRun{}
	today := truncateDay(r.now())

	for _, category := range categories {
		rows := byCategory[category]
		if len(rows) <= 1 {
			r.logger.Warn("[recommender] Category %q has %d row(s), skipped", category, len(rows))
			run.Skipped = append(run.Skipped, category)
			continue
		}

		model, err := r.fit(category, rows)
		var recs []models.PriceRecommendation
		var missing int
		if err == nil {
			recs, missing, err = predict(model, rows, today)
		}
		if err != nil {
			r.logger.Error("[recommender] Category %q failed: %v", category, err)
			run.Failed = append(run.Failed, models.CategoryFailure{Category: category, Err: err})
			continue
		}
		run.Models = append(run.Models, model)
		run.Recommendations = append(run.Recommendations, recs...)
		run.MissingIDs += missing
		r.logger.Info("[recommender] %s: MSE %.2f (train %d, test %d)", category, model.MSE, model.TrainRows, model.TestRows)
	}

	if len(run.Recommendations) == 0 {
		r.logger.Warn("[recommender] No recommendations produced; table left unchanged")
		return run, nil
	}

	if err := r.store.ReplaceAll(ctx, run.Recommendations); err != nil {
		return nil, fmt.Errorf("recommender: write recommendations: %w", err)
	}
	for _, rec := range run.Recommendations {
		r.logger.Debug("[recommender] %s %s → %s", rec.Category, rec.ProductMasterID, rec.Price.StringFixed(2))
	}

	r.logger.Since(start, "[recommender] %d recommendations across %d categories (%d skipped, %d failed)",
		len(run.Recommendations), len(run.Models), len(run.Skipped), len(run.Failed))
	return run, nil
}

// fit trains price = intercept + slope*originalPrice on a seeded split of
// rows and scores it on the held-out part. Panics are returned as errors.
func (r *Recommender) fit(category string, rows []models.CleanedProduct) (model models.CategoryModel, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fit panicked: %v", p)
		}
	}()

	n := len(rows)
	nTest := int(math.Ceil(float64(n) * r.opts.TestSplit))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(r.opts.Seed)).Perm(n)
	testX, testY := columns(rows, perm[:nTest])
	trainX, trainY := columns(rows, perm[nTest:])

	model = models.CategoryModel{Category: category, TrainRows: len(trainX), TestRows: len(testX)}
	if v := stat.Variance(trainX, nil); len(trainX) < 2 || !(v > 0) {
		// Constant feature: the best line is flat at the mean.
		model.Intercept = stat.Mean(trainY, nil)
	} else {
		model.Intercept, model.Slope = stat.LinearRegression(trainX, trainY, nil, false)
	}

	sq := make([]float64, len(testX))
	for i, x := range testX {
		d := testY[i] - model.Predict(x)
		sq[i] = d * d
	}
	model.MSE = stat.Mean(sq, nil)

	for _, v := range []float64{model.Intercept, model.Slope, model.MSE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model, fmt.Errorf("non-finite fit (intercept %v, slope %v, mse %v)", model.Intercept, model.Slope, model.MSE)
		}
	}
	return model, nil
}

// predict prices every row of a category. A prediction that does not fit a
// price column fails the whole category.
func predict(model models.CategoryModel, rows []models.CleanedProduct, day time.Time) ([]models.PriceRecommendation, int, error) {
	recs := make([]models.PriceRecommendation, 0, len(rows))
	var missing int
	for _, p := range rows {
		if p.ProductMasterID == "" {
			missing++
			continue
		}
		price := decimal.NewFromFloat(model.Predict(p.OriginalPrice.InexactFloat64())).Round(2)
		if !money.InRange(price) {
			return nil, 0, fmt.Errorf("prediction %s for %s out of range", price.StringFixed(2), p.ProductMasterID)
		}
		recs = append(recs, models.PriceRecommendation{
			ProductMasterID: p.ProductMasterID,
			Category:        model.Category,
			Price:           price,
			Date:            day,
		})
	}
	return recs, missing, nil
}

func columns(rows []models.CleanedProduct, idx []int) (x, y []float64) {
	x = make([]float64, len(idx))
	y = make([]float64, len(idx))
	for i, j := range idx {
		x[i] = rows[j].OriginalPrice.InexactFloat64()
		y[i] = rows[j].Price.InexactFloat64()
	}
	return x, y
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

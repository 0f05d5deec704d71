package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recommender/models"
)

type fakeProductReader struct {
	rows []models.CleanedProduct
	err  error
}

func (f *fakeProductReader) SelectAll(context.Context) ([]models.CleanedProduct, error) {
	return f.rows, f.err
}

type fakeRecStore struct {
	created  int
	replaced int
	rows     []models.PriceRecommendation
	err      error
}

func (f *fakeRecStore) CreateIfAbsent(context.Context) error {
	f.created++
	return nil
}

func (f *fakeRecStore) ReplaceAll(_ context.Context, rows []models.PriceRecommendation) error {
	if f.err != nil {
		return f.err
	}
	f.replaced++
	f.rows = append([]models.PriceRecommendation(nil), rows...)
	return nil
}

func product(id, category string, original, price int64) models.CleanedProduct {
	return models.CleanedProduct{
		ProductMasterID: id,
		Category:        category,
		OriginalPrice:   decimal.NewFromInt(original),
		Price:           decimal.NewFromInt(price),
	}
}

func newTestRecommender(rows []models.CleanedProduct, store *fakeRecStore) *Recommender {
	r := NewRecommender(&fakeProductReader{rows: rows}, store, DefaultRecommenderOptions, newTestLogger())
	r.now = func() time.Time { return time.Date(2026, 10, 18, 14, 5, 0, 0, time.Local) }
	return r
}

func recsByID(recs []models.PriceRecommendation) map[string]models.PriceRecommendation {
	out := make(map[string]models.PriceRecommendation, len(recs))
	for _, r := range recs {
		out[r.ProductMasterID] = r
	}
	return out
}

func TestRecommenderTwoRowCategory(t *testing.T) {
	store := &fakeRecStore{}
	r := newTestRecommender([]models.CleanedProduct{
		product("a", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Models, 1)
	assert.Equal(t, 1, run.Models[0].TrainRows)
	assert.Equal(t, 1, run.Models[0].TestRows)

	got := recsByID(store.rows)
	require.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
	assert.Equal(t, "2026-10-18", got["a"].Date.Format("2006-01-02"))
}

func TestRecommenderSingleRowCategorySkipped(t *testing.T) {
	store := &fakeRecStore{}
	r := newTestRecommender([]models.CleanedProduct{
		product("lonely", "Shampoo", 100, 90),
		product("a", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
		product("c", "Soap", 300, 270),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Shampoo"}, run.Skipped)

	got := recsByID(store.rows)
	assert.NotContains(t, got, "lonely")
	assert.Len(t, got, 3)
	for _, rec := range store.rows {
		assert.Equal(t, "Soap", rec.Category)
	}
}

func TestRecommenderPredictsFromFit(t *testing.T) {
	store := &fakeRecStore{}
	var rows []models.CleanedProduct
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		original := int64(1000 * (i + 1))
		rows = append(rows, product(id, "Toothpaste", original, original*9/10))
	}
	r := newTestRecommender(rows, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Models, 1)
	m := run.Models[0]
	assert.InDelta(t, 0.9, m.Slope, 1e-9)
	assert.InDelta(t, 0, m.Intercept, 1e-6)
	assert.InDelta(t, 0, m.MSE, 1e-6)
	assert.Equal(t, 2, m.TestRows, "ceil(6*0.2) rows held out")

	got := recsByID(store.rows)
	require.Len(t, got, 6)
	assert.Equal(t, "4500.00", got["p5"].Price.StringFixed(2))
}

func TestRecommenderConstantFeature(t *testing.T) {
	store := &fakeRecStore{}
	r := newTestRecommender([]models.CleanedProduct{
		product("a", "Soap", 100, 80),
		product("b", "Soap", 100, 90),
		product("c", "Soap", 100, 100),
		product("d", "Soap", 100, 110),
		product("e", "Soap", 100, 120),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Models, 1)
	assert.Zero(t, run.Models[0].Slope)
	assert.Len(t, store.rows, 5)
	assert.True(t, store.rows[0].Price.Equal(store.rows[4].Price), "flat model predicts one price")
}

func TestRecommenderIsolatesCategoryFailure(t *testing.T) {
	store := &fakeRecStore{}
	huge := models.CleanedProduct{
		ProductMasterID: "inf",
		Category:        "Broken",
		OriginalPrice:   decimal.NewFromInt(1),
		Price:           decimal.RequireFromString("1e400"),
	}
	r := newTestRecommender([]models.CleanedProduct{
		huge,
		product("x", "Broken", 2, 2),
		product("a", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Failed, 1)
	assert.Equal(t, "Broken", run.Failed[0].Category)
	assert.Len(t, store.rows, 2)
}

func TestRecommenderFailsOutOfRangePrediction(t *testing.T) {
	store := &fakeRecStore{}
	big := func(id string, original, price string) models.CleanedProduct {
		return models.CleanedProduct{
			ProductMasterID: id,
			Category:        "Luxury",
			OriginalPrice:   decimal.RequireFromString(original),
			Price:           decimal.RequireFromString(price),
		}
	}
	// Every row sits on price = 2*original, so l4 predicts 1.8e12.
	r := newTestRecommender([]models.CleanedProduct{
		big("l1", "1000", "2000"),
		big("l2", "2000", "4000"),
		big("l3", "3000", "6000"),
		big("l4", "900000000000", "1800000000000"),
		product("a", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Failed, 1)
	assert.Equal(t, "Luxury", run.Failed[0].Category)
	for _, rec := range store.rows {
		assert.Equal(t, "Soap", rec.Category)
	}
	assert.Len(t, store.rows, 2)
}

func TestRecommenderSkipsMissingIDs(t *testing.T) {
	store := &fakeRecStore{}
	r := newTestRecommender([]models.CleanedProduct{
		product("", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
		product("c", "Soap", 300, 270),
	}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.MissingIDs)
	assert.Len(t, store.rows, 2)
}

func TestRecommenderDeterministic(t *testing.T) {
	rows := []models.CleanedProduct{
		product("a", "Soap", 100, 95),
		product("b", "Soap", 200, 170),
		product("c", "Soap", 300, 290),
		product("d", "Soap", 400, 350),
		product("e", "Soap", 500, 480),
	}
	s1, s2 := &fakeRecStore{}, &fakeRecStore{}
	_, err := newTestRecommender(rows, s1).Run(context.Background())
	require.NoError(t, err)
	_, err = newTestRecommender(rows, s2).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, s2.rows, len(s1.rows))
	for i := range s1.rows {
		assert.True(t, s1.rows[i].Price.Equal(s2.rows[i].Price))
	}
}

func TestRecommenderNoOutputLeavesTable(t *testing.T) {
	store := &fakeRecStore{}
	r := newTestRecommender([]models.CleanedProduct{product("a", "Soap", 100, 90)}, store)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Recommendations)
	assert.Equal(t, 1, store.created)
	assert.Zero(t, store.replaced)
}

func TestRecommenderLoadFailureAborts(t *testing.T) {
	store := &fakeRecStore{}
	r := NewRecommender(&fakeProductReader{err: errors.New("relation does not exist")}, store, DefaultRecommenderOptions, newTestLogger())

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.created)
}

func TestRecommenderWriteFailureAborts(t *testing.T) {
	store := &fakeRecStore{err: errors.New("tx aborted")}
	r := newTestRecommender([]models.CleanedProduct{
		product("a", "Soap", 100, 90),
		product("b", "Soap", 200, 180),
	}, store)

	_, err := r.Run(context.Background())
	require.Error(t, err)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recommender/models"
)

type fakeStagingReader struct {
	rows []models.StagedListing
	err  error
}

func (f *fakeStagingReader) SelectAll(context.Context) ([]models.StagedListing, error) {
	return f.rows, f.err
}

type fakeReference struct {
	rows   []models.ReferenceProduct
	writes int
	err    error
}

func (f *fakeReference) Insert(_ context.Context, rows []models.ReferenceProduct) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeReference) SelectAll(context.Context) ([]models.ReferenceProduct, error) {
	return f.rows, f.err
}

func stagedSnapshot() []models.StagedListing {
	return []models.StagedListing{
		{Name: "Lifebuoy", Identifier: "1", Discount: "10%", OriginalPrice: "Rp 5.000", DiscountedPrice: "Rp 4.500", Category: "Soap"},
		{Name: "Dove", Identifier: "2", DiscountedPrice: "Rp 12.000", Description: "Shampoo", Category: "Shampoo"},
		{Name: "Clear", Identifier: "3", OriginalPrice: "Rp 30.000", Category: "Shampoo"},
		{Name: "Broken", Identifier: "4", Category: "Soap"},
	}
}

func TestNormalizerFillsDefaults(t *testing.T) {
	ref := &fakeReference{}
	n := NewNormalizer(&fakeStagingReader{rows: stagedSnapshot()}, ref, "klikindomaret", newTestLogger())

	res, err := n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Staged)
	assert.Equal(t, 3, res.Appended)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, ref.writes, "single write per run")

	require.Len(t, ref.rows, 3)
	assert.Equal(t, "Rp 4.500", ref.rows[0].Price)
	assert.Equal(t, "Rp 5.000", ref.rows[0].OriginalPrice)
	assert.Equal(t, "10%", ref.rows[0].DiscountPercentage)

	assert.Equal(t, "Rp 12.000", ref.rows[1].OriginalPrice, "original price defaults to price")
	assert.Equal(t, models.DefaultDiscount, ref.rows[1].DiscountPercentage)
	assert.Equal(t, "Shampoo", ref.rows[1].Detail)

	assert.Equal(t, "Rp 30.000", ref.rows[2].Price, "price falls back to original price")

	for _, r := range ref.rows {
		assert.NotEmpty(t, r.OriginalPrice)
		assert.NotEmpty(t, r.DiscountPercentage)
		assert.Equal(t, "klikindomaret", r.Platform)
		assert.False(t, r.CreateDate.IsZero())
	}
}

func TestNormalizerRerunAppends(t *testing.T) {
	ref := &fakeReference{}
	n := NewNormalizer(&fakeStagingReader{rows: stagedSnapshot()}, ref, "klikindomaret", newTestLogger())

	_, err := n.Run(context.Background())
	require.NoError(t, err)
	_, err = n.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, ref.rows, 6, "rerun duplicates, never loses rows")
	assert.Equal(t, ref.rows[0].ProductMasterID, ref.rows[3].ProductMasterID)
}

func TestNormalizerReadFailureAborts(t *testing.T) {
	ref := &fakeReference{}
	n := NewNormalizer(&fakeStagingReader{err: errors.New("no such table")}, ref, "klikindomaret", newTestLogger())

	_, err := n.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, ref.rows)
}

func TestNormalizerWriteFailureAborts(t *testing.T) {
	ref := &fakeReference{err: errors.New("tx rolled back")}
	n := NewNormalizer(&fakeStagingReader{rows: stagedSnapshot()}, ref, "klikindomaret", newTestLogger())

	_, err := n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write reference")
}

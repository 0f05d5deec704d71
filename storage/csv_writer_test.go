package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recommender/models"
)

func TestCSVWriterReplacesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "cleaned_data.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is not created before the first write")

	first := []models.CleanedProduct{
		{ProductMasterID: "1", Name: "Lifebuoy", Category: "Soap", Price: decimal.NewFromInt(4500), OriginalPrice: decimal.NewFromInt(5000), Platform: "klikindomaret"},
		{ProductMasterID: "2", Name: "Dove", Category: "Shampoo", Price: decimal.NewFromInt(12500), OriginalPrice: decimal.NewFromInt(12500), Platform: "klikindomaret"},
	}
	require.NoError(t, w.WriteProducts(first))
	require.NoError(t, w.WriteProducts(first[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"productmasterid,name,category,price,originalprice,detail,platform\n"+
			"1,Lifebuoy,Soap,4500.00,5000.00,,klikindomaret\n",
		string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"price-recommender/models"
	"price-recommender/utils"
)

func openPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("e2e_ml"),
		postgres.WithUsername("admin"),
		postgres.WithPassword("admin"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=admin password=admin dbname=e2e_ml sslmode=disable", host, port.Port())
	db, err := Open("postgres", dsn, &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: utils.NopLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresPipelineTables(t *testing.T) {
	ctx := context.Background()
	db := openPostgres(t)
	now := time.Now().UTC()

	staging, err := NewStagingStore(db, "klikindomaret_stg")
	require.NoError(t, err)
	require.NoError(t, staging.CreateIfAbsent(ctx))
	require.NoError(t, staging.Insert(ctx, []models.StagedListing{
		{RunID: "r", Name: "Lifebuoy", Link: "https://x/1", Identifier: "1", DiscountedPrice: "Rp 4.500", CreatedAt: now},
	}))
	staged, err := staging.SelectAll(ctx)
	require.NoError(t, err)
	assert.Len(t, staged, 1)

	products, err := NewProductStore(db, "product")
	require.NoError(t, err)
	require.NoError(t, products.ReplaceAll(ctx, sampleProducts()))
	require.NoError(t, products.ReplaceAll(ctx, sampleProducts()))
	cleaned, err := products.SelectAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cleaned, 2)

	recs, err := NewRecommendationStore(db, "pricerecommendation")
	require.NoError(t, err)
	require.NoError(t, recs.CreateIfAbsent(ctx))
	require.NoError(t, recs.ReplaceAll(ctx, []models.PriceRecommendation{
		{ProductMasterID: "1", Category: "Soap", Price: decimal.NewFromInt(15000), Date: now.Truncate(24 * time.Hour)},
	}))
	require.NoError(t, recs.CreateIfAbsent(ctx))

	rec, err := recs.FindByCategory(ctx, "Soap")
	require.NoError(t, err)
	assert.True(t, rec.Price.Equal(decimal.NewFromInt(15000)))

	_, err = recs.FindByCategory(ctx, "Shampoo")
	assert.ErrorIs(t, err, ErrNotFound)
}

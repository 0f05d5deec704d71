package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"price-recommender/models"
)

var recommendationColumns = []string{"productmasterid", "category", "price", "date"}

// RecommendationStore holds one row per product from the latest recommend run.
type RecommendationStore struct {
	db    *DB
	table string
}

// NewRecommendationStore binds a RecommendationStore to the given table name.
func NewRecommendationStore(db *DB, table string) (*RecommendationStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &RecommendationStore{db: db, table: table}, nil
}

// CreateIfAbsent creates the table if missing. Calling it again never clears data.
func (s *RecommendationStore) CreateIfAbsent(ctx context.Context) error {
	err := s.db.exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			productmasterid TEXT PRIMARY KEY,
			category        TEXT NOT NULL,
			price           NUMERIC(14,2) NOT NULL,
			date            DATE NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("%s: create %s: %w", s.db.Dialect().Name, s.table, err)
	}
	return nil
}

// ReplaceAll swaps the table contents for rows in a single transaction.
// Duplicate product ids keep the last row.
func (s *RecommendationStore) ReplaceAll(ctx context.Context, rows []models.PriceRecommendation) error {
	name := s.db.Dialect().Name
	values := make([][]any, 0, len(rows))
	for _, r := range dedupeByProduct(rows) {
		values = append(values, []any{r.ProductMasterID, r.Category, r.Price, r.Date})
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
			return fmt.Errorf("%s: clear %s: %w", name, s.table, err)
		}
		return s.db.insertRows(ctx, tx, s.table, recommendationColumns, values)
	})
}

func dedupeByProduct(rows []models.PriceRecommendation) []models.PriceRecommendation {
	index := make(map[string]int, len(rows))
	out := make([]models.PriceRecommendation, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.ProductMasterID]; ok {
			out[i] = r
			continue
		}
		index[r.ProductMasterID] = len(out)
		out = append(out, r)
	}
	return out
}

// FindByCategory returns the first recommendation for category, or ErrNotFound.
func (s *RecommendationStore) FindByCategory(ctx context.Context, category string) (*models.PriceRecommendation, error) {
	row := s.db.queryRow(ctx, fmt.Sprintf(`
		SELECT productmasterid, category, price, date
		FROM %s
		WHERE category = $1
		ORDER BY productmasterid
		LIMIT 1`, s.table), category)

	var r models.PriceRecommendation
	if err := row.Scan(&r.ProductMasterID, &r.Category, &r.Price, &r.Date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: find %s: %w", s.db.Dialect().Name, s.table, err)
	}
	return &r, nil
}

// List returns one page of recommendations ordered by product id.
func (s *RecommendationStore) List(ctx context.Context, skip, limit int) ([]models.PriceRecommendation, error) {
	rows, err := s.db.query(ctx, fmt.Sprintf(`
		SELECT productmasterid, category, price, date
		FROM %s
		ORDER BY productmasterid
		LIMIT $1 OFFSET $2`, s.table), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: list %s: %w", s.db.Dialect().Name, s.table, err)
	}
	defer rows.Close()

	recs := make([]models.PriceRecommendation, 0, limit)
	for rows.Next() {
		var r models.PriceRecommendation
		if err := rows.Scan(&r.ProductMasterID, &r.Category, &r.Price, &r.Date); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.db.Dialect().Name, s.table, err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Count returns the number of stored recommendations.
func (s *RecommendationStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.queryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", s.db.Dialect().Name, s.table, err)
	}
	return n, nil
}

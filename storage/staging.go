package storage

import (
	"context"
	"database/sql"
	"fmt"

	"price-recommender/models"
)

var stagingColumns = []string{
	"run_id", "name", "link", "plu", "discount", "original_price", "discounted_price",
	"description", "store_info", "category", "createdate",
}

// StagingStore is the append-only landing table written by the collector.
type StagingStore struct {
	db    *DB
	table string
}

// NewStagingStore binds a StagingStore to the given table name.
func NewStagingStore(db *DB, table string) (*StagingStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &StagingStore{db: db, table: table}, nil
}

// CreateIfAbsent creates the staging table when it does not exist.
func (s *StagingStore) CreateIfAbsent(ctx context.Context) error {
	d := s.db.Dialect()
	err := s.db.exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id               %s,
			run_id           TEXT NOT NULL DEFAULT '',
			name             TEXT NOT NULL,
			link             TEXT NOT NULL,
			plu              TEXT,
			discount         TEXT,
			original_price   TEXT,
			discounted_price TEXT,
			description      TEXT,
			store_info       TEXT,
			category         TEXT,
			createdate       %s NOT NULL
		)`, s.table, d.AutoID, d.Timestamp))
	if err != nil {
		return fmt.Errorf("%s: create %s: %w", d.Name, s.table, err)
	}
	return nil
}

// Insert appends one batch in a single transaction: either every row lands or none does.
func (s *StagingStore) Insert(ctx context.Context, rows []models.StagedListing) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			r.RunID, r.Name, r.Link, r.Identifier, r.Discount, r.OriginalPrice, r.DiscountedPrice,
			r.Description, r.StoreInfo, r.Category, r.CreatedAt,
		})
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return s.db.insertRows(ctx, tx, s.table, stagingColumns, values)
	})
}

// SelectAll returns every staged listing in insertion order.
func (s *StagingStore) SelectAll(ctx context.Context) ([]models.StagedListing, error) {
	rows, err := s.db.query(ctx, fmt.Sprintf(`
		SELECT run_id, name, link,
		       COALESCE(plu, ''), COALESCE(discount, ''), COALESCE(original_price, ''),
		       COALESCE(discounted_price, ''), COALESCE(description, ''), COALESCE(store_info, ''),
		       COALESCE(category, ''), createdate
		FROM %s
		ORDER BY id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", s.db.Dialect().Name, s.table, err)
	}
	defer rows.Close()

	var listings []models.StagedListing
	for rows.Next() {
		var l models.StagedListing
		if err := rows.Scan(
			&l.RunID, &l.Name, &l.Link, &l.Identifier, &l.Discount, &l.OriginalPrice,
			&l.DiscountedPrice, &l.Description, &l.StoreInfo, &l.Category, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.db.Dialect().Name, s.table, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"price-recommender/models"
)

var referenceColumns = []string{
	"name", "price", "originalprice", "discountpercentage", "detail",
	"platform", "productmasterid", "category", "createdate",
}

// ReferenceStore is the append-only canonical product table.
type ReferenceStore struct {
	db    *DB
	table string
}

// NewReferenceStore binds a ReferenceStore to the given table name.
func NewReferenceStore(db *DB, table string) (*ReferenceStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &ReferenceStore{db: db, table: table}, nil
}

// CreateIfAbsent creates the reference table when it does not exist.
func (s *ReferenceStore) CreateIfAbsent(ctx context.Context) error {
	d := s.db.Dialect()
	err := s.db.exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id                 %s,
			name               TEXT NOT NULL,
			price              TEXT NOT NULL,
			originalprice      TEXT NOT NULL,
			discountpercentage TEXT NOT NULL,
			detail             TEXT,
			platform           TEXT NOT NULL,
			productmasterid    TEXT,
			category           TEXT,
			createdate         %s NOT NULL
		)`, s.table, d.AutoID, d.Timestamp))
	if err != nil {
		return fmt.Errorf("%s: create %s: %w", d.Name, s.table, err)
	}
	return nil
}

// Insert appends rows in a single transaction. Existing rows are never touched.
func (s *ReferenceStore) Insert(ctx context.Context, rows []models.ReferenceProduct) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			r.Name, r.Price, r.OriginalPrice, r.DiscountPercentage, r.Detail,
			r.Platform, r.ProductMasterID, r.Category, r.CreateDate,
		})
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return s.db.insertRows(ctx, tx, s.table, referenceColumns, values)
	})
}

// SelectAll returns every reference product ordered by id.
func (s *ReferenceStore) SelectAll(ctx context.Context) ([]models.ReferenceProduct, error) {
	rows, err := s.db.query(ctx, fmt.Sprintf(`
		SELECT id, name, price, originalprice, discountpercentage, COALESCE(detail, ''),
		       platform, COALESCE(productmasterid, ''), COALESCE(category, ''), createdate
		FROM %s
		ORDER BY id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", s.db.Dialect().Name, s.table, err)
	}
	defer rows.Close()

	var products []models.ReferenceProduct
	for rows.Next() {
		var p models.ReferenceProduct
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.OriginalPrice, &p.DiscountPercentage, &p.Detail,
			&p.Platform, &p.ProductMasterID, &p.Category, &p.CreateDate,
		); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.db.Dialect().Name, s.table, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

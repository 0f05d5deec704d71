package storage

import (
	"context"
	"database/sql"
	"fmt"

	"price-recommender/models"
)

var productColumns = []string{
	"position", "productmasterid", "name", "category", "price", "originalprice", "detail", "platform",
}

// ProductStore holds the cleaned product table. Every write replaces it wholesale.
type ProductStore struct {
	db    *DB
	table string
}

// NewProductStore binds a ProductStore to the given table name.
func NewProductStore(db *DB, table string) (*ProductStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &ProductStore{db: db, table: table}, nil
}

func (s *ProductStore) createSQL() string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			position        INTEGER NOT NULL PRIMARY KEY,
			productmasterid TEXT NOT NULL,
			name            TEXT NOT NULL,
			category        TEXT NOT NULL,
			price           NUMERIC(14,2) NOT NULL,
			originalprice   NUMERIC(14,2) NOT NULL,
			detail          TEXT NOT NULL,
			platform        TEXT NOT NULL
		)`, s.table)
}

// ReplaceAll drops and recreates the table, then inserts rows, all in one transaction.
func (s *ProductStore) ReplaceAll(ctx context.Context, rows []models.CleanedProduct) error {
	name := s.db.Dialect().Name
	values := make([][]any, 0, len(rows))
	for i, r := range rows {
		values = append(values, []any{
			i, r.ProductMasterID, r.Name, r.Category, r.Price, r.OriginalPrice, r.Detail, r.Platform,
		})
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
			return fmt.Errorf("%s: drop %s: %w", name, s.table, err)
		}
		if _, err := tx.ExecContext(ctx, s.createSQL()); err != nil {
			return fmt.Errorf("%s: create %s: %w", name, s.table, err)
		}
		return s.db.insertRows(ctx, tx, s.table, productColumns, values)
	})
}

// SelectAll returns the cleaned products in the order they were written.
func (s *ProductStore) SelectAll(ctx context.Context) ([]models.CleanedProduct, error) {
	rows, err := s.db.query(ctx, fmt.Sprintf(`
		SELECT productmasterid, name, category, price, originalprice, detail, platform
		FROM %s
		ORDER BY position`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", s.db.Dialect().Name, s.table, err)
	}
	defer rows.Close()

	var products []models.CleanedProduct
	for rows.Next() {
		var p models.CleanedProduct
		if err := rows.Scan(
			&p.ProductMasterID, &p.Name, &p.Category, &p.Price, &p.OriginalPrice, &p.Detail, &p.Platform,
		); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", s.db.Dialect().Name, s.table, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

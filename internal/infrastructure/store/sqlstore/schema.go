package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/purbeurre/backend/internal/domain"
)

const (
	tableProducts          = "products"
	tableCategories        = "categories"
	tableUsers             = "users"
	tableProductCategories = "product_categories"
	tableProductUsers      = "product_users"
)

func (d dialect) columnDDL(col domain.FieldSpec, primary bool) string {
	if primary {
		return col.Name + " TEXT PRIMARY KEY"
	}
	if col.Kind == domain.FieldNumber {
		return col.Name + " " + d.numberType
	}
	return col.Name + " TEXT NOT NULL DEFAULT ''"
}

func (d dialect) tableDDL(table string, columns []domain.FieldSpec, extra ...string) string {
	defs := make([]string, 0, len(columns)+len(extra))
	for i, col := range columns {
		defs = append(defs, d.columnDDL(col, i == 0))
	}
	defs = append(defs, extra...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

func (d dialect) schema() []string {
	return []string{
		d.tableDDL(tableProducts, domain.ProductColumns(),
			domain.FieldLastUpdated+" TEXT NOT NULL DEFAULT ''"),
		d.tableDDL(tableCategories, domain.CategoryColumns()),
		`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY
)`,
		`CREATE TABLE IF NOT EXISTS product_categories (
	product_code TEXT NOT NULL REFERENCES products(code) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (product_code, category_id)
)`,
		`CREATE TABLE IF NOT EXISTS product_users (
	product_code TEXT NOT NULL REFERENCES products(code) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (product_code, user_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_product_categories_category ON product_categories (category_id)`,
	}
}

// migrate creates the catalog tables when they do not exist yet
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

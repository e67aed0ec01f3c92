// Package sqlstore persists the catalog in a relational database.
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx) share the same schema and queries.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/purbeurre/backend/internal/domain"
)

// Store is a CatalogRepository backed by database/sql
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open connects to the database and creates the schema.
// driver is DriverSQLite or DriverPostgres.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var d dialect
	switch driver {
	case DriverSQLite:
		d = sqliteDialect
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", driver, err)
	}

	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

type tableInfo struct {
	name    string
	columns []domain.FieldSpec
}

func tableFor(entity string) (tableInfo, error) {
	switch entity {
	case domain.EntityProduct:
		return tableInfo{tableProducts, domain.ProductColumns()}, nil
	case domain.EntityCategory:
		return tableInfo{tableCategories, domain.CategoryColumns()}, nil
	default:
		return tableInfo{}, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
	}
}

func (t tableInfo) column(name string) (domain.FieldSpec, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return domain.FieldSpec{}, false
}

func (s *Store) exec(ctx context.Context, q sqlExecer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert inserts the entity or updates the given columns of the existing row
func (s *Store) Upsert(ctx context.Context, entity, pk string, fields map[string]any) (bool, error) {
	table, err := tableFor(entity)
	if err != nil {
		return false, err
	}
	if pk == "" {
		return false, fmt.Errorf("%w: empty primary key", domain.ErrInvalidRequest)
	}

	pkName := table.columns[0].Name
	for name := range fields {
		if _, ok := table.column(name); !ok {
			return false, fmt.Errorf("%w: %s.%s", domain.ErrUnknownField, entity, name)
		}
	}

	var names []string
	var values []any
	// column order is fixed by the schema, not by map iteration
	for _, col := range table.columns[1:] {
		v, ok := fields[col.Name]
		if !ok {
			continue
		}
		value, err := columnValue(col, v)
		if err != nil {
			return false, err
		}
		names = append(names, col.Name)
		values = append(values, value)
	}
	if entity == domain.EntityProduct {
		names = append(names, domain.FieldLastUpdated)
		values = append(values, s.now().UTC().Format(time.RFC3339Nano))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		s.dialect.rebind(fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table.name, pkName)), pk).Scan(&exists)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("failed to look up %s %s: %w", entity, pk, err)
	}

	switch {
	case created:
		cols := append([]string{pkName}, names...)
		args := append([]any{pk}, values...)
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.name, strings.Join(cols, ", "), placeholders)
		if _, err := s.exec(ctx, tx, query, args...); err != nil {
			return false, fmt.Errorf("failed to insert %s %s: %w", entity, pk, err)
		}
	case len(names) > 0:
		sets := make([]string, len(names))
		for i, n := range names {
			sets[i] = n + " = ?"
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table.name, strings.Join(sets, ", "), pkName)
		if _, err := s.exec(ctx, tx, query, append(values, pk)...); err != nil {
			return false, fmt.Errorf("failed to update %s %s: %w", entity, pk, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit %s %s: %w", entity, pk, err)
	}
	return created, nil
}

func columnValue(col domain.FieldSpec, v any) (any, error) {
	switch col.Kind {
	case domain.FieldNumber:
		switch n := v.(type) {
		case nil:
			return nil, nil
		case float64:
			return n, nil
		}
	default:
		switch t := v.(type) {
		case nil:
			return "", nil
		case string:
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected %T value for %s", domain.ErrInvalidRequest, v, col.Name)
}

// AddRelation links a product to a category. Linking twice is a no-op.
func (s *Store) AddRelation(ctx context.Context, entity, relation, pk, memberID string) error {
	if entity != domain.EntityProduct || relation != domain.FieldCategoriesTags {
		return fmt.Errorf("%w: %s.%s", domain.ErrUnknownField, entity, relation)
	}
	_, err := s.exec(ctx, s.db,
		"INSERT INTO product_categories (product_code, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		pk, memberID)
	if err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", domain.ErrRelationAdd, pk, memberID, err)
	}
	return nil
}

func productSelect() string {
	cols := make([]string, 0, len(domain.ProductColumns())+1)
	for _, c := range domain.ProductColumns() {
		cols = append(cols, c.Name)
	}
	cols = append(cols, domain.FieldLastUpdated)
	return "SELECT " + strings.Join(cols, ", ") + " FROM products"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	columns := domain.ProductColumns()
	texts := make(map[string]*sql.NullString)
	numbers := make(map[string]*sql.NullFloat64)
	dest := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		if c.Kind == domain.FieldNumber {
			v := new(sql.NullFloat64)
			numbers[c.Name] = v
			dest = append(dest, v)
			continue
		}
		v := new(sql.NullString)
		texts[c.Name] = v
		dest = append(dest, v)
	}
	var updated sql.NullString
	dest = append(dest, &updated)

	if err := row.Scan(dest...); err != nil {
		return domain.Product{}, err
	}

	fields := make(map[string]any, len(dest))
	for name, v := range texts {
		fields[name] = v.String
	}
	for name, v := range numbers {
		if v.Valid {
			fields[name] = v.Float64
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, updated.String); err == nil {
		fields[domain.FieldLastUpdated] = t
	}
	return domain.ProductFromFields(fields), nil
}

// GetProduct returns a product with its category ids
func (s *Store) GetProduct(ctx context.Context, code string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(productSelect()+" WHERE code = ?"), code)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product %s: %w", code, err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind("SELECT category_id FROM product_categories WHERE product_code = ? ORDER BY category_id"), code)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories of %s: %w", code, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to read categories of %s: %w", code, err)
		}
		p.Categories = append(p.Categories, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories of %s: %w", code, err)
	}
	return &p, nil
}

// GetCategory returns a category by id
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT id, name, url FROM categories WHERE id = ?"), id).Scan(&c.ID, &c.Name, &c.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read category %s: %w", id, err)
	}
	return &c, nil
}

// Count returns the number of rows stored for an entity type
func (s *Store) Count(ctx context.Context, entity string) (int, error) {
	var table string
	switch entity {
	case domain.EntityProduct:
		table = tableProducts
	case domain.EntityCategory:
		table = tableCategories
	case domain.EntityUser:
		table = tableUsers
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// FindProductsByName returns graded products whose name contains every term, ignoring case
func (s *Store) FindProductsByName(ctx context.Context, terms []string) ([]domain.Product, error) {
	var b strings.Builder
	b.WriteString(productSelect())
	b.WriteString(" WHERE nutrition_grade_fr <> ''")
	args := make([]any, 0, len(terms))
	for _, t := range terms {
		fmt.Fprintf(&b, ` AND %s %s ? ESCAPE '\'`, s.dialect.nameExpr, s.dialect.like)
		args = append(args, likePattern(strings.ToLower(t)))
	}
	b.WriteString(" ORDER BY code")

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return out, nil
}

// AddFavorite records a user favoriting a product, creating the user when needed
func (s *Store) AddFavorite(ctx context.Context, userID, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.dialect.rebind("SELECT 1 FROM products WHERE code = ?"), code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, code)
	}
	if err != nil {
		return fmt.Errorf("failed to look up product %s: %w", code, err)
	}
	if _, err := s.exec(ctx, tx, "INSERT INTO users (id) VALUES (?) ON CONFLICT DO NOTHING", userID); err != nil {
		return fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	if _, err := s.exec(ctx, tx,
		"INSERT INTO product_users (product_code, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING", code, userID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return tx.Commit()
}

func (s *Store) deleteWhere(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", what, err)
	}
	return n, nil
}

// DeleteUnfavoritedProducts deletes every product no user has favorited
func (s *Store) DeleteUnfavoritedProducts(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "unfavorited products",
		"DELETE FROM products WHERE code NOT IN (SELECT product_code FROM product_users)")
}

// DeleteOrphanCategories deletes categories without any product
func (s *Store) DeleteOrphanCategories(ctx context.Context) (int64, error) {
	return s.DeleteSparseCategories(ctx, 0)
}

// DeleteProductsWithEmptyGrade deletes products lacking a nutrition grade
func (s *Store) DeleteProductsWithEmptyGrade(ctx context.Context) (int64, error) {
	return s.DeleteProductsMissingFields(ctx, []string{domain.FieldNutritionGrade})
}

// DeleteProductsMissingFields deletes products where any of fields is NULL or empty
func (s *Store) DeleteProductsMissingFields(ctx context.Context, fields []string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	table, _ := tableFor(domain.EntityProduct)
	conds := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := table.column(f)
		if !ok {
			return 0, fmt.Errorf("%w: product.%s", domain.ErrUnknownField, f)
		}
		if col.Kind == domain.FieldNumber {
			conds = append(conds, col.Name+" IS NULL")
		} else {
			conds = append(conds, fmt.Sprintf("(%s IS NULL OR %s = '')", col.Name, col.Name))
		}
	}
	return s.deleteWhere(ctx, "incomplete products", "DELETE FROM products WHERE "+strings.Join(conds, " OR "))
}

// DeleteSparseCategories deletes categories associated with at most maxProducts products
func (s *Store) DeleteSparseCategories(ctx context.Context, maxProducts int) (int64, error) {
	return s.deleteWhere(ctx, "sparse categories", `DELETE FROM categories WHERE id IN (
	SELECT c.id FROM categories c
	LEFT JOIN product_categories pc ON pc.category_id = c.id
	GROUP BY c.id
	HAVING COUNT(pc.product_code) <= ?
)`, maxProducts)
}

// DeleteUncategorizedProducts deletes products without any category
func (s *Store) DeleteUncategorizedProducts(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "uncategorized products",
		"DELETE FROM products WHERE code NOT IN (SELECT product_code FROM product_categories)")
}

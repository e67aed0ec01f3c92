package sqlstore

import (
	"strconv"
	"strings"
)

// Supported store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect struct {
	name string
	// database/sql driver name
	driver     string
	numberType string
	// case-insensitive pattern operator
	like string
	// product_name as compared against lower-cased search terms
	nameExpr string
	numbered bool
}

var (
	sqliteDialect = dialect{
		name:       DriverSQLite,
		driver:     "sqlite",
		numberType: "REAL",
		like:       "LIKE",
		nameExpr:   lowerFunc + "(product_name)",
	}
	postgresDialect = dialect{
		name:       DriverPostgres,
		driver:     "pgx",
		numberType: "DOUBLE PRECISION",
		like:       "ILIKE",
		nameExpr:   "product_name",
		numbered:   true,
	}
)

// rebind rewrites ? placeholders into $1, $2... for drivers that need numbered parameters
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqliteDSN turns on foreign keys and a busy timeout for every pooled connection
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	params := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	for _, p := range params {
		if strings.Contains(dsn, p) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn
}

// likePattern escapes LIKE wildcards so term matches literally as a substring
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

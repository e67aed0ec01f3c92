package sqlstore

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "UPDATE products SET a = ?, b = ? WHERE code = ?"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, "UPDATE products SET a = $1, b = $2 WHERE code = $3", postgresDialect.rebind(q))
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"catalog.db", "catalog.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"file:catalog.db?cache=shared", "file:catalog.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"catalog.db?_pragma=foreign_keys(1)", "catalog.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%cola%`, likePattern("cola"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b\\c%`, likePattern(`a_b\c`))
}

func TestUnicodeLower(t *testing.T) {
	got, err := unicodeLower(nil, []driver.Value{"Lait ÉCRÉMÉ"})
	require.NoError(t, err)
	assert.Equal(t, "lait écrémé", got)

	got, err = unicodeLower(nil, []driver.Value{nil})
	require.NoError(t, err)
	assert.Nil(t, got)
}

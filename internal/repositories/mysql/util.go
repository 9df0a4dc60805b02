// internal/repositories/mysql/util.go
package mysql

import (
	"database/sql"
	"math"
	"strings"
)

// placeholders menghasilkan "?, ?, ?, ..." sebanyak n.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

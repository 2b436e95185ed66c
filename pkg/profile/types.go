package profile

import "strings"

var timestampTypes = map[string]bool{
	"TIMESTAMP":                true,
	"TIMESTAMPTZ":              true,
	"TIMESTAMP WITH TIME ZONE": true,
	"DATETIME":                 true,
	"DATE":                     true,
	"TIME":                     true,
}

var numericTypes = map[string]bool{
	"TINYINT":   true,
	"SMALLINT":  true,
	"INTEGER":   true,
	"INT":       true,
	"BIGINT":    true,
	"HUGEINT":   true,
	"UTINYINT":  true,
	"USMALLINT": true,
	"UINTEGER":  true,
	"UBIGINT":   true,
	"FLOAT":     true,
	"REAL":      true,
	"DOUBLE":    true,
	"DECIMAL":   true,
}

// normalizeType upper-cases t and strips parameters such as DECIMAL(18,3)
func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// IsTimestamp reports whether a column type is temporal
func IsTimestamp(columnType string) bool {
	return timestampTypes[normalizeType(columnType)]
}

// IsNumeric reports whether a column type is numeric
func IsNumeric(columnType string) bool {
	return numericTypes[normalizeType(columnType)]
}

package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect captures the few syntax differences between supported drivers.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// QuoteIdent quotes a validated identifier, keeping an optional "db." qualifier.
	QuoteIdent(ident string) string
}

type questionDialect struct{ name string }

func (d questionDialect) Name() string               { return d.name }
func (d questionDialect) Placeholder(int) string     { return "?" }
func (d questionDialect) QuoteIdent(s string) string {
	if d.name == DriverMySQL {
		return quotePartsWith(s, "`")
	}
	return quoteParts(s)
}

type dollarDialect struct{}

func (dollarDialect) Name() string               { return DriverPostgres }
func (dollarDialect) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (dollarDialect) QuoteIdent(s string) string { return quoteParts(s) }

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverClickHouse, DriverMySQL, DriverSQLite:
		return questionDialect{name: driver}, nil
	case DriverPostgres:
		return dollarDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdent reports whether s is a plain (optionally db-qualified) SQL identifier.
// Identifiers cannot be bound as parameters, so anything that reaches query text must pass this.
func ValidIdent(s string) bool {
	return identRe.MatchString(s)
}

func quoteParts(s string) string {
	return quotePartsWith(s, `"`)
}

func quotePartsWith(s, q string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}

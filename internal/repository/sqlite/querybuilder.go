package sqlite

import (
	"regexp"
	"strings"
	"time"
)

// updateBuilder accumulates SET clauses for a partial UPDATE. Column names
// come only from compile-time allow-lists; values are always bound
// parameters, never interpolated.
type updateBuilder struct {
	sets []string
	args []any
}

// Set adds one column assignment.
func (b *updateBuilder) Set(column string, value any) {
	b.sets = append(b.sets, column+" = ?")
	b.args = append(b.args, value)
}

// TouchUpdatedAt stamps the modification time.
func (b *updateBuilder) TouchUpdatedAt(now time.Time) {
	b.Set("updated_at", now)
}

// Empty reports whether no assignment was added.
func (b *updateBuilder) Empty() bool { return len(b.sets) == 0 }

// Build renders the statement for one row keyed by id.
func (b *updateBuilder) Build(table, id string) (string, []any) {
	query := "UPDATE " + table + " SET " + strings.Join(b.sets, ", ") + " WHERE id = ?"
	return query, append(b.args, id)
}

// propertyKeyPattern bounds the property names accepted in filters. Keys
// outside it are rejected before any SQL is assembled.
var propertyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// comparisonOps is the operator allow-list for property filters.
var comparisonOps = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func validPropertyKey(key string) bool {
	return propertyKeyPattern.MatchString(key)
}

func validComparisonOp(op string) bool {
	return comparisonOps[op]
}

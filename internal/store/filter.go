package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Op int

const (
	OpEq Op = iota
	OpIn
	OpIsNull
	OpGte
	OpGt
	OpLte
	OpILike
	OpAnyOf
)

// Filter is a single predicate on a column. Column names come from code,
// never from request input.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
	Any    []Filter
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values interface{}) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

func Gte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

func Gt(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpGt, Value: value}
}

func Lte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

// ILike matches a case-insensitive pattern using % and _ wildcards.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

// AnyOf joins filters with OR.
func AnyOf(filters ...Filter) Filter {
	return Filter{Op: OpAnyOf, Any: filters}
}

// Contains builds the %term% pattern used by free-text search.
func Contains(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func (f Filter) clause() (string, []interface{}) {
	switch f.Op {
	case OpEq:
		return fmt.Sprintf("%s = ?", f.Column), []interface{}{f.Value}
	case OpIn:
		return fmt.Sprintf("%s IN ?", f.Column), []interface{}{f.Value}
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", f.Column), nil
	case OpGte:
		return fmt.Sprintf("%s >= ?", f.Column), []interface{}{f.Value}
	case OpGt:
		return fmt.Sprintf("%s > ?", f.Column), []interface{}{f.Value}
	case OpLte:
		return fmt.Sprintf("%s <= ?", f.Column), []interface{}{f.Value}
	case OpILike:
		// LOWER/LIKE instead of ILIKE so the same SQL runs outside postgres.
		pattern, _ := f.Value.(string)
		return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, f.Column), []interface{}{strings.ToLower(pattern)}
	case OpAnyOf:
		parts := make([]string, 0, len(f.Any))
		var args []interface{}
		for _, sub := range f.Any {
			sql, subArgs := sub.clause()
			parts = append(parts, "("+sql+")")
			args = append(args, subArgs...)
		}
		return strings.Join(parts, " OR "), args
	}
	panic(fmt.Sprintf("store: unknown filter op %d", f.Op))
}

func applyFilters(tx *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		if f.Op == OpAnyOf && len(f.Any) == 0 {
			continue
		}
		sql, args := f.clause()
		tx = tx.Where(sql, args...)
	}
	return tx
}

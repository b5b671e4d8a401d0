package query

import (
	"fmt"
	"strings"
)

type condition struct {
	clause string
	args   []any
}

// Builder constructs SQL queries using a fluent API with automatic
// parameter numbering.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	orderBy     []SortField
	defaultSort SortField
}

// NewBuilder creates a Builder for the given projection with a default sort field.
func NewBuilder(projection *ProjectionMap, defaultSort SortField) *Builder {
	return &Builder{
		projection:  projection,
		conditions:  make([]condition, 0),
		defaultSort: defaultSort,
	}
}

// WhereEquals adds an equality condition. Nil values are ignored.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if value == nil {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, condition{
		clause: fmt.Sprintf("%s = $%%d", col),
		args:   []any{value},
	})
	return b
}

// WhereContains adds a case-insensitive ILIKE condition. Nil or empty values are ignored.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, condition{
		clause: fmt.Sprintf("%s ILIKE $%%d", col),
		args:   []any{"%" + *value + "%"},
	})
	return b
}

// WhereSearch adds an OR condition across multiple fields with ILIKE.
// Nil or empty search is ignored.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	pattern := "%" + *search + "%"

	for i, field := range fields {
		clauses[i] = fmt.Sprintf("%s ILIKE $%%d", b.projection.Column(field))
		args[i] = pattern
	}

	b.conditions = append(b.conditions, condition{
		clause: "(" + strings.Join(clauses, " OR ") + ")",
		args:   args,
	})
	return b
}

// OrderByFields sets the sort order. Empty input keeps the default sort.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	if len(fields) > 0 {
		b.orderBy = fields
	}
	return b
}

// BuildCount returns a COUNT(*) query with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.buildWhere()
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.Table(), where)
	return sql, args
}

// Build returns a SELECT query with the current conditions and ordering,
// without pagination.
func (b *Builder) Build() (string, []any) {
	where, args := b.buildWhere()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s",
		b.projection.Columns(),
		b.projection.Table(),
		where,
		b.buildOrderBy(),
	)
	return sql, args
}

// BuildPage returns a paginated SELECT query with ordering, limit, and offset.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.buildWhere()
	offset := (page - 1) * pageSize

	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.Table(),
		where,
		b.buildOrderBy(),
		pageSize,
		offset,
	)
	return sql, args
}

// BuildSingle returns a SELECT query for a single record by the given field.
func (b *Builder) BuildSingle(field string, value any) (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.Table(),
		b.projection.Column(field),
	)
	return sql, []any{value}
}

func (b *Builder) buildWhere() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var clauses []string
	var args []any
	n := 1

	for _, c := range b.conditions {
		clause := c.clause
		for range c.args {
			clause = strings.Replace(clause, "$%d", fmt.Sprintf("$%d", n), 1)
			n++
		}
		clauses = append(clauses, clause)
		args = append(args, c.args...)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) buildOrderBy() string {
	fields := b.orderBy
	if len(fields) == 0 {
		fields = []SortField{b.defaultSort}
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, b.projection.Column(f.Field)+" "+dir)
	}

	return " ORDER BY " + strings.Join(parts, ", ")
}

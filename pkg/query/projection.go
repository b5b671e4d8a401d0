// Package query provides SQL query construction utilities with
// view-name to column-name projection mapping.
package query

import "strings"

// ProjectionMap translates view field names to aliased SQL columns
// for a single table.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	columns []string
	fields  map[string]string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project registers a column under a view field name. Registration order
// determines column order in generated SELECT lists.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns = append(p.columns, qualified)
	p.fields[field] = qualified
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns the aliased table reference for FROM clauses.
func (p *ProjectionMap) Table() string {
	return p.schema + "." + p.table + " " + p.alias
}

// Column resolves a view field name to its aliased column.
// Unknown field names are returned unchanged.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.fields[field]; ok {
		return col
	}
	return field
}

// Columns returns the comma-separated SELECT list in registration order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}

// ColumnList returns the aliased columns in registration order.
func (p *ProjectionMap) ColumnList() []string {
	return append([]string(nil), p.columns...)
}

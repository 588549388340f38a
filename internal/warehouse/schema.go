package warehouse

import (
	"fmt"
	"strings"
)

// ColumnType is the declared type of a destination column. The set is kept
// to types that mean the same thing on SQLite and PostgreSQL.
type ColumnType string

const (
	ColumnText    ColumnType = "TEXT"
	ColumnInteger ColumnType = "INTEGER"
	ColumnReal    ColumnType = "REAL"
)

// Column is a single destination column definition.
type Column struct {
	Name string
	Type ColumnType
}

// Record maps column names to scalar values. Every declared column of the
// destination schema must be present, possibly with a nil value.
type Record map[string]interface{}

// TableSchema describes a destination table: its name, ordered columns and
// the subset of columns forming the primary key.
type TableSchema struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Validate checks the structural invariants of the schema: a non-empty
// name and column set, a non-empty primary key, and every key column
// declared in Columns.
func (s *TableSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("table schema: name is required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %q: at least one column is required", s.Name)
	}
	if len(s.PrimaryKey) == 0 {
		return fmt.Errorf("table %q: primary key must not be empty", s.Name)
	}
	for _, key := range s.PrimaryKey {
		if !s.HasColumn(key) {
			return fmt.Errorf("table %q: primary key column %q is not declared", s.Name, key)
		}
	}
	return nil
}

// HasColumn reports whether name is a declared column.
func (s *TableSchema) HasColumn(name string) bool {
	for _, col := range s.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the declared column names in order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		names = append(names, col.Name)
	}
	return names
}

// NonKeyColumns returns the declared columns that are not part of the
// primary key, in declaration order.
func (s *TableSchema) NonKeyColumns() []string {
	keys := make(map[string]struct{}, len(s.PrimaryKey))
	for _, key := range s.PrimaryKey {
		keys[key] = struct{}{}
	}
	names := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		if _, ok := keys[col.Name]; !ok {
			names = append(names, col.Name)
		}
	}
	return names
}

// ValidateRecord checks that the record supplies a value (possibly nil)
// for every declared column.
func (s *TableSchema) ValidateRecord(rec Record) error {
	for _, col := range s.Columns {
		if _, ok := rec[col.Name]; !ok {
			return fmt.Errorf("table %q: record is missing column %q", s.Name, col.Name)
		}
	}
	return nil
}

// CreateSQL returns the idempotent DDL statement for the table. Identifiers
// are double-quoted, which both supported dialects accept.
func (s *TableSchema) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (", s.Name)
	for i, col := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q %s", col.Name, col.Type)
	}
	b.WriteString(", PRIMARY KEY (")
	for i, key := range s.PrimaryKey {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", key)
	}
	b.WriteString("))")
	return b.String()
}

// Registry maps table names to their schemas. It is built once at startup
// and shared by the loader and the view setup so all call sites agree on
// each table's definition.
type Registry map[string]*TableSchema

// NewRegistry builds a registry from the given schemas, validating each.
// Parameters:
//   - schemas: table schemas to register.
// Returns:
//   - Registry: name-keyed schema registry.
//   - error: non-nil if a schema is invalid or a name is duplicated.
func NewRegistry(schemas ...*TableSchema) (Registry, error) {
	reg := make(Registry, len(schemas))
	for _, schema := range schemas {
		if err := schema.Validate(); err != nil {
			return nil, err
		}
		if _, ok := reg[schema.Name]; ok {
			return nil, fmt.Errorf("duplicate schema for table %q", schema.Name)
		}
		reg[schema.Name] = schema
	}
	return reg, nil
}

// Get returns the schema registered for the table name.
func (r Registry) Get(name string) (*TableSchema, bool) {
	schema, ok := r[name]
	return schema, ok
}

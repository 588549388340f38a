package warehouse

import (
	"context"
	"fmt"
	"sort"

	"github.com/danh/tracktide/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Strategy selects how a batch of records is placed into its destination
// table. The set is closed; ParseStrategy rejects anything else at the
// boundary.
type Strategy string

const (
	StrategyInsert    Strategy = "insert"
	StrategyUpsert    Strategy = "upsert"
	StrategyOverwrite Strategy = "overwrite"
)

// ParseStrategy converts a configuration value into a Strategy.
// Parameters:
//   - value: raw strategy string from configuration.
// Returns:
//   - Strategy: parsed strategy.
//   - error: ErrUnsupportedStrategy (wrapped) for unknown values.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(value) {
	case StrategyInsert, StrategyUpsert, StrategyOverwrite:
		return Strategy(value), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrUnsupportedStrategy, value)
	}
}

// Loader places record batches into destination tables. One Loader is
// shared by all tables of a pipeline invocation; calls are sequential and
// each statement is its own transaction boundary.
type Loader struct {
	db *gorm.DB
}

// NewLoader creates a Loader bound to the given database handle.
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{db: db}
}

// Load applies one placement strategy to a single destination table.
//
// insert ensures the table exists and appends the batch; a primary-key
// collision fails the whole call with *ConstraintViolationError. overwrite
// drops the table (CASCADE on PostgreSQL), recreates it and inserts; a
// crash between drop and insert leaves the table absent or empty, which is
// accepted behavior for full-snapshot loads. upsert ensures the table and
// inserts with ON CONFLICT on the declared key columns updating the
// non-key columns.
func (l *Loader) Load(ctx context.Context, strategy Strategy, schema *TableSchema, records []Record) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	for _, rec := range records {
		if err := schema.ValidateRecord(rec); err != nil {
			return err
		}
	}

	switch strategy {
	case StrategyInsert:
		if err := l.ensureTable(ctx, schema); err != nil {
			return err
		}
		return l.insert(ctx, schema, records)
	case StrategyOverwrite:
		if err := l.dropTable(ctx, schema); err != nil {
			return err
		}
		if err := l.ensureTable(ctx, schema); err != nil {
			return err
		}
		return l.insert(ctx, schema, records)
	case StrategyUpsert:
		if err := l.ensureTable(ctx, schema); err != nil {
			return err
		}
		return l.upsert(ctx, schema, records)
	default:
		return fmt.Errorf("%w: got %q", ErrUnsupportedStrategy, strategy)
	}
}

// LoadMany applies the same strategy to every named table. All schemas are
// resolved before any table is touched so a missing schema cannot leave a
// partially applied batch behind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - strategy: placement strategy applied to every table.
//   - batches: destination table name -> record batch.
//   - reg: schema registry resolving every table name.
// Returns:
//   - error: non-nil if a schema is missing or any table load fails.
func (l *Loader) LoadMany(ctx context.Context, strategy Strategy, batches map[string][]Record, reg Registry) error {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return err
	}

	names := make([]string, 0, len(batches))
	for name := range batches {
		names = append(names, name)
	}
	sort.Strings(names)

	// Resolve every schema up front; fail before any I/O.
	schemas := make(map[string]*TableSchema, len(names))
	for _, name := range names {
		schema, ok := reg.Get(name)
		if !ok {
			return &SchemaNotFoundError{Table: name}
		}
		schemas[name] = schema
	}

	for _, name := range names {
		logger.CtxInfo(ctx, "Loading %d records into table %s (strategy=%s)", len(batches[name]), name, strategy)
		if err := l.Load(ctx, strategy, schemas[name], batches[name]); err != nil {
			return fmt.Errorf("load table %q: %w", name, err)
		}
	}
	return nil
}

func (l *Loader) ensureTable(ctx context.Context, schema *TableSchema) error {
	if err := l.db.WithContext(ctx).Exec(schema.CreateSQL()).Error; err != nil {
		return fmt.Errorf("create table %q: %w", schema.Name, err)
	}
	return nil
}

func (l *Loader) dropTable(ctx context.Context, schema *TableSchema) error {
	// The gorm migrator drops with IF EXISTS, and with CASCADE on PostgreSQL
	// so dependent views go with the table.
	if err := l.db.WithContext(ctx).Migrator().DropTable(schema.Name); err != nil {
		return fmt.Errorf("drop table %q: %w", schema.Name, err)
	}
	return nil
}

func (l *Loader) insert(ctx context.Context, schema *TableSchema, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).Table(schema.Name).Create(toRows(records)).Error
	if err != nil {
		if isDuplicateKey(err) {
			return &ConstraintViolationError{Table: schema.Name, Err: err}
		}
		return fmt.Errorf("insert into %q: %w", schema.Name, err)
	}
	return nil
}

func (l *Loader) upsert(ctx context.Context, schema *TableSchema, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	keyColumns := make([]clause.Column, 0, len(schema.PrimaryKey))
	for _, key := range schema.PrimaryKey {
		keyColumns = append(keyColumns, clause.Column{Name: key})
	}

	onConflict := clause.OnConflict{Columns: keyColumns}
	if nonKeys := schema.NonKeyColumns(); len(nonKeys) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(nonKeys)
	} else {
		// Every column is part of the key; a conflicting row is already
		// identical, so there is nothing to update.
		onConflict.DoNothing = true
	}

	err := l.db.WithContext(ctx).Table(schema.Name).
		Clauses(onConflict).
		Create(toRows(records)).Error
	if err != nil {
		return fmt.Errorf("upsert into %q: %w", schema.Name, err)
	}
	return nil
}

func toRows(records []Record) []map[string]interface{} {
	rows := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		rows[i] = map[string]interface{}(rec)
	}
	return rows
}

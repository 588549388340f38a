package warehouse

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrUnsupportedStrategy is returned when a load strategy outside of
// insert, upsert, overwrite reaches the engine. It fails before any I/O.
var ErrUnsupportedStrategy = errors.New("unsupported load strategy: expected one of insert, upsert, overwrite")

// SchemaNotFoundError is returned by LoadMany when a batch names a table
// that has no registered schema. Schemas are resolved up front, so no
// table has been touched when this is returned.
type SchemaNotFoundError struct {
	Table string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("no schema registered for table %q", e.Table)
}

// ConstraintViolationError is returned by the insert path when a record's
// primary-key values collide with an existing row. The batch is not
// applied.
type ConstraintViolationError struct {
	Table string
	Err   error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("primary key collision on table %q: %v", e.Table, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

// isDuplicateKey reports whether err is a duplicate/unique-key failure.
// TranslateError normalizes both supported drivers to ErrDuplicatedKey;
// the string checks cover raw statements that bypass translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

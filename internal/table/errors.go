package table

import (
	"errors"
	"fmt"

	terr "github.com/kong/ctable/internal/err"
)

// ErrSourceNotDefined is wrapped in a *err.ConfigurationError when a table is
// built without data and its Definition has no Source accessor.
var ErrSourceNotDefined = errors.New("table has no data and its definition does not provide a source")

// SchemaError reports that the columns of a table could not be resolved.
type SchemaError struct {
	Table string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return e.Msg
	}
	return fmt.Sprintf("table %q: %s", e.Table, e.Msg)
}

func sourceNotDefined(table string) error {
	if table == "" {
		return &terr.ConfigurationError{Err: ErrSourceNotDefined}
	}
	return &terr.ConfigurationError{Err: fmt.Errorf("table %q: %w", table, ErrSourceNotDefined)}
}

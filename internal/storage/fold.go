package storage

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// foldFunc is the SQL name of the Unicode case folding function. SQLite's
// own LIKE only folds ASCII.
const foldFunc = "fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return foldCase(v), nil
		case []byte:
			return foldCase(string(v)), nil
		default:
			return nil, fmt.Errorf("%s: unsupported argument type %T", foldFunc, v)
		}
	})
}

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// foldCase applies full Unicode case folding, so "CAFÉ" and "café" compare
// equal.
func foldCase(s string) string {
	return folder.String(s)
}

package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	sqlitedriver "modernc.org/sqlite"
)

// SQLite's built-in LOWER() only folds ASCII, so "Ñandú" would never match
// "ñandú". unicodeLowerFunc is a Go replacement registered with the driver
// and used by the catalog search.
const unicodeLowerFunc = "unicode_lower"

// Driver functions are process-wide and may only be registered once.
var (
	registerOnce sync.Once
	registerErr  error
)

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlitedriver.RegisterDeterministicScalarFunction(unicodeLowerFunc, 1, unicodeLower)
		if registerErr != nil {
			registerErr = fmt.Errorf("sqlite: registering %s: %w", unicodeLowerFunc, registerErr)
		}
	})
	return registerErr
}

func unicodeLower(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		// NULL and numbers pass through unchanged, like LOWER().
		return v, nil
	}
}

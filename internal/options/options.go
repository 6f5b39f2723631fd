// Package options persists named configuration values such as the history
// page size and the installed schema version.
package options

import (
	"context"
	"fmt"
	"strconv"
)

// Option names. Every option is namespaced with the plugin prefix.
const (
	RollsPerPage = "pbf_rolls_per_page"
	DBVersion    = "pbf_db_version"
)

// DefaultRollsPerPage applies when RollsPerPage is unset or invalid
const DefaultRollsPerPage = 10

// Store is a key/value option store
type Store interface {
	// Get returns the value of name and whether it is set
	Get(ctx context.Context, name string) (string, bool, error)
	// Add sets name only if it is not set yet
	Add(ctx context.Context, name, value string) error
	// Update sets name, overwriting any previous value
	Update(ctx context.Context, name, value string) error
	// Delete removes name; deleting an unset option is not an error
	Delete(ctx context.Context, name string) error
	// All returns every option
	All(ctx context.Context) (map[string]string, error)
}

// GetInt returns the integer value of name, or def when the option is
// unset, not a number or not positive.
func GetInt(ctx context.Context, s Store, name string, def int) (int, error) {
	v, ok, err := s.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to read option %s: %w", name, err)
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def, nil
	}
	return n, nil
}

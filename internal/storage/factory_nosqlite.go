//go:build !sqlite

package storage

import (
	"errors"
	"fmt"
)

// ErrSQLiteUnavailable is returned for the sqlite backend in builds without
// the sqlite tag.
var ErrSQLiteUnavailable = errors.New("sqlite summary store not compiled in")

func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w (path %q); rebuild with -tags sqlite", ErrSQLiteUnavailable, path)
}

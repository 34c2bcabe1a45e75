//go:build !sqlite

package storage

import "errors"

// Stub for builds without the sqlite tag.
func newSQLiteStore(_ string) (Store, error) {
	return nil, errors.New("sqlite store requires a build with -tags sqlite")
}

package storage

import "fmt"

// NewStore builds the run-artifact store named by kind. The sqlite backend
// needs a database path and is only available in builds with the sqlite tag.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (want memory or sqlite)", kind)
	}
}

// CloseIfSupported closes stores that hold external resources; the memory
// store has none and is left untouched.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

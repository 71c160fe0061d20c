package localstore

import (
	"fmt"
	"path/filepath"
)

// Backend kinds accepted by OpenBackend.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// OpenBackend builds the backend named by kind rooted at path. The returned
// close func is never nil.
func OpenBackend(kind, path string) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case KindMemory:
		return NewMemoryBackend(), noop, nil
	case KindFile, "":
		b, err := NewFileBackend(path)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case KindSQLite:
		b, err := OpenSQLite(filepath.Join(path, "cartsync.db"))
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

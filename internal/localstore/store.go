// Package localstore is the durable key→JSON store that holds cart and
// wishlist state on the shopper's device.
//
// A Store never returns errors to its caller: a backend that is missing,
// full or corrupt behaves as if no value were stored and saves become
// no-ops. Failures are logged at debug level.
package localstore

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrNotFound is returned by backends when a key has no stored value.
var ErrNotFound = errors.New("localstore: key not found")

// Backend is the raw byte storage behind a Store.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}

// Key is a versioned storage key such as "cart.v1". Bumping the version lets
// a new schema ignore (and prune) values written by an older one.
type Key struct {
	Name    string
	Version string
}

// String returns the backend key, "<name>.<version>".
func (k Key) String() string {
	return k.Name + "." + k.Version
}

// Keys used by the stores.
var (
	CartKey     = Key{Name: "cart", Version: "v1"}
	WishlistKey = Key{Name: "wishlist", Version: "v1"}
)

// Store wraps a Backend with a JSON codec and silent failure.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Store over backend. A nil backend yields a store where every
// load misses and every save is dropped.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{backend: backend, logger: logger}
}

// Load decodes the value stored under key into out. It reports whether a
// value was found and decoded; on false, out is left untouched.
func (s *Store) Load(key Key, out any) bool {
	if s == nil || s.backend == nil {
		return false
	}
	data, err := s.backend.Get(key.String())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("local load failed",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Debug("local value undecodable",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Save encodes value as JSON under key.
func (s *Store) Save(key Key, value any) {
	if s == nil || s.backend == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Debug("local value unencodable",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.backend.Set(key.String(), data); err != nil {
		s.logger.Debug("local save failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Remove deletes the value stored under key.
func (s *Store) Remove(key Key) {
	if s == nil || s.backend == nil {
		return
	}
	if err := s.backend.Delete(key.String()); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Debug("local remove failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Prune deletes values stored under an older version of current's name.
// Keys whose suffix is not a valid semver major ("v1", "v2.1") are kept.
// Returns the number of keys removed.
func (s *Store) Prune(current Key) int {
	if s == nil || s.backend == nil || !semver.IsValid(current.Version) {
		return 0
	}
	keys, err := s.backend.Keys()
	if err != nil {
		s.logger.Debug("local key listing failed", slog.String("error", err.Error()))
		return 0
	}

	prefix := current.Name + "."
	removed := 0
	for _, k := range keys {
		version, ok := strings.CutPrefix(k, prefix)
		if !ok || !semver.IsValid(version) {
			continue
		}
		if semver.Compare(version, current.Version) >= 0 {
			continue
		}
		if err := s.backend.Delete(k); err != nil {
			s.logger.Debug("local prune failed", slog.String("key", k), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("pruned superseded local keys",
			slog.String("name", current.Name),
			slog.String("version", current.Version),
			slog.Int("removed", removed),
		)
	}
	return removed
}

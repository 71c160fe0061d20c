package localstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type payload struct {
	Lines []string `json:"lines"`
}

// failingBackend fails every operation.
type failingBackend struct{}

var errBroken = errors.New("quota exceeded")

func (failingBackend) Get(string) ([]byte, error) { return nil, errBroken }
func (failingBackend) Set(string, []byte) error   { return errBroken }
func (failingBackend) Delete(string) error        { return errBroken }
func (failingBackend) Keys() ([]string, error)    { return nil, errBroken }

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	file, err := NewFileBackend(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": db,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b, nil)

			var got payload
			if s.Load(CartKey, &got) {
				t.Fatal("Load on empty backend reported a value")
			}

			s.Save(CartKey, payload{Lines: []string{"a", "b"}})
			if !s.Load(CartKey, &got) {
				t.Fatal("Load after Save found nothing")
			}
			if len(got.Lines) != 2 || got.Lines[1] != "b" {
				t.Errorf("Load = %+v", got)
			}

			s.Save(CartKey, payload{Lines: []string{"c"}})
			got = payload{}
			s.Load(CartKey, &got)
			if len(got.Lines) != 1 || got.Lines[0] != "c" {
				t.Errorf("overwrite Load = %+v", got)
			}

			s.Remove(CartKey)
			if s.Load(CartKey, &got) {
				t.Error("Load after Remove reported a value")
			}

			// Removing an absent key is not an error.
			s.Remove(WishlistKey)
		})
	}
}

func TestStoreSwallowsBackendFailures(t *testing.T) {
	s := New(failingBackend{}, nil)

	var got payload
	if s.Load(CartKey, &got) {
		t.Error("Load on failing backend reported a value")
	}
	s.Save(CartKey, payload{Lines: []string{"x"}})
	s.Remove(CartKey)
	if n := s.Prune(CartKey); n != 0 {
		t.Errorf("Prune = %d, want 0", n)
	}
}

func TestStoreNilBackend(t *testing.T) {
	s := New(nil, nil)
	var got payload
	if s.Load(CartKey, &got) {
		t.Error("Load on nil backend reported a value")
	}
	s.Save(CartKey, payload{})
	s.Remove(CartKey)
}

func TestStoreUnencodableValue(t *testing.T) {
	b := NewMemoryBackend()
	s := New(b, nil)
	s.Save(CartKey, make(chan int))
	if keys, _ := b.Keys(); len(keys) != 0 {
		t.Errorf("Keys = %v, want none", keys)
	}
}

func TestStoreCorruptValueLoadsAsMissing(t *testing.T) {
	b := NewMemoryBackend()
	b.Set(CartKey.String(), []byte("{not json"))

	s := New(b, nil)
	got := payload{Lines: []string{"keep"}}
	if s.Load(CartKey, &got) {
		t.Error("Load of corrupt value reported success")
	}
	if len(got.Lines) != 1 || got.Lines[0] != "keep" {
		t.Errorf("out modified on failed load: %+v", got)
	}
}

func TestPrune(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b, nil)
			for _, k := range []string{"cart.v0", "cart.v1", "cart.v2", "cart.legacy", "wishlist.v0"} {
				if err := b.Set(k, []byte(`[]`)); err != nil {
					t.Fatalf("Set(%s): %v", k, err)
				}
			}

			removed := s.Prune(Key{Name: "cart", Version: "v2"})
			if removed != 2 {
				t.Errorf("Prune removed %d, want 2", removed)
			}

			keys, err := b.Keys()
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			want := []string{"cart.legacy", "cart.v2", "wishlist.v0"}
			if len(keys) != len(want) {
				t.Fatalf("Keys = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("Keys[%d] = %s, want %s", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestPruneInvalidCurrentVersion(t *testing.T) {
	b := NewMemoryBackend()
	b.Set("cart.v1", []byte(`[]`))
	s := New(b, nil)
	if n := s.Prune(Key{Name: "cart", Version: "latest"}); n != 0 {
		t.Errorf("Prune = %d, want 0", n)
	}
}

func TestFileBackendRejectsPathKeys(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if err := b.Set(key, []byte("{}")); err == nil {
			t.Errorf("Set(%q) succeeded, want error", key)
		}
	}
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := b.Set("cart.v1", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "cart.v1.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [cart.v1.json]", names)
	}
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{KindMemory, false},
		{KindFile, false},
		{KindSQLite, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, closeFn, err := OpenBackend(tt.kind, dir)
			defer closeFn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenBackend(%s) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if !tt.wantErr && b == nil {
				t.Error("backend is nil")
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	if CartKey.String() != "cart.v1" {
		t.Errorf("CartKey = %s", CartKey.String())
	}
	if WishlistKey.String() != "wishlist.v1" {
		t.Errorf("WishlistKey = %s", WishlistKey.String())
	}
}

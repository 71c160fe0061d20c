// Package cart holds the shopper's cart lines, persists them locally on every
// change and exposes derived totals.
package cart

import (
	"io"
	"log/slog"
	"sync"

	"cartsync/internal/localstore"
	"cartsync/internal/model"
)

// Store is the cart. All mutations are synchronous; a mutation that changes
// state is persisted (once hydrated) and then announced to subscribers.
type Store struct {
	local  *localstore.Store
	key    localstore.Key
	logger *slog.Logger

	mu       sync.Mutex
	lines    []model.CartLine
	hydrated bool

	subMu  sync.Mutex
	subs   map[int]func([]model.CartLine)
	nextID int
}

// New creates an empty, not-yet-hydrated cart backed by local.
func New(local *localstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		local:  local,
		key:    localstore.CartKey,
		logger: logger,
		subs:   make(map[int]func([]model.CartLine)),
	}
}

// Hydrate loads the persisted cart once. A non-empty stored cart replaces the
// in-memory lines; either way Hydrated() is true afterwards and later changes
// are persisted. The load itself does not write back.
func (s *Store) Hydrate() {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}
	var stored []model.CartLine
	replaced := false
	if s.local.Load(s.key, &stored) && len(stored) > 0 {
		s.lines = sanitize(stored)
		replaced = true
	}
	s.hydrated = true
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("cart hydrated", slog.Int("lines", len(snapshot)))
	if replaced {
		s.notify(snapshot)
	}
}

// Hydrated reports whether the one-time local load has completed.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the line with id.
func (s *Store) Get(id model.LineID) (model.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.lines[i], true
	}
	return model.CartLine{}, false
}

// Has reports whether a line with id is in the cart.
func (s *Store) Has(id model.LineID) bool {
	_, ok := s.Get(id)
	return ok
}

// AddItem adds qty of in. An existing line with the same identity has its
// quantity increased, capped at MaxQty; otherwise a new line is appended.
// qty below 1 counts as 1.
func (s *Store) AddItem(in model.ItemInput, qty int) {
	if qty < model.MinQty {
		qty = model.MinQty
	}
	id := in.LineID()

	s.mutate(func() bool {
		if i := s.indexLocked(id); i >= 0 {
			next := model.ClampQty(s.lines[i].Qty + min(qty, model.MaxQty))
			if next == s.lines[i].Qty {
				return false
			}
			s.lines[i].Qty = next
			return true
		}
		s.lines = append(s.lines, model.CartLine{
			ID:             id,
			ProductID:      in.ProductID,
			Size:           in.Size,
			CustomKey:      in.CustomKey,
			Qty:            model.ClampQty(qty),
			PriceCents:     max(in.PriceCents, 0),
			Name:           in.Name,
			Image:          in.Image,
			Customizations: in.Customizations,
		})
		return true
	})
}

// UpdateQty sets the quantity of line id, clamped into [MinQty, MaxQty].
// Unknown ids are ignored.
func (s *Store) UpdateQty(id model.LineID, qty int) {
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		next := model.ClampQty(qty)
		if next == s.lines[i].Qty {
			return false
		}
		s.lines[i].Qty = next
		return true
	})
}

// RemoveItem drops line id. Unknown ids are ignored.
func (s *Store) RemoveItem(id model.LineID) {
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
		return true
	})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.lines) == 0 {
			return false
		}
		s.lines = nil
		return true
	})
}

// Replace swaps in lines wholesale. Used when the remote cart seeds an empty
// local cart.
func (s *Store) Replace(lines []model.CartLine) {
	clean := sanitize(lines)
	s.mutate(func() bool {
		s.lines = clean
		return true
	})
}

// Reset empties the cart and deletes its persisted entry.
func (s *Store) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.local.Remove(s.key)
	s.mu.Unlock()

	s.notify(nil)
}

// SubtotalCents is Σ price × qty in cents.
func (s *Store) SubtotalCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.lines {
		total += l.PriceCents * int64(l.Qty)
	}
	return total
}

// Subtotal is SubtotalCents in major units.
func (s *Store) Subtotal() float64 {
	return model.CentsToMajor(s.SubtotalCents())
}

// TotalQuantity is Σ qty.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, l := range s.lines {
		total += l.Qty
	}
	return total
}

// Subscribe registers fn to receive the full line list after every change.
// fn runs on the mutating goroutine and must not mutate the cart.
func (s *Store) Subscribe(fn func([]model.CartLine)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// mutate applies fn under the lock; if fn reports a change, the new state is
// persisted (when hydrated) before the lock is released, then announced.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	if s.hydrated {
		s.local.Save(s.key, snapshot)
	}
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Store) notify(lines []model.CartLine) {
	s.subMu.Lock()
	fns := make([]func([]model.CartLine), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(lines)
	}
}

func (s *Store) indexLocked(id model.LineID) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []model.CartLine {
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// sanitize enforces the line invariants on data from outside the store:
// ids derived from identity, one line per id, qty clamped.
func sanitize(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, 0, len(lines))
	seen := make(map[model.LineID]int, len(lines))
	for _, l := range lines {
		l.ID = model.NewLineID(l.ProductID, l.Size, l.CustomKey)
		l.Qty = model.ClampQty(l.Qty)
		if l.PriceCents < 0 {
			l.PriceCents = 0
		}
		if i, ok := seen[l.ID]; ok {
			out[i].Qty = model.ClampQty(out[i].Qty + l.Qty)
			continue
		}
		seen[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}

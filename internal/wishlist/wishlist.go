// Package wishlist keeps saved products locally and mirrors each add or
// remove to the remote wishlist while a session is active.
package wishlist

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"cartsync/internal/localstore"
	"cartsync/internal/model"
	"cartsync/internal/remote"
	"cartsync/internal/session"
)

// remoteCallTimeout bounds each fire-and-forget remote call.
const remoteCallTimeout = 20 * time.Second

// Store is the wishlist. Local state is authoritative; remote calls never
// block or roll back a local change.
type Store struct {
	local   *localstore.Store
	key     localstore.Key
	api     remote.API
	session *session.Signal
	logger  *slog.Logger

	mu       sync.Mutex
	lines    []model.WishlistLine
	hydrated bool
	syncing  bool
	resets   uint64 // bumped by Reset; a pull started before a reset is dropped

	ctx    context.Context
	cancel context.CancelFunc

	// Outstanding remote calls. Guarded by callMu so calls may start while
	// another goroutine is in Wait.
	callMu    sync.Mutex
	callsIdle *sync.Cond
	calls     int
	closed    bool
}

// New creates an empty wishlist. api and sig may be nil, in which case the
// wishlist is purely local.
func New(local *localstore.Store, api remote.API, sig *session.Signal, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		local:   local,
		key:     localstore.WishlistKey,
		api:     api,
		session: sig,
		logger:  logger,
		syncing: true,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.callsIdle = sync.NewCond(&s.callMu)
	return s
}

// Hydrate loads the persisted wishlist once.
func (s *Store) Hydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return
	}
	var stored []model.WishlistLine
	if s.local.Load(s.key, &stored) && len(stored) > 0 {
		s.lines = dedupe(stored)
	}
	s.hydrated = true
}

// Items returns a copy of the saved lines in insertion order.
func (s *Store) Items() []model.WishlistLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.WishlistLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Has reports whether id is saved.
func (s *Store) Has(id model.LineID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// Syncing is true until the first remote pull of the current session has
// finished. It is false for anonymous shoppers.
func (s *Store) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Add saves in. Adding an id that is already saved leaves the list unchanged
// but still tells the remote store.
func (s *Store) Add(in model.ItemInput) {
	line := newLine(in)

	s.mu.Lock()
	s.addLocked(line)
	s.mu.Unlock()

	s.remoteAdd(line.ProductID, line.Size)
}

// Remove drops id locally if present and tells the remote store either way.
func (s *Store) Remove(id model.LineID) {
	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()

	productID, size, _ := id.Parts()
	s.remoteRemove(productID, size)
}

// Toggle removes in if saved, otherwise adds it. It reports whether the item
// is saved afterwards. The check and the change happen under one lock.
func (s *Store) Toggle(in model.ItemInput) bool {
	line := newLine(in)

	s.mu.Lock()
	saved := !s.removeLocked(line.ID)
	if saved {
		s.addLocked(line)
	}
	s.mu.Unlock()

	if saved {
		s.remoteAdd(line.ProductID, line.Size)
	} else {
		s.remoteRemove(line.ProductID, line.Size)
	}
	return saved
}

// MoveToCart hands line id to addToCart with quantity 1 and then removes it
// from the wishlist. Reports false if id is not saved.
func (s *Store) MoveToCart(id model.LineID, addToCart func(model.ItemInput, int)) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	line := s.lines[i]
	s.mu.Unlock()

	addToCart(line.Input(), 1)
	s.Remove(id)
	return true
}

// Clear empties the local wishlist. The remote wishlist is left alone.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persistLocked()
}

// Reset empties the wishlist and deletes its persisted entry. Used on
// sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.resets++
	s.local.Remove(s.key)
}

// Pull fetches the remote wishlist and unions it into local state. Lines
// already present locally are kept as they are. Syncing is true while the
// fetch runs and false afterwards, whether or not it succeeded. A result that
// arrives after ctx is canceled or after a Reset is discarded.
func (s *Store) Pull(ctx context.Context) {
	if !s.remoteEnabled() {
		s.setSyncing(false)
		return
	}

	s.mu.Lock()
	s.syncing = true
	gen := s.resets
	s.mu.Unlock()
	defer s.setSyncing(false)

	items, err := s.api.GetWishlist(ctx)
	if err != nil {
		s.logger.Warn("wishlist pull failed", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.resets != gen {
		s.logger.Debug("wishlist pull discarded, session ended")
		return
	}
	added := 0
	for _, line := range model.FromRemoteWishlist(items) {
		if s.indexLocked(line.ID) >= 0 {
			continue
		}
		s.lines = append(s.lines, line)
		added++
	}
	if added > 0 {
		s.persistLocked()
	}
	s.logger.Debug("wishlist pulled",
		slog.Int("remote", len(items)),
		slog.Int("added", added),
	)
}

// Wait blocks until every outstanding remote call has returned.
func (s *Store) Wait() {
	s.callMu.Lock()
	defer s.callMu.Unlock()
	for s.calls > 0 {
		s.callsIdle.Wait()
	}
}

// Close cancels outstanding remote calls and waits for them. Later mutations
// stay local.
func (s *Store) Close() {
	s.callMu.Lock()
	s.closed = true
	s.callMu.Unlock()

	s.cancel()
	s.Wait()
}

func (s *Store) setSyncing(v bool) {
	s.mu.Lock()
	s.syncing = v
	s.mu.Unlock()
}

func (s *Store) remoteEnabled() bool {
	if s.api == nil {
		return false
	}
	return s.session == nil || s.session.Current().Authenticated
}

// background runs call on its own goroutine when a session is active.
// Failures are logged and otherwise ignored.
func (s *Store) background(op string, call func(ctx context.Context, api remote.API) error) {
	if !s.remoteEnabled() {
		return
	}
	s.callMu.Lock()
	if s.closed {
		s.callMu.Unlock()
		return
	}
	s.calls++
	s.callMu.Unlock()

	go func() {
		defer s.callDone()
		ctx, cancel := context.WithTimeout(s.ctx, remoteCallTimeout)
		defer cancel()
		if err := call(ctx, s.api); err != nil {
			s.logger.Warn("wishlist remote call failed",
				slog.String("op", op),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *Store) callDone() {
	s.callMu.Lock()
	s.calls--
	if s.calls == 0 {
		s.callsIdle.Broadcast()
	}
	s.callMu.Unlock()
}

func (s *Store) remoteAdd(productID, size string) {
	s.background("add", func(ctx context.Context, api remote.API) error {
		return api.AddWishlist(ctx, ref(productID, size))
	})
}

func (s *Store) remoteRemove(productID, size string) {
	s.background("remove", func(ctx context.Context, api remote.API) error {
		return api.RemoveWishlist(ctx, ref(productID, size))
	})
}

// addLocked appends line unless its id is already saved.
func (s *Store) addLocked(line model.WishlistLine) bool {
	if s.indexLocked(line.ID) >= 0 {
		return false
	}
	s.lines = append(s.lines, line)
	s.persistLocked()
	return true
}

// removeLocked drops id and reports whether it was saved.
func (s *Store) removeLocked(id model.LineID) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	s.persistLocked()
	return true
}

func (s *Store) persistLocked() {
	if !s.hydrated {
		return
	}
	out := make([]model.WishlistLine, len(s.lines))
	copy(out, s.lines)
	s.local.Save(s.key, out)
}

func (s *Store) indexLocked(id model.LineID) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func newLine(in model.ItemInput) model.WishlistLine {
	return model.WishlistLine{
		ID:         in.LineID(),
		ProductID:  in.ProductID,
		Size:       in.Size,
		CustomKey:  in.CustomKey,
		Name:       in.Name,
		PriceCents: max(in.PriceCents, 0),
		Image:      in.Image,
	}
}

func ref(productID, size string) model.WishlistRef {
	return model.WishlistRef{ProductID: productID, Size: size}
}

func dedupe(lines []model.WishlistLine) []model.WishlistLine {
	out := make([]model.WishlistLine, 0, len(lines))
	seen := make(map[model.LineID]bool, len(lines))
	for _, l := range lines {
		l.ID = model.NewLineID(l.ProductID, l.Size, l.CustomKey)
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

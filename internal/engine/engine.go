// Package engine assembles one shopper's cart, wishlist and reconciler over
// a shared local store, remote API and session signal.
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"cartsync/internal/cart"
	"cartsync/internal/localstore"
	"cartsync/internal/model"
	"cartsync/internal/reconcile"
	"cartsync/internal/remote"
	"cartsync/internal/session"
	"cartsync/internal/wishlist"
)

// Config wires an Engine.
type Config struct {
	Local        *localstore.Store
	API          remote.API
	Session      *session.Signal
	PushDebounce time.Duration
	Logger       *slog.Logger
}

// Engine owns the stores and keeps them reconciled with the remote API.
type Engine struct {
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Session  *session.Signal

	local      *localstore.Store
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

// New builds an engine. Nothing is loaded or fetched until Start.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sig := cfg.Session
	if sig == nil {
		sig = session.NewSignal(session.Anonymous())
	}

	c := cart.New(cfg.Local, logger.With(slog.String("component", "cart")))
	w := wishlist.New(cfg.Local, cfg.API, sig, logger.With(slog.String("component", "wishlist")))
	rec := reconcile.New(reconcile.Config{
		API:      cfg.API,
		Cart:     c,
		Wishlist: w,
		Session:  sig,
		Debounce: cfg.PushDebounce,
		Logger:   logger.With(slog.String("component", "reconcile")),
	})

	return &Engine{
		Cart:       c,
		Wishlist:   w,
		Session:    sig,
		local:      cfg.Local,
		reconciler: rec,
		logger:     logger,
	}
}

// Start drops stale key versions, hydrates both stores from the local store
// and begins reconciling.
func (e *Engine) Start() {
	e.local.Prune(localstore.CartKey)
	e.local.Prune(localstore.WishlistKey)

	e.Cart.Hydrate()
	e.Wishlist.Hydrate()
	e.reconciler.Start()

	e.logger.Info("engine started",
		slog.Bool("authenticated", e.Session.Current().Authenticated),
		slog.Int("cart_lines", len(e.Cart.Items())),
		slog.Int("wishlist_lines", len(e.Wishlist.Items())),
	)
}

// Flush pushes any pending cart change now and waits for outstanding
// wishlist calls.
func (e *Engine) Flush(ctx context.Context) {
	if e.reconciler.Flush(ctx) {
		e.logger.Debug("flushed pending cart push")
	}
	e.Wishlist.Wait()
}

// Close stops reconciling and cancels outstanding remote calls.
func (e *Engine) Close() {
	e.reconciler.Close()
	e.Wishlist.Close()
}

// MoveToCart moves a wishlist line into the cart with quantity 1.
func (e *Engine) MoveToCart(id model.LineID) bool {
	return e.Wishlist.MoveToCart(id, e.Cart.AddItem)
}

// MergeCompleted reports whether the sign-in merge has run for the current
// session.
func (e *Engine) MergeCompleted() bool {
	return e.reconciler.MergeCompleted()
}

// Wait blocks until background merge, push and wishlist work has settled.
func (e *Engine) Wait() {
	e.reconciler.Wait()
	e.Wishlist.Wait()
}

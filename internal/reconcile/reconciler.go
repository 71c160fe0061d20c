package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"cartsync/internal/model"
	"cartsync/internal/remote"
	"cartsync/internal/session"
)

// DefaultDebounce is the quiet period before a cart change is pushed.
const DefaultDebounce = 400 * time.Millisecond

// Cart is the part of the cart store the reconciler drives.
type Cart interface {
	Items() []model.CartLine
	Replace(lines []model.CartLine)
	Reset()
	Subscribe(fn func([]model.CartLine)) (unsubscribe func())
}

// Wishlist is the part of the wishlist store the reconciler drives.
type Wishlist interface {
	Pull(ctx context.Context)
	Reset()
}

// Config wires a Reconciler.
type Config struct {
	API      remote.API
	Cart     Cart
	Wishlist Wishlist // optional
	Session  *session.Signal
	Debounce time.Duration // defaults to DefaultDebounce
	Logger   *slog.Logger
}

// Reconciler runs the sign-in merge and the continuous cart push.
//
// On each transition to an authenticated session it fetches the remote cart
// once and reconciles it with the local one:
//   - remote empty, local not: the local lines are merged into the remote cart
//   - local empty, remote not: the local cart is replaced from the remote lines
//   - both non-empty and different: the remote cart is overwritten with local
//
// After that merge, every local cart change schedules a debounced push of the
// full cart. Signing out clears both stores and arms the merge again.
type Reconciler struct {
	api      remote.API
	cart     Cart
	wishlist Wishlist
	session  *session.Signal
	logger   *slog.Logger
	debounce *Debouncer

	mu            sync.Mutex
	active        bool
	merged        bool
	epoch         uint64
	changes       uint64
	cancelSession context.CancelFunc
	unsubscribe   []func()

	wg sync.WaitGroup
}

// New creates a Reconciler. Call Start to begin observing.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	delay := cfg.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Reconciler{
		api:      cfg.API,
		cart:     cfg.Cart,
		wishlist: cfg.Wishlist,
		session:  cfg.Session,
		logger:   logger,
		debounce: NewDebouncer(delay),
	}
}

// Start subscribes to the session and the cart, and begins a session at once
// if the shopper is already signed in.
func (r *Reconciler) Start() {
	unsubCart := r.cart.Subscribe(r.onCartChange)
	unsubSession := r.session.Subscribe(r.onSession)

	r.mu.Lock()
	r.unsubscribe = append(r.unsubscribe, unsubCart, unsubSession)
	r.mu.Unlock()

	if st := r.session.Current(); st.Authenticated {
		r.beginSession(st)
	} else if r.wishlist != nil {
		r.wishlist.Pull(context.Background())
	}
}

// Close stops observing, aborts any pending or running push and waits for
// background work to finish. Local state is left as is.
func (r *Reconciler) Close() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	if r.cancelSession != nil {
		r.cancelSession()
		r.cancelSession = nil
	}
	r.active = false
	r.epoch++
	r.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	r.debounce.Stop()
	r.wg.Wait()
	r.debounce.Wait()
}

// Flush pushes a pending cart change immediately instead of waiting out the
// debounce. Reports whether a push ran.
func (r *Reconciler) Flush(ctx context.Context) bool {
	return r.debounce.Flush(ctx)
}

// MergeCompleted reports whether the sign-in merge has finished for the
// current session.
func (r *Reconciler) MergeCompleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged
}

// Wait blocks until the current sign-in merge and any running push finish.
func (r *Reconciler) Wait() {
	r.wg.Wait()
	r.debounce.Wait()
}

func (r *Reconciler) onSession(prev, next session.State) {
	switch {
	case prev.Authenticated && !next.Authenticated:
		r.endSession()
	case prev.Authenticated && next.Authenticated && !prev.SameAccount(next):
		// Switching accounts without a sign-out in between.
		r.endSession()
		r.beginSession(next)
	case !prev.Authenticated && next.Authenticated:
		r.beginSession(next)
	}
}

func (r *Reconciler) beginSession(st session.State) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.cancelSession != nil {
		r.cancelSession()
	}
	r.cancelSession = cancel
	r.active = true
	r.merged = false
	r.epoch++
	epoch := r.epoch
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Info("session started", slog.String("user_id", st.UserID))

	go func() {
		defer r.wg.Done()
		if r.wishlist != nil {
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.wishlist.Pull(ctx)
			}()
		}
		r.initialMerge(ctx, epoch)
	}()
}

func (r *Reconciler) endSession() {
	r.mu.Lock()
	if r.cancelSession != nil {
		r.cancelSession()
		r.cancelSession = nil
	}
	r.active = false
	r.merged = false
	r.epoch++
	r.mu.Unlock()

	r.debounce.Stop()
	r.cart.Reset()
	if r.wishlist != nil {
		r.wishlist.Reset()
	}
	r.logger.Info("session ended, local cart and wishlist cleared")
}

// initialMerge runs the sign-in protocol for the session identified by epoch.
func (r *Reconciler) initialMerge(ctx context.Context, epoch uint64) {
	remoteLines, err := r.api.GetCart(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		// Leave the remote cart alone; later changes still push.
		r.logger.Warn("initial cart fetch failed", slog.String("error", err.Error()))
		r.finishMerge(epoch, r.changeCount())
		return
	}

	local := r.cart.Items()
	seen := r.changeCount()

	switch {
	case len(remoteLines) == 0 && len(local) == 0:
		r.logger.Debug("initial merge: both carts empty")

	case len(remoteLines) == 0:
		r.logger.Debug("initial merge: pushing local cart", slog.Int("lines", len(local)))
		if err := r.api.MergeCart(ctx, model.ToRemoteLines(local)); err != nil {
			r.logPushError("merge", err)
		}

	case len(local) == 0:
		r.logger.Debug("initial merge: adopting remote cart", slog.Int("lines", len(remoteLines)))
		if !r.current(epoch) {
			return
		}
		r.cart.Replace(model.FromRemoteLines(remoteLines))
		seen = r.changeCount()

	case Equal(local, remoteLines):
		r.logger.Debug("initial merge: carts already match")

	default:
		diff := Diff(local, remoteLines)
		r.logger.Debug("initial merge: overwriting remote cart",
			slog.Int("add", len(diff.ToAdd)),
			slog.Int("remove", len(diff.ToRemove)),
			slog.Int("update", len(diff.ToUpdate)),
		)
		if err := r.api.ReplaceCart(ctx, model.ToRemoteLines(local)); err != nil {
			r.logPushError("replace", err)
		}
	}

	r.finishMerge(epoch, seen)
}

// finishMerge marks the merge done if the session is still the one that
// started it, and schedules a push for cart changes made while it ran.
func (r *Reconciler) finishMerge(epoch, seen uint64) {
	r.mu.Lock()
	if r.epoch != epoch || !r.active {
		r.mu.Unlock()
		return
	}
	r.merged = true
	missed := r.changes != seen
	r.mu.Unlock()

	r.logger.Debug("initial merge completed")
	if missed {
		r.schedulePush()
	}
}

func (r *Reconciler) onCartChange([]model.CartLine) {
	r.mu.Lock()
	r.changes++
	ready := r.active && r.merged
	r.mu.Unlock()

	if ready {
		r.schedulePush()
	}
}

func (r *Reconciler) schedulePush() {
	r.debounce.Trigger(r.push)
}

// push sends the cart as it is when the debounce fires.
func (r *Reconciler) push(ctx context.Context) {
	lines := model.ToRemoteLines(r.cart.Items())
	if err := r.api.ReplaceCart(ctx, lines); err != nil {
		r.logPushError("replace", err)
		return
	}
	r.logger.Debug("cart pushed", slog.Int("lines", len(lines)))
}

func (r *Reconciler) logPushError(op string, err error) {
	if errors.Is(err, context.Canceled) {
		r.logger.Debug("cart push superseded", slog.String("op", op))
		return
	}
	r.logger.Warn("cart push failed", slog.String("op", op), slog.String("error", err.Error()))
}

func (r *Reconciler) changeCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes
}

func (r *Reconciler) current(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch == epoch && r.active
}

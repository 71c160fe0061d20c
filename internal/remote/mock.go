package remote

import (
	"context"
	"sync"

	"cartsync/internal/model"
)

// Call records one invocation on a Mock.
type Call struct {
	Method string
	Lines  []model.RemoteLine
	Ref    model.WishlistRef
}

// Mock implements API for testing. Each method can be configured via its
// function field; unset fields succeed with empty results. Every call is
// recorded.
type Mock struct {
	GetCartFunc        func(ctx context.Context) ([]model.RemoteLine, error)
	ReplaceCartFunc    func(ctx context.Context, lines []model.RemoteLine) error
	MergeCartFunc      func(ctx context.Context, lines []model.RemoteLine) error
	GetWishlistFunc    func(ctx context.Context) ([]model.RemoteWishlistItem, error)
	AddWishlistFunc    func(ctx context.Context, ref model.WishlistRef) error
	RemoveWishlistFunc func(ctx context.Context, ref model.WishlistRef) error

	mu    sync.Mutex
	calls []Call
}

func (m *Mock) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded calls, optionally filtered by method.
func (m *Mock) Calls(methods ...string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(methods) == 0 {
		return append([]Call(nil), m.calls...)
	}
	var out []Call
	for _, c := range m.calls {
		for _, name := range methods {
			if c.Method == name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// GetCart calls GetCartFunc or returns an empty cart.
func (m *Mock) GetCart(ctx context.Context) ([]model.RemoteLine, error) {
	m.record(Call{Method: "GetCart"})
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx)
	}
	return nil, nil
}

// ReplaceCart calls ReplaceCartFunc or succeeds.
func (m *Mock) ReplaceCart(ctx context.Context, lines []model.RemoteLine) error {
	m.record(Call{Method: "ReplaceCart", Lines: append([]model.RemoteLine(nil), lines...)})
	if m.ReplaceCartFunc != nil {
		return m.ReplaceCartFunc(ctx, lines)
	}
	return nil
}

// MergeCart calls MergeCartFunc or succeeds.
func (m *Mock) MergeCart(ctx context.Context, lines []model.RemoteLine) error {
	m.record(Call{Method: "MergeCart", Lines: append([]model.RemoteLine(nil), lines...)})
	if m.MergeCartFunc != nil {
		return m.MergeCartFunc(ctx, lines)
	}
	return nil
}

// GetWishlist calls GetWishlistFunc or returns an empty wishlist.
func (m *Mock) GetWishlist(ctx context.Context) ([]model.RemoteWishlistItem, error) {
	m.record(Call{Method: "GetWishlist"})
	if m.GetWishlistFunc != nil {
		return m.GetWishlistFunc(ctx)
	}
	return nil, nil
}

// AddWishlist calls AddWishlistFunc or succeeds.
func (m *Mock) AddWishlist(ctx context.Context, ref model.WishlistRef) error {
	m.record(Call{Method: "AddWishlist", Ref: ref})
	if m.AddWishlistFunc != nil {
		return m.AddWishlistFunc(ctx, ref)
	}
	return nil
}

// RemoveWishlist calls RemoveWishlistFunc or succeeds.
func (m *Mock) RemoveWishlist(ctx context.Context, ref model.WishlistRef) error {
	m.record(Call{Method: "RemoveWishlist", Ref: ref})
	if m.RemoveWishlistFunc != nil {
		return m.RemoveWishlistFunc(ctx, ref)
	}
	return nil
}

// Verify Mock implements API at compile time.
var _ API = (*Mock)(nil)

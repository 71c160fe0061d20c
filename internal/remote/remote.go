// Package remote talks to the account-scoped cart and wishlist store.
package remote

import (
	"context"

	"cartsync/internal/model"
)

// API abstracts the remote store. The engine only ever reaches it while the
// shopper is authenticated.
type API interface {
	// GetCart returns the remote cart's lines.
	GetCart(ctx context.Context) ([]model.RemoteLine, error)

	// ReplaceCart overwrites the remote line list wholesale.
	ReplaceCart(ctx context.Context, lines []model.RemoteLine) error

	// MergeCart asks the server to add lines, summing quantities into any
	// line it already holds.
	MergeCart(ctx context.Context, lines []model.RemoteLine) error

	// GetWishlist returns the remote wishlist.
	GetWishlist(ctx context.Context) ([]model.RemoteWishlistItem, error)

	// AddWishlist saves one product.
	AddWishlist(ctx context.Context, ref model.WishlistRef) error

	// RemoveWishlist deletes one product.
	RemoveWishlist(ctx context.Context, ref model.WishlistRef) error
}

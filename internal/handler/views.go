package handler

import (
	"encoding/base64"

	"cartsync/internal/cart"
	"cartsync/internal/model"
	"cartsync/internal/wishlist"
)

// EncodeLineID renders a line identifier as a URL-safe token.
func EncodeLineID(id model.LineID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeLineID reverses EncodeLineID.
func DecodeLineID(token string) (model.LineID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return model.LineID(raw), nil
}

// CartLineView is a cart line as rendered to clients.
type CartLineView struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Size           string `json:"size,omitempty"`
	CustomKey      string `json:"custom_key,omitempty"`
	Qty            int    `json:"qty"`
	PriceCents     int64  `json:"price_cents"`
	Price          string `json:"price"`
	Name           string `json:"name"`
	Image          string `json:"image"`
	Customizations any    `json:"customizations,omitempty"`
}

// CartView is the cart with its derived totals.
type CartView struct {
	Items         []CartLineView `json:"items"`
	SubtotalCents int64          `json:"subtotal_cents"`
	Subtotal      string         `json:"subtotal"`
	TotalQuantity int            `json:"total_quantity"`
	Hydrated      bool           `json:"hydrated"`
}

// WishlistLineView is a saved product as rendered to clients.
type WishlistLineView struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Size       string `json:"size,omitempty"`
	CustomKey  string `json:"custom_key,omitempty"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Price      string `json:"price"`
	Image      string `json:"image"`
}

// WishlistView is the wishlist and its sync state.
type WishlistView struct {
	Items   []WishlistLineView `json:"items"`
	Syncing bool               `json:"syncing"`
}

// ToggleView reports a toggle's outcome.
type ToggleView struct {
	Saved    bool         `json:"saved"`
	Wishlist WishlistView `json:"wishlist"`
}

// MoveView is returned after moving a wishlist line into the cart.
type MoveView struct {
	Cart     CartView     `json:"cart"`
	Wishlist WishlistView `json:"wishlist"`
}

// SessionView is the current session signal.
type SessionView struct {
	Authenticated  bool   `json:"authenticated"`
	UserID         string `json:"user_id,omitempty"`
	MergeCompleted bool   `json:"merge_completed"`
}

func newCartView(c *cart.Store) CartView {
	lines := c.Items()
	items := make([]CartLineView, 0, len(lines))
	for _, l := range lines {
		view := CartLineView{
			ID:         EncodeLineID(l.ID),
			ProductID:  l.ProductID,
			Size:       l.Size,
			CustomKey:  l.CustomKey,
			Qty:        l.Qty,
			PriceCents: l.PriceCents,
			Price:      model.FormatCents(l.PriceCents),
			Name:       l.Name,
			Image:      l.Image,
		}
		if len(l.Customizations) > 0 {
			view.Customizations = l.Customizations
		}
		items = append(items, view)
	}
	subtotal := c.SubtotalCents()
	return CartView{
		Items:         items,
		SubtotalCents: subtotal,
		Subtotal:      model.FormatCents(subtotal),
		TotalQuantity: c.TotalQuantity(),
		Hydrated:      c.Hydrated(),
	}
}

func newWishlistView(w *wishlist.Store) WishlistView {
	lines := w.Items()
	items := make([]WishlistLineView, 0, len(lines))
	for _, l := range lines {
		items = append(items, WishlistLineView{
			ID:         EncodeLineID(l.ID),
			ProductID:  l.ProductID,
			Size:       l.Size,
			CustomKey:  l.CustomKey,
			Name:       l.Name,
			PriceCents: l.PriceCents,
			Price:      model.FormatCents(l.PriceCents),
			Image:      l.Image,
		})
	}
	return WishlistView{Items: items, Syncing: w.Syncing()}
}

// Package model defines cart and wishlist line types and the remote wire formats.
package model

import (
	"encoding/json"
	"strings"
)

// Quantity bounds for a single cart line.
const (
	MinQty = 1
	MaxQty = 99
)

// LineID identifies one purchasable line: a product in a given size with a
// given customization. Two additions with the same triple share a LineID.
type LineID string

// lineSep cannot appear in product IDs, sizes or customization keys produced
// by the storefront, so concatenation stays unambiguous.
const lineSep = "\x1f"

// NewLineID derives the line identifier for (productID, size, customKey).
// Empty size and customKey are valid and distinct from any non-empty value.
func NewLineID(productID, size, customKey string) LineID {
	var b strings.Builder
	b.Grow(len(productID) + len(size) + len(customKey) + 2)
	b.WriteString(productID)
	b.WriteString(lineSep)
	b.WriteString(size)
	b.WriteString(lineSep)
	b.WriteString(customKey)
	return LineID(b.String())
}

// Parts splits id back into its product, size and customization key.
func (id LineID) Parts() (productID, size, customKey string) {
	parts := strings.SplitN(string(id), lineSep, 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// ClampQty forces qty into [MinQty, MaxQty].
func ClampQty(qty int) int {
	if qty < MinQty {
		return MinQty
	}
	if qty > MaxQty {
		return MaxQty
	}
	return qty
}

// ItemInput is what the rendering layer passes when adding a product to the
// cart or the wishlist.
type ItemInput struct {
	ProductID      string          `json:"product_id"`
	Size           string          `json:"size,omitempty"`
	CustomKey      string          `json:"custom_key,omitempty"`
	PriceCents     int64           `json:"price_cents"`
	Name           string          `json:"name"`
	Image          string          `json:"image"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
}

// LineID returns the identifier this input resolves to.
func (in ItemInput) LineID() LineID {
	return NewLineID(in.ProductID, in.Size, in.CustomKey)
}

// CartLine is one line in the shopper's cart.
// Qty is always within [MinQty, MaxQty].
type CartLine struct {
	ID             LineID          `json:"id"`
	ProductID      string          `json:"product_id"`
	Size           string          `json:"size,omitempty"`
	CustomKey      string          `json:"custom_key,omitempty"`
	Qty            int             `json:"qty"`
	PriceCents     int64           `json:"price_cents_snapshot"`
	Name           string          `json:"name"`
	Image          string          `json:"image"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
}

// WishlistLine is one saved product. Wishlist lines carry no quantity.
type WishlistLine struct {
	ID         LineID `json:"id"`
	ProductID  string `json:"product_id"`
	Size       string `json:"size,omitempty"`
	CustomKey  string `json:"custom_key,omitempty"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents_snapshot"`
	Image      string `json:"image"`
}

// Input converts the wishlist line back into an add-to-cart input.
func (w WishlistLine) Input() ItemInput {
	return ItemInput{
		ProductID:  w.ProductID,
		Size:       w.Size,
		CustomKey:  w.CustomKey,
		PriceCents: w.PriceCents,
		Name:       w.Name,
		Image:      w.Image,
	}
}

// === Remote wire types ===

// RemoteLine is a cart line as the account-scoped cart API sees it.
type RemoteLine struct {
	ProductID  string `json:"productId"`
	Size       string `json:"size,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"priceCentsSnapshot"`
}

// RemoteCart is the body of GET/POST/PATCH cart.
type RemoteCart struct {
	Lines []RemoteLine `json:"lines"`
}

// RemoteProduct is the product summary embedded in a remote wishlist item.
type RemoteProduct struct {
	Name       string   `json:"name"`
	PriceCents int64    `json:"priceCents"`
	Images     []string `json:"images"`
	Sizes      []string `json:"sizes"`
}

// RemoteWishlistItem is one entry of GET wishlist.
type RemoteWishlistItem struct {
	ProductID string        `json:"productId"`
	Size      string        `json:"size,omitempty"`
	Product   RemoteProduct `json:"product"`
}

// RemoteWishlist is the body of GET wishlist.
type RemoteWishlist struct {
	Items []RemoteWishlistItem `json:"items"`
}

// WishlistRef is the body of POST wishlist and the query of DELETE wishlist.
type WishlistRef struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
}

// ToRemoteLines converts cart lines to the remote wire shape.
// Always returns a non-nil slice so the body encodes as [] rather than null.
func ToRemoteLines(lines []CartLine) []RemoteLine {
	out := make([]RemoteLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, RemoteLine{
			ProductID:  l.ProductID,
			Size:       l.Size,
			Qty:        l.Qty,
			PriceCents: l.PriceCents,
		})
	}
	return out
}

// FromRemoteLines builds local cart lines from the remote cart. Display name
// and image are left empty for product views to enrich later.
func FromRemoteLines(remote []RemoteLine) []CartLine {
	out := make([]CartLine, 0, len(remote))
	seen := make(map[LineID]int, len(remote))
	for _, r := range remote {
		id := NewLineID(r.ProductID, r.Size, "")
		if i, ok := seen[id]; ok {
			out[i].Qty = ClampQty(out[i].Qty + r.Qty)
			continue
		}
		seen[id] = len(out)
		out = append(out, CartLine{
			ID:         id,
			ProductID:  r.ProductID,
			Size:       r.Size,
			Qty:        ClampQty(r.Qty),
			PriceCents: r.PriceCents,
		})
	}
	return out
}

// FromRemoteWishlist builds wishlist lines from the remote wishlist.
func FromRemoteWishlist(items []RemoteWishlistItem) []WishlistLine {
	out := make([]WishlistLine, 0, len(items))
	for _, it := range items {
		var image string
		if len(it.Product.Images) > 0 {
			image = it.Product.Images[0]
		}
		out = append(out, WishlistLine{
			ID:         NewLineID(it.ProductID, it.Size, ""),
			ProductID:  it.ProductID,
			Size:       it.Size,
			Name:       it.Product.Name,
			PriceCents: it.Product.PriceCents,
			Image:      image,
		})
	}
	return out
}

package handler

import (
	"net/http"

	"cartsync/internal/model"
)

// handleGetWishlist returns the wishlist.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newWishlistView(h.engine.Wishlist))
}

// handleAddWishlistItem saves a product.
// POST /wishlist/items
func (h *Handler) handleAddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.engine.Wishlist.Add(in)
	h.writeJSON(w, http.StatusOK, newWishlistView(h.engine.Wishlist))
}

// handleRemoveWishlistItem drops a saved product.
// DELETE /wishlist/items/{id}
func (h *Handler) handleRemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathLineID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.engine.Wishlist.Remove(id)
	h.writeJSON(w, http.StatusOK, newWishlistView(h.engine.Wishlist))
}

// handleToggleWishlist saves or unsaves a product.
// POST /wishlist/toggle
func (h *Handler) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		h.writeError(w, err)
		return
	}

	saved := h.engine.Wishlist.Toggle(in)
	h.writeJSON(w, http.StatusOK, ToggleView{
		Saved:    saved,
		Wishlist: newWishlistView(h.engine.Wishlist),
	})
}

// handleMoveToCart moves a saved product into the cart.
// POST /wishlist/items/{id}/move-to-cart
func (h *Handler) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathLineID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.engine.MoveToCart(id) {
		h.writeError(w, model.NewNotFoundError("wishlist line"))
		return
	}

	h.writeJSON(w, http.StatusOK, MoveView{
		Cart:     newCartView(h.engine.Cart),
		Wishlist: newWishlistView(h.engine.Wishlist),
	})
}

// handleClearWishlist empties the local wishlist.
// DELETE /wishlist
func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	h.engine.Wishlist.Clear()
	h.writeJSON(w, http.StatusOK, newWishlistView(h.engine.Wishlist))
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"cartsync/internal/model"
)

// ItemRequest is the body for adding a product to the cart or wishlist.
// Price may be given in cents or as a decimal string.
type ItemRequest struct {
	ProductID      string          `json:"product_id"`
	Size           string          `json:"size,omitempty"`
	CustomKey      string          `json:"custom_key,omitempty"`
	PriceCents     int64           `json:"price_cents,omitempty"`
	Price          string          `json:"price,omitempty"`
	Name           string          `json:"name,omitempty"`
	Image          string          `json:"image,omitempty"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
	Qty            int             `json:"qty,omitempty"`
}

// Input validates the request and converts it to an item input.
func (r ItemRequest) Input() (model.ItemInput, error) {
	productID := strings.TrimSpace(r.ProductID)
	if productID == "" {
		return model.ItemInput{}, model.NewValidationError("product_id", "required")
	}
	cents := r.PriceCents
	if cents == 0 && r.Price != "" {
		cents = model.ParseCents(r.Price)
	}
	if cents < 0 {
		return model.ItemInput{}, model.NewValidationError("price", "must not be negative")
	}
	return model.ItemInput{
		ProductID:      productID,
		Size:           r.Size,
		CustomKey:      r.CustomKey,
		PriceCents:     cents,
		Name:           r.Name,
		Image:          r.Image,
		Customizations: r.Customizations,
	}, nil
}

// QtyRequest is the body for changing a cart line's quantity.
type QtyRequest struct {
	Qty int `json:"qty"`
}

// handleGetCart returns the cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newCartView(h.engine.Cart))
}

// handleAddCartItem adds a product to the cart.
// POST /cart/items
func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
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
	qty := req.Qty
	if qty == 0 {
		qty = 1
	}

	h.logger.InfoContext(r.Context(), "adding to cart",
		slog.String("product_id", in.ProductID),
		slog.String("size", in.Size),
		slog.Int("qty", qty),
	)

	h.engine.Cart.AddItem(in, qty)
	h.writeJSON(w, http.StatusOK, newCartView(h.engine.Cart))
}

// handleUpdateCartItem sets a line's quantity.
// PATCH /cart/items/{id}
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathLineID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req QtyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if !h.engine.Cart.Has(id) {
		h.writeError(w, model.NewNotFoundError("cart line"))
		return
	}

	h.engine.Cart.UpdateQty(id, req.Qty)
	h.writeJSON(w, http.StatusOK, newCartView(h.engine.Cart))
}

// handleRemoveCartItem drops a line.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathLineID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.engine.Cart.Has(id) {
		h.writeError(w, model.NewNotFoundError("cart line"))
		return
	}

	h.engine.Cart.RemoveItem(id)
	h.writeJSON(w, http.StatusOK, newCartView(h.engine.Cart))
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.engine.Cart.Clear()
	h.writeJSON(w, http.StatusOK, newCartView(h.engine.Cart))
}

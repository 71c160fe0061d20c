// Package handler exposes the cart, wishlist and session of one engine over
// REST and MCP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cartsync/internal/engine"
	"cartsync/internal/model"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// New creates a new Handler over the given engine and logger.
func New(e *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: e,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/items", h.handleAddCartItem)
	mux.HandleFunc("PATCH /cart/items/{id}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)

	// Wishlist
	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)
	mux.HandleFunc("POST /wishlist/items", h.handleAddWishlistItem)
	mux.HandleFunc("DELETE /wishlist/items/{id}", h.handleRemoveWishlistItem)
	mux.HandleFunc("POST /wishlist/toggle", h.handleToggleWishlist)
	mux.HandleFunc("POST /wishlist/items/{id}/move-to-cart", h.handleMoveToCart)
	mux.HandleFunc("DELETE /wishlist", h.handleClearWishlist)

	// Session signal
	mux.HandleFunc("GET /session", h.handleGetSession)
	mux.HandleFunc("PUT /session", h.handlePutSession)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// pathLineID decodes the {id} path segment.
func pathLineID(r *http.Request) (model.LineID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return "", model.NewValidationError("id", "line ID required")
	}
	id, err := DecodeLineID(raw)
	if err != nil {
		return "", model.NewValidationError("id", "malformed line ID")
	}
	return id, nil
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		CartHydrated:  h.engine.Cart.Hydrated(),
		WishlistSync:  h.engine.Wishlist.Syncing(),
		Authenticated: h.engine.Session.Current().Authenticated,
	})
}

type healthResponse struct {
	Status        string `json:"status"`
	CartHydrated  bool   `json:"cart_hydrated"`
	WishlistSync  bool   `json:"wishlist_syncing"`
	Authenticated bool   `json:"authenticated"`
}

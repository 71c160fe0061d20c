// MCP transport handler using the official MCP Go SDK.
// Exposes the cart and wishlist operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cartsync/internal/model"
)

// === MCP Tool Input Types ===

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	ProductID  string `json:"product_id" jsonschema:"product to add"`
	Size       string `json:"size,omitempty" jsonschema:"size variant"`
	CustomKey  string `json:"custom_key,omitempty" jsonschema:"customization key, distinct keys make distinct lines"`
	PriceCents int64  `json:"price_cents,omitempty" jsonschema:"unit price snapshot in cents"`
	Name       string `json:"name,omitempty" jsonschema:"display name"`
	Image      string `json:"image,omitempty" jsonschema:"display image URL"`
	Qty        int    `json:"qty,omitempty" jsonschema:"quantity to add, defaults to 1"`
}

func (in AddToCartInput) request() ItemRequest {
	return ItemRequest{
		ProductID:  in.ProductID,
		Size:       in.Size,
		CustomKey:  in.CustomKey,
		PriceCents: in.PriceCents,
		Name:       in.Name,
		Image:      in.Image,
		Qty:        in.Qty,
	}
}

// UpdateQuantityInput is the input schema for update_cart_quantity.
type UpdateQuantityInput struct {
	ID  string `json:"id" jsonschema:"cart line ID from get_cart"`
	Qty int    `json:"qty" jsonschema:"new quantity, clamped to 1..99"`
}

// LineInput is the input schema for tools addressing a single line.
type LineInput struct {
	ID string `json:"id" jsonschema:"line ID from get_cart or get_wishlist"`
}

// NewMCPServer creates an MCP server with cart and wishlist tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cartsync",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Shopper cart and wishlist. Changes apply locally at once " +
				"and sync to the shopper's account in the background while signed in.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart lines, subtotal and total quantity.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart. Adding an existing line increases its quantity, up to 99.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_quantity",
		Description: "Set the quantity of a cart line.",
	}, h.mcpUpdateQuantity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_wishlist",
		Description: "Get the saved products.",
	}, h.mcpGetWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_wishlist",
		Description: "Save a product to the wishlist, or unsave it if already saved.",
	}, h.mcpToggleWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_to_cart",
		Description: "Move a saved product into the cart with quantity 1.",
	}, h.mcpMoveToCart)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, *CartView, error) {
	view := newCartView(h.engine.Cart)
	return nil, &view, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *CartView, error) {
	item, err := input.request().Input()
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	qty := input.Qty
	if qty == 0 {
		qty = 1
	}

	h.engine.Cart.AddItem(item, qty)
	view := newCartView(h.engine.Cart)
	return nil, &view, nil
}

func (h *Handler) mcpUpdateQuantity(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateQuantityInput,
) (*mcp.CallToolResult, *CartView, error) {
	id, err := h.mcpLineID(input.ID)
	if err != nil {
		return nil, nil, err
	}
	if !h.engine.Cart.Has(id) {
		return nil, nil, h.mcpError(model.NewNotFoundError("cart line"))
	}

	h.engine.Cart.UpdateQty(id, input.Qty)
	view := newCartView(h.engine.Cart)
	return nil, &view, nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LineInput,
) (*mcp.CallToolResult, *CartView, error) {
	id, err := h.mcpLineID(input.ID)
	if err != nil {
		return nil, nil, err
	}
	if !h.engine.Cart.Has(id) {
		return nil, nil, h.mcpError(model.NewNotFoundError("cart line"))
	}

	h.engine.Cart.RemoveItem(id)
	view := newCartView(h.engine.Cart)
	return nil, &view, nil
}

func (h *Handler) mcpGetWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, *WishlistView, error) {
	view := newWishlistView(h.engine.Wishlist)
	return nil, &view, nil
}

func (h *Handler) mcpToggleWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *ToggleView, error) {
	item, err := input.request().Input()
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	saved := h.engine.Wishlist.Toggle(item)
	return nil, &ToggleView{Saved: saved, Wishlist: newWishlistView(h.engine.Wishlist)}, nil
}

func (h *Handler) mcpMoveToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LineInput,
) (*mcp.CallToolResult, *MoveView, error) {
	id, err := h.mcpLineID(input.ID)
	if err != nil {
		return nil, nil, err
	}
	if !h.engine.MoveToCart(id) {
		return nil, nil, h.mcpError(model.NewNotFoundError("wishlist line"))
	}

	return nil, &MoveView{
		Cart:     newCartView(h.engine.Cart),
		Wishlist: newWishlistView(h.engine.Wishlist),
	}, nil
}

func (h *Handler) mcpLineID(raw string) (model.LineID, error) {
	if raw == "" {
		return "", fmt.Errorf("id is required")
	}
	id, err := DecodeLineID(raw)
	if err != nil {
		return "", h.mcpError(model.NewValidationError("id", "malformed line ID"))
	}
	return id, nil
}

// mcpError converts engine errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}

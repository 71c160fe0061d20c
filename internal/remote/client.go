package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
	"github.com/google/uuid"

	"cartsync/internal/model"
	"cartsync/internal/transport"
)

const (
	pathCart     = "/cart"
	pathWishlist = "/wishlist"

	userAgent     = "cartsync/1.0"
	clientName    = "cartsync"
	clientVersion = "1.0"

	// AgentHeader identifies this client to the store (RFC 8941 Dictionary).
	AgentHeader = "Commerce-Agent"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the storefront API root, e.g. "https://shop.example/api".
	BaseURL string

	// StorefrontKey is sent as X-Storefront-Key when set.
	StorefrontKey string

	// Credentials returns the shopper's bearer token. Called per request so a
	// sign-in or sign-out takes effect immediately.
	Credentials func() string

	// Timeout bounds a whole request. Zero means 20s.
	Timeout time.Duration

	// ChromeTLS presents a Chrome TLS fingerprint.
	ChromeTLS bool

	// HTTPClient overrides the constructed client (tests).
	HTTPClient *http.Client
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL       string
	storefrontKey string
	credentials   func() string
	httpClient    *http.Client
	agent         string
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: transport.New(transport.Options{ChromeFingerprint: cfg.ChromeTLS}),
		}
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = func() string { return "" }
	}

	agent, err := agentHeader()
	if err != nil {
		return nil, fmt.Errorf("building agent header: %w", err)
	}

	return &Client{
		baseURL:       base,
		storefrontKey: cfg.StorefrontKey,
		credentials:   creds,
		httpClient:    hc,
		agent:         agent,
	}, nil
}

// NormalizeBaseURL trims trailing slashes and requires a scheme and host.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("remote base url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid remote base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("remote base url must include scheme and host")
	}
	return strings.TrimRight(value, "/"), nil
}

func agentHeader() (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("client", httpsfv.NewItem(clientName))
	dict.Add("version", httpsfv.NewItem(clientVersion))
	return httpsfv.Marshal(dict)
}

// === Cart ===

// GetCart implements API.
func (c *Client) GetCart(ctx context.Context) ([]model.RemoteLine, error) {
	var resp model.RemoteCart
	if err := c.doJSON(ctx, http.MethodGet, pathCart, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

// ReplaceCart implements API (POST, full overwrite).
func (c *Client) ReplaceCart(ctx context.Context, lines []model.RemoteLine) error {
	return c.doJSON(ctx, http.MethodPost, pathCart, nil, model.RemoteCart{Lines: nonNil(lines)}, nil)
}

// MergeCart implements API (PATCH, server sums).
func (c *Client) MergeCart(ctx context.Context, lines []model.RemoteLine) error {
	return c.doJSON(ctx, http.MethodPatch, pathCart, nil, model.RemoteCart{Lines: nonNil(lines)}, nil)
}

// === Wishlist ===

// GetWishlist implements API.
func (c *Client) GetWishlist(ctx context.Context) ([]model.RemoteWishlistItem, error) {
	var resp model.RemoteWishlist
	if err := c.doJSON(ctx, http.MethodGet, pathWishlist, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddWishlist implements API.
func (c *Client) AddWishlist(ctx context.Context, ref model.WishlistRef) error {
	return c.doJSON(ctx, http.MethodPost, pathWishlist, nil, ref, nil)
}

// RemoveWishlist implements API.
func (c *Client) RemoveWishlist(ctx context.Context, ref model.WishlistRef) error {
	query := url.Values{}
	query.Set("productId", ref.ProductID)
	if ref.Size != "" {
		query.Set("size", ref.Size)
	}
	return c.doJSON(ctx, http.MethodDelete, pathWishlist, query, nil, nil)
}

// === HTTP Helpers ===

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(AgentHeader, c.agent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.storefrontKey != "" {
		req.Header.Set("X-Storefront-Key", c.storefrontKey)
	}
	if token := c.credentials(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("store", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseError converts a non-2xx response to model.APIError.
func parseError(statusCode int, body []byte) error {
	var payload errorPayload
	_ = json.Unmarshal(body, &payload) // best effort

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewUnauthorizedError("store rejected credentials")
	case http.StatusNotFound:
		return model.NewNotFoundError("store resource")
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("store")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	default:
		return model.NewUpstreamError("store", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

func nonNil(lines []model.RemoteLine) []model.RemoteLine {
	if lines == nil {
		return []model.RemoteLine{}
	}
	return lines
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)

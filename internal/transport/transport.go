// Package transport builds the HTTP round tripper used to reach the remote
// cart and wishlist store.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Options selects the round tripper.
type Options struct {
	// DialTimeout bounds TCP connect. Zero means 10s.
	DialTimeout time.Duration

	// ChromeFingerprint presents a Chrome TLS ClientHello. Some storefront
	// CDNs rate-limit Go's default fingerprint aggressively.
	ChromeFingerprint bool
}

// New returns a round tripper for opts.
func New(opts Options) http.RoundTripper {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if !opts.ChromeFingerprint {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: opts.DialTimeout}).DialContext
		return t
	}
	return newChromeTransport(opts.DialTimeout)
}

// newChromeTransport uses uTLS with HelloChrome_Auto, lets ALPN negotiate
// h2 or http/1.1, and frames HTTP/2 with x/net/http2 when negotiated.
func newChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2 := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}
	h1 := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}
	return &chromeTransport{h2: h2, h1: h1}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip sends plain-HTTP requests over HTTP/1.1. For HTTPS it tries
// HTTP/2 first and falls back to HTTP/1.1 when the server doesn't speak h2.
// Requests with a body are not retried on fallback once the body was read.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, berr := req.GetBody()
		if berr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}

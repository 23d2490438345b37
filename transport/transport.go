// Package transport implements the client-side transport: an opaque
// send(bytes) → bytes operation over HTTP POST.
//
// The codec above this layer neither retries nor inspects transport
// failures — it only consumes the returned bytes or propagates the
// transport's error. Failures are reported as NetworkError or
// TimeoutError so callers (and the retry middleware) can branch with
// errors.As without string matching.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Transport performs one request/response exchange. The request and
// response bytes are opaque here — all validation belongs to the
// codec. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, url string, request []byte) ([]byte, error)
}

// NetworkError is a transport-level failure: connection refused, DNS,
// a non-2xx HTTP status. Passed through the client unmodified.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "xmlrpc: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a transport-level deadline failure, kept distinct
// from NetworkError so callers can treat slow and unreachable
// differently.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "xmlrpc: timeout: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// maxResponseSize mirrors the codec's document cap. The body read is
// limited here too so an oversized response is dropped while still on
// the wire instead of being buffered in full first.
const maxResponseSize = 1 << 20

// HTTPTransport sends each call as an HTTP POST with a text/xml body.
// One instance shares a single http.Client, so connection pooling and
// keep-alive come from net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport with the given per-call
// timeout. A zero timeout means no transport-level deadline — the
// caller's context still applies.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client:    &http.Client{Timeout: timeout},
		userAgent: "XmlRpcNg-go",
	}
}

// NewHTTPTransportWithClient wraps a caller-supplied http.Client, for
// callers that need custom TLS or proxy settings.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client, userAgent: "XmlRpcNg-go"}
}

// Send posts the request document and returns the raw response body.
func (t *HTTPTransport) Send(ctx context.Context, url string, request []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(request))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}

	// Read one byte past the cap so the codec can reject the document
	// by size instead of silently truncating it.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, classify(err)
	}
	return body, nil
}

// classify maps an http/net failure onto the transport error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &NetworkError{Err: err}
}

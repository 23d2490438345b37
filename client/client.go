// Package client is the caller-facing surface: it converts native
// arguments to wire values, runs the codec, and sends the document
// through the transport.
//
// A Client targets either a fixed endpoint URL or a service name
// resolved through a registry and balancer on every call. All state
// that calls touch concurrently (the conversion registry, the
// middleware chain) is read-only after New returns, so a single Client
// is safe for concurrent use.
package client

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/codec"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/convert"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/loadbalance"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/middleware"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/transport"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// Client performs XML-RPC calls against one endpoint or a discovered
// service.
type Client struct {
	endpoint   string // fixed endpoint URL; empty when using discovery
	service    string
	reg        registry.Registry
	balancer   loadbalance.Balancer
	trans      transport.Transport
	converters *convert.Registry
	handler    middleware.HandlerFunc
	log        zerolog.Logger
}

// Option configures a Client during New.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.trans = t }
}

// WithConverters installs a caller-built conversion registry. Register
// custom converters on it before passing it in — the registry must be
// read-only once calls begin.
func WithConverters(r *convert.Registry) Option {
	return func(c *Client) { c.converters = r }
}

// WithDiscovery resolves the target endpoint through a registry and
// balancer on every call instead of the fixed endpoint URL.
func WithDiscovery(reg registry.Registry, service string, balancer loadbalance.Balancer) Option {
	return func(c *Client) {
		c.reg = reg
		c.service = service
		c.balancer = balancer
	}
}

// WithMiddleware wraps the call path. The first middleware is the
// outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) {
		c.handler = middleware.Chain(mws...)(c.handler)
	}
}

// WithLogger installs a zerolog logger; the default discards events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for the given endpoint URL. Pass an empty
// endpoint when WithDiscovery supplies the targets.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		trans:      transport.NewHTTPTransport(0),
		converters: convert.NewRegistry(),
		log:        zerolog.Nop(),
	}
	c.handler = c.do
	for _, opt := range opts {
		opt(c)
	}
	// Diagnostic hook for the stringification fallback: the encode
	// still succeeds, but an unmapped type is worth a trace.
	if c.converters.OnFallback == nil {
		c.converters.OnFallback = func(native any) {
			c.log.Debug().Type("type", native).Msg("xmlrpc: unmapped native type encoded as string")
		}
	}
	return c
}

// Call invokes method with the given native params and decodes the
// single result value into result. Pass a nil result to discard it.
//
// Error taxonomy, branchable with errors.As:
//   - *codec.ValidationError      — bad method name, too many params, too deep
//   - *transport.NetworkError,
//     *transport.TimeoutError     — transport failures, passed through
//   - *codec.FormatError          — response not well-formed / over a limit
//   - *codec.ProtocolError        — response violates the envelope shape
//   - *message.Fault              — remote application-level failure
//   - *convert.ConversionError    — result does not fit the destination
func (c *Client) Call(ctx context.Context, method string, result any, params ...any) error {
	values := make([]value.Value, len(params))
	for i, p := range params {
		v, err := c.converters.ToValue(p)
		if err != nil {
			return err
		}
		values[i] = v
	}

	resp, err := c.handler(ctx, &message.Request{Method: method, Params: values})
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	// The codec accepts any well-formed result count; the exactly-one
	// contract for a successful call lives here, at the caller-facing
	// layer.
	if len(resp.Values) != 1 {
		return &codec.ProtocolError{Reason: fmt.Sprintf("expected exactly one result value, got %d", len(resp.Values))}
	}
	return c.converters.FromValue(resp.Values[0], result)
}

// CallValues is the lower-level form: wire values in, full response
// out. The remote fault still comes back as the error, with the
// response alongside for callers that want both.
func (c *Client) CallValues(ctx context.Context, method string, params ...value.Value) (*message.Response, error) {
	return c.handler(ctx, &message.Request{Method: method, Params: params})
}

// do is the innermost handler: encode, resolve, send, decode. Local
// validation fails before any network work; a decoded fault is
// returned as the error with the response alongside.
func (c *Client) do(ctx context.Context, req *message.Request) (*message.Response, error) {
	data, err := codec.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	url, err := c.resolve()
	if err != nil {
		return nil, err
	}

	body, err := c.trans.Send(ctx, url, data)
	if err != nil {
		return nil, err
	}

	resp, err := codec.DecodeResponse(body)
	if err != nil {
		return nil, err
	}
	if resp.Fault != nil {
		return resp, resp.Fault
	}
	return resp, nil
}

// resolve picks the target URL: the fixed endpoint, or one endpoint
// from discovery via the balancer.
func (c *Client) resolve() (string, error) {
	if c.reg == nil {
		if c.endpoint == "" {
			return "", fmt.Errorf("xmlrpc: no endpoint configured")
		}
		return c.endpoint, nil
	}
	endpoints, err := c.reg.Discover(c.service)
	if err != nil {
		return "", err
	}
	ep, err := c.balancer.Pick(endpoints)
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}

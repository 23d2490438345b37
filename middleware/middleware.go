// Package middleware provides composable call interceptors for the
// client: logging, retry, timeout, and rate limiting.
//
// A HandlerFunc performs one method call end to end (encode, send,
// decode). Middlewares wrap a handler and run before/after it, so
// cross-cutting policy stays out of the codec and the client core.
package middleware

import (
	"context"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
)

// HandlerFunc performs one XML-RPC call. A remote fault surfaces as an
// error (*message.Fault) like every other failure, so middlewares see
// a single error channel and branch with errors.As when they care.
type HandlerFunc func(ctx context.Context, req *message.Request) (*message.Response, error)

// Middleware wraps a handler with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one. The first middleware is the
// outermost: Chain(a, b, c) runs a → b → c → handler.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

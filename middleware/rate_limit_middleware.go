package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
)

// ErrRateLimited is returned when a call is rejected by the local
// token bucket before any encoding or network work happens.
var ErrRateLimited = errors.New("xmlrpc: rate limit exceeded")

// RateLimitMiddleware rejects calls above r calls/second with the
// given burst, using a token bucket. Rejection is immediate rather
// than queued — a client that wants to wait can retry on its own
// schedule.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			if !limiter.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}

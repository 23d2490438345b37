package middleware

import (
	"context"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/transport"
)

// TimeoutMiddleware bounds each call with a context deadline. The
// transport honors ctx cancellation, so a hung server cannot hold the
// caller past the deadline.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := next(ctx, req)
			if err != nil && ctx.Err() == context.DeadlineExceeded {
				return nil, &transport.TimeoutError{Err: ctx.Err()}
			}
			return resp, err
		}
	}
}

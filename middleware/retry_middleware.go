package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/transport"
)

// RetryMiddleware retries transient transport failures with
// exponential backoff. Only NetworkError and TimeoutError are
// retryable — a remote fault or a codec error means the server (or the
// caller) made a decision and repeating the call cannot change it.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			resp, err := next(ctx, req)
			for i := 0; i < maxRetries && retryable(err); i++ {
				select {
				case <-time.After(baseDelay * time.Duration(1<<i)): // exponential backoff
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				resp, err = next(ctx, req)
			}
			return resp, err
		}
	}
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr *transport.NetworkError
	var timeoutErr *transport.TimeoutError
	return errors.As(err, &netErr) || errors.As(err, &timeoutErr)
}

package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
)

// LoggingMiddleware logs one event per call: method, duration, and
// outcome. Remote faults log at warn (the server answered, the
// application said no); everything else failing logs at error.
func LoggingMiddleware(log zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			evt := log.Info()
			if err != nil {
				var fault *message.Fault
				if errors.As(err, &fault) {
					evt = log.Warn().Int32("fault_code", fault.Code)
				} else {
					evt = log.Error().Err(err)
				}
			}
			evt.Str("method", req.Method).
				Int("params", len(req.Params)).
				Dur("duration", time.Since(start)).
				Msg("xmlrpc call")
			return resp, err
		}
	}
}

package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/transport"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// echoHandler succeeds immediately with a single string result.
func echoHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	return &message.Response{Values: []value.Value{value.NewString("ok")}}, nil
}

// slowHandler takes 200ms before answering.
func slowHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	select {
	case <-time.After(200 * time.Millisecond):
		return echoHandler(ctx, req)
	case <-ctx.Done():
		return nil, &transport.TimeoutError{Err: ctx.Err()}
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *message.Request) (*message.Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	handler := Chain(tag("outer"), tag("inner"))(echoHandler)
	if _, err := handler(context.Background(), &message.Request{Method: "m"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "outer,inner" {
		t.Fatalf("chain order: got %v", order)
	}
}

func TestLogging(t *testing.T) {
	var sb strings.Builder
	log := zerolog.New(&sb)

	handler := LoggingMiddleware(log)(echoHandler)
	resp, err := handler(context.Background(), &message.Request{Method: "examples.ping"})
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil {
		t.Fatal("expect non-nil response")
	}
	if !strings.Contains(sb.String(), "examples.ping") {
		t.Errorf("log should carry the method name: %s", sb.String())
	}
}

func TestLoggingFaultAtWarn(t *testing.T) {
	var sb strings.Builder
	log := zerolog.New(&sb)

	faulting := func(ctx context.Context, req *message.Request) (*message.Response, error) {
		fault := &message.Fault{Code: 4, Message: "Too many parameters."}
		return &message.Response{Fault: fault}, fault
	}

	handler := LoggingMiddleware(log)(faulting)
	_, err := handler(context.Background(), &message.Request{Method: "m"})
	if err == nil {
		t.Fatal("expect fault to propagate")
	}
	out := sb.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"fault_code":4`) {
		t.Errorf("fault should log at warn with its code: %s", out)
	}
}

func TestRetryOnNetworkError(t *testing.T) {
	calls := 0
	flaky := func(ctx context.Context, req *message.Request) (*message.Response, error) {
		calls++
		if calls < 3 {
			return nil, &transport.NetworkError{Err: errors.New("connection refused")}
		}
		return echoHandler(ctx, req)
	}

	handler := RetryMiddleware(3, time.Millisecond)(flaky)
	if _, err := handler(context.Background(), &message.Request{Method: "m"}); err != nil {
		t.Fatalf("expect success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expect 3 attempts, got %d", calls)
	}
}

func TestRetryNeverRepeatsFaults(t *testing.T) {
	calls := 0
	faulting := func(ctx context.Context, req *message.Request) (*message.Response, error) {
		calls++
		return nil, &message.Fault{Code: 1, Message: "declined"}
	}

	handler := RetryMiddleware(3, time.Millisecond)(faulting)
	_, err := handler(context.Background(), &message.Request{Method: "m"})

	var fault *message.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expect fault to propagate, got %v", err)
	}
	if calls != 1 {
		t.Errorf("a fault is a server decision — expect exactly 1 attempt, got %d", calls)
	}
}

func TestTimeout(t *testing.T) {
	handler := TimeoutMiddleware(50 * time.Millisecond)(slowHandler)
	_, err := handler(context.Background(), &message.Request{Method: "m"})

	var timeoutErr *transport.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expect TimeoutError, got %v", err)
	}
}

func TestTimeoutFastCallPasses(t *testing.T) {
	handler := TimeoutMiddleware(time.Second)(echoHandler)
	resp, err := handler(context.Background(), &message.Request{Method: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Values) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRateLimit(t *testing.T) {
	// 1 call/sec with burst 2: third immediate call must be rejected.
	handler := RateLimitMiddleware(1, 2)(echoHandler)

	for i := 0; i < 2; i++ {
		if _, err := handler(context.Background(), &message.Request{Method: "m"}); err != nil {
			t.Fatalf("call %d within burst should pass: %v", i, err)
		}
	}
	_, err := handler(context.Background(), &message.Request{Method: "m"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expect ErrRateLimited, got %v", err)
	}
}

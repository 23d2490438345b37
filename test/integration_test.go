package test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/client"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/loadbalance"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/middleware"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"
)

// ---- Mock registry (no etcd needed) ----

type MockRegistry struct {
	endpoints map[string][]registry.Endpoint
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{endpoints: make(map[string][]registry.Endpoint)}
}

func (m *MockRegistry) Register(serviceName string, ep registry.Endpoint, ttl int64) error {
	m.endpoints[serviceName] = append(m.endpoints[serviceName], ep)
	return nil
}

func (m *MockRegistry) Deregister(serviceName string, url string) error {
	eps := m.endpoints[serviceName]
	for i, ep := range eps {
		if ep.URL == url {
			m.endpoints[serviceName] = append(eps[:i], eps[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockRegistry) Discover(serviceName string) ([]registry.Endpoint, error) {
	return m.endpoints[serviceName], nil
}

func (m *MockRegistry) Watch(serviceName string) <-chan []registry.Endpoint {
	return nil
}

// ---- Fake XML-RPC server ----

// stateNameServer answers examples.getStateName with a canned state
// and anything else with a fault — enough surface for the full chain.
func stateNameServer(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body := string(data)

		w.Header().Set("Content-Type", "text/xml")
		if strings.Contains(body, "<methodName>examples.getStateName</methodName>") {
			w.Write([]byte(`<?xml version="1.0"?><methodResponse><params><param><value><string>` + tag + `</string></value></param></params></methodResponse>`))
			return
		}
		w.Write([]byte(`<methodResponse><fault><value><struct><member><name>faultCode</name><value><int>301</int></value></member><member><name>faultString</name><value><string>no such method</string></value></member></struct></value></fault></methodResponse>`))
	}
}

// TestFullChain exercises client → middleware → transport → server →
// decoder → conversion in one pass.
func TestFullChain(t *testing.T) {
	srv := httptest.NewServer(stateNameServer("South Dakota"))
	defer srv.Close()

	c := client.New(srv.URL,
		client.WithMiddleware(
			middleware.RetryMiddleware(2, 10*time.Millisecond),
			middleware.TimeoutMiddleware(2*time.Second),
		),
	)

	var state string
	if err := c.Call(context.Background(), "examples.getStateName", &state, 23); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if state != "South Dakota" {
		t.Fatalf("expect South Dakota, got %q", state)
	}

	t.Log("Full chain integration test passed!")
}

func TestFaultBranchesFromInfrastructureErrors(t *testing.T) {
	srv := httptest.NewServer(stateNameServer("x"))
	defer srv.Close()

	c := client.New(srv.URL)

	var out string
	err := c.Call(context.Background(), "examples.unknown", &out)

	// A remote fault is business-level: it must be identifiable and
	// distinct from transport failures.
	var fault *message.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expect *message.Fault, got %v", err)
	}
	if fault.Code != 301 {
		t.Fatalf("fault code: got %d, want 301", fault.Code)
	}

	// Against a dead endpoint the same call yields a transport error,
	// never a fault.
	dead := client.New("http://127.0.0.1:1")
	err = dead.Call(context.Background(), "examples.unknown", &out)
	if errors.As(err, &fault) {
		t.Fatalf("transport failure must not look like a fault: %v", err)
	}
}

// TestMultiServerRoundRobin spreads calls across two endpoints via the
// mock registry and checks both actually served.
func TestMultiServerRoundRobin(t *testing.T) {
	srv1 := httptest.NewServer(stateNameServer("one"))
	defer srv1.Close()
	srv2 := httptest.NewServer(stateNameServer("two"))
	defer srv2.Close()

	reg := NewMockRegistry()
	reg.Register("states", registry.Endpoint{URL: srv1.URL, Weight: 10}, 10)
	reg.Register("states", registry.Endpoint{URL: srv2.URL, Weight: 10}, 10)

	c := client.New("", client.WithDiscovery(reg, "states", &loadbalance.RoundRobinBalancer{}))

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		var state string
		if err := c.Call(context.Background(), "examples.getStateName", &state, i); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		seen[state] = true
	}
	if !seen["one"] || !seen["two"] {
		t.Fatalf("round robin should hit both servers, saw %v", seen)
	}

	t.Log("Multi-server round robin test passed!")
}

// TestFullIntegrationWithEtcd runs the discovery path against a real
// local etcd; skipped when none is listening.
func TestFullIntegrationWithEtcd(t *testing.T) {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:2379", 500*time.Millisecond)
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	conn.Close()

	srv := httptest.NewServer(stateNameServer("Alaska"))
	defer srv.Close()

	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"})
	if err != nil {
		t.Fatalf("failed to connect etcd: %v", err)
	}
	if err := reg.Register("stateNames", registry.Endpoint{URL: srv.URL, Weight: 10}, 10); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	defer reg.Deregister("stateNames", srv.URL)

	c := client.New("", client.WithDiscovery(reg, "stateNames", &loadbalance.RoundRobinBalancer{}))

	var state string
	if err := c.Call(context.Background(), "examples.getStateName", &state, 2); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if state != "Alaska" {
		t.Fatalf("expect Alaska, got %q", state)
	}

	t.Log("Full integration test with etcd passed!")
}

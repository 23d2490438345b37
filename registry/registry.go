// Package registry provides discovery of XML-RPC server endpoints.
//
// A client can be pointed at a fixed endpoint URL, or at a service
// name resolved through a Registry. The etcd implementation keeps the
// endpoint list fresh with TTL leases and watches.
package registry

// Endpoint describes one reachable XML-RPC server.
type Endpoint struct {
	URL     string // e.g. "http://10.0.0.5:8080/RPC2"
	Weight  int    // weight for load balancing
	Version string
}

// Registry is the endpoint discovery interface.
type Registry interface {
	Register(serviceName string, endpoint Endpoint, ttl int64) error
	Deregister(serviceName string, url string) error
	Discover(serviceName string) ([]Endpoint, error)
	Watch(serviceName string) <-chan []Endpoint
}

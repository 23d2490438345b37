// Package loadbalance provides strategies for spreading calls across
// multiple XML-RPC server endpoints.
//
// Two strategies implement the Balancer interface:
//   - RoundRobin:     stateless servers, equal capacity
//   - WeightedRandom: heterogeneous servers (different CPU/memory)
//
// ConsistentHash is key-based and sits outside the interface — see its
// own doc comment.
package loadbalance

import "github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"

// Balancer selects one endpoint per call. Pick is called on every RPC
// and must be goroutine-safe.
type Balancer interface {
	Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error)

	// Name returns the strategy name, for logging.
	Name() string
}

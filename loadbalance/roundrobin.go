package loadbalance

import (
	"fmt"
	"sync/atomic"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"
)

// RoundRobinBalancer distributes calls evenly across all endpoints in
// order, using an atomic counter for lock-free selection.
type RoundRobinBalancer struct {
	counter int64
}

// Pick selects the next endpoint in round-robin order.
func (b *RoundRobinBalancer) Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(endpoints))
	return &endpoints[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}

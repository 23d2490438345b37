package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"
)

// ConsistentHashBalancer maps keys to endpoints using a hash ring, so
// the same key (e.g. a method name, or an account ID baked into the
// call) always lands on the same server until the ring changes. Useful
// when servers keep per-key caches.
//
// Each real endpoint is placed on the ring as N virtual nodes; without
// them a handful of endpoints can cluster and skew the distribution.
//
// Note: Pick takes a string key, not an endpoint list — consistent
// hashing is key-based, so this type does not implement Balancer.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32                      // sorted hash values
	nodes    map[uint32]*registry.Endpoint // hash → endpoint
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per
// endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*registry.Endpoint),
	}
}

// Add places an endpoint onto the ring. Each virtual node hashes
// "{url}#{i}" to spread evenly.
func (b *ConsistentHashBalancer) Add(endpoint *registry.Endpoint) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", endpoint.URL, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = endpoint
	}
	// Ring stays sorted for binary search in Pick.
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick finds the endpoint responsible for the key: the first node
// clockwise from the key's hash, wrapping to the start of the ring.
func (b *ConsistentHashBalancer) Pick(key string) (*registry.Endpoint, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no endpoints on the ring")
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

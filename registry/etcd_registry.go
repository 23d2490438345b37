// etcd-based implementation of the Registry interface.
//
// etcd acts as a "distributed phonebook" for XML-RPC servers:
//
//	Key:   /xmlrpc/{ServiceName}/{URL}
//	Value: JSON-encoded Endpoint
//
// Registration uses TTL-based leases: if a server crashes, its lease
// expires and the entry disappears on its own — no ghost endpoints.
package registry

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/xmlrpc/"

// EtcdRegistry implements Registry using etcd v3. The embedded client
// is thread-safe and shared across goroutines.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register adds an endpoint under a TTL lease and starts background
// renewal. The lease ID stays a local variable — storing it on the
// struct would race when several servers share one registry instance.
func (r *EtcdRegistry) Register(serviceName string, endpoint Endpoint, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(endpoint)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, keyPrefix+serviceName+"/"+endpoint.URL, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes an endpoint, for graceful shutdown.
func (r *EtcdRegistry) Deregister(serviceName string, url string) error {
	_, err := r.client.Delete(context.TODO(), keyPrefix+serviceName+"/"+url)
	return err
}

// Watch emits a fresh endpoint list whenever the service prefix
// changes (registrations, deregistrations, lease expirations). Uses
// etcd's server-push Watch API rather than polling.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []Endpoint {
	ctx := context.TODO()
	ch := make(chan []Endpoint, 1)
	prefix := keyPrefix + serviceName + "/"

	go func() {
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			// Re-fetch the full list on any change — simpler than
			// replaying individual events.
			endpoints, _ := r.Discover(serviceName)
			ch <- endpoints
		}
	}()

	return ch
}

// Discover returns all currently registered endpoints for a service.
func (r *EtcdRegistry) Discover(serviceName string) ([]Endpoint, error) {
	prefix := keyPrefix + serviceName + "/"

	resp, err := r.client.Get(context.TODO(), prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0)
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue // skip malformed entries
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

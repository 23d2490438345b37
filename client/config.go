package client

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/loadbalance"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/middleware"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/registry"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/transport"
)

// Config is the TOML-loadable client configuration. Either endpoint or
// the service/etcd pair must be set.
//
//	endpoint = "http://rpc.example.com/RPC2"
//	timeout = "30s"
//	max_retries = 3
//	retry_base_delay = "100ms"
//	rate_limit = 50.0
//	rate_burst = 10
type Config struct {
	Endpoint       string   `toml:"endpoint"`
	Service        string   `toml:"service"`
	EtcdEndpoints  []string `toml:"etcd_endpoints"`
	Balancer       string   `toml:"balancer"` // "roundrobin" (default) or "weighted"
	Timeout        duration `toml:"timeout"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBaseDelay duration `toml:"retry_base_delay"`
	RateLimit      float64  `toml:"rate_limit"` // calls per second, 0 disables
	RateBurst      int      `toml:"rate_burst"`
}

// duration lets TOML carry human-readable values like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("xmlrpc: load config: %w", err)
	}
	if cfg.Endpoint == "" && cfg.Service == "" {
		return nil, fmt.Errorf("xmlrpc: config needs either endpoint or service")
	}
	return &cfg, nil
}

// Build assembles a Client from the config: transport timeout, etcd
// discovery when a service is named, and the middleware chain in the
// order rate-limit → retry → timeout, so retries replay the inner
// timeout rather than eating the whole budget.
func (cfg *Config) Build(opts ...Option) (*Client, error) {
	built := []Option{
		WithTransport(transport.NewHTTPTransport(cfg.Timeout.Duration)),
	}

	if cfg.Service != "" {
		var balancer loadbalance.Balancer
		switch cfg.Balancer {
		case "", "roundrobin":
			balancer = &loadbalance.RoundRobinBalancer{}
		case "weighted":
			balancer = &loadbalance.WeightedRandomBalancer{}
		default:
			return nil, fmt.Errorf("xmlrpc: unknown balancer %q", cfg.Balancer)
		}
		reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: connect etcd: %w", err)
		}
		built = append(built, WithDiscovery(reg, cfg.Service, balancer))
	}

	var mws []middleware.Middleware
	if cfg.RateLimit > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.MaxRetries > 0 {
		delay := cfg.RetryBaseDelay.Duration
		if delay == 0 {
			delay = 100 * time.Millisecond
		}
		mws = append(mws, middleware.RetryMiddleware(cfg.MaxRetries, delay))
	}
	if cfg.Timeout.Duration > 0 {
		mws = append(mws, middleware.TimeoutMiddleware(cfg.Timeout.Duration))
	}
	if len(mws) > 0 {
		built = append(built, WithMiddleware(mws...))
	}

	return New(cfg.Endpoint, append(built, opts...)...), nil
}

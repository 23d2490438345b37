package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
endpoint = "http://rpc.example.com/RPC2"
timeout = "30s"
max_retries = 3
retry_base_delay = "100ms"
rate_limit = 50.0
rate_burst = 10
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Endpoint != "http://rpc.example.com/RPC2" {
		t.Errorf("endpoint: got %q", cfg.Endpoint)
	}
	if cfg.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout: got %v", cfg.Timeout.Duration)
	}
	if cfg.MaxRetries != 3 || cfg.RetryBaseDelay.Duration != 100*time.Millisecond {
		t.Errorf("retry settings: %+v", cfg)
	}
}

func TestLoadConfigRequiresTarget(t *testing.T) {
	path := writeConfig(t, `timeout = "5s"`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("config without endpoint or service should fail")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, `
endpoint = "http://x/RPC2"
timeout = "not-a-duration"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expect error for unparseable duration")
	}
}

func TestConfigBuildFixedEndpoint(t *testing.T) {
	cfg := &Config{Endpoint: "http://x/RPC2"}
	cfg.Timeout.Duration = time.Second
	cfg.MaxRetries = 2
	cfg.RateLimit = 10
	cfg.RateBurst = 5

	c, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.endpoint != "http://x/RPC2" {
		t.Errorf("endpoint not carried over: %q", c.endpoint)
	}
}

func TestConfigBuildUnknownBalancer(t *testing.T) {
	cfg := &Config{Service: "s", Balancer: "fancy"}
	if _, err := cfg.Build(); err == nil {
		t.Fatal("expect error for unknown balancer")
	}
}

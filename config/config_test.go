package config

import (
	"testing"
	"time"
)

func TestLoadYAMLFillsDefaults(t *testing.T) {
	c, err := LoadYAML([]byte("max_concurrent_connections: 5\n"))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if c.MaxConcurrentConnections != 5 {
		t.Fatalf("MaxConcurrentConnections = %d, want 5", c.MaxConcurrentConnections)
	}
	if c.ConnectTimeout != DefaultConnectTimeout {
		t.Fatalf("ConnectTimeout = %v, want default %v", c.ConnectTimeout, DefaultConnectTimeout)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv(envMaxConcurrent, "30")
	t.Setenv(envConnectTimeout, "5s")

	c, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if c.MaxConcurrentConnections != 30 {
		t.Fatalf("MaxConcurrentConnections = %d, want 30", c.MaxConcurrentConnections)
	}
	if c.ConnectTimeout != 5*time.Second {
		t.Fatalf("ConnectTimeout = %v, want 5s", c.ConnectTimeout)
	}
	if c.CommandTimeout != DefaultCommandTimeout {
		t.Fatalf("CommandTimeout = %v, want default %v", c.CommandTimeout, DefaultCommandTimeout)
	}
}

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	c := Default()
	if c.MaxConcurrentConnections != 15 {
		t.Fatalf("default MaxConcurrentConnections = %d, want 15", c.MaxConcurrentConnections)
	}
}

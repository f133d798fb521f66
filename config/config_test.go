package config

import (
	"strings"
	"testing"
	"time"

	"github.com/fenwicklabs/reactor/engine"
	"github.com/fenwicklabs/reactor/httpclient"
	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/mcp"
	"github.com/fenwicklabs/reactor/session"
)

func TestValidate_EngineConfigValid(t *testing.T) {
	cfg := engine.Config{
		Limits:         httpwire.DefaultLimits(),
		ThreadPoolSize: 4,
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_EngineConfigRejectsNegativeThreadPool(t *testing.T) {
	cfg := engine.Config{
		Limits:         httpwire.DefaultLimits(),
		ThreadPoolSize: -1,
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() expected an error for negative ThreadPoolSize")
	}
	if !strings.Contains(err.Error(), "ThreadPoolSize") {
		t.Errorf("error = %v, want to mention ThreadPoolSize", err)
	}
}

func TestValidate_EngineConfigRejectsZeroLimits(t *testing.T) {
	err := Validate(engine.Config{})
	if err == nil {
		t.Fatal("Validate() expected an error for zero-value Limits")
	}
}

func TestValidate_McpConfigRequiresLeadingSlashEndpoint(t *testing.T) {
	cfg := mcp.Config{Endpoint: "mcp", Session: session.Config{}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() expected an error for an endpoint missing the leading slash")
	}
	if !strings.Contains(err.Error(), "Endpoint") {
		t.Errorf("error = %v, want to mention Endpoint", err)
	}
}

func TestValidate_McpConfigValid(t *testing.T) {
	cfg := mcp.Config{Endpoint: "/mcp"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_SessionConfigRejectsNegativeDuration(t *testing.T) {
	cfg := session.Config{Timeout: -time.Second}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() expected an error for negative Timeout")
	}
}

func TestValidate_HttpclientConfigValid(t *testing.T) {
	cfg := httpclient.Config{MaxRedirects: 10, Limits: httpwire.DefaultLimits()}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_HttpclientConfigRejectsNegativeRedirects(t *testing.T) {
	cfg := httpclient.Config{MaxRedirects: -1, Limits: httpwire.DefaultLimits()}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() expected an error for negative MaxRedirects")
	}
}

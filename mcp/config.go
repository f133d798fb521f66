// Package mcp implements the MCP dispatcher of spec.md §4.I: a single
// configurable HTTP endpoint (default "/mcp") layering JSON-RPC request
// dispatch, session-scoped SSE streaming, and optional authentication atop
// the connection engine, grounded on the teacher's
// StreamableHTTPHandler.ServeHTTP verb switch and Accept-header
// negotiation.
package mcp

import (
	"time"

	"github.com/fenwicklabs/reactor/engine"
	"github.com/fenwicklabs/reactor/session"
	"github.com/fenwicklabs/reactor/telemetry"
)

// ResponseMode selects how a POST's JSON-RPC result is delivered.
type ResponseMode int

const (
	// ModeBatch returns the JSON-RPC response as a plain application/json
	// body.
	ModeBatch ResponseMode = iota
	// ModeStream returns it as a single SSE event when the client's
	// Accept header offers text/event-stream.
	ModeStream
)

// Config bundles the dispatcher's construction-time settings, per spec.md
// §6's enumerated server configuration surface. Tags validate with
// config.Validate.
type Config struct {
	Endpoint               string            `validate:"required,mcpendpoint"`
	ResponseMode           ResponseMode      `validate:"oneof=0 1"`
	SessionHeaderName      string            `validate:"omitempty"` // default "Mcp-Session-Id"
	AllowClientTermination bool              `validate:"-"`
	CORS                   engine.CORSConfig
	Auth                   AuthConfig
	Session                session.Config
	// Metrics and Tracer are optional; both are nil-safe.
	Metrics *telemetry.Metrics `validate:"-"`
	Tracer  *telemetry.Tracer  `validate:"-"`
}

func (c Config) sessionHeader() string {
	if c.SessionHeaderName != "" {
		return c.SessionHeaderName
	}
	return "Mcp-Session-Id"
}

// DefaultSessionConfig returns spec.md §6's literal session/resumability
// defaults.
func DefaultSessionConfig() session.Config {
	return session.Config{
		Timeout:             3600 * time.Second,
		ResumabilityEnabled: true,
		MaxHistorySize:      1000,
		HistoryDuration:     300000 * time.Millisecond,
		MaxSessions:         0,
	}
}

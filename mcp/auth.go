package mcp

import (
	"github.com/fenwicklabs/reactor/httpwire"
)

// AuthStrategy names a challenge kind advertised in WWW-Authenticate on a
// failed authentication, per spec.md §6's auth.type enum.
type AuthStrategy string

const (
	StrategyBearer AuthStrategy = "BEARER"
	StrategyAPIKey AuthStrategy = "API_KEY"
	StrategyCustom AuthStrategy = "CUSTOM"
)

func (s AuthStrategy) challenge() string {
	switch s {
	case StrategyBearer:
		return "Bearer"
	case StrategyAPIKey:
		return "ApiKey"
	default:
		return "Custom"
	}
}

// AuthRequest is the subset of an incoming request a Validator needs to
// decide authentication, mirroring the teacher's header-extraction-only
// auth middleware shape (AuthConfig/NewAuthMiddleware in
// Sentinel-Gate's httpgw/auth.go) without tying the core to any one
// credential scheme.
type AuthRequest struct {
	Method  string
	URI     string
	Headers httpwire.Header
}

// AuthResult is what a Validator reports back, per spec.md §4.I.
type AuthResult struct {
	Authenticated bool
	UserID        string
	Claims        map[string]any
	Err           error
}

// Validator is the user-supplied authentication callback. The core
// mandates no particular cryptography; Validator implementations (bearer
// JWT, API keys, mTLS, ...) live outside this package, per spec.md §4.I's
// "no built-in cryptography is mandated by the core".
type Validator func(AuthRequest) (AuthResult, error)

// AuthConfig bundles the dispatcher's authentication settings.
type AuthConfig struct {
	Enabled    bool           `validate:"-"`
	Strategies []AuthStrategy `validate:"omitempty,dive,oneof=BEARER API_KEY CUSTOM"`
	Validator  Validator      `validate:"-"`
	// PostAuth, if set, is invoked with a successful AuthResult before
	// handler dispatch.
	PostAuth func(AuthResult) `validate:"-"`
}

func (c AuthConfig) challengeHeader() string {
	if len(c.Strategies) == 0 {
		return StrategyBearer.challenge()
	}
	out := ""
	for i, s := range c.Strategies {
		if i > 0 {
			out += ", "
		}
		out += s.challenge()
	}
	return out
}

package engine

import (
	"strconv"
	"strings"

	"github.com/fenwicklabs/reactor/httpwire"
)

// CORSConfig controls the five Access-Control-* headers the engine
// attaches to every response when enabled, per spec.md §4.F/§6.
type CORSConfig struct {
	Enabled       bool     `validate:"-"`
	AllowOrigin   string   `validate:"omitempty"`
	AllowMethods  []string `validate:"omitempty,dive,required"`
	AllowHeaders  []string `validate:"omitempty,dive,required"`
	ExposeHeaders []string `validate:"omitempty,dive,required"`
	MaxAgeSeconds int      `validate:"gte=0"`
}

func (c CORSConfig) applyHeaders(h httpwire.Header, preflight bool) {
	if !c.Enabled {
		return
	}
	origin := c.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if len(c.AllowMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowMethods, ", "))
	}
	if len(c.AllowHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowHeaders, ", "))
	}
	if len(c.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.ExposeHeaders, ", "))
	}
	if preflight && c.MaxAgeSeconds > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAgeSeconds))
	}
}

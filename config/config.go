// Package config validates the construction-time configuration structs
// used across this module (engine.Config, mcp.Config, session.Config,
// httpclient.Config) against the struct tags spec.md §6 implies, grounded
// on Sentinel-Gate-Sentinelgate/internal/config/validator.go's
// RegisterCustomValidators + Validate pattern. It does not load
// configuration from YAML/flags/env — spec.md scopes config to "an
// enumerated set of plain structs", not a loader.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("mcpendpoint", validateEndpoint); err != nil {
		panic(fmt.Sprintf("config: registering mcpendpoint validator: %v", err))
	}
	return v
}

// validateEndpoint requires the configured MCP endpoint path start with
// "/", per spec.md §6's "Endpoint path configurable (default /mcp)".
func validateEndpoint(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) > 0 && s[0] == '/'
}

// Validate runs struct-tag validation against cfg (any of this module's
// `validate:"..."`-tagged Config structs: engine.Config, mcp.Config,
// session.Config, httpclient.Config, engine.CORSConfig, mcp.AuthConfig),
// returning a single combined, human-readable error naming every failing
// field.
func Validate(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msg := ""
	for i, e := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += formatOne(e)
	}
	return fmt.Errorf("config: %s", msg)
}

func formatOne(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Namespace(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Namespace(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Namespace(), e.Param())
	case "mcpendpoint":
		return fmt.Sprintf("%s must start with '/'", e.Namespace())
	default:
		return fmt.Sprintf("%s failed validation: %s", e.Namespace(), e.Tag())
	}
}

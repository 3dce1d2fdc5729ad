package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/notewire/assertions/internal/errors"
)

// ValidationResult holds configuration validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error and marks the result invalid.
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning without affecting validity.
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if validation failed.
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted summary of errors and warnings.
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("warnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates the full configuration with auto-detected mode.
func (c *Config) Validate() *ValidationResult {
	return c.ValidateWithMode(DetectMode())
}

// ValidateWithMode validates the configuration under an explicit mode.
// Production mode rejects localhost endpoints and default passwords that
// development mode only warns about.
func (c *Config) ValidateWithMode(mode Mode) *ValidationResult {
	result := &ValidationResult{Valid: true}
	c.validateGraph(result, mode)
	c.validateRelational(result, mode)
	c.validateServer(result)
	return result
}

// ValidateOrFatal validates configuration under the detected mode and
// panics with an internal *errors.AppError if it fails.
func (c *Config) ValidateOrFatal() {
	mode := DetectMode()
	result := c.ValidateWithMode(mode)
	if result.HasErrors() {
		panic(errors.Internal(nil, result.Error()).WithDetail("mode", string(mode)))
	}
}

func (c *Config) validateGraph(result *ValidationResult, mode Mode) {
	if c.Graph.URI == "" {
		result.AddError("graph.uri is required but not set")
	} else if _, err := url.Parse(c.Graph.URI); err != nil {
		result.AddError("graph.uri is invalid: %v", err)
	} else if strings.Contains(c.Graph.URI, "localhost") && mode == ModeProduction {
		result.AddError("graph.uri uses localhost, which is not allowed in production")
	}

	if c.Graph.User == "" {
		result.AddError("graph.user is required but not set")
	}

	if c.Graph.Password == "" {
		result.AddError("graph.password is required but not set")
	} else {
		insecure := map[string]bool{"password": true, "neo4j": true}
		if insecure[c.Graph.Password] {
			if mode == ModeProduction {
				result.AddError("graph.password is set to an insecure default, which is not allowed in production")
			} else {
				result.AddWarning("graph.password is set to a common default; fine for local development only")
			}
		}
	}

	if c.Graph.Database == "" {
		result.AddWarning("graph.database is not set, will use 'neo4j'")
	}
}

func (c *Config) validateRelational(result *ValidationResult, mode Mode) {
	if c.Relational.Host == "" {
		result.AddError("relational.host is required but not set")
	} else if strings.Contains(c.Relational.Host, "localhost") && mode == ModeProduction {
		result.AddError("relational.host uses localhost, which is not allowed in production")
	}

	if c.Relational.Port == 0 {
		result.AddError("relational.port is required but not set")
	}
	if c.Relational.Database == "" {
		result.AddError("relational.database is required but not set")
	}
	if c.Relational.User == "" {
		result.AddError("relational.user is required but not set")
	}
	if c.Relational.Password == "" {
		result.AddError("relational.password is required but not set")
	}

	if c.Relational.SSLMode == "disable" {
		if mode == ModeProduction {
			result.AddError("relational.sslmode=disable is not allowed in production")
		} else {
			result.AddWarning("relational.sslmode=disable; fine for local development only")
		}
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result.AddError("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.CORSOrigin == "" {
		result.AddWarning("server.cors_origin is not set, CORS will reject all cross-origin requests")
	}
}

// RequireGraph returns an error if graph configuration is invalid.
func (c *Config) RequireGraph() error {
	result := &ValidationResult{Valid: true}
	c.validateGraph(result, DetectMode())
	if result.HasErrors() {
		return errors.Internal(nil, result.Error())
	}
	return nil
}

// RequireRelational returns an error if relational configuration is invalid.
func (c *Config) RequireRelational() error {
	result := &ValidationResult{Valid: true}
	c.validateRelational(result, DetectMode())
	if result.HasErrors() {
		return errors.Internal(nil, result.Error())
	}
	return nil
}

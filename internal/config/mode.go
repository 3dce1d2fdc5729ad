package config

import (
	"os"
	"strings"
)

// Mode represents the deployment context the daemon is running in. It
// drives two behaviors described in spec.md: whether the feed
// projector's root-purity assertion raises (test) or only logs
// (development/production), and whether the X-Test-User-Id bypass
// header is honored by the auth middleware at all.
type Mode string

const (
	// ModeTest runs under `go test`: root-purity violations panic so
	// they fail the test immediately instead of surfacing as a flaky
	// assertion.
	ModeTest Mode = "test"

	// ModeDevelopment is local `go run`: root-purity violations log an
	// error, and the X-Test-User-Id bypass header is honored.
	ModeDevelopment Mode = "development"

	// ModeProduction: root-purity violations log a warning through the
	// near-miss channel, and the X-Test-User-Id bypass header is
	// rejected outright.
	ModeProduction Mode = "production"
)

// DetectMode determines the deployment mode from APP_ENV, falling back
// to go test's own GO_TEST_MODE-equivalent detection and then to
// development.
func DetectMode() Mode {
	if mode := os.Getenv("APP_ENV"); mode != "" {
		switch strings.ToLower(mode) {
		case "test", "testing":
			return ModeTest
		case "production", "prod":
			return ModeProduction
		case "development", "dev":
			return ModeDevelopment
		}
	}

	if isGoTest() {
		return ModeTest
	}

	return ModeDevelopment
}

// isGoTest reports whether the binary was built by `go test`.
func isGoTest() bool {
	return strings.HasSuffix(os.Args[0], ".test") || strings.Contains(os.Args[0], "/_test/")
}

// IsTest returns true if running under go test.
func IsTest() bool {
	return DetectMode() == ModeTest
}

// IsDevelopment returns true if running as a local development build.
func IsDevelopment() bool {
	return DetectMode() == ModeDevelopment
}

// IsProduction returns true if running in production.
func IsProduction() bool {
	return DetectMode() == ModeProduction
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// AllowsTestUserBypass reports whether the X-Test-User-Id header is
// honored by auth middleware in this mode.
func (m Mode) AllowsTestUserBypass() bool {
	return m == ModeTest || m == ModeDevelopment
}

// RaisesOnRootPurityViolation reports whether the feed projector should
// panic (true, test mode) or only report the violation (false): an
// error log in development, a near-miss elsewhere.
func (m Mode) RaisesOnRootPurityViolation() bool {
	return m == ModeTest
}

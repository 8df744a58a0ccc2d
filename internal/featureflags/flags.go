package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// AllowActiveDelete lets owners delete resources that are not yet terminal
	AllowActiveDelete = "allow_active_delete"
)

// Set resolves flags from a lookup function such as os.Getenv.
// Flags are read as FLAG_<NAME>=true/1/yes/on (case-insensitive).
type Set struct {
	lookup func(string) string
}

// FromEnv reads flags from the process environment
func FromEnv() Set {
	return Set{lookup: os.Getenv}
}

// Static returns a Set with fixed values, for tests and tooling
func Static(values map[string]bool) Set {
	return Set{lookup: func(key string) string {
		for name, on := range values {
			if "FLAG_"+strings.ToUpper(name) == key && on {
				return "true"
			}
		}
		return ""
	}}
}

// Enabled reports whether the named flag is on
func (s Set) Enabled(name string) bool {
	if s.lookup == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.lookup("FLAG_" + strings.ToUpper(name)))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Enabled returns true if a flag is enabled via environment variable
func Enabled(name string) bool {
	return FromEnv().Enabled(name)
}

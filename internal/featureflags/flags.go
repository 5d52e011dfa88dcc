package featureflags

import (
	"os"
	"strings"
)

// Lookup reads FLAG_<NAME> from the environment. set is false when the
// variable is absent or not a recognised boolean.
func Lookup(name string) (value, set bool) {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v, _ := Lookup(name)
	return v
}

// Disabled returns true only when the flag is explicitly switched off.
func Disabled(name string) bool {
	v, set := Lookup(name)
	return set && !v
}

package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type-safe option extraction helpers for module factories and Setup.
// Module options arrive as strings (from --mod flags and NOCTUA_MOD_*
// environment variables), so these functions parse and fall back to a
// default instead of failing.

// GetStringOption extracts a string value from an options map with a default fallback.
// Returns the default value if:
//   - options map is nil
//   - key doesn't exist
//   - value is an empty string
func GetStringOption(opts map[string]string, key, defaultValue string) string {
	if opts == nil {
		return defaultValue
	}

	if val, ok := opts[key]; ok && val != "" {
		return val
	}

	return defaultValue
}

// GetIntOption extracts an int value from an options map with a default fallback.
// Returns the default value if:
//   - options map is nil
//   - key doesn't exist
//   - value does not parse as an integer
func GetIntOption(opts map[string]string, key string, defaultValue int) int {
	if opts == nil {
		return defaultValue
	}

	val, exists := opts[key]
	if !exists {
		return defaultValue
	}

	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		return n
	}

	return defaultValue
}

// GetBoolOption extracts a bool value from an options map with a default fallback.
// Accepts the forms strconv.ParseBool accepts ("1", "t", "true", "0", "false", ...).
// Returns the default value if:
//   - options map is nil
//   - key doesn't exist
//   - value does not parse as a bool
func GetBoolOption(opts map[string]string, key string, defaultValue bool) bool {
	if opts == nil {
		return defaultValue
	}

	val, exists := opts[key]
	if !exists {
		return defaultValue
	}

	if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
		return b
	}

	return defaultValue
}

// GetDurationOption extracts a time.Duration value from an options map with a
// default fallback. Accepts duration as:
//   - a Go duration string (e.g. "5s", "10m")
//   - a plain integer, interpreted as seconds (e.g. "10")
//
// Returns the default value if:
//   - options map is nil
//   - key doesn't exist
//   - value cannot be converted to a duration
func GetDurationOption(opts map[string]string, key string, defaultValue time.Duration) time.Duration {
	if opts == nil {
		return defaultValue
	}

	val, exists := opts[key]
	if !exists {
		return defaultValue
	}
	val = strings.TrimSpace(val)

	// Plain integer means seconds: --mod dnsresolve.timeout=10
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}

	if d, err := time.ParseDuration(val); err == nil {
		return d
	}

	return defaultValue
}

// GetSliceOption extracts a []string from a comma-separated option value with a
// default fallback. Items are trimmed and empty items dropped.
// Returns the default value if:
//   - options map is nil
//   - key doesn't exist
//   - value contains no items after trimming
func GetSliceOption(opts map[string]string, key string, defaultValue []string) []string {
	if opts == nil {
		return defaultValue
	}

	val, exists := opts[key]
	if !exists {
		return defaultValue
	}

	parts := strings.Split(val, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		items = append(items, p)
	}

	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// ValidatePositiveInt validates that an int field is positive (> 0).
// Returns an error if the value is <= 0.
func ValidatePositiveInt(fieldName string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %d", fieldName, value)
	}
	return nil
}

// ValidateIntRange validates that an int field is within a specified range [min, max].
// Returns an error if the value is outside the range.
func ValidateIntRange(fieldName string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", fieldName, min, max, value)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is positive.
// Returns an error if the value is <= 0.
func ValidatePositiveDuration(fieldName string, value time.Duration) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %v", fieldName, value)
	}
	return nil
}

// ValidateEnum validates that a string value is one of the allowed options.
// Returns an error if the value is not in the allowed list.
func ValidateEnum(fieldName, value string, allowed []string) error {
	for _, option := range allowed {
		if value == option {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %s", fieldName, allowed, value)
}

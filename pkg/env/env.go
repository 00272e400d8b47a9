// Package env reads the handful of process settings that are needed before
// the envconfig-backed config is loaded.
package env

import (
	"os"
	"strings"
)

// String returns the trimmed value of key, or fallback when the variable is
// unset or blank.
func String(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

// OneOf returns the lowercased value of key when it is in allowed and
// fallback otherwise.
func OneOf(key, fallback string, allowed ...string) string {
	v := strings.ToLower(String(key, fallback))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := First(key); val != "" {
		return val
	}
	return fallback
}

// First returns the first non-blank value among keys.
func First(keys ...string) string {
	return FirstOf(os.Getenv, keys...)
}

// FirstOf is First over an arbitrary lookup, for callers that inject the
// environment in tests.
func FirstOf(getenv func(string) string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

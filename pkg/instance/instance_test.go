package instance

import (
	"errors"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	env := map[string]string{"DYNO": "web.1", "SWIFTCART_INSTANCE_ID": "api-7"}
	host := func() (string, error) { return "box", nil }

	if got := resolve(func(k string) string { return env[k] }, host); got != "api-7" {
		t.Fatalf("expected explicit id, got %q", got)
	}
	delete(env, "SWIFTCART_INSTANCE_ID")
	if got := resolve(func(k string) string { return env[k] }, host); got != "web.1" {
		t.Fatalf("expected dyno, got %q", got)
	}
	delete(env, "DYNO")
	if got := resolve(func(k string) string { return env[k] }, host); got != "box" {
		t.Fatalf("expected hostname, got %q", got)
	}
	failing := func() (string, error) { return "", errors.New("no host") }
	if got := resolve(func(string) string { return "" }, failing); got != "local" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

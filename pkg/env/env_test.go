package env

import "testing"

func TestFirstOfSkipsBlankValues(t *testing.T) {
	vars := map[string]string{"A": "  ", "B": "beta", "C": "gamma"}
	lookup := func(k string) string { return vars[k] }
	if got := FirstOf(lookup, "A", "B", "C"); got != "beta" {
		t.Fatalf("expected beta, got %q", got)
	}
	if got := FirstOf(lookup, "Z"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestGetFallback(t *testing.T) {
	t.Setenv("SWIFTCART_ENV_TEST", "")
	if got := Get("SWIFTCART_ENV_TEST", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("SWIFTCART_ENV_TEST", "console")
	if got := Get("SWIFTCART_ENV_TEST", "json"); got != "console" {
		t.Fatalf("expected env value, got %q", got)
	}
}

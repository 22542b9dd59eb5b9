package instance

import (
	"os"

	"github.com/angelmondragon/swiftcart-backend/pkg/env"
)

var idKeys = []string{"SWIFTCART_INSTANCE_ID", "DYNO"}

// GetID identifies the running process in logs. SWIFTCART_INSTANCE_ID wins,
// then the platform dyno name, then the hostname.
func GetID() string {
	return resolve(os.Getenv, os.Hostname)
}

func resolve(getenv func(string) string, hostname func() (string, error)) string {
	if id := env.FirstOf(getenv, idKeys...); id != "" {
		return id
	}
	if host, err := hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

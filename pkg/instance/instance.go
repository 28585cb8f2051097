package instance

import (
	"os"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

// GetID returns the process instance identifier used in logs and lock owners.
// STOREFRONT_INSTANCE_ID wins, then the container hostname.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "storefront-0"
}

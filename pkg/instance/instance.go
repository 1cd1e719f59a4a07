package instance

import "os"

const envInstanceID = "PARTSDESK_INSTANCE_ID"

// GetID identifies the running process in logs. It prefers the explicit
// instance variable, then the platform dyno name, then the hostname.
func GetID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

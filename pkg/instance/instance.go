package instance

import "os"

// GetID returns the process instance identifier used in logs and lock
// owners, falling back to the platform dyno name and finally "local".
func GetID() string {
	for _, key := range []string{"FLEETOPS_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}

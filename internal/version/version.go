package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders build metadata prefixed with the binary name.
func String(binary string) string {
	if binary == "" {
		binary = "tempest"
	}
	return binary + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

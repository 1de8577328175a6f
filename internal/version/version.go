// Package version holds build-time version info injected via ldflags.
//
//	go build -ldflags "-X github.com/terabiome/vergemcp/internal/version.version=v0.3.0" ./cmd
package version

var version = "dev"

// Version returns the build version string.
func Version() string {
	return version
}

// Package version holds the build version, set with ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/clash-synergy/internal/version.Version=v1.2.3" ./cmd/synergy
package version

// Version defaults to "dev" for local builds.
var Version = "dev"

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// Package version carries build information for the schleuben binaries.
//
// Values are stamped at link time and fall back to the module build info:
//
//	go build -ldflags "-X github.com/MrEdHardy/schleuben/version.Version=1.2.0" ./cmd/readonly-service
package version

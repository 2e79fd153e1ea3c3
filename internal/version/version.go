// Package version provides build and version information for faultgen.
package version

// Version is the current release version of faultgen.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/stargate-qa/faultgen/internal/version.Version=x.y.z"
var Version = "1.0.0"

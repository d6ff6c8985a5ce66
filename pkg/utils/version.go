// Package utils holds build metadata stamped in with -ldflags.
package utils

// Set at link time, for example
// -X github.com/papercomputeco/mathpad/pkg/utils.Version=v0.3.0.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// Package utils holds small one-off helpers with no better home.
package utils

// Stamped by -ldflags at release time; see .dagger/build.go.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

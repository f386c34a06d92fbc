// Package rundigest provides the version information for rundigest.
package rundigest

// Version is the current version of rundigest.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

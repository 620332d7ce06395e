// Package update compares the running CLI version against a release.
package update

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"
)

// Status is the result of a version comparison.
type Status struct {
	Current   string
	Latest    string
	Available bool
}

// Check reports whether latest is newer than current.
func Check(current, latest string) (Status, error) {
	cur, err := version.NewVersion(current)
	if err != nil {
		return Status{}, fmt.Errorf("invalid version format: %w", err)
	}
	lat, err := version.NewVersion(latest)
	if err != nil {
		return Status{}, fmt.Errorf("invalid latest version format: %w", err)
	}
	return Status{
		Current:   cur.String(),
		Latest:    lat.String(),
		Available: cur.LessThan(lat),
	}, nil
}

// DownloadURL returns the release download URL for the current platform
func DownloadURL(v string) string {
	return fmt.Sprintf("https://github.com/satishbabariya/coconutdal/releases/download/v%s/coconut-%s-%s",
		v, runtime.GOOS, runtime.GOARCH)
}

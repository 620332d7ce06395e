// Package version describes the coconut build and the backends compiled in.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/satishbabariya/coconutdal/config"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
)

// Set with -ldflags "-X".
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Built   = "unknown"
)

// Backend lists the drivers registered for one variant.
type Backend struct {
	Variant string   `json:"variant" yaml:"variant"`
	Drivers []string `json:"drivers" yaml:"drivers"`
}

// Info is the build and capability report printed by "coconut version".
type Info struct {
	Version        string    `json:"version" yaml:"version"`
	Commit         string    `json:"commit" yaml:"commit"`
	Built          string    `json:"built" yaml:"built"`
	Go             string    `json:"go" yaml:"go"`
	Platform       string    `json:"platform" yaml:"platform"`
	ConfigVersions string    `json:"config_versions" yaml:"config_versions"`
	Backends       []Backend `json:"backends" yaml:"backends"`
}

func Get() Info {
	info := Info{
		Version:        Version,
		Commit:         Commit,
		Built:          Built,
		Go:             runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		ConfigVersions: config.SupportedVersions,
	}
	for _, v := range dialect.Variants() {
		info.Backends = append(info.Backends, Backend{Variant: v.String(), Drivers: dialect.Drivers(v)})
	}
	return info
}

// String is the one-line form used by --version.
func (i Info) String() string {
	return fmt.Sprintf("coconut %s (%s, %s)", i.Version, i.Commit, i.Platform)
}

// Text is the multi-line form used by the table output.
func (i Info) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "coconut %s\n", i.Version)
	fmt.Fprintf(&b, "  commit:   %s (built %s)\n", i.Commit, i.Built)
	fmt.Fprintf(&b, "  go:       %s %s\n", i.Go, i.Platform)
	fmt.Fprintf(&b, "  config:   version %s\n", i.ConfigVersions)
	for _, be := range i.Backends {
		fmt.Fprintf(&b, "  %-9s %s\n", be.Variant+":", strings.Join(be.Drivers, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Package manifest models the package manifest: the ordered set of software
// packages to build, where to fetch their sources, and how their download
// URLs resolve on the current host.
package manifest

import (
	"fmt"
	"net/url"
	"path"
	"runtime"
	"strings"
)

// Package is a buildable unit of software. Immutable after construction.
type Package struct {
	Name         string
	Version      string
	DownloadURL  string
	Dependencies map[string]string
}

// Host carries the values URL template placeholders resolve against. It is
// captured once so resolution is deterministic for the life of the process.
type Host struct {
	// Arch is the machine architecture in uname form (x86_64, aarch64).
	Arch string

	// System is the OS name in uname form (Linux, Darwin).
	System string
}

var unameArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "aarch64",
	"386":   "i686",
}

// CurrentHost returns the Host descriptor for the running process.
func CurrentHost() Host {
	arch := runtime.GOARCH
	if a, ok := unameArch[arch]; ok {
		arch = a
	}
	system := runtime.GOOS
	if system != "" {
		system = strings.ToUpper(system[:1]) + system[1:]
	}
	return Host{Arch: arch, System: system}
}

// ResolvedDownloadURL is the download URL with template placeholders
// replaced. Resolving the same package against the same host always yields
// the same URL.
func (p *Package) ResolvedDownloadURL(host Host) string {
	return strings.NewReplacer(
		"{Arch}", host.Arch,
		"{Architecture}", host.Arch,
		"{Name}", p.Name,
		"{System}", host.System,
		"{Version}", p.Version,
	).Replace(p.DownloadURL)
}

// SourceArchiveName is the base filename of the source archive, derived from
// the URL-decoded path component of the resolved download URL.
func (p *Package) SourceArchiveName(host Host) (string, error) {
	resolved := p.ResolvedDownloadURL(host)
	u, err := url.Parse(resolved)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q for package %s: %w", resolved, p.Name, err)
	}
	decoded, err := url.QueryUnescape(u.Path)
	if err != nil {
		return "", fmt.Errorf("invalid download URL path %q for package %s: %w", u.Path, p.Name, err)
	}
	return path.Base(decoded), nil
}

// Package platform defines the fixed catalog of target build environments.
package platform

// Kind is the type of package an OS consumes.
type Kind string

const (
	RPM Kind = "rpm"
	DEB Kind = "deb"
)

// Platform describes one target build environment: the OS it targets, the
// architecture string its packages use, and the base image builds start from.
type Platform struct {
	// OSName is the short OS name (amzn1, el7, ...); used in RPM suffixes
	// and as the artifact subdirectory name.
	OSName string

	// Arch is the processor architecture as the target's packaging tools
	// spell it. Notably RPM-based OSes use x86_64 while DEB-based OSes
	// use amd64.
	Arch string

	// SourceImage is the image builds for this platform start from.
	SourceImage string

	// Kind is the type of package (RPM, DEB) the OS uses.
	Kind Kind
}

// DockerfileTemplate is the name of the per-platform build recipe copied
// into each build context.
func (p Platform) DockerfileTemplate() string {
	return p.OSName + ".dockerfile"
}

// Catalog is the closed set of platforms we know how to build against, in
// build order. It is not user-configurable.
var Catalog = []Platform{
	{OSName: "amzn1", Arch: "x86_64", SourceImage: "amazonlinux:1", Kind: RPM},
	{OSName: "amzn2", Arch: "x86_64", SourceImage: "amazonlinux:2", Kind: RPM},
	{OSName: "el7", Arch: "x86_64", SourceImage: "centos:7", Kind: RPM},
	{OSName: "ubuntu-xenial", Arch: "amd64", SourceImage: "ubuntu:16.04", Kind: DEB},
	{OSName: "ubuntu-bionic", Arch: "amd64", SourceImage: "ubuntu:18.04", Kind: DEB},
	{OSName: "ubuntu-cosmic", Arch: "amd64", SourceImage: "ubuntu:18.10", Kind: DEB},
	{OSName: "ubuntu-disco", Arch: "amd64", SourceImage: "ubuntu:19.04", Kind: DEB},
}

// Lookup returns the catalog entry with the given short OS name.
func Lookup(osName string) (Platform, bool) {
	for _, p := range Catalog {
		if p.OSName == osName {
			return p, true
		}
	}
	return Platform{}, false
}

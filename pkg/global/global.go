package global

var (
	Version   = "0.0.1"
	BuildTime = "none"
	Verbose   = false

	// ManifestFilename is the default package manifest consumed by the
	// build command.
	ManifestFilename = "packages.yaml"

	// Region is passed to every image build as the REGION build argument.
	Region = "us-west-2"

	// Release is the package release counter, passed as the REL build
	// argument.
	Release = "0"

	// ExportMountPoint is where the artifact output directory is bound
	// inside the export container.
	ExportMountPoint = "/export"
)

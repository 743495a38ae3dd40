package version

// version is overridden at build time:
//
//	go build -ldflags "-X github.com/cbodonnell/drag/pkg/version.version=v1.2.3"
var version = "dev"

// Get returns the build version.
func Get() string {
	return version
}

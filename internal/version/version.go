package version

// Version is the engine version. Set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-core/internal/version.Version=v1.2.3".
// "main" marks a development build.
var Version = "v1.0.0"

// GetVersion returns the engine version.
func GetVersion() string {
	return Version
}

// Package version reports build information of the nhanes binaries
package version

// BuildInfo holds version information about a build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information of service
// version, commit and date are stamped at link time:
//
//	-ldflags "-X 'nhanes/internal/core/version.version=v0.3.0' -X 'nhanes/internal/core/version.commit=abcd'"
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders the build on one line for CLI output
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

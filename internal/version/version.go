// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/aristath/ecowash/internal/version.Version=1.2.0 -X github.com/aristath/ecowash/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	Version = "dev"
	Commit  = "unknown"
)

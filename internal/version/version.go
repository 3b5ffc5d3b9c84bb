// Package version holds build-time version metadata.
package version

// Version and GitCommit are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/leosat-network/leosim/internal/version.Version=v1.0.0 \
//	  -X github.com/leosat-network/leosim/internal/version.GitCommit=abc1234"
var (
	Version   = "dev"
	GitCommit = "unknown"
)

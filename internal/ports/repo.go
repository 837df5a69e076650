package ports

import (
	"context"

	"artifact-cleanup/internal/types"
)

// ArtifactRepoPort is the consumed capability of the artifact hosting
// service. Implementations drain any pagination internally: ListVersions
// returns the complete version set for a package, never a partial page.
// Deleting an already-absent version is not an error.
type ArtifactRepoPort interface {
	ListPackages(ctx context.Context, repo string) ([]string, error)
	ListVersions(ctx context.Context, repo string, pkg string) ([]types.VersionInfo, error)
	DeleteVersion(ctx context.Context, repo string, pkg string, version string) error
}

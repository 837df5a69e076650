package adapters

import (
	"context"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"artifact-cleanup/internal/ports"
	"artifact-cleanup/internal/types"
)

// RepoFileAdapter serves an artifact inventory from a YAML file. It
// backs offline dry-run rehearsal and tests; the file is re-read on
// every call so nothing is cached between operations.
type RepoFileAdapter struct {
	Path string
}

func NewRepoFileAdapter(path string) RepoFileAdapter {
	return RepoFileAdapter{Path: path}
}

type inventoryFile struct {
	Repositories []inventoryRepo `yaml:"repositories"`
}

type inventoryRepo struct {
	Name     string             `yaml:"name"`
	Packages []inventoryPackage `yaml:"packages"`
}

type inventoryPackage struct {
	Name     string             `yaml:"name"`
	Versions []inventoryVersion `yaml:"versions"`
}

type inventoryVersion struct {
	Name    string `yaml:"name"`
	Created string `yaml:"created"`
	Size    int64  `yaml:"size"`
}

func (a RepoFileAdapter) ListPackages(ctx context.Context, repo string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inventory, err := a.load()
	if err != nil {
		return nil, err
	}
	entry, err := findRepo(inventory, repo)
	if err != nil {
		return nil, err
	}
	packages := make([]string, 0, len(entry.Packages))
	for _, pkg := range entry.Packages {
		packages = append(packages, pkg.Name)
	}
	return packages, nil
}

func (a RepoFileAdapter) ListVersions(ctx context.Context, repo string, pkg string) ([]types.VersionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inventory, err := a.load()
	if err != nil {
		return nil, err
	}
	entry, err := findRepo(inventory, repo)
	if err != nil {
		return nil, err
	}
	for _, candidate := range entry.Packages {
		if candidate.Name != pkg {
			continue
		}
		versions := make([]types.VersionInfo, 0, len(candidate.Versions))
		for _, version := range candidate.Versions {
			versions = append(versions, types.VersionInfo{
				Repository: repo,
				Package:    pkg,
				Name:       version.Name,
				CreatedAt:  parseTimeFlexible(version.Created),
				Size:       version.Size,
			})
		}
		return versions, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("package not found in inventory: " + pkg)
}

func (a RepoFileAdapter) DeleteVersion(ctx context.Context, repo string, pkg string, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inventory, err := a.load()
	if err != nil {
		return err
	}
	entry, err := findRepo(inventory, repo)
	if err != nil {
		return err
	}
	// Deleting a version that is already gone succeeds, so reruns
	// after a partial failure converge instead of erroring.
	for pi := range entry.Packages {
		if entry.Packages[pi].Name != pkg {
			continue
		}
		kept := entry.Packages[pi].Versions[:0]
		for _, candidate := range entry.Packages[pi].Versions {
			if candidate.Name != version {
				kept = append(kept, candidate)
			}
		}
		entry.Packages[pi].Versions = kept
	}
	return a.store(inventory)
}

func (a RepoFileAdapter) load() (*inventoryFile, error) {
	if strings.TrimSpace(a.Path) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("inventory file path is empty")
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("inventory file not found").
			WithCause(err)
	}
	inventory := &inventoryFile{}
	if err := yaml.Unmarshal(data, inventory); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse inventory yaml").
			WithCause(err)
	}
	return inventory, nil
}

func (a RepoFileAdapter) store(inventory *inventoryFile) error {
	data, err := yaml.Marshal(inventory)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode inventory yaml").
			WithCause(err)
	}
	if err := os.WriteFile(a.Path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write inventory file").
			WithCause(err)
	}
	return nil
}

func findRepo(inventory *inventoryFile, repo string) (*inventoryRepo, error) {
	for i := range inventory.Repositories {
		if inventory.Repositories[i].Name == repo {
			return &inventory.Repositories[i], nil
		}
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("repository not found in inventory: " + repo)
}

var _ ports.ArtifactRepoPort = RepoFileAdapter{}

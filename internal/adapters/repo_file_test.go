package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"
)

const sampleInventory = `repositories:
  - name: releases
    packages:
      - name: agent
        versions:
          - name: "1.0.0"
            created: "2026-01-01T00:00:00Z"
            size: 2048
          - name: "1.1.0"
            created: "2026-02-01T00:00:00Z"
  - name: snapshots
    packages: []
`

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRepoFileListPackages(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))

	packages, err := adapter.ListPackages(context.Background(), "releases")

	require.NoError(t, err)
	require.Equal(t, []string{"agent"}, packages)
}

func TestRepoFileListVersions(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))

	versions, err := adapter.ListVersions(context.Background(), "releases", "agent")

	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, "1.0.0", versions[0].Name)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), versions[0].CreatedAt)
	require.Equal(t, int64(2048), versions[0].Size)
	require.Equal(t, "releases", versions[0].Repository)
	require.Equal(t, "agent", versions[0].Package)
}

func TestRepoFileDeleteVersionRewritesFile(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))

	require.NoError(t, adapter.DeleteVersion(context.Background(), "releases", "agent", "1.0.0"))

	versions, err := adapter.ListVersions(context.Background(), "releases", "agent")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "1.1.0", versions[0].Name)
}

func TestRepoFileDeleteAbsentVersionSucceeds(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))

	require.NoError(t, adapter.DeleteVersion(context.Background(), "releases", "agent", "9.9.9"))

	versions, err := adapter.ListVersions(context.Background(), "releases", "agent")
	require.NoError(t, err)
	require.Len(t, versions, 2)
}

func TestRepoFileUnknownRepository(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))

	_, err := adapter.ListPackages(context.Background(), "missing")

	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestRepoFileMissingFile(t *testing.T) {
	adapter := NewRepoFileAdapter(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := adapter.ListPackages(context.Background(), "releases")

	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestRepoFileCanceledContext(t *testing.T) {
	adapter := NewRepoFileAdapter(writeInventory(t, sampleInventory))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.ListPackages(ctx, "releases")

	require.ErrorIs(t, err, context.Canceled)
}

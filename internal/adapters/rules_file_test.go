package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"artifact-cleanup/internal/types"
)

func TestLoadCleanupPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `repositories:
  - releases
  - snapshots
rule:
  keep_count: 5
  max_age_days: 30
  protect_prefixes:
    - lts-
overrides:
  snapshots:
    keep_count: 2
    combine: intersection
    max_age_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	plan, err := LoadCleanupPlan(path)

	require.NoError(t, err)
	require.Equal(t, []string{"releases", "snapshots"}, plan.Repositories)
	require.Equal(t, 5, plan.Default.KeepCount)
	require.Equal(t, 30, plan.Default.MaxAgeDays)
	require.Equal(t, []string{"lts-"}, plan.Default.ProtectPrefixes)
	require.Equal(t, types.RetentionRule{
		KeepCount:  2,
		MaxAgeDays: 7,
		Combine:    types.CombineIntersection,
	}, plan.Overrides["snapshots"])
}

func TestLoadCleanupPlanMissingFile(t *testing.T) {
	_, err := LoadCleanupPlan(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestLoadCleanupPlanMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rule: [broken"), 0644))

	_, err := LoadCleanupPlan(path)

	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

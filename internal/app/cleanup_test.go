package app

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"artifact-cleanup/internal/types"
)

type fakeRepo struct {
	packages        map[string][]string
	versions        map[string][]types.VersionInfo
	listPackagesErr map[string]error
	listVersionsErr map[string]error
	failDeletes     map[string]error
	// staleListing freezes ListVersions output so deletions do not
	// shrink the inventory, mimicking a rerun against listings taken
	// before a crash.
	staleListing bool
	snapshot     map[string][]types.VersionInfo
	onDelete     func()
	deleted      []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		packages:        map[string][]string{},
		versions:        map[string][]types.VersionInfo{},
		listPackagesErr: map[string]error{},
		listVersionsErr: map[string]error{},
		failDeletes:     map[string]error{},
	}
}

func (f *fakeRepo) addVersions(repo string, pkg string, versions []types.VersionInfo) {
	f.packages[repo] = append(f.packages[repo], pkg)
	key := repo + "/" + pkg
	f.versions[key] = versions
	if f.snapshot == nil {
		f.snapshot = map[string][]types.VersionInfo{}
	}
	f.snapshot[key] = append([]types.VersionInfo(nil), versions...)
}

func (f *fakeRepo) ListPackages(_ context.Context, repo string) ([]string, error) {
	if err := f.listPackagesErr[repo]; err != nil {
		return nil, err
	}
	return f.packages[repo], nil
}

func (f *fakeRepo) ListVersions(_ context.Context, repo string, pkg string) ([]types.VersionInfo, error) {
	key := repo + "/" + pkg
	if err := f.listVersionsErr[key]; err != nil {
		return nil, err
	}
	if f.staleListing {
		return append([]types.VersionInfo(nil), f.snapshot[key]...), nil
	}
	return append([]types.VersionInfo(nil), f.versions[key]...), nil
}

func (f *fakeRepo) DeleteVersion(_ context.Context, repo string, pkg string, version string) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	if err := f.failDeletes[version]; err != nil {
		return err
	}
	key := repo + "/" + pkg
	kept := f.versions[key][:0:0]
	for _, candidate := range f.versions[key] {
		if candidate.Name != version {
			kept = append(kept, candidate)
		}
	}
	// Absent versions delete successfully, like the real service.
	f.versions[key] = kept
	f.deleted = append(f.deleted, repo+"/"+pkg+"@"+version)
	return nil
}

func testNow() time.Time {
	return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
}

func testService(repo *fakeRepo) Service {
	return Service{Repo: repo, Clock: testNow}
}

func agedVersions(repo string, pkg string, days ...int) []types.VersionInfo {
	now := testNow()
	versions := make([]types.VersionInfo, 0, len(days))
	for _, age := range days {
		versions = append(versions, types.VersionInfo{
			Repository: repo,
			Package:    pkg,
			Name:       "v" + strconv.Itoa(age),
			CreatedAt:  now.AddDate(0, 0, -age),
		})
	}
	return versions
}

func simpleRequest(rule types.RetentionRule, dryRun bool, repos ...string) CleanupRequest {
	return CleanupRequest{
		Plan:   types.CleanupPlan{Repositories: repos, Default: rule},
		DryRun: dryRun,
	}
}

func TestCleanupDryRunEquivalence(t *testing.T) {
	ctx := context.Background()
	rule := types.RetentionRule{KeepCount: 2}

	dryFake := newFakeRepo()
	dryFake.addVersions("releases", "agent", agedVersions("releases", "agent", 100, 40, 10, 0))
	dryReport, err := testService(dryFake).Cleanup(ctx, simpleRequest(rule, true, "releases"))
	require.NoError(t, err)

	realFake := newFakeRepo()
	realFake.addVersions("releases", "agent", agedVersions("releases", "agent", 100, 40, 10, 0))
	realReport, err := testService(realFake).Cleanup(ctx, simpleRequest(rule, false, "releases"))
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(dryReport.Packages[0].Decisions, realReport.Packages[0].Decisions))
	require.Empty(t, dryFake.deleted)
	require.Len(t, realFake.deleted, 2)
	for _, outcome := range dryReport.Packages[0].Outcomes {
		require.Equal(t, types.OutcomeSkipped, outcome.Status)
		require.Equal(t, "dry-run", outcome.Reason)
	}
	for _, outcome := range realReport.Packages[0].Outcomes {
		require.Equal(t, types.OutcomeSucceeded, outcome.Status)
	}
}

func TestCleanupDeletesOldestFirst(t *testing.T) {
	fake := newFakeRepo()
	// Unsorted listing: the driver must order by creation time before
	// deciding or deleting.
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 10, 100, 0, 40))

	report, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 2}, false, "releases"))

	require.NoError(t, err)
	require.False(t, report.HasFailures())
	require.Equal(t, []string{
		"releases/agent@v100",
		"releases/agent@v40",
	}, fake.deleted)
}

func TestCleanupPartialFailureIsolation(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 50, 40, 30, 20, 10))
	fake.failDeletes["v30"] = errors.New("remote 500")

	report, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases"))

	require.NoError(t, err)
	require.True(t, report.HasFailures())
	summary := report.Summary()
	require.Equal(t, 3, summary.Deleted)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Kept)
	require.Len(t, fake.deleted, 3)
}

func TestCleanupEnumerationFailureSkipsPackage(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "bad", nil)
	fake.addVersions("releases", "good", agedVersions("releases", "good", 40, 0))
	fake.listVersionsErr["releases/bad"] = errors.New("listing exploded")

	report, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases"))

	require.NoError(t, err)
	summary := report.Summary()
	require.Equal(t, 1, summary.PackagesSkipped)
	require.Equal(t, 1, summary.Deleted)
	require.True(t, report.Packages[0].Skipped)
	require.Contains(t, report.Packages[0].SkipReason, "listing exploded")
}

func TestCleanupRepositoryEnumerationFailureContinues(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 40, 0))
	fake.listPackagesErr["broken"] = errors.New("repo unreachable")

	report, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 1}, false, "broken", "releases"))

	require.NoError(t, err)
	require.Len(t, report.Packages, 2)
	require.True(t, report.Packages[0].Skipped)
	require.Equal(t, "broken", report.Packages[0].Repository)
	require.Equal(t, 1, report.Summary().Deleted)
}

func TestCleanupInvalidVersionRecordSkipsPackage(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", []types.VersionInfo{
		{Repository: "releases", Package: "agent", Name: "good", CreatedAt: testNow().AddDate(0, 0, -1)},
		{Repository: "releases", Package: "agent", Name: "no-timestamp"},
	})

	report, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases"))

	require.NoError(t, err)
	require.True(t, report.Packages[0].Skipped)
	require.Contains(t, report.Packages[0].SkipReason, "no-timestamp")
	require.Empty(t, fake.deleted)
}

func TestCleanupConfigErrorAbortsBeforeDeletion(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 40, 0))

	_, err := testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{KeepCount: 1}, false))
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = testService(fake).Cleanup(context.Background(),
		simpleRequest(types.RetentionRule{}, false, "releases"))
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	badLimit := simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases")
	badLimit.Limit = -1
	_, err = testService(fake).Cleanup(context.Background(), badLimit)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	require.Empty(t, fake.deleted)
}

func TestCleanupRerunTreatsAbsentAsDeleted(t *testing.T) {
	fake := newFakeRepo()
	fake.staleListing = true
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 100, 40, 0))
	service := testService(fake)
	req := simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases")

	first, err := service.Cleanup(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Cleanup(context.Background(), req)
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(first.Packages[0].Decisions, second.Packages[0].Decisions))
	require.False(t, second.HasFailures())
	for _, outcome := range second.Packages[0].Outcomes {
		require.Equal(t, types.OutcomeSucceeded, outcome.Status)
	}
}

func TestCleanupCancellationStopsFurtherDeletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 40, 30, 20, 0))
	fake.onDelete = cancel

	report, err := testService(fake).Cleanup(ctx,
		simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases"))

	require.NoError(t, err)
	require.Len(t, fake.deleted, 1)
	outcomes := report.Packages[0].Outcomes
	require.Len(t, outcomes, 3)
	require.Equal(t, types.OutcomeSucceeded, outcomes[0].Status)
	require.Equal(t, "canceled", outcomes[1].Reason)
	require.Equal(t, "canceled", outcomes[2].Reason)
}

func TestCleanupLimitCapsDeletionsPerPackage(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 40, 30, 20, 0))
	req := simpleRequest(types.RetentionRule{KeepCount: 1}, false, "releases")
	req.Limit = 1

	report, err := testService(fake).Cleanup(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, fake.deleted, 1)
	summary := report.Summary()
	require.Equal(t, 1, summary.Deleted)
	require.Equal(t, 2, summary.Skipped)
}

func TestCleanupAppliesRepositoryOverride(t *testing.T) {
	fake := newFakeRepo()
	fake.addVersions("releases", "agent", agedVersions("releases", "agent", 40, 30, 0))
	fake.addVersions("snapshots", "agent", agedVersions("snapshots", "agent", 40, 30, 0))
	req := CleanupRequest{
		Plan: types.CleanupPlan{
			Repositories: []string{"releases", "snapshots"},
			Default:      types.RetentionRule{KeepCount: 2},
			Overrides: map[string]types.RetentionRule{
				"snapshots": {KeepCount: 1},
			},
		},
	}

	_, err := testService(fake).Cleanup(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, []string{
		"releases/agent@v40",
		"snapshots/agent@v40",
		"snapshots/agent@v30",
	}, fake.deleted)
}

package app

import (
	"context"
	"sort"
	"strings"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"artifact-cleanup/internal/adapters"
	"artifact-cleanup/internal/core"
	"artifact-cleanup/internal/ports"
	"artifact-cleanup/internal/shared"
	"artifact-cleanup/internal/types"
)

// Cleanup enumerates every package of every requested repository,
// applies the retention rule, and deletes stale versions oldest-first.
// Per-item failures are recorded in the returned report and never
// abort the run; only configuration errors do, and those surface
// before any deletion is attempted. Processing is sequential across
// repositories, packages, and versions so the remote rate budget is
// never amplified.
func (s Service) Cleanup(ctx context.Context, req CleanupRequest) (types.RunReport, error) {
	repos, err := validateCleanupConfig(ctx, req)
	if err != nil {
		return types.RunReport{}, err
	}
	adapter := s.Repo
	if adapter == nil {
		adapter, err = buildRepoAdapter(req)
		if err != nil {
			return types.RunReport{}, err
		}
	}
	now := timeNow(s.Clock)
	report := types.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
		DryRun:    req.DryRun,
	}
	for _, repo := range repos {
		rule := core.RuleForRepository(req.Plan, repo)
		packages, err := adapter.ListPackages(ctx, repo)
		if err != nil {
			log.Warn().Str("repository", repo).Err(err).Msg("package enumeration failed")
			report.Packages = append(report.Packages, types.PackageReport{
				Repository: repo,
				Skipped:    true,
				SkipReason: "list packages failed: " + err.Error(),
			})
			continue
		}
		for _, pkg := range packages {
			report.Packages = append(report.Packages, s.cleanupPackage(ctx, adapter, repo, pkg, rule, req, now))
		}
	}
	s.Metrics.ObserveRun(report)
	summary := report.Summary()
	log.Info().
		Str("run_id", report.RunID).
		Bool("dry_run", report.DryRun).
		Int("kept", summary.Kept).
		Int("deleted", summary.Deleted).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("packages_skipped", summary.PackagesSkipped).
		Msg("cleanup run completed")
	return report, nil
}

func (s Service) cleanupPackage(ctx context.Context, adapter ports.ArtifactRepoPort, repo string, pkg string, rule types.RetentionRule, req CleanupRequest, now time.Time) types.PackageReport {
	result := types.PackageReport{Repository: repo, Package: pkg}
	versions, err := adapter.ListVersions(ctx, repo, pkg)
	if err != nil {
		log.Warn().Str("repository", repo).Str("package", pkg).Err(err).Msg("version enumeration failed")
		result.Skipped = true
		result.SkipReason = "list versions failed: " + err.Error()
		return result
	}
	// Oldest first; equal timestamps keep the listing order.
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].CreatedAt.Before(versions[j].CreatedAt)
	})
	decisions, err := core.BuildRetentionPlan(versions, rule, now)
	if err != nil {
		result.Skipped = true
		result.SkipReason = err.Error()
		return result
	}
	result.Decisions = decisions

	attempts := 0
	canceled := false
	for _, decision := range decisions {
		if decision.Verdict != types.VerdictDelete {
			continue
		}
		if req.Limit > 0 && attempts >= req.Limit {
			result.Outcomes = append(result.Outcomes, types.DeletionOutcome{
				Version: decision.Version,
				Status:  types.OutcomeSkipped,
				Reason:  "limit-reached",
			})
			continue
		}
		attempts++
		if req.DryRun {
			result.Outcomes = append(result.Outcomes, types.DeletionOutcome{
				Version: decision.Version,
				Status:  types.OutcomeSkipped,
				Reason:  "dry-run",
			})
			continue
		}
		// Once canceled, no further deletes are issued; the versions
		// left over are recorded so no state change goes unreported.
		if canceled || ctx.Err() != nil {
			canceled = true
			result.Outcomes = append(result.Outcomes, types.DeletionOutcome{
				Version: decision.Version,
				Status:  types.OutcomeSkipped,
				Reason:  "canceled",
			})
			continue
		}
		if err := adapter.DeleteVersion(ctx, repo, pkg, decision.Version.Name); err != nil {
			log.Warn().
				Str("repository", repo).
				Str("package", pkg).
				Str("version", decision.Version.Name).
				Err(err).
				Msg("deletion failed")
			result.Outcomes = append(result.Outcomes, types.DeletionOutcome{
				Version: decision.Version,
				Status:  types.OutcomeFailed,
				Reason:  err.Error(),
			})
			continue
		}
		log.Debug().
			Str("repository", repo).
			Str("package", pkg).
			Str("version", decision.Version.Name).
			Msg("version deleted")
		result.Outcomes = append(result.Outcomes, types.DeletionOutcome{
			Version: decision.Version,
			Status:  types.OutcomeSucceeded,
		})
	}
	return result
}

func validateCleanupConfig(ctx context.Context, req CleanupRequest) ([]string, error) {
	var repos []string
	seen := map[string]struct{}{}
	for _, repo := range req.Plan.Repositories {
		name := strings.TrimSpace(repo)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		repos = append(repos, name)
	}
	if len(repos) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one repository is required")
	}
	if req.Limit < 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("deletion limit must not be negative")
	}
	for _, repo := range repos {
		assert.NotEmpty(ctx, repo, "repository identifier must not be empty")
		if err := core.ValidateRule(core.RuleForRepository(req.Plan, repo)); err != nil {
			return nil, err
		}
	}
	return repos, nil
}

func buildRepoAdapter(req CleanupRequest) (ports.ArtifactRepoPort, error) {
	backend := shared.NormalizeKey(req.RepoBackend)
	if backend == "" {
		backend = "api"
	}
	switch backend {
	case "api":
		if strings.TrimSpace(req.APIEndpoint) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("api endpoint is required")
		}
		if strings.TrimSpace(req.APIKey) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("api key is required")
		}
		return adapters.NewArtifactAPIAdapter(adapters.ArtifactAPIConfig{
			Endpoint:     req.APIEndpoint,
			Username:     req.APIUser,
			APIKey:       req.APIKey,
			PageSize:     req.APIPageSize,
			TimeoutSec:   req.APITimeoutSec,
			Retries:      req.APIRetries,
			RetryDelayMs: req.APIRetryDelayMs,
		}), nil
	case "file":
		if strings.TrimSpace(req.InventoryPath) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("inventory path is required for file backend")
		}
		return adapters.NewRepoFileAdapter(req.InventoryPath), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported repo backend")
	}
}

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"artifact-cleanup/internal/adapters"
	"artifact-cleanup/internal/app"
	"artifact-cleanup/internal/types"
)

type cleanupOptions struct {
	Repos           []string
	KeepCount       int
	MaxAgeDays      int
	Combine         string
	ProtectVersions []string
	ProtectPrefixes []string
	DryRun          bool
	Yes             bool
	Limit           int
	RulesFile       string
	JSON            bool
	RepoBackend     string
	InventoryPath   string
	APIEndpoint     string
	APIUser         string
	APIKey          string
	APIPageSize     int
	APITimeoutSec   int
	APIRetries      int
	APIRetryDelay   int
}

func newCleanupCommand() *cobra.Command {
	opts := cleanupOptions{}
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention policy to repositories and delete stale versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd.Context(), cmd, opts)
		},
	}
	addCleanupFlags(cmd, &opts)
	return cmd
}

func addCleanupFlags(cmd *cobra.Command, opts *cleanupOptions) {
	cmd.Flags().StringSliceVar(&opts.Repos, "repo", nil, "Repository to clean (repeatable)")
	cmd.Flags().IntVar(&opts.KeepCount, "keep-count", 0, "Keep the N most recently created versions per package")
	cmd.Flags().IntVar(&opts.MaxAgeDays, "max-age-days", 0, "Keep versions created within the last N days")
	cmd.Flags().StringVar(&opts.Combine, "combine", "union", "How keep-count and max-age-days combine (union or intersection)")
	cmd.Flags().StringSliceVar(&opts.ProtectVersions, "protect-version", nil, "Version names that are never deleted")
	cmd.Flags().StringSliceVar(&opts.ProtectPrefixes, "protect-prefix", nil, "Version name prefixes that are never deleted")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report deletions without performing them")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt before deleting")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Cap deletions per package per run (0 = unlimited)")
	cmd.Flags().StringVar(&opts.RulesFile, "rules-file", "", "Cleanup plan file with repositories and per-repo rules")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit the run report as JSON")
	cmd.Flags().StringVar(&opts.RepoBackend, "backend", "api", "Repository backend (api or file)")
	cmd.Flags().StringVar(&opts.InventoryPath, "inventory", "", "Inventory file for the file backend")
	cmd.Flags().StringVar(&opts.APIEndpoint, "endpoint", "", "Artifact service base URL")
	cmd.Flags().StringVar(&opts.APIUser, "user", "", "Username for basic auth (defaults to api)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "API key or password for basic auth")
	cmd.Flags().IntVar(&opts.APIPageSize, "page-size", 50, "Page size for paginated listings (0 = default)")
	cmd.Flags().IntVar(&opts.APITimeoutSec, "timeout", 30, "HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.APIRetries, "retries", 3, "API retries for rate-limited and transient failures (0 = default)")
	cmd.Flags().IntVar(&opts.APIRetryDelay, "retry-delay-ms", 200, "Retry base delay in ms (0 = default)")

	_ = viper.BindPFlag("repos", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("keep_count", cmd.Flags().Lookup("keep-count"))
	_ = viper.BindPFlag("max_age_days", cmd.Flags().Lookup("max-age-days"))
	_ = viper.BindPFlag("combine", cmd.Flags().Lookup("combine"))
	_ = viper.BindPFlag("protect_versions", cmd.Flags().Lookup("protect-version"))
	_ = viper.BindPFlag("protect_prefixes", cmd.Flags().Lookup("protect-prefix"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("assume_yes", cmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("rules_file", cmd.Flags().Lookup("rules-file"))
	_ = viper.BindPFlag("repo_backend", cmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("inventory", cmd.Flags().Lookup("inventory"))
	_ = viper.BindPFlag("api_endpoint", cmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("api_user", cmd.Flags().Lookup("user"))
	_ = viper.BindPFlag("api_key", cmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("api_page_size", cmd.Flags().Lookup("page-size"))
	_ = viper.BindPFlag("api_timeout_sec", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("api_retries", cmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("api_retry_delay_ms", cmd.Flags().Lookup("retry-delay-ms"))
}

func runCleanup(ctx context.Context, cmd *cobra.Command, opts cleanupOptions) error {
	req, err := buildCleanupRequest(cmd, opts)
	if err != nil {
		return err
	}
	if !req.DryRun && !resolveBool(cmd, opts.Yes, "assume_yes", "yes") {
		if err := confirmDeletion(cmd); err != nil {
			return err
		}
	}
	service := app.NewService()
	report, err := service.Cleanup(ctx, req)
	if err != nil {
		return err
	}
	if err := renderReport(report, resolveBool(cmd, opts.JSON, "", "json")); err != nil {
		return err
	}
	if report.HasFailures() {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("cleanup completed with failures")
	}
	return nil
}

// confirmDeletion is the interlock in front of a real deletion run:
// without --yes the operator has to answer the prompt. Non-interactive
// callers hit EOF and get a configuration error instead of a hang.
func confirmDeletion(cmd *cobra.Command) error {
	fmt.Fprint(cmd.OutOrStdout(), "delete stale versions? [y/N]: ")
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("deletion not confirmed: rerun with --yes to skip the prompt")
}

func buildCleanupRequest(cmd *cobra.Command, opts cleanupOptions) (app.CleanupRequest, error) {
	plan := types.CleanupPlan{
		Repositories: resolveStrings(cmd, opts.Repos, "repos", "repo"),
		Default: types.RetentionRule{
			KeepCount:       resolveInt(cmd, opts.KeepCount, "keep_count", "keep-count"),
			MaxAgeDays:      resolveInt(cmd, opts.MaxAgeDays, "max_age_days", "max-age-days"),
			Combine:         types.CombineMode(resolveString(cmd, opts.Combine, "combine", "combine")),
			ProtectVersions: resolveStrings(cmd, opts.ProtectVersions, "protect_versions", "protect-version"),
			ProtectPrefixes: resolveStrings(cmd, opts.ProtectPrefixes, "protect_prefixes", "protect-prefix"),
		},
	}
	rulesFile := resolveString(cmd, opts.RulesFile, "rules_file", "rules-file")
	if rulesFile != "" {
		filePlan, err := adapters.LoadCleanupPlan(rulesFile)
		if err != nil {
			return app.CleanupRequest{}, err
		}
		plan = mergePlan(filePlan, plan, cmd)
	}
	return app.CleanupRequest{
		Plan:            plan,
		DryRun:          resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
		Limit:           resolveInt(cmd, opts.Limit, "limit", "limit"),
		RepoBackend:     resolveString(cmd, opts.RepoBackend, "repo_backend", "backend"),
		InventoryPath:   resolveString(cmd, opts.InventoryPath, "inventory", "inventory"),
		APIEndpoint:     resolveString(cmd, opts.APIEndpoint, "api_endpoint", "endpoint"),
		APIUser:         resolveString(cmd, opts.APIUser, "api_user", "user"),
		APIKey:          resolveString(cmd, opts.APIKey, "api_key", "api-key"),
		APIPageSize:     resolveInt(cmd, opts.APIPageSize, "api_page_size", "page-size"),
		APITimeoutSec:   resolveInt(cmd, opts.APITimeoutSec, "api_timeout_sec", "timeout"),
		APIRetries:      resolveInt(cmd, opts.APIRetries, "api_retries", "retries"),
		APIRetryDelayMs: resolveInt(cmd, opts.APIRetryDelay, "api_retry_delay_ms", "retry-delay-ms"),
	}, nil
}

// mergePlan lets explicitly-set flags win over the rules file: the
// file supplies the baseline, flags override field by field.
func mergePlan(filePlan types.CleanupPlan, flagPlan types.CleanupPlan, cmd *cobra.Command) types.CleanupPlan {
	merged := filePlan
	if len(flagPlan.Repositories) > 0 {
		merged.Repositories = flagPlan.Repositories
	}
	if flagChanged(cmd, "keep-count") {
		merged.Default.KeepCount = flagPlan.Default.KeepCount
	}
	if flagChanged(cmd, "max-age-days") {
		merged.Default.MaxAgeDays = flagPlan.Default.MaxAgeDays
	}
	if flagChanged(cmd, "combine") {
		merged.Default.Combine = flagPlan.Default.Combine
	}
	if flagChanged(cmd, "protect-version") {
		merged.Default.ProtectVersions = flagPlan.Default.ProtectVersions
	}
	if flagChanged(cmd, "protect-prefix") {
		merged.Default.ProtectPrefixes = flagPlan.Default.ProtectPrefixes
	}
	return merged
}

func renderReport(report types.RunReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode run report").
				WithCause(err)
		}
		fmt.Println(string(data))
		return nil
	}
	mode := ""
	if report.DryRun {
		mode = " (dry-run)"
	}
	fmt.Printf("run %s%s\n", report.RunID, mode)
	for _, entry := range report.Entries() {
		if entry.Verdict == types.VerdictKeep {
			fmt.Printf("keep   %s/%s@%s (%s)\n", entry.Repository, entry.Package, entry.Version, entry.Reason)
			continue
		}
		fmt.Printf("delete %s/%s@%s -> %s (%s)\n", entry.Repository, entry.Package, entry.Version, entry.Outcome, entry.Reason)
	}
	for _, pkg := range report.Packages {
		if pkg.Skipped {
			name := pkg.Repository
			if pkg.Package != "" {
				name = pkg.Repository + "/" + pkg.Package
			}
			fmt.Printf("skipped %s: %s\n", name, pkg.SkipReason)
		}
	}
	summary := report.Summary()
	fmt.Printf("summary: kept=%d deleted=%d failed=%d skipped=%d packages-skipped=%d\n",
		summary.Kept, summary.Deleted, summary.Failed, summary.Skipped, summary.PackagesSkipped)
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) || key == "" {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) || key == "" {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) || key == "" {
		return value
	}
	return viper.GetInt(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) || key == "" {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return false
	}
	return flag.Changed
}

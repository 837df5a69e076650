package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"artifact-cleanup/internal/types"
)

// ValidateRule rejects malformed retention rules before any remote
// call is made. A rule must keep something: at least one of KeepCount,
// MaxAgeDays, or a protect list has to be configured.
func ValidateRule(rule types.RetentionRule) error {
	if rule.KeepCount < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("keep count must not be negative")
	}
	if rule.MaxAgeDays < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("max age days must not be negative")
	}
	switch rule.Combine {
	case "", types.CombineUnion, types.CombineIntersection:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("combine mode must be union or intersection")
	}
	if rule.Combine == types.CombineIntersection && (rule.KeepCount == 0 || rule.MaxAgeDays == 0) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("intersection combine requires both keep-count and max-age-days")
	}
	if rule.KeepCount == 0 && rule.MaxAgeDays == 0 &&
		len(rule.ProtectVersions) == 0 && len(rule.ProtectPrefixes) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("retention rule keeps nothing: set keep-count, max-age-days, or a protect list")
	}
	return nil
}

// RuleForRepository merges a repository override over the plan's
// default rule. Zero-valued override fields inherit the default.
func RuleForRepository(plan types.CleanupPlan, repo string) types.RetentionRule {
	rule := plan.Default
	override, ok := plan.Overrides[repo]
	if !ok {
		return rule
	}
	if override.KeepCount != 0 {
		rule.KeepCount = override.KeepCount
	}
	if override.MaxAgeDays != 0 {
		rule.MaxAgeDays = override.MaxAgeDays
	}
	if override.Combine != "" {
		rule.Combine = override.Combine
	}
	if len(override.ProtectVersions) > 0 {
		rule.ProtectVersions = override.ProtectVersions
	}
	if len(override.ProtectPrefixes) > 0 {
		rule.ProtectPrefixes = override.ProtectPrefixes
	}
	return rule
}

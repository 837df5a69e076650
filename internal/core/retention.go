package core

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"artifact-cleanup/internal/types"
)

const (
	reasonProtected      = "protected"
	reasonWithinKeep     = "within-keep-count"
	reasonWithinMaxAge   = "within-max-age"
	reasonBeyondKeep     = "beyond-keep-count"
	reasonOlderThanAge   = "older-than-max-age"
	reasonStale          = "stale"
	reasonNoKeepingRule  = "no-keeping-rule"
	reasonFailsBothRules = "beyond-keep-count-and-max-age"
)

// BuildRetentionPlan partitions a package's versions into keep and
// delete verdicts. The input must be ordered oldest-first; the output
// preserves the input order and ties in CreatedAt never reorder.
// Decisions depend only on the rule and creation timestamps, so the
// same inventory always yields the same plan.
func BuildRetentionPlan(versions []types.VersionInfo, rule types.RetentionRule, now time.Time) ([]types.RetentionDecision, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if len(versions) == 0 {
		return nil, nil
	}
	for _, version := range versions {
		if version.CreatedAt.IsZero() {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("invalid version record: missing creation timestamp for " + version.Name)
		}
	}
	normalized := normalizeRule(rule)
	protectedNames := normalizeSet(normalized.ProtectVersions)
	protectedPrefixes := normalizeList(normalized.ProtectPrefixes)

	var cutoff time.Time
	if normalized.MaxAgeDays > 0 {
		cutoff = now.AddDate(0, 0, -normalized.MaxAgeDays)
	}
	// Oldest-first input means the newest N occupy the tail, so the
	// keep-count boundary is positional and timestamp ties stay stable.
	keepFrom := len(versions)
	if normalized.KeepCount > 0 {
		keepFrom = len(versions) - normalized.KeepCount
		if keepFrom < 0 {
			keepFrom = 0
		}
	}

	decisions := make([]types.RetentionDecision, 0, len(versions))
	for i, version := range versions {
		decisions = append(decisions, decideVersion(version, i, keepFrom, cutoff, normalized, protectedNames, protectedPrefixes))
	}
	return decisions, nil
}

func decideVersion(version types.VersionInfo, index int, keepFrom int, cutoff time.Time, rule types.RetentionRule, names map[string]struct{}, prefixes []string) types.RetentionDecision {
	if isProtected(version.Name, names, prefixes) {
		return types.RetentionDecision{Version: version, Verdict: types.VerdictKeep, Reason: reasonProtected}
	}

	byCount := rule.KeepCount > 0 && index >= keepFrom
	byAge := rule.MaxAgeDays > 0 && !version.CreatedAt.Before(cutoff)

	verdict := types.VerdictDelete
	reason := reasonStale
	switch {
	case rule.KeepCount > 0 && rule.MaxAgeDays > 0:
		keep := byCount || byAge
		if rule.Combine == types.CombineIntersection {
			keep = byCount && byAge
		}
		if keep {
			verdict = types.VerdictKeep
			reason = reasonWithinMaxAge
			if byCount {
				reason = reasonWithinKeep
			}
		} else {
			reason = reasonFailsBothRules
			if rule.Combine == types.CombineIntersection {
				reason = reasonOlderThanAge
				if !byCount {
					reason = reasonBeyondKeep
				}
			}
		}
	case rule.KeepCount > 0:
		if byCount {
			verdict = types.VerdictKeep
			reason = reasonWithinKeep
		} else {
			reason = reasonBeyondKeep
		}
	case rule.MaxAgeDays > 0:
		if byAge {
			verdict = types.VerdictKeep
			reason = reasonWithinMaxAge
		} else {
			reason = reasonOlderThanAge
		}
	default:
		// Protect lists are the only keeping rule; everything
		// unprotected is stale.
		reason = reasonNoKeepingRule
	}
	return types.RetentionDecision{Version: version, Verdict: verdict, Reason: reason}
}

func isProtected(name string, names map[string]struct{}, prefixes []string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return false
	}
	if _, ok := names[key]; ok {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func normalizeRule(rule types.RetentionRule) types.RetentionRule {
	normalized := rule
	if normalized.KeepCount < 0 {
		normalized.KeepCount = 0
	}
	if normalized.MaxAgeDays < 0 {
		normalized.MaxAgeDays = 0
	}
	if normalized.Combine == "" {
		normalized.Combine = types.CombineUnion
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

func normalizeList(values []string) []string {
	var list []string
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		list = append(list, key)
	}
	return list
}

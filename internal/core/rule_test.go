package core

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"artifact-cleanup/internal/types"
)

func TestValidateRuleRejectsNegativeKeepCount(t *testing.T) {
	err := ValidateRule(types.RetentionRule{KeepCount: -1})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestValidateRuleRejectsNegativeMaxAge(t *testing.T) {
	err := ValidateRule(types.RetentionRule{MaxAgeDays: -7})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestValidateRuleRejectsUnknownCombine(t *testing.T) {
	err := ValidateRule(types.RetentionRule{KeepCount: 1, Combine: "majority"})
	require.Error(t, err)
}

func TestValidateRuleRejectsIntersectionWithoutBothRules(t *testing.T) {
	err := ValidateRule(types.RetentionRule{KeepCount: 3, Combine: types.CombineIntersection})
	require.Error(t, err)
}

func TestValidateRuleRejectsEmptyRule(t *testing.T) {
	err := ValidateRule(types.RetentionRule{})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestValidateRuleAcceptsKeepCountOnly(t *testing.T) {
	require.NoError(t, ValidateRule(types.RetentionRule{KeepCount: 5}))
}

func TestValidateRuleAcceptsProtectOnly(t *testing.T) {
	require.NoError(t, ValidateRule(types.RetentionRule{ProtectPrefixes: []string{"lts-"}}))
}

func TestRuleForRepositoryWithoutOverride(t *testing.T) {
	plan := types.CleanupPlan{
		Default: types.RetentionRule{KeepCount: 5, MaxAgeDays: 30},
	}
	rule := RuleForRepository(plan, "releases")
	require.Equal(t, plan.Default, rule)
}

func TestRuleForRepositoryMergesOverride(t *testing.T) {
	plan := types.CleanupPlan{
		Default: types.RetentionRule{
			KeepCount:       5,
			MaxAgeDays:      30,
			ProtectPrefixes: []string{"lts-"},
		},
		Overrides: map[string]types.RetentionRule{
			"snapshots": {KeepCount: 2},
		},
	}
	rule := RuleForRepository(plan, "snapshots")
	require.Equal(t, 2, rule.KeepCount)
	require.Equal(t, 30, rule.MaxAgeDays)
	require.Equal(t, []string{"lts-"}, rule.ProtectPrefixes)
}

package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"artifact-cleanup/internal/types"
)

type cleanupPlanFile struct {
	Repositories []string            `yaml:"repositories"`
	Rule         ruleYAML            `yaml:"rule"`
	Overrides    map[string]ruleYAML `yaml:"overrides"`
}

type ruleYAML struct {
	KeepCount       int      `yaml:"keep_count"`
	MaxAgeDays      int      `yaml:"max_age_days"`
	Combine         string   `yaml:"combine"`
	ProtectVersions []string `yaml:"protect_versions"`
	ProtectPrefixes []string `yaml:"protect_prefixes"`
}

// LoadCleanupPlan reads a cleanup plan file: the repositories to
// process, a default retention rule, and per-repository overrides.
func LoadCleanupPlan(path string) (types.CleanupPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CleanupPlan{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("cleanup plan file not found").
			WithCause(err)
	}
	file := cleanupPlanFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return types.CleanupPlan{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse cleanup plan yaml").
			WithCause(err)
	}
	plan := types.CleanupPlan{
		Repositories: file.Repositories,
		Default:      ruleFromYAML(file.Rule),
	}
	if len(file.Overrides) > 0 {
		plan.Overrides = map[string]types.RetentionRule{}
		for repo, override := range file.Overrides {
			plan.Overrides[repo] = ruleFromYAML(override)
		}
	}
	return plan, nil
}

func ruleFromYAML(rule ruleYAML) types.RetentionRule {
	return types.RetentionRule{
		KeepCount:       rule.KeepCount,
		MaxAgeDays:      rule.MaxAgeDays,
		Combine:         types.CombineMode(rule.Combine),
		ProtectVersions: rule.ProtectVersions,
		ProtectPrefixes: rule.ProtectPrefixes,
	}
}

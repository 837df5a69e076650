package types

import "time"

// VersionInfo is a point-in-time snapshot of one released artifact
// version. The remote service is the source of truth; records are
// fetched fresh each run and never cached across runs.
type VersionInfo struct {
	Repository string    `json:"repository"`
	Package    string    `json:"package"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	Size       int64     `json:"size,omitempty"`
}

type RetentionRule struct {
	KeepCount       int
	MaxAgeDays      int
	Combine         CombineMode
	ProtectVersions []string
	ProtectPrefixes []string
}

type RetentionDecision struct {
	Version VersionInfo `json:"version"`
	Verdict Verdict     `json:"verdict"`
	Reason  string      `json:"reason"`
}

// CleanupPlan is the file-based form of a cleanup run: the repositories
// to process, a default rule, and optional per-repository overrides.
type CleanupPlan struct {
	Repositories []string
	Default      RetentionRule
	Overrides    map[string]RetentionRule
}

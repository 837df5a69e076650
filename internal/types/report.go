package types

import "time"

type DeletionOutcome struct {
	Version VersionInfo   `json:"version"`
	Status  OutcomeStatus `json:"status"`
	Reason  string        `json:"reason,omitempty"`
}

// PackageReport collects the decisions and deletion outcomes for one
// package. Skipped is set when enumeration or decision building failed
// for the package as a whole; no deletions are attempted in that case.
type PackageReport struct {
	Repository string              `json:"repository"`
	Package    string              `json:"package,omitempty"`
	Decisions  []RetentionDecision `json:"decisions,omitempty"`
	Outcomes   []DeletionOutcome   `json:"outcomes,omitempty"`
	Skipped    bool                `json:"skipped,omitempty"`
	SkipReason string              `json:"skipReason,omitempty"`
}

type RunSummary struct {
	Kept            int `json:"kept"`
	Deleted         int `json:"deleted"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	PackagesSkipped int `json:"packagesSkipped"`
}

// ReportEntry is one row of the flat per-version listing. Outcome is
// empty for KEEP verdicts, which never produce a deletion attempt.
type ReportEntry struct {
	Repository string        `json:"repository"`
	Package    string        `json:"package"`
	Version    string        `json:"version"`
	Verdict    Verdict       `json:"verdict"`
	Outcome    OutcomeStatus `json:"outcome,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// RunReport is the sole output of a cleanup run. Only the driver
// appends to it; rendering and exit-status selection happen in the CLI.
type RunReport struct {
	RunID     string          `json:"runId"`
	StartedAt time.Time       `json:"startedAt"`
	DryRun    bool            `json:"dryRun"`
	Packages  []PackageReport `json:"packages"`
}

func (r RunReport) Summary() RunSummary {
	summary := RunSummary{}
	for _, pkg := range r.Packages {
		if pkg.Skipped {
			summary.PackagesSkipped++
			continue
		}
		for _, decision := range pkg.Decisions {
			if decision.Verdict == VerdictKeep {
				summary.Kept++
			}
		}
		for _, outcome := range pkg.Outcomes {
			switch outcome.Status {
			case OutcomeSucceeded:
				summary.Deleted++
			case OutcomeFailed:
				summary.Failed++
			case OutcomeSkipped:
				summary.Skipped++
			}
		}
	}
	return summary
}

func (r RunReport) Entries() []ReportEntry {
	var entries []ReportEntry
	for _, pkg := range r.Packages {
		outcomes := map[string]DeletionOutcome{}
		for _, outcome := range pkg.Outcomes {
			outcomes[outcome.Version.Name] = outcome
		}
		for _, decision := range pkg.Decisions {
			entry := ReportEntry{
				Repository: pkg.Repository,
				Package:    pkg.Package,
				Version:    decision.Version.Name,
				Verdict:    decision.Verdict,
				Reason:     decision.Reason,
			}
			if outcome, ok := outcomes[decision.Version.Name]; ok {
				entry.Outcome = outcome.Status
				if outcome.Reason != "" {
					entry.Reason = outcome.Reason
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

func (r RunReport) HasFailures() bool {
	for _, pkg := range r.Packages {
		for _, outcome := range pkg.Outcomes {
			if outcome.Status == OutcomeFailed {
				return true
			}
		}
	}
	return false
}

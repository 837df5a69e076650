package types

type Verdict string

const (
	VerdictKeep   Verdict = "KEEP"
	VerdictDelete Verdict = "DELETE"
)

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "SUCCEEDED"
	OutcomeFailed    OutcomeStatus = "FAILED"
	OutcomeSkipped   OutcomeStatus = "SKIPPED"
)

// CombineMode selects how KeepCount and MaxAgeDays interact when both
// are configured. Union keeps a version that either rule would keep;
// intersection keeps a version only when both rules would keep it.
type CombineMode string

const (
	CombineUnion        CombineMode = "union"
	CombineIntersection CombineMode = "intersection"
)

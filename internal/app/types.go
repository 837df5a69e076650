package app

import "artifact-cleanup/internal/types"

// CleanupRequest describes one cleanup run: which repositories to
// process, the retention plan, safety switches, and the backend the
// repository client should be built against.
type CleanupRequest struct {
	Plan   types.CleanupPlan
	DryRun bool
	// Limit caps deletions per package per run; 0 means unlimited.
	Limit int

	RepoBackend     string
	InventoryPath   string
	APIEndpoint     string
	APIUser         string
	APIKey          string
	APIPageSize     int
	APITimeoutSec   int
	APIRetries      int
	APIRetryDelayMs int
}

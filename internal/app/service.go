package app

import (
	"time"

	"artifact-cleanup/internal/metrics"
	"artifact-cleanup/internal/ports"
)

// Service carries the driver's collaborators explicitly so runs are
// reproducible without ambient state. Repo is normally built from the
// request's backend config; tests inject a fake port here instead.
type Service struct {
	Repo    ports.ArtifactRepoPort
	Clock   func() time.Time
	Metrics *metrics.CleanupMetrics
}

func NewService() Service {
	return Service{
		Clock: time.Now,
	}
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

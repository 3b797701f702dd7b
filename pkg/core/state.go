package core

import "time"

// RunStatus represents the status of a tracked run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run is the context of one execution. It carries the configuration the
// execution was started with and links the artifacts it used and logged.
// A run is begun once and finished once; a run that failed midway stays
// in RunStatusRunning.
type Run struct {
	ID          string
	JobType     string
	Status      RunStatus
	Config      map[string]any
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Finished reports whether the run has been finalized.
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted
}

// LinkDirection describes how a run relates to an artifact version.
type LinkDirection string

// Link directions.
const (
	LinkUsed   LinkDirection = "used"
	LinkLogged LinkDirection = "logged"
)

// RunArtifact is one edge of run lineage.
type RunArtifact struct {
	RunID     string
	Direction LinkDirection
	Version   *ArtifactVersion
}

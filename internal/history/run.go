package history

import "time"

// Kind distinguishes the two directions a run can take.
type Kind string

const (
	KindBuild Kind = "build"
	KindUndo  Kind = "undo"
)

// Status describes how a run finished. Runs stay in StatusRunning until
// RecordFinish closes them out.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

var kindSet = map[Kind]struct{}{
	KindBuild: {},
	KindUndo:  {},
}

var statusSet = map[Status]struct{}{
	StatusRunning:   {},
	StatusSucceeded: {},
	StatusPartial:   {},
	StatusFailed:    {},
}

// Run is one recorded build or undo pass.
type Run struct {
	ID           int64
	Token        string
	Kind         Kind
	ManifestPath string
	OutputRoot   string
	LogPath      string
	Status       Status
	Moved        int
	Skipped      int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Finished reports whether the run has been closed out.
func (r *Run) Finished() bool {
	return r != nil && !r.FinishedAt.IsZero()
}

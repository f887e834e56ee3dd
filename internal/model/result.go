package model

import "time"

// Status classifies the outcome of testing one mutant.
type Status string

const (
	// StatusKilled indicates the test suite failed under the mutation.
	StatusKilled Status = "killed"
	// StatusSurvived indicates the test suite passed under the mutation.
	StatusSurvived Status = "survived"
	// StatusKilledTimeout indicates the suite exceeded its time limit,
	// counted as a kill (infinite-loop mutations surface this way).
	StatusKilledTimeout Status = "killed-timeout"
	// StatusError indicates the mutant could not be tested at all.
	StatusError Status = "error"
)

// Detected reports whether the status counts toward the numerator of the
// mutation score.
func (s Status) Detected() bool {
	return s == StatusKilled || s == StatusKilledTimeout
}

// MutantResult is the immutable outcome of testing one mutation.
type MutantResult struct {
	MutationID string   `json:"id"`
	Category   Category `json:"type"`
	File       Path     `json:"file"`
	Line       int      `json:"line"`
	Status     Status   `json:"status"`
	ExitCode   int      `json:"exit_code"`
	DurationMs int64    `json:"duration_ms"`
	OutputRef  string   `json:"output_ref,omitempty"`
}

// Run identifies one persisted mutation testing run.
type Run struct {
	ID             string
	Root           Path
	ManifestDigest string
	Total          int
	StartedAt      time.Time
	CompletedAt    time.Time // zero while the run is in flight
}

// Completed reports whether the run finished all its mutants.
func (r Run) Completed() bool {
	return !r.CompletedAt.IsZero()
}

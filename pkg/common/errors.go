package common

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Transient retrieval failures are retried with
// backoff before ErrRetrievalUnavailable surfaces; synthesis gets exactly one
// repair attempt before ErrSynthesisFailed; a graph failing post-validation
// is never persisted.
var (
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrGraphIntegrity       = errors.New("graph integrity violation")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid job state transition")
)

// Pipeline stage names used in StageError and job error descriptors.
const (
	StageRetrieval   = "retrieval"
	StageSynthesis   = "synthesis"
	StageScoring     = "scoring"
	StageConnections = "connections"
	StagePersist     = "persist"
	StageIngest      = "ingest"
)

// StageError records which pipeline stage a job failed in and how many
// attempts were spent there. It wraps the underlying cause so callers can
// still match the sentinel with errors.Is.
type StageError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage it occurred in and the number of
// attempts made.
func NewStageError(stage string, attempts int, err error) *StageError {
	return &StageError{Stage: stage, Attempts: attempts, Err: err}
}

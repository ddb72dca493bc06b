package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse indicates the completion service returned no content.
var ErrEmptyResponse = errors.New("completion service returned empty response")

// SchemaMismatchError indicates a structured response could not be parsed
// into its expected schema, even after fallback field population.
type SchemaMismatchError struct {
	Role   Role
	Detail string
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch for %s output: %s", e.Role, e.Detail)
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// ServiceError indicates a transport or auth failure talking to an external
// service.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StageError classifies a failure by the pipeline stage it occurred in.
// Planning, searching, and writing failures are fatal to the run; audit and
// delivery failures are absorbed by the orchestrator.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with its originating stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ErrAuditTimeout indicates the critic stage exceeded its time budget.
var ErrAuditTimeout = errors.New("audit timed out")

// IsFatal reports whether err aborts the run. Audit and delivery failures are
// recovered locally and never reach the caller as fatal.
func IsFatal(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case StagePlanning, StageSearching, StageWriting:
			return true
		}
		return false
	}
	return err != nil
}

package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmissionInvalid indicates the submission lacks a resolvable student, course or group.
	ErrSubmissionInvalid = errors.New("submission invalid")
	// ErrProvisioningConflict indicates plan finalization was rejected by a scheduling or validation rule.
	ErrProvisioningConflict = errors.New("assessment plan conflict")
	// ErrProvisioningFailed indicates supporting entities could not be created.
	ErrProvisioningFailed = errors.New("assessment plan provisioning failed")
	// ErrResultFinalized indicates an attempt to mutate a submitted result.
	ErrResultFinalized = errors.New("assessment result already submitted")
	// ErrStoreUnavailable indicates an underlying storage failure.
	ErrStoreUnavailable = errors.New("assessment store unavailable")
	// ErrResultNotFound indicates the requested result does not exist.
	ErrResultNotFound = errors.New("assessment result not found")
)

// Pipeline stages reported in ingestion outcomes.
const (
	StageReceived       = "received"
	StagePlanResolved   = "plan_resolved"
	StageResultUpserted = "result_upserted"
	StageDone           = "done"
)

// Error kinds mirror the sentinel taxonomy.
const (
	KindValidation   = "validation"
	KindConflict     = "provisioning_conflict"
	KindProvisioning = "provisioning_failure"
	KindRejected     = "upsert_rejected"
	KindStore        = "transient_store"
)

// StageError records which pipeline stage failed and how the failure is classified.
type StageError struct {
	Stage string
	Kind  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (%s)", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind as well as the wrapped cause.
func (e *StageError) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}

func kindSentinel(kind string) error {
	switch kind {
	case KindValidation:
		return ErrSubmissionInvalid
	case KindConflict:
		return ErrProvisioningConflict
	case KindProvisioning:
		return ErrProvisioningFailed
	case KindRejected:
		return ErrResultFinalized
	case KindStore:
		return ErrStoreUnavailable
	default:
		return nil
	}
}

// classifyKind maps a wrapped error onto its taxonomy kind.
func classifyKind(err error) string {
	switch {
	case errors.Is(err, ErrSubmissionInvalid):
		return KindValidation
	case errors.Is(err, ErrProvisioningConflict):
		return KindConflict
	case errors.Is(err, ErrProvisioningFailed):
		return KindProvisioning
	case errors.Is(err, ErrResultFinalized):
		return KindRejected
	default:
		return KindStore
	}
}

func newStageError(stage string, err error) *StageError {
	var existing *StageError
	if errors.As(err, &existing) {
		return existing
	}
	return &StageError{Stage: stage, Kind: classifyKind(err), Err: err}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

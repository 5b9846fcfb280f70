// Package rfmerr holds the error kinds a segmentation run can fail with.
//
// Kinds are sentinels: wrap them with context and test with errors.Is.
package rfmerr

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrMalformedPrice     = errors.New("malformed unit price")
	ErrMalformedQuantity  = errors.New("malformed quantity")
	ErrMalformedTimestamp = errors.New("malformed invoice timestamp")
	ErrPrecondition       = errors.New("precondition failed")
)

// Pipeline stages, in execution order.
const (
	StageSource    = "source"
	StageClean     = "clean"
	StageAggregate = "aggregate"
	StageScore     = "score"
	StageSink      = "sink"
)

type stageError struct {
	stage string
	cause error
}

func (e *stageError) Error() string { return e.stage + ": " + e.cause.Error() }
func (e *stageError) Unwrap() error { return e.cause }

// Stage tags err with the pipeline stage it came from. A nil err stays nil.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, cause: err}
}

// StageOf returns the outermost stage err was tagged with, or "".
func StageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

// Preconditionf builds an ErrPrecondition with a formatted reason.
func Preconditionf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrPrecondition, format, args...)
}

// IsMalformed reports whether err is one of the per-row parse errors.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPrice) ||
		errors.Is(err, ErrMalformedQuantity) ||
		errors.Is(err, ErrMalformedTimestamp)
}

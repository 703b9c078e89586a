package batch

import (
	"errors"
	"fmt"

	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/extract"
)

// IOError reports a read, write or rename failure for one document.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FailureKind classifies why a document failed.
type FailureKind string

const (
	FailureMalformed FailureKind = "malformed"
	FailureIO        FailureKind = "io"
	FailureOther     FailureKind = "other"
)

// Failure names a document that failed and why.
type Failure struct {
	SourcePath string
	Stage      engine.Stage
	Kind       FailureKind
	Err        error
}

func classify(err error) FailureKind {
	var malformed *extract.MalformedDocumentError
	var ioErr *IOError
	switch {
	case errors.As(err, &malformed):
		return FailureMalformed
	case errors.As(err, &ioErr):
		return FailureIO
	default:
		return FailureOther
	}
}

// FailedError is returned by Summary.Err when at least one document failed.
type FailedError struct {
	Failed int
	Total  int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%d of %d documents failed", e.Failed, e.Total)
}

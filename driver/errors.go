package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/d1nch8g/ample/source"
)

// Sentinel errors
var (
	ErrUnsupportedType = errors.New("source type not supported by driver")
	ErrInitTimeout     = errors.New("driver init timed out")
	ErrAttemptTimeout  = errors.New("source attempt timed out")
)

// InitError reports that a driver's one-time setup could not complete.
// No sources are attempted under a driver whose init failed.
type InitError struct {
	Driver string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("driver %s: init failed: %v", e.Driver, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// SourceError reports that one source was rejected, failed to fetch, or
// failed to decode under a driver
type SourceError struct {
	Driver string
	Source *source.Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("driver %s: source %s: %v", e.Driver, e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ExhaustedError reports that every source failed under one driver
type ExhaustedError struct {
	Driver   string
	Failures []*SourceError
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("driver %s: no sources", e.Driver)
	}
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s: %v", f.Source, f.Err)
	}
	return fmt.Sprintf("driver %s: all sources failed: %s", e.Driver, strings.Join(msgs, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

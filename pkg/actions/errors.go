package actions

import (
	"errors"
	"fmt"
)

// ErrInterrupted marks actions that never ran because the engine was shutting down.
var ErrInterrupted = errors.New("interrupted by shutdown")

// FatalError marks a collaborator error that retrying cannot fix.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so the executor aborts the remaining actions instead of retrying.
// Fatal(nil) returns nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}

	var fatal *FatalError
	if errors.As(err, &fatal) {
		return err
	}

	return &FatalError{Err: err}
}

// IsFatal reports whether err, or any error it wraps, was marked with Fatal.
func IsFatal(err error) bool {
	var fatal *FatalError

	return errors.As(err, &fatal)
}

package evaluator

import "errors"

// NonRetryableError marks job failures that should not be retried by the dispatcher.
type NonRetryableError struct {
	err error
}

func (e *NonRetryableError) Error() string {
	return e.err.Error()
}

func (e *NonRetryableError) Unwrap() error {
	return e.err
}

// NonRetryable wraps err so the dispatcher gives up on it. A nil err stays nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{err: err}
}

// IsNonRetryable reports whether the provided error originated from a non-retryable failure.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}

	var target *NonRetryableError
	return errors.As(err, &target)
}

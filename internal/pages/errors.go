package pages

import (
	"errors"
	"fmt"

	"staycheck/internal/browser"
	"staycheck/internal/datepick"
)

var (
	// ErrMonthUnreachable means the target month cannot be shown by paging forward.
	ErrMonthUnreachable = errors.New("target month unreachable")
	// ErrInvalidTransition means the date picker was driven out of order.
	ErrInvalidTransition = errors.New("invalid picker transition")
)

// SelectionError reports a day that could not be picked.
type SelectionError struct {
	Field string
	Label string
	Shown datepick.MonthAnchor
	Err   error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select %q in %s picker showing %s: %v", e.Label, e.Field, e.Shown, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// IsSelectionError returns the SelectionError in err's chain, or nil.
func IsSelectionError(err error) *SelectionError {
	var selErr *SelectionError
	if errors.As(err, &selErr) {
		return selErr
	}
	return nil
}

// ExpectationError reports a UI or network state that never appeared.
type ExpectationError struct {
	What string
	Err  error
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected %s: %v", e.What, e.Err)
}

func (e *ExpectationError) Unwrap() error { return e.Err }

// IsExpectationError returns the ExpectationError in err's chain, or nil.
func IsExpectationError(err error) *ExpectationError {
	var expErr *ExpectationError
	if errors.As(err, &expErr) {
		return expErr
	}
	return nil
}

func expect(what string, err error) error {
	if err == nil {
		return nil
	}
	return &ExpectationError{What: what, Err: err}
}

// OutcomeError reports a booking that neither confirmed nor failed in the
// known way. Err is the original confirmation failure.
type OutcomeError struct {
	Expected string
	Err      error
	// Backend is the 500 response, when one was seen.
	Backend *browser.Response
	// BannerErr is set when the 500 was seen but the error banner was not.
	BannerErr error
}

func (e *OutcomeError) Error() string {
	if e.Backend != nil {
		return fmt.Sprintf("booking %s: backend returned %d and error banner missing: %v",
			e.Expected, e.Backend.Status, e.BannerErr)
	}
	return fmt.Sprintf("booking %s not confirmed: %v", e.Expected, e.Err)
}

func (e *OutcomeError) Unwrap() error { return e.Err }

// IsOutcomeError returns the OutcomeError in err's chain, or nil.
func IsOutcomeError(err error) *OutcomeError {
	var outErr *OutcomeError
	if errors.As(err, &outErr) {
		return outErr
	}
	return nil
}

// Package errorsx attaches machine-readable reason codes to errors. The
// client degrades on failure instead of crashing, so every degrade path
// (denied microphone, failed dial, rejected voice request) tags its error
// with a reason the logs and callbacks can route on.
package errorsx

import "errors"

// ReasonedError pairs an error with the degrade reason it triggered.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// Wrap attaches a reason code to an error. A nil err stays nil, and an
// error that already carries a reason keeps its original one, so the
// innermost failure site wins.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason extracts the reason code carried by err, or ReasonUnknown when
// the error never passed through a degrade path.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

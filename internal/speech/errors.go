package speech

import (
	"errors"
	"fmt"
)

// Kind classifies a relay failure. Its value is stable and safe to show to
// callers.
type Kind string

const (
	KindConfigurationMissing   Kind = "configuration_missing"
	KindEmptyText              Kind = "empty_text"
	KindTokenAcquisitionFailed Kind = "token_acquisition_failed"
	KindSynthesisFailed        Kind = "synthesis_failed"
	KindEmptyAudio             Kind = "empty_audio"
	KindInternal               Kind = "internal_error"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrConfigurationMissing   = &Error{Kind: KindConfigurationMissing}
	ErrEmptyText              = &Error{Kind: KindEmptyText}
	ErrTokenAcquisitionFailed = &Error{Kind: KindTokenAcquisitionFailed}
	ErrSynthesisFailed        = &Error{Kind: KindSynthesisFailed}
	ErrEmptyAudio             = &Error{Kind: KindEmptyAudio}
)

// Error is the structured failure returned by Sanitize and Relay.Synthesize.
type Error struct {
	Kind Kind

	// Status is the upstream HTTP status, zero when no response was received.
	Status    int
	Details   string
	RequestID string
	Hint      string
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

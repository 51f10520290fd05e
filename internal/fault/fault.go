// Package fault classifies errors crossing stage and adapter boundaries.
//
// The ingestion workflow reacts differently depending on the class:
// configuration errors are never retried, transient upstream errors are
// retried with backoff at the persistence stage, soft failures are logged
// and swallowed, and everything else fails the job.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindConfiguration marks a missing endpoint or credential. Fatal, no retry.
	KindConfiguration Kind = iota
	// KindTransient marks rate limiting or timeouts from an upstream system.
	KindTransient
	// KindUpstream marks a non-recoverable upstream failure.
	KindUpstream
	// KindSoft marks a failure that must not fail the enclosing job.
	KindSoft
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindUpstream:
		return "upstream"
	case KindSoft:
		return "soft"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Configuration(err error) error {
	return &Error{Kind: KindConfiguration, Err: err}
}

func Configurationf(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

func Transient(err error) error {
	return &Error{Kind: KindTransient, Err: err}
}

func Transientf(format string, args ...any) error {
	return &Error{Kind: KindTransient, Err: fmt.Errorf(format, args...)}
}

func Upstream(err error) error {
	return &Error{Kind: KindUpstream, Err: err}
}

func Upstreamf(format string, args ...any) error {
	return &Error{Kind: KindUpstream, Err: fmt.Errorf(format, args...)}
}

func Soft(err error) error {
	return &Error{Kind: KindSoft, Err: err}
}

func is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

func IsConfiguration(err error) bool { return is(err, KindConfiguration) }
func IsTransient(err error) bool     { return is(err, KindTransient) }
func IsUpstream(err error) bool      { return is(err, KindUpstream) }
func IsSoft(err error) bool          { return is(err, KindSoft) }

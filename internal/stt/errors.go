package stt

import (
	"errors"
	"fmt"
)

// Kind classifies a transcription failure so callers can branch on the
// category instead of parsing messages.
type Kind int

const (
	// KindConfig means a required setting was empty at call time. Detected
	// before any network activity, never retried.
	KindConfig Kind = iota
	// KindTransport means the request could not complete or a success
	// response body could not be parsed at all.
	KindTransport
	// KindAPI means the remote service returned a non-success status, or a
	// success body that signals an application-level error.
	KindAPI
	// KindShape means a success response did not match the expected schema.
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// ErrUnknownProvider marks a transcription request for a provider name
// that is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Error is the normalized error every provider operation returns. The
// message is the same human-readable text reported to the notification
// sink, so callers see a uniform contract regardless of provider.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return e.Provider + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func configErrf(provider, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func transportErr(provider string, err error, context string) *Error {
	return &Error{Kind: KindTransport, Provider: provider, Message: context + ": " + err.Error(), Err: err}
}

func apiErrf(provider, format string, args ...any) *Error {
	return &Error{Kind: KindAPI, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func shapeErrf(provider, format string, args ...any) *Error {
	return &Error{Kind: KindShape, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or KindTransport if err is not a
// provider error (the catch-all for unexpected failures).
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

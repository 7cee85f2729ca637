// Package spdmerr defines the error kinds surfaced by every layer of the
// stack and their mapping onto wire-level ERROR codes.
package spdmerr

import (
	"errors"
	"fmt"

	"github.com/dmtf/spdm-core/spdmconst"
)

// Kind is a non-wire error classification. Every error returned by wire,
// cryptoreg, transcript, session and engine carries one of these via
// errors.As.
type Kind uint8

const (
	InvalidParameter Kind = iota
	InvalidState
	IoFailure
	DecodeFailure
	CryptoFailure
	Unsupported
	SessionExhausted
	BufferOverflow
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "invalid_parameter"
	case InvalidState:
		return "invalid_state"
	case IoFailure:
		return "io_failure"
	case DecodeFailure:
		return "decode_failure"
	case CryptoFailure:
		return "crypto_failure"
	case Unsupported:
		return "unsupported"
	case SessionExhausted:
		return "session_exhausted"
	case BufferOverflow:
		return "buffer_overflow"
	default:
		return "unknown"
	}
}

// WireCode maps a Kind onto the many-to-one wire ERROR code the Responder
// should emit for it. Callers that need a different mapping (e.g.
// CryptoFailure during AEAD open maps to DecryptError, not Unspecified)
// construct the *Error directly with an explicit WireCode override.
func (k Kind) WireCode() spdmconst.ErrorCode {
	switch k {
	case InvalidParameter, DecodeFailure, BufferOverflow:
		return spdmconst.ErrorInvalidRequest
	case InvalidState:
		return spdmconst.ErrorUnexpectedRequest
	case CryptoFailure:
		return spdmconst.ErrorUnspecified
	case Unsupported:
		return spdmconst.ErrorUnsupportedRequest
	case SessionExhausted:
		return spdmconst.ErrorSessionLimitExceeded
	case IoFailure:
		return spdmconst.ErrorUnspecified
	default:
		return spdmconst.ErrorUnspecified
	}
}

// Error is the concrete error type threaded through every package. Wrap with
// fmt.Errorf("...: %w", err) at call sites that add context; Kind and an
// optional wire code override survive through errors.As.
type Error struct {
	Kind     Kind
	Code     spdmconst.ErrorCode // zero means "use Kind.WireCode()"
	Message  string
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// WireCode resolves the on-wire error code for this error.
func (e *Error) WireCode() spdmconst.ErrorCode {
	if e.Code != 0 {
		return e.Code
	}
	return e.Kind.WireCode()
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Wrapped: err}
}

// WithCode overrides the wire code the error maps to, e.g. an AEAD open
// failure should emit DecryptError rather than Unspecified.
func WithCode(kind Kind, code spdmconst.ErrorCode, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// KindOf is a convenience wrapper over errors.As for the common case of pulling
// the Kind back out of an arbitrary error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

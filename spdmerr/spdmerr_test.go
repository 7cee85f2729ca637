package spdmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmtf/spdm-core/spdmconst"
)

func TestNewAndError(t *testing.T) {
	err := New(InvalidParameter, "bad slot id")
	if err.Error() != "invalid_parameter: bad slot id" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("an error built with New must not wrap anything")
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("short read")
	err := Wrap(DecodeFailure, "decode header", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap must preserve the wrapped error for errors.Is")
	}
	want := fmt.Sprintf("decode_failure: decode header: %v", cause)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("context: %w", New(CryptoFailure, "hmac mismatch"))
	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("KindOf failed to find an *Error in the chain")
	}
	if kind != CryptoFailure {
		t.Errorf("KindOf = %v, want CryptoFailure", kind)
	}

	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Error("KindOf must report false for an error with no *Error in its chain")
	}
}

func TestWireCodeDefaultsFromKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want spdmconst.ErrorCode
	}{
		{InvalidParameter, spdmconst.ErrorInvalidRequest},
		{DecodeFailure, spdmconst.ErrorInvalidRequest},
		{BufferOverflow, spdmconst.ErrorInvalidRequest},
		{InvalidState, spdmconst.ErrorUnexpectedRequest},
		{CryptoFailure, spdmconst.ErrorUnspecified},
		{Unsupported, spdmconst.ErrorUnsupportedRequest},
		{SessionExhausted, spdmconst.ErrorSessionLimitExceeded},
		{IoFailure, spdmconst.ErrorUnspecified},
	}
	for _, tt := range tests {
		err := New(tt.kind, "msg")
		if got := err.WireCode(); got != tt.want {
			t.Errorf("Kind(%v).WireCode() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestWithCodeOverridesWireCode(t *testing.T) {
	err := WithCode(CryptoFailure, spdmconst.ErrorDecryptError, "aead open failed")
	if err.WireCode() != spdmconst.ErrorDecryptError {
		t.Errorf("WireCode() = %v, want ErrorDecryptError", err.WireCode())
	}
	if err.Kind != CryptoFailure {
		t.Errorf("Kind = %v, want CryptoFailure", err.Kind)
	}
}

func TestKindStringIsStable(t *testing.T) {
	if InvalidParameter.String() != "invalid_parameter" {
		t.Errorf("String() = %q", InvalidParameter.String())
	}
	if Kind(255).String() != "unknown" {
		t.Errorf("String() for an out-of-range Kind = %q, want %q", Kind(255).String(), "unknown")
	}
}

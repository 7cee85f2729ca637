// Package transcript implements the append-only bounded byte buffers that
// feed every transcript hash (TH1/TH2, L1/L2) computed during negotiation,
// authentication and session establishment.
package transcript

import (
	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
)

// Buffer is a fixed-capacity arena. Appending fails closed on overflow;
// there is no partial-append outcome.
type Buffer struct {
	data []byte
	cap  int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity), cap: capacity}
}

func (b *Buffer) Append(p []byte) error {
	if len(b.data)+len(p) > b.cap {
		return spdmerr.New(spdmerr.BufferOverflow, "transcript buffer full")
	}
	b.data = append(b.data, p...)
	return nil
}

func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Len() int { return len(b.data) }

// Hash returns H(buffer contents) under the negotiated base hash algorithm.
func (b *Buffer) Hash(algo spdmconst.BaseHashAlgo) ([]byte, error) {
	digest, ok := cryptoreg.GetHash().HashAll(algo, b.data)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "hash computation failed")
	}
	return digest, nil
}

// Set groups the unsecured-phase buffers (message_a/b/c) one Context owns;
// the per-session buffers (message_k/f/m) live in SessionTranscripts, one
// per session slot. message_a spans GET_VERSION..ALGORITHMS, message_b spans
// GET_DIGESTS..CERTIFICATE, message_c spans CHALLENGE..CHALLENGE_AUTH for
// non-session authentication.
type Set struct {
	MessageA *Buffer
	MessageB *Buffer
	MessageC *Buffer
}

func NewSet(bufferSize int) *Set {
	return &Set{
		MessageA: NewBuffer(bufferSize),
		MessageB: NewBuffer(bufferSize),
		MessageC: NewBuffer(bufferSize),
	}
}

// ResetForNewSession clears message_c: a fresh CHALLENGE/CHALLENGE_AUTH
// exchange starts a new non-session authentication transcript, while
// message_a/message_b (negotiation) remain valid for the Context's
// lifetime.
func (s *Set) ResetForNewSession() {
	s.MessageC.Reset()
}

// SessionTranscripts holds the per-session buffers used by the key
// exchange leg (message_k), the finish leg (message_f) and measurement
// signing (message_m).
type SessionTranscripts struct {
	MessageK *Buffer
	MessageF *Buffer
	MessageM *Buffer
}

func NewSessionTranscripts(bufferSize int) *SessionTranscripts {
	return &SessionTranscripts{
		MessageK: NewBuffer(bufferSize),
		MessageF: NewBuffer(bufferSize),
		MessageM: NewBuffer(bufferSize),
	}
}

func (t *SessionTranscripts) Reset() {
	t.MessageK.Reset()
	t.MessageF.Reset()
	t.MessageM.Reset()
}

// HandshakeHash computes TH1 = H(message_a || message_b || message_c || message_k).
func HandshakeHash(algo spdmconst.BaseHashAlgo, s *Set, k *Buffer) ([]byte, error) {
	combined := make([]byte, 0, s.MessageA.Len()+s.MessageB.Len()+s.MessageC.Len()+k.Len())
	combined = append(combined, s.MessageA.Bytes()...)
	combined = append(combined, s.MessageB.Bytes()...)
	combined = append(combined, s.MessageC.Bytes()...)
	combined = append(combined, k.Bytes()...)
	digest, ok := cryptoreg.GetHash().HashAll(algo, combined)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "transcript hash failed")
	}
	return digest, nil
}

// FinishHash computes TH2 = H(message_a || message_b || message_c || message_k || message_f).
func FinishHash(algo spdmconst.BaseHashAlgo, s *Set, k, f *Buffer) ([]byte, error) {
	combined := make([]byte, 0, s.MessageA.Len()+s.MessageB.Len()+s.MessageC.Len()+k.Len()+f.Len())
	combined = append(combined, s.MessageA.Bytes()...)
	combined = append(combined, s.MessageB.Bytes()...)
	combined = append(combined, s.MessageC.Bytes()...)
	combined = append(combined, k.Bytes()...)
	combined = append(combined, f.Bytes()...)
	digest, ok := cryptoreg.GetHash().HashAll(algo, combined)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "transcript hash failed")
	}
	return digest, nil
}

// MeasurementHash computes H(message_m), used when signing a measurement
// record over the L1/L2 transcript.
func MeasurementHash(algo spdmconst.BaseHashAlgo, m *Buffer) ([]byte, error) {
	digest, ok := cryptoreg.GetHash().HashAll(algo, m.Bytes())
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "measurement transcript hash failed")
	}
	return digest, nil
}

package transcript

import (
	"bytes"
	"testing"

	_ "github.com/dmtf/spdm-core/cryptoreg/stdcrypto"
	"github.com/dmtf/spdm-core/spdmconst"
)

func TestBufferAppendAndOverflow(t *testing.T) {
	b := NewBuffer(8)
	if err := b.Append([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := b.Append([]byte{4, 5}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
	if err := b.Append([]byte{6, 7, 8, 9}); err == nil {
		t.Fatal("expected overflow error, got nil")
	}
	if b.Len() != 5 {
		t.Fatalf("a failed append must not partially apply; Len() = %d, want 5", b.Len())
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(4)
	_ = b.Append([]byte{1, 2})
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if err := b.Append([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Append after Reset: %v", err)
	}
}

func TestBufferHash(t *testing.T) {
	b := NewBuffer(16)
	_ = b.Append([]byte("spdm"))
	digest, err := b.Hash(spdmconst.HashSha256)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(digest) != spdmconst.HashSha256.Size() {
		t.Errorf("digest size = %d, want %d", len(digest), spdmconst.HashSha256.Size())
	}
}

func TestSetResetForNewSessionOnlyClearsMessageC(t *testing.T) {
	s := NewSet(64)
	_ = s.MessageA.Append([]byte("a"))
	_ = s.MessageB.Append([]byte("b"))
	_ = s.MessageC.Append([]byte("c"))

	s.ResetForNewSession()

	if s.MessageA.Len() != 1 || s.MessageB.Len() != 1 {
		t.Fatal("ResetForNewSession must not touch message_a or message_b")
	}
	if s.MessageC.Len() != 0 {
		t.Fatal("ResetForNewSession must clear message_c")
	}
}

func TestHandshakeHashMatchesManualConcatenation(t *testing.T) {
	s := NewSet(256)
	_ = s.MessageA.Append([]byte("negotiate"))
	_ = s.MessageB.Append([]byte("digests+cert"))
	_ = s.MessageC.Append([]byte("challenge"))
	k := NewBuffer(64)
	_ = k.Append([]byte("key-exchange"))

	got, err := HandshakeHash(spdmconst.HashSha256, s, k)
	if err != nil {
		t.Fatalf("HandshakeHash: %v", err)
	}

	manual := NewBuffer(256)
	_ = manual.Append([]byte("negotiate"))
	_ = manual.Append([]byte("digests+cert"))
	_ = manual.Append([]byte("challenge"))
	_ = manual.Append([]byte("key-exchange"))
	want, err := manual.Hash(spdmconst.HashSha256)
	if err != nil {
		t.Fatalf("manual Hash: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("HandshakeHash did not match H(message_a || message_b || message_c || message_k)")
	}
}

func TestFinishHashExtendsHandshakeHashInput(t *testing.T) {
	s := NewSet(256)
	_ = s.MessageA.Append([]byte("a"))
	_ = s.MessageB.Append([]byte("b"))
	k := NewBuffer(64)
	_ = k.Append([]byte("k"))
	f := NewBuffer(64)
	_ = f.Append([]byte("f"))

	th1, err := HandshakeHash(spdmconst.HashSha384, s, k)
	if err != nil {
		t.Fatalf("HandshakeHash: %v", err)
	}
	th2, err := FinishHash(spdmconst.HashSha384, s, k, f)
	if err != nil {
		t.Fatalf("FinishHash: %v", err)
	}
	if bytes.Equal(th1, th2) {
		t.Error("TH1 and TH2 must differ once message_f is non-empty")
	}
}

func TestMeasurementHash(t *testing.T) {
	m := NewBuffer(32)
	_ = m.Append([]byte("measurement-record"))
	digest, err := MeasurementHash(spdmconst.HashSha512, m)
	if err != nil {
		t.Fatalf("MeasurementHash: %v", err)
	}
	if len(digest) != spdmconst.HashSha512.Size() {
		t.Errorf("digest size = %d, want %d", len(digest), spdmconst.HashSha512.Size())
	}
}

func TestSessionTranscriptsReset(t *testing.T) {
	st := NewSessionTranscripts(32)
	_ = st.MessageK.Append([]byte{1})
	_ = st.MessageF.Append([]byte{2})
	_ = st.MessageM.Append([]byte{3})
	st.Reset()
	if st.MessageK.Len() != 0 || st.MessageF.Len() != 0 || st.MessageM.Len() != 0 {
		t.Fatal("Reset must clear message_k, message_f and message_m")
	}
}

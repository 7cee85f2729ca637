package wire

import (
	"bytes"
	"testing"

	"github.com/dmtf/spdm-core/spdmconst"
)

func TestHeaderEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{"GET_VERSION", Header{Version: spdmconst.Version10, Code: spdmconst.CodeGetVersion}},
		{"KEY_EXCHANGE_RSP with params", Header{Version: spdmconst.Version11, Code: spdmconst.CodeKeyExchangeRsp, Param1: 3, Param2: 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, HeaderSize)
			w := NewWriter(buf)
			tt.header.Encode(w)
			if w.Used() != HeaderSize {
				t.Fatalf("encoded size = %d, want %d", w.Used(), HeaderSize)
			}
			r := NewReader(w.Bytes())
			got, err := DecodeHeader(r)
			if err != nil {
				t.Fatalf("DecodeHeader: %v", err)
			}
			if got != tt.header {
				t.Errorf("got %+v, want %+v", got, tt.header)
			}
		})
	}
}

func TestDecodeHeaderShortRead(t *testing.T) {
	r := NewReader([]byte{0x11, 0x01})
	if _, err := DecodeHeader(r); err == nil {
		t.Fatal("expected short-read error, got nil")
	}
}

func TestVersionResponseRoundTrip(t *testing.T) {
	resp := VersionResponse{Entries: []VersionEntry{
		{Version: spdmconst.Version10},
		{Version: spdmconst.Version11},
	}}
	buf := make([]byte, 32)
	w := NewWriter(buf)
	resp.Encode(w)

	hdr, r, err := PeekHeader(w.Bytes())
	if err != nil {
		t.Fatalf("PeekHeader: %v", err)
	}
	if hdr.Code != spdmconst.CodeVersion {
		t.Fatalf("code = %v, want CodeVersion", hdr.Code)
	}
	got, err := DecodeVersionResponse(r)
	if err != nil {
		t.Fatalf("DecodeVersionResponse: %v", err)
	}
	best, ok := got.Best()
	if !ok || best != spdmconst.Version11 {
		t.Errorf("Best() = (%v, %v), want (Version11, true)", best, ok)
	}
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	ni := &NegotiateInfo{SpdmVersion: spdmconst.Version11}
	req := GetCapabilitiesRequest{Flags: spdmconst.CapCertCap | spdmconst.CapChalCap | spdmconst.CapKeyExCap}
	buf := make([]byte, 32)
	w := NewWriter(buf)
	req.Encode(ni, w)

	_, r, err := PeekHeader(w.Bytes())
	if err != nil {
		t.Fatalf("PeekHeader: %v", err)
	}
	got, err := DecodeGetCapabilitiesRequest(r)
	if err != nil {
		t.Fatalf("DecodeGetCapabilitiesRequest: %v", err)
	}
	if got.Flags != req.Flags {
		t.Errorf("Flags = %v, want %v", got.Flags, req.Flags)
	}
}

func TestNegotiateAlgorithmsRoundTrip(t *testing.T) {
	ni := &NegotiateInfo{SpdmVersion: spdmconst.Version11}
	req := NegotiateAlgorithmsRequest{
		BaseAsymAlgo: spdmconst.AsymEcdsaP256,
		BaseHashAlgo: spdmconst.HashSha256 | spdmconst.HashSha384,
		DheGroups:    spdmconst.DheSecp256R1,
		AeadAlgos:    spdmconst.AeadAes256Gcm,
		KeySchedules: spdmconst.KeyScheduleSpdm,
	}
	buf := make([]byte, 64)
	w := NewWriter(buf)
	req.Encode(ni, w)

	_, r, err := PeekHeader(w.Bytes())
	if err != nil {
		t.Fatalf("PeekHeader: %v", err)
	}
	got, err := DecodeNegotiateAlgorithmsRequest(r)
	if err != nil {
		t.Fatalf("DecodeNegotiateAlgorithmsRequest: %v", err)
	}
	if got.BaseAsymAlgo != req.BaseAsymAlgo || got.BaseHashAlgo != req.BaseHashAlgo ||
		got.DheGroups != req.DheGroups || got.AeadAlgos != req.AeadAlgos {
		t.Errorf("got %+v, want %+v", got, req)
	}
}

func TestWriterPatchAtDoesNotMoveCursor(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf)
	w.U32(0)
	w.Raw([]byte{0, 0, 0, 0})
	before := w.Used()
	w.PatchAt(0, []byte{1, 2, 3, 4})
	if w.Used() != before {
		t.Errorf("PatchAt moved cursor: used = %d, want %d", w.Used(), before)
	}
	if !bytes.Equal(w.Bytes()[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("patched bytes = %v, want [1 2 3 4]", w.Bytes()[:4])
	}
}

func TestWriterOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on writer overflow")
		}
	}()
	w := NewWriter(make([]byte, 2))
	w.U32(0)
}

func TestPatchAtOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range patch")
		}
	}()
	w := NewWriter(make([]byte, 4))
	w.PatchAt(2, []byte{1, 2, 3})
}

package transport

import "github.com/dmtf/spdm-core/spdmerr"

const (
	mctpTypeSpdm         = 0x05
	mctpTypeSecuredSpdm  = 0x06
)

// MctpTransportEncap implements TransportEncap with a minimal MCTP-like
// one-byte message-type prefix, distinguishing secured from unsecured
// traffic by message type rather than a flags byte.
type MctpTransportEncap struct {
	SeqNumberCount uint8
	MaxRandom      uint8
}

func NewMctpTransportEncap() *MctpTransportEncap {
	return &MctpTransportEncap{SeqNumberCount: 2, MaxRandom: 32}
}

func (m *MctpTransportEncap) Encap(spdmBytes []byte, out []byte, secured bool) (int, error) {
	if len(out) < len(spdmBytes)+1 {
		return 0, spdmerr.New(spdmerr.BufferOverflow, "encap output buffer too small")
	}
	if secured {
		out[0] = mctpTypeSecuredSpdm
	} else {
		out[0] = mctpTypeSpdm
	}
	n := copy(out[1:], spdmBytes)
	return n + 1, nil
}

func (m *MctpTransportEncap) Decap(in []byte, spdmOut []byte) (int, bool, error) {
	if len(in) < 1 {
		return 0, false, spdmerr.New(spdmerr.DecodeFailure, "empty transport frame")
	}
	secured := in[0] == mctpTypeSecuredSpdm
	if !secured && in[0] != mctpTypeSpdm {
		return 0, false, spdmerr.New(spdmerr.DecodeFailure, "unrecognized transport message type")
	}
	if len(spdmOut) < len(in)-1 {
		return 0, false, spdmerr.New(spdmerr.BufferOverflow, "decap output buffer too small")
	}
	n := copy(spdmOut, in[1:])
	return n, secured, nil
}

func (m *MctpTransportEncap) EncapApp(app []byte, out []byte) (int, error) {
	return copy(out, app), nil
}

func (m *MctpTransportEncap) DecapApp(in []byte, appOut []byte) (int, error) {
	return copy(appOut, in), nil
}

func (m *MctpTransportEncap) SequenceNumberCount() uint8 { return m.SeqNumberCount }
func (m *MctpTransportEncap) MaxRandomCount() uint8      { return m.MaxRandom }

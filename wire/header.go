package wire

import (
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
)

// Header is the 4-byte prefix carried by every SPDM message. Param1/Param2
// are reinterpreted by each payload; e.g. in ERROR they carry the wire
// error code and its extension discriminant.
type Header struct {
	Version spdmconst.SpdmVersion
	Code    spdmconst.RequestResponseCode
	Param1  uint8
	Param2  uint8
}

const HeaderSize = 4

func (h Header) Encode(w *Writer) {
	w.U8(uint8(h.Version))
	w.U8(uint8(h.Code))
	w.U8(h.Param1)
	w.U8(h.Param2)
}

func DecodeHeader(r *Reader) (Header, error) {
	ver, err := r.U8()
	if err != nil {
		return Header{}, spdmerr.Wrap(spdmerr.DecodeFailure, "header version", err)
	}
	code, err := r.U8()
	if err != nil {
		return Header{}, spdmerr.Wrap(spdmerr.DecodeFailure, "header code", err)
	}
	p1, err := r.U8()
	if err != nil {
		return Header{}, spdmerr.Wrap(spdmerr.DecodeFailure, "header param1", err)
	}
	p2, err := r.U8()
	if err != nil {
		return Header{}, spdmerr.Wrap(spdmerr.DecodeFailure, "header param2", err)
	}
	return Header{
		Version: spdmconst.SpdmVersion(ver),
		Code:    spdmconst.RequestResponseCode(code),
		Param1:  p1,
		Param2:  p2,
	}, nil
}

// NegotiateInfo is the subset of negotiated algorithm selections the codec
// needs to know the length of every context-dependent field. The engine
// owns the authoritative copy; the codec only ever reads it.
type NegotiateInfo struct {
	SpdmVersion      spdmconst.SpdmVersion
	BaseHashSel      spdmconst.BaseHashAlgo
	BaseAsymSel      spdmconst.BaseAsymAlgo
	DheSel           spdmconst.DheGroup
	AeadSel          spdmconst.AeadAlgo
	KeyScheduleSel   spdmconst.KeyScheduleAlgo
	MeasurementHash  spdmconst.MeasurementHashAlgo
	ReqCapabilitiesSel spdmconst.CapabilityFlags
	RspCapabilitiesSel spdmconst.CapabilityFlags
}

func (n NegotiateInfo) HashSize() int { return n.BaseHashSel.Size() }
func (n NegotiateInfo) AsymSize() int { return n.BaseAsymSel.Size() }
func (n NegotiateInfo) DheSize() int  { return n.DheSel.Size() }

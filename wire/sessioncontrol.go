package wire

import "github.com/dmtf/spdm-core/spdmconst"

type HeartbeatRequest struct{}

func (HeartbeatRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeHeartbeat}.Encode(w)
	w.U8(0)
	w.U8(0)
}

type HeartbeatAckResponse struct{}

func (HeartbeatAckResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeHeartbeatAck}.Encode(w)
	w.U8(0)
	w.U8(0)
}

const (
	KeyUpdateOperationUpdateKey     uint8 = 1
	KeyUpdateOperationVerifyNewKey  uint8 = 2
	KeyUpdateOperationUpdateAllKeys uint8 = 3
)

type KeyUpdateRequest struct {
	Operation uint8
	Tag       uint8
}

func (m KeyUpdateRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeKeyUpdate, Param1: m.Operation, Param2: m.Tag}.Encode(w)
}

func DecodeKeyUpdateRequest(hdr Header) KeyUpdateRequest {
	return KeyUpdateRequest{Operation: hdr.Param1, Tag: hdr.Param2}
}

type KeyUpdateAckResponse struct {
	Operation uint8
	Tag       uint8
}

func (m KeyUpdateAckResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeKeyUpdateAck, Param1: m.Operation, Param2: m.Tag}.Encode(w)
}

type EndSessionRequest struct {
	PreserveNegotiatedState bool
}

func (m EndSessionRequest) Encode(ni *NegotiateInfo, w *Writer) {
	p1 := uint8(0)
	if m.PreserveNegotiatedState {
		p1 = 1
	}
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeEndSession, Param1: p1}.Encode(w)
	w.U8(0)
}

func DecodeEndSessionRequest(hdr Header) EndSessionRequest {
	return EndSessionRequest{PreserveNegotiatedState: hdr.Param1&1 != 0}
}

type EndSessionAckResponse struct{}

func (EndSessionAckResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeEndSessionAck}.Encode(w)
	w.U8(0)
	w.U8(0)
}

package wire

import "github.com/dmtf/spdm-core/spdmconst"

type PskExchangeRequest struct {
	MeasurementSummaryHashType spdmconst.MeasurementSummaryHashType
	ReqSessionID               uint16
	PskHint                    []byte
	RequesterContext           []byte
	Opaque                     OpaqueStruct
}

func (m PskExchangeRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodePskExchange, Param1: uint8(m.MeasurementSummaryHashType)}.Encode(w)
	w.U16(m.ReqSessionID)
	w.U16(uint16(len(m.PskHint)))
	w.U16(uint16(len(m.RequesterContext)))
	w.Raw(m.PskHint)
	w.Raw(m.RequesterContext)
	m.Opaque.Encode(w)
}

func DecodePskExchangeRequest(r *Reader, hdr Header) (PskExchangeRequest, error) {
	sessID, err := r.U16()
	if err != nil {
		return PskExchangeRequest{}, err
	}
	hintLen, err := r.U16()
	if err != nil {
		return PskExchangeRequest{}, err
	}
	ctxLen, err := r.U16()
	if err != nil {
		return PskExchangeRequest{}, err
	}
	hint, err := r.Bytes(int(hintLen))
	if err != nil {
		return PskExchangeRequest{}, err
	}
	ctx, err := r.Bytes(int(ctxLen))
	if err != nil {
		return PskExchangeRequest{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return PskExchangeRequest{}, err
	}
	return PskExchangeRequest{
		MeasurementSummaryHashType: spdmconst.MeasurementSummaryHashType(hdr.Param1),
		ReqSessionID:               sessID,
		PskHint:                    append([]byte(nil), hint...),
		RequesterContext:           append([]byte(nil), ctx...),
		Opaque:                     opaque,
	}, nil
}

type PskExchangeRspResponse struct {
	HeartbeatPeriod        uint8
	RspSessionID           uint16
	ResponderContext       []byte
	MeasurementSummaryHash DigestStruct
	Opaque                 OpaqueStruct
	VerifyData             DigestStruct
}

func (m PskExchangeRspResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodePskExchangeRsp, Param1: m.HeartbeatPeriod}.Encode(w)
	w.U16(m.RspSessionID)
	w.U16(uint16(len(m.ResponderContext)))
	w.Raw(m.ResponderContext)
	m.MeasurementSummaryHash.Encode(w)
	m.Opaque.Encode(w)
	m.VerifyData.Encode(w)
}

func DecodePskExchangeRspResponse(r *Reader, hdr Header, ni *NegotiateInfo) (PskExchangeRspResponse, error) {
	sessID, err := r.U16()
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	ctxLen, err := r.U16()
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	ctx, err := r.Bytes(int(ctxLen))
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	summary, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	verify, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return PskExchangeRspResponse{}, err
	}
	return PskExchangeRspResponse{
		HeartbeatPeriod: hdr.Param1, RspSessionID: sessID,
		ResponderContext: append([]byte(nil), ctx...),
		MeasurementSummaryHash: summary, Opaque: opaque, VerifyData: verify,
	}, nil
}

type PskFinishRequest struct {
	VerifyData DigestStruct
}

func (m PskFinishRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodePskFinish}.Encode(w)
	m.VerifyData.Encode(w)
}

func DecodePskFinishRequest(r *Reader, ni *NegotiateInfo) (PskFinishRequest, error) {
	v, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return PskFinishRequest{}, err
	}
	return PskFinishRequest{VerifyData: v}, nil
}

type PskFinishRspResponse struct{}

func (PskFinishRspResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodePskFinishRsp}.Encode(w)
}

package wire

import "github.com/dmtf/spdm-core/spdmconst"

type KeyExchangeRequest struct {
	MeasurementSummaryHashType spdmconst.MeasurementSummaryHashType
	SlotID                     uint8
	ReqSessionID               uint16
	Random                     RandomStruct
	Exchange                   DheExchangeStruct
	Opaque                     OpaqueStruct
}

func (m KeyExchangeRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeKeyExchange, Param1: uint8(m.MeasurementSummaryHashType), Param2: m.SlotID}.Encode(w)
	w.U16(m.ReqSessionID)
	w.U8(0) // reserved
	w.U8(0) // session policy
	m.Random.Encode(w)
	m.Exchange.Encode(w)
	m.Opaque.Encode(w)
}

func DecodeKeyExchangeRequest(r *Reader, hdr Header, ni *NegotiateInfo) (KeyExchangeRequest, error) {
	sessID, err := r.U16()
	if err != nil {
		return KeyExchangeRequest{}, err
	}
	if _, err := r.U8(); err != nil { // reserved
		return KeyExchangeRequest{}, err
	}
	if _, err := r.U8(); err != nil { // session policy
		return KeyExchangeRequest{}, err
	}
	random, err := DecodeRandom(r)
	if err != nil {
		return KeyExchangeRequest{}, err
	}
	exch, err := DecodeDheExchange(r, ni.DheSize())
	if err != nil {
		return KeyExchangeRequest{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return KeyExchangeRequest{}, err
	}
	return KeyExchangeRequest{
		MeasurementSummaryHashType: spdmconst.MeasurementSummaryHashType(hdr.Param1),
		SlotID:                     hdr.Param2,
		ReqSessionID:               sessID,
		Random:                     random,
		Exchange:                   exch,
		Opaque:                     opaque,
	}, nil
}

// KeyExchangeRspResponse is a signature-and-HMAC-bearing response: the
// engine must patch measurement_summary_hash, signature and verify_data
// (HMAC) in place before transmitting, in that field order.
type KeyExchangeRspResponse struct {
	HeartbeatPeriod        uint8
	RspSessionID           uint16
	ReqSlotID              uint8
	Random                 RandomStruct
	Exchange               DheExchangeStruct
	MeasurementSummaryHash DigestStruct
	Opaque                 OpaqueStruct
	Signature              SignatureStruct
	VerifyData             DigestStruct // HMAC over message_k with the response finished key
}

func (m KeyExchangeRspResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeKeyExchangeRsp, Param1: m.HeartbeatPeriod}.Encode(w)
	w.U16(m.RspSessionID)
	w.U8(m.ReqSlotID)
	w.U8(0) // reserved
	m.Random.Encode(w)
	m.Exchange.Encode(w)
	m.MeasurementSummaryHash.Encode(w)
	m.Opaque.Encode(w)
	m.Signature.Encode(w)
	m.VerifyData.Encode(w)
}

func DecodeKeyExchangeRspResponse(r *Reader, hdr Header, ni *NegotiateInfo) (KeyExchangeRspResponse, error) {
	sessID, err := r.U16()
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	slot, err := r.U8()
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	if _, err := r.U8(); err != nil {
		return KeyExchangeRspResponse{}, err
	}
	random, err := DecodeRandom(r)
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	exch, err := DecodeDheExchange(r, ni.DheSize())
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	summary, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	sig, err := DecodeSignature(r, ni.AsymSize())
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	verify, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return KeyExchangeRspResponse{}, err
	}
	return KeyExchangeRspResponse{
		HeartbeatPeriod: hdr.Param1, RspSessionID: sessID, ReqSlotID: slot,
		Random: random, Exchange: exch, MeasurementSummaryHash: summary,
		Opaque: opaque, Signature: sig, VerifyData: verify,
	}, nil
}

type FinishRequest struct {
	SignatureIncluded bool
	ReqSlotID         uint8
	Signature         SignatureStruct
	VerifyData        DigestStruct // HMAC with the request finished key
}

func (m FinishRequest) Encode(ni *NegotiateInfo, w *Writer) {
	p1 := uint8(0)
	if m.SignatureIncluded {
		p1 = 1
	}
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeFinish, Param1: p1, Param2: m.ReqSlotID}.Encode(w)
	if m.SignatureIncluded {
		m.Signature.Encode(w)
	}
	m.VerifyData.Encode(w)
}

func DecodeFinishRequest(r *Reader, hdr Header, ni *NegotiateInfo) (FinishRequest, error) {
	m := FinishRequest{SignatureIncluded: hdr.Param1&1 != 0, ReqSlotID: hdr.Param2}
	if m.SignatureIncluded {
		sig, err := DecodeSignature(r, ni.AsymSize())
		if err != nil {
			return FinishRequest{}, err
		}
		m.Signature = sig
	}
	verify, err := DecodeDigest(r, ni.HashSize())
	if err != nil {
		return FinishRequest{}, err
	}
	m.VerifyData = verify
	return m, nil
}

// FinishRspResponse carries an optional HMAC, present only when the
// handshake was not done in the clear.
type FinishRspResponse struct {
	HasVerifyData bool
	VerifyData    DigestStruct
}

func (m FinishRspResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeFinishRsp}.Encode(w)
	if m.HasVerifyData {
		m.VerifyData.Encode(w)
	}
}

func DecodeFinishRspResponse(r *Reader, ni *NegotiateInfo, hasVerifyData bool) (FinishRspResponse, error) {
	m := FinishRspResponse{HasVerifyData: hasVerifyData}
	if hasVerifyData {
		v, err := DecodeDigest(r, ni.HashSize())
		if err != nil {
			return FinishRspResponse{}, err
		}
		m.VerifyData = v
	}
	return m, nil
}

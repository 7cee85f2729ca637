package wire

import "github.com/dmtf/spdm-core/spdmconst"

type ChallengeRequest struct {
	SlotID               uint8
	MeasurementSummaryHashType spdmconst.MeasurementSummaryHashType
	Nonce                [32]byte
}

func (m ChallengeRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeChallenge, Param1: m.SlotID, Param2: uint8(m.MeasurementSummaryHashType)}.Encode(w)
	w.Raw(m.Nonce[:])
}

func DecodeChallengeRequest(r *Reader, hdr Header) (ChallengeRequest, error) {
	nonce, err := r.Bytes(32)
	if err != nil {
		return ChallengeRequest{}, err
	}
	m := ChallengeRequest{SlotID: hdr.Param1, MeasurementSummaryHashType: spdmconst.MeasurementSummaryHashType(hdr.Param2)}
	copy(m.Nonce[:], nonce)
	return m, nil
}

// ChallengeAuthResponse is one of the three signature-bearing responses:
// the engine must build it with a placeholder signature, hash the
// placeholder-free prefix into message_c, sign, and patch before send.
type ChallengeAuthResponse struct {
	SlotID               uint8
	CertChainHash        DigestStruct
	Nonce                [32]byte
	MeasurementSummaryHash DigestStruct
	Opaque               OpaqueStruct
	Signature            SignatureStruct
}

func (m ChallengeAuthResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeChallengeAuth, Param1: m.SlotID}.Encode(w)
	m.CertChainHash.Encode(w)
	w.Raw(m.Nonce[:])
	m.MeasurementSummaryHash.Encode(w)
	m.Opaque.Encode(w)
	m.Signature.Encode(w)
}

func DecodeChallengeAuthResponse(r *Reader, hdr Header, ni *NegotiateInfo) (ChallengeAuthResponse, error) {
	hashSize := ni.HashSize()
	certHash, err := DecodeDigest(r, hashSize)
	if err != nil {
		return ChallengeAuthResponse{}, err
	}
	nonce, err := r.Bytes(32)
	if err != nil {
		return ChallengeAuthResponse{}, err
	}
	summary, err := DecodeDigest(r, hashSize)
	if err != nil {
		return ChallengeAuthResponse{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return ChallengeAuthResponse{}, err
	}
	sig, err := DecodeSignature(r, ni.AsymSize())
	if err != nil {
		return ChallengeAuthResponse{}, err
	}
	m := ChallengeAuthResponse{
		SlotID: hdr.Param1, CertChainHash: certHash, MeasurementSummaryHash: summary,
		Opaque: opaque, Signature: sig,
	}
	copy(m.Nonce[:], nonce)
	return m, nil
}

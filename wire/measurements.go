package wire

import "github.com/dmtf/spdm-core/spdmconst"

const (
	MeasurementOperationTotalNumber uint8 = 0
	MeasurementOperationAll         uint8 = 0xFF
)

type GetMeasurementsRequest struct {
	AttestationRequested bool
	Operation            uint8
	Nonce                [32]byte
	SlotID               uint8
}

func (m GetMeasurementsRequest) Encode(ni *NegotiateInfo, w *Writer) {
	p1 := uint8(0)
	if m.AttestationRequested {
		p1 = 1
	}
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeGetMeasurements, Param1: p1, Param2: m.Operation}.Encode(w)
	if m.AttestationRequested {
		w.Raw(m.Nonce[:])
		w.U8(m.SlotID)
	}
}

func DecodeGetMeasurementsRequest(r *Reader, hdr Header) (GetMeasurementsRequest, error) {
	m := GetMeasurementsRequest{AttestationRequested: hdr.Param1&1 != 0, Operation: hdr.Param2}
	if m.AttestationRequested {
		nonce, err := r.Bytes(32)
		if err != nil {
			return GetMeasurementsRequest{}, err
		}
		copy(m.Nonce[:], nonce)
		slot, err := r.U8()
		if err != nil {
			return GetMeasurementsRequest{}, err
		}
		m.SlotID = slot
	}
	return m, nil
}

// MeasurementsResponse is the third signature-bearing response: signature is
// present only when the request carried an attestation nonce.
type MeasurementsResponse struct {
	NumberOfBlocks uint8
	Record         MeasurementRecord
	Nonce          [32]byte
	Opaque         OpaqueStruct
	Signature      SignatureStruct
	HasSignature   bool
}

func (m MeasurementsResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeMeasurements, Param1: m.NumberOfBlocks}.Encode(w)
	m.Record.Encode(w)
	w.Raw(m.Nonce[:])
	m.Opaque.Encode(w)
	if m.HasSignature {
		m.Signature.Encode(w)
	}
}

func DecodeMeasurementsResponse(r *Reader, hdr Header, ni *NegotiateInfo, hasSignature bool) (MeasurementsResponse, error) {
	rec, err := DecodeMeasurementRecord(r)
	if err != nil {
		return MeasurementsResponse{}, err
	}
	nonce, err := r.Bytes(32)
	if err != nil {
		return MeasurementsResponse{}, err
	}
	opaque, err := DecodeOpaque(r)
	if err != nil {
		return MeasurementsResponse{}, err
	}
	m := MeasurementsResponse{NumberOfBlocks: hdr.Param1, Record: rec, Opaque: opaque, HasSignature: hasSignature}
	copy(m.Nonce[:], nonce)
	if hasSignature {
		sig, err := DecodeSignature(r, ni.AsymSize())
		if err != nil {
			return MeasurementsResponse{}, err
		}
		m.Signature = sig
	}
	return m, nil
}

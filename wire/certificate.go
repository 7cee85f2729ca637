package wire

import "github.com/dmtf/spdm-core/spdmconst"

type GetDigestsRequest struct{}

func (GetDigestsRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeGetDigests}.Encode(w)
	w.U8(0)
	w.U8(0)
}

// DigestsResponse carries one digest per provisioned certificate slot,
// flagged in SlotMask.
type DigestsResponse struct {
	SlotMask uint8
	Digests  []DigestStruct
}

func (m DigestsResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeDigests, Param2: m.SlotMask}.Encode(w)
	for _, d := range m.Digests {
		d.Encode(w)
	}
}

func DecodeDigestsResponse(r *Reader, hdr Header, hashSize int) (DigestsResponse, error) {
	m := DigestsResponse{SlotMask: hdr.Param2}
	for i := 0; i < 8; i++ {
		if hdr.Param2&(1<<uint(i)) == 0 {
			continue
		}
		d, err := DecodeDigest(r, hashSize)
		if err != nil {
			return DigestsResponse{}, err
		}
		m.Digests = append(m.Digests, d)
	}
	return m, nil
}

type GetCertificateRequest struct {
	SlotID uint8
	Offset uint16
	Length uint16
}

func (m GetCertificateRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeGetCertificate, Param1: m.SlotID}.Encode(w)
	w.U16(m.Offset)
	w.U16(m.Length)
}

func DecodeGetCertificateRequest(r *Reader, hdr Header) (GetCertificateRequest, error) {
	off, err := r.U16()
	if err != nil {
		return GetCertificateRequest{}, err
	}
	ln, err := r.U16()
	if err != nil {
		return GetCertificateRequest{}, err
	}
	return GetCertificateRequest{SlotID: hdr.Param1, Offset: off, Length: ln}, nil
}

type CertificateResponse struct {
	SlotID        uint8
	PortionLength uint16
	RemainderLength uint16
	CertChain     []byte
}

func (m CertificateResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeCertificate, Param1: m.SlotID}.Encode(w)
	w.U16(uint16(len(m.CertChain)))
	w.U16(m.RemainderLength)
	w.Raw(m.CertChain)
}

func DecodeCertificateResponse(r *Reader, hdr Header) (CertificateResponse, error) {
	portion, err := r.U16()
	if err != nil {
		return CertificateResponse{}, err
	}
	remainder, err := r.U16()
	if err != nil {
		return CertificateResponse{}, err
	}
	chain, err := r.Bytes(int(portion))
	if err != nil {
		return CertificateResponse{}, err
	}
	return CertificateResponse{
		SlotID: hdr.Param1, PortionLength: portion, RemainderLength: remainder,
		CertChain: append([]byte(nil), chain...),
	}, nil
}

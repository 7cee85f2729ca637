package wire

import "github.com/dmtf/spdm-core/spdmconst"

// NegotiateAlgorithmsRequest carries the Requester's supported algorithm
// sets for each family; the Responder intersects against its own support
// and returns exactly one selection per family in AlgorithmsResponse.
type NegotiateAlgorithmsRequest struct {
	MeasurementSpec  uint8
	BaseAsymAlgo     spdmconst.BaseAsymAlgo
	BaseHashAlgo     spdmconst.BaseHashAlgo
	DheGroups        spdmconst.DheGroup
	AeadAlgos        spdmconst.AeadAlgo
	KeySchedules     spdmconst.KeyScheduleAlgo
	MeasurementHash  spdmconst.MeasurementHashAlgo
}

func (m NegotiateAlgorithmsRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeNegotiateAlgorithms}.Encode(w)
	w.U8(0)
	w.U8(0)
	w.U8(m.MeasurementSpec)
	w.U8(0) // reserved
	w.U32(uint32(m.BaseAsymAlgo))
	w.U32(uint32(m.BaseHashAlgo))
	w.U16(uint16(m.DheGroups))
	w.U16(uint16(m.AeadAlgos))
	w.U16(uint16(m.KeySchedules))
	w.U32(uint32(m.MeasurementHash))
}

func DecodeNegotiateAlgorithmsRequest(r *Reader) (NegotiateAlgorithmsRequest, error) {
	var m NegotiateAlgorithmsRequest
	var err error
	if _, err = r.U16(); err != nil { // reserved
		return m, err
	}
	if m.MeasurementSpec, err = r.U8(); err != nil {
		return m, err
	}
	if _, err = r.U8(); err != nil { // reserved
		return m, err
	}
	asym, err := r.U32()
	if err != nil {
		return m, err
	}
	m.BaseAsymAlgo = spdmconst.BaseAsymAlgo(asym)
	hash, err := r.U32()
	if err != nil {
		return m, err
	}
	m.BaseHashAlgo = spdmconst.BaseHashAlgo(hash)
	dhe, err := r.U16()
	if err != nil {
		return m, err
	}
	m.DheGroups = spdmconst.DheGroup(dhe)
	aead, err := r.U16()
	if err != nil {
		return m, err
	}
	m.AeadAlgos = spdmconst.AeadAlgo(aead)
	ks, err := r.U16()
	if err != nil {
		return m, err
	}
	m.KeySchedules = spdmconst.KeyScheduleAlgo(ks)
	mh, err := r.U32()
	if err != nil {
		return m, err
	}
	m.MeasurementHash = spdmconst.MeasurementHashAlgo(mh)
	return m, nil
}

type AlgorithmsResponse struct {
	MeasurementSpec uint8
	MeasurementHash spdmconst.MeasurementHashAlgo
	BaseAsymSel     spdmconst.BaseAsymAlgo
	BaseHashSel     spdmconst.BaseHashAlgo
	DheSel          spdmconst.DheGroup
	AeadSel         spdmconst.AeadAlgo
	KeyScheduleSel  spdmconst.KeyScheduleAlgo
}

func (m AlgorithmsResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeAlgorithms}.Encode(w)
	w.U8(0)
	w.U8(0)
	w.U8(m.MeasurementSpec)
	w.U8(0)
	w.U32(uint32(m.MeasurementHash))
	w.U32(uint32(m.BaseAsymSel))
	w.U32(uint32(m.BaseHashSel))
	w.U16(uint16(m.DheSel))
	w.U16(uint16(m.AeadSel))
	w.U16(uint16(m.KeyScheduleSel))
}

func DecodeAlgorithmsResponse(r *Reader) (AlgorithmsResponse, error) {
	var m AlgorithmsResponse
	var err error
	if _, err = r.U16(); err != nil { // reserved
		return m, err
	}
	if m.MeasurementSpec, err = r.U8(); err != nil {
		return m, err
	}
	if _, err = r.U8(); err != nil {
		return m, err
	}
	mh, err := r.U32()
	if err != nil {
		return m, err
	}
	m.MeasurementHash = spdmconst.MeasurementHashAlgo(mh)
	asym, err := r.U32()
	if err != nil {
		return m, err
	}
	m.BaseAsymSel = spdmconst.BaseAsymAlgo(asym)
	hash, err := r.U32()
	if err != nil {
		return m, err
	}
	m.BaseHashSel = spdmconst.BaseHashAlgo(hash)
	dhe, err := r.U16()
	if err != nil {
		return m, err
	}
	m.DheSel = spdmconst.DheGroup(dhe)
	aead, err := r.U16()
	if err != nil {
		return m, err
	}
	m.AeadSel = spdmconst.AeadAlgo(aead)
	ks, err := r.U16()
	if err != nil {
		return m, err
	}
	m.KeyScheduleSel = spdmconst.KeyScheduleAlgo(ks)
	return m, nil
}

package wire

import "github.com/dmtf/spdm-core/spdmconst"

// ErrorExtData is the discriminated extension payload of an ERROR frame.
// Exactly one of the three decode paths below fires, chosen by error_code:
// 0x42 (ResponseNotReady) decodes ResponseNotReadyExtData; 0xFF
// (VendorDefined) decodes VendorDefinedExtData; every other code carries no
// extension data at all.
type ErrorExtData interface{ isErrorExtData() }

type NoneExtData struct{}

func (NoneExtData) isErrorExtData() {}

type ResponseNotReadyExtData struct {
	RdtExponent uint8
	RequestCode uint8
	Token       uint8
	Tdtm        uint8
}

func (ResponseNotReadyExtData) isErrorExtData() {}

func (d ResponseNotReadyExtData) encode(w *Writer) {
	w.U8(d.RdtExponent)
	w.U8(d.RequestCode)
	w.U8(d.Token)
	w.U8(d.Tdtm)
}

// RetryAfterMicros returns the microsecond delay the Requester MAY wait before
// resubmitting the original request.
func (d ResponseNotReadyExtData) RetryAfterMicros() uint64 {
	return uint64(1) << d.RdtExponent
}

type VendorDefinedExtData struct {
	DataSize uint8
	Data     [32]byte
}

func (VendorDefinedExtData) isErrorExtData() {}

func (d VendorDefinedExtData) encode(w *Writer) {
	w.U8(d.DataSize)
	w.Raw(d.Data[:d.DataSize])
}

type ErrorResponse struct {
	Code ErrorCodeWire
	Data uint8
	Ext  ErrorExtData
}

// ErrorCodeWire is an alias kept local to wire so callers don't need to
// import spdmconst just to build an ErrorResponse.
type ErrorCodeWire = spdmconst.ErrorCode

func (m ErrorResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeError, Param1: uint8(m.Code), Param2: m.Data}.Encode(w)
	switch ext := m.Ext.(type) {
	case ResponseNotReadyExtData:
		ext.encode(w)
	case VendorDefinedExtData:
		ext.encode(w)
	}
}

// DecodeErrorResponse implements the exact discriminant: 0x42 -> ResponseNotReady,
// 0xFF -> VendorDefined, anything else -> None. This mirrors the reference
// decoder's match on error_code, not on any flag bit.
func DecodeErrorResponse(r *Reader, hdr Header) (ErrorResponse, error) {
	m := ErrorResponse{Code: spdmconst.ErrorCode(hdr.Param1), Data: hdr.Param2}
	switch m.Code {
	case spdmconst.ErrorResponseNotReady:
		rdt, err := r.U8()
		if err != nil {
			return ErrorResponse{}, err
		}
		reqCode, err := r.U8()
		if err != nil {
			return ErrorResponse{}, err
		}
		token, err := r.U8()
		if err != nil {
			return ErrorResponse{}, err
		}
		tdtm, err := r.U8()
		if err != nil {
			return ErrorResponse{}, err
		}
		m.Ext = ResponseNotReadyExtData{RdtExponent: rdt, RequestCode: reqCode, Token: token, Tdtm: tdtm}
	case spdmconst.ErrorVendorDefined:
		size, err := r.U8()
		if err != nil {
			return ErrorResponse{}, err
		}
		data, err := r.Bytes(int(size))
		if err != nil {
			return ErrorResponse{}, err
		}
		var ext VendorDefinedExtData
		ext.DataSize = size
		copy(ext.Data[:], data)
		m.Ext = ext
	default:
		m.Ext = NoneExtData{}
	}
	return m, nil
}

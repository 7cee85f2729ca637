package wire

import "github.com/dmtf/spdm-core/spdmconst"

type GetCapabilitiesRequest struct {
	Flags spdmconst.CapabilityFlags
}

func (m GetCapabilitiesRequest) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeGetCapabilities}.Encode(w)
	w.U8(0)
	w.U8(0)
	w.U32(uint32(m.Flags))
}

func DecodeGetCapabilitiesRequest(r *Reader) (GetCapabilitiesRequest, error) {
	if _, err := r.U16(); err != nil { // reserved
		return GetCapabilitiesRequest{}, err
	}
	flags, err := r.U32()
	if err != nil {
		return GetCapabilitiesRequest{}, err
	}
	return GetCapabilitiesRequest{Flags: spdmconst.CapabilityFlags(flags)}, nil
}

type CapabilitiesResponse struct {
	Flags spdmconst.CapabilityFlags
}

func (m CapabilitiesResponse) Encode(ni *NegotiateInfo, w *Writer) {
	Header{Version: ni.SpdmVersion, Code: spdmconst.CodeCapabilities}.Encode(w)
	w.U8(0)
	w.U8(0)
	w.U32(uint32(m.Flags))
}

func DecodeCapabilitiesResponse(r *Reader) (CapabilitiesResponse, error) {
	if _, err := r.U16(); err != nil { // reserved
		return CapabilitiesResponse{}, err
	}
	flags, err := r.U32()
	if err != nil {
		return CapabilitiesResponse{}, err
	}
	return CapabilitiesResponse{Flags: spdmconst.CapabilityFlags(flags)}, nil
}

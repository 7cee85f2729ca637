package wire

import "github.com/dmtf/spdm-core/spdmconst"

// VersionEntry is one {version, update_version_number} pair in a VERSION
// response.
type VersionEntry struct {
	UpdateVersionNumber uint8
	Version             spdmconst.SpdmVersion
}

func (e VersionEntry) encode(w *Writer) {
	w.U8(e.UpdateVersionNumber)
	w.U8(uint8(e.Version))
}

func decodeVersionEntry(r *Reader) (VersionEntry, error) {
	upd, err := r.U8()
	if err != nil {
		return VersionEntry{}, err
	}
	ver, err := r.U8()
	if err != nil {
		return VersionEntry{}, err
	}
	return VersionEntry{UpdateVersionNumber: upd, Version: spdmconst.SpdmVersion(ver)}, nil
}

type GetVersionRequest struct{}

func (GetVersionRequest) Encode(_ *NegotiateInfo, w *Writer) {
	Header{Version: spdmconst.Version10, Code: spdmconst.CodeGetVersion}.Encode(w)
	w.U8(0)
	w.U8(0)
}

type VersionResponse struct {
	Entries []VersionEntry
}

func (v VersionResponse) Encode(w *Writer) {
	Header{Version: spdmconst.Version10, Code: spdmconst.CodeVersion}.Encode(w)
	w.U8(0) // reserved
	w.U8(uint8(len(v.Entries)))
	for _, e := range v.Entries {
		e.encode(w)
	}
}

func DecodeVersionResponse(r *Reader) (VersionResponse, error) {
	if _, err := r.U8(); err != nil { // reserved
		return VersionResponse{}, err
	}
	count, err := r.U8()
	if err != nil {
		return VersionResponse{}, err
	}
	v := VersionResponse{Entries: make([]VersionEntry, 0, count)}
	for i := 0; i < int(count); i++ {
		e, err := decodeVersionEntry(r)
		if err != nil {
			return VersionResponse{}, err
		}
		v.Entries = append(v.Entries, e)
	}
	return v, nil
}

// Best returns the highest version listed in the response; the local
// side's own supported versions are not consulted.
func (v VersionResponse) Best() (spdmconst.SpdmVersion, bool) {
	var best spdmconst.SpdmVersion
	found := false
	for _, e := range v.Entries {
		if !found || e.Version > best {
			best = e.Version
			found = true
		}
	}
	return best, found
}

package wire

import (
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
)

// PeekHeader decodes only the 4-byte header, leaving the reader positioned
// right after it so a caller can then call the matching Decode* function for
// the body with full negotiation context in hand.
func PeekHeader(buf []byte) (Header, *Reader, error) {
	r := NewReader(buf)
	hdr, err := DecodeHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	return hdr, r, nil
}

// IsSecuredCode reports whether a request/response code is only ever sent
// inside an AEAD-protected session, per the Responder's secured dispatch
// table.
func IsSecuredCode(c spdmconst.RequestResponseCode) bool {
	switch c {
	case spdmconst.CodeFinish, spdmconst.CodeFinishRsp,
		spdmconst.CodePskFinish, spdmconst.CodePskFinishRsp,
		spdmconst.CodeHeartbeat, spdmconst.CodeHeartbeatAck,
		spdmconst.CodeKeyUpdate, spdmconst.CodeKeyUpdateAck,
		spdmconst.CodeEndSession, spdmconst.CodeEndSessionAck:
		return true
	default:
		return false
	}
}

var errUnknownCode = spdmerr.New(spdmerr.Unsupported, "unrecognized request/response code")

// ErrUnknownCode is returned by dispatchers that hit a code absent from
// every table; callers treat it as UnsupportedRequest.
func ErrUnknownCode() error { return errUnknownCode }

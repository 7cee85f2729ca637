package engine

import (
	"github.com/dmtf/spdm-core/session"
	"github.com/dmtf/spdm-core/transcript"
)

// transcriptHandshakeHash computes TH1 for the given session's message_k
// against the Context's negotiation-phase transcripts.
func transcriptHandshakeHash(c *Context, slot *session.Slot) ([]byte, error) {
	return transcript.HandshakeHash(c.Negotiate.BaseHashSel, c.Transcripts, slot.Runtime.MessageK)
}

// transcriptFinishHash computes TH2 for the given session's message_k and
// message_f. extra, when non-nil, is appended to message_f's bytes before
// hashing without mutating the buffer itself — used when a caller must hash
// a response that has not yet been appended to the transcript.
func transcriptFinishHash(c *Context, slot *session.Slot, extra []byte) ([]byte, error) {
	if len(extra) == 0 {
		return transcript.FinishHash(c.Negotiate.BaseHashSel, c.Transcripts, slot.Runtime.MessageK, slot.Runtime.MessageF)
	}
	tmp := transcript.NewBuffer(slot.Runtime.MessageF.Len() + len(extra))
	if err := tmp.Append(slot.Runtime.MessageF.Bytes()); err != nil {
		return nil, err
	}
	if err := tmp.Append(extra); err != nil {
		return nil, err
	}
	return transcript.FinishHash(c.Negotiate.BaseHashSel, c.Transcripts, slot.Runtime.MessageK, tmp)
}

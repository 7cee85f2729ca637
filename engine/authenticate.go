package engine

import (
	"context"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
	"github.com/dmtf/spdm-core/wire"
)

// GetDigests retrieves the hash of each provisioned certificate chain and
// folds the exchange into message_b.
func (r *Requester) GetDigests(ctx context.Context) (wire.DigestsResponse, error) {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+2)
	w := wire.NewWriter(buf)
	wire.GetDigestsRequest{}.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageB.Append(w.Bytes()); err != nil {
		return wire.DigestsResponse{}, err
	}
	if err := c.sendMessage(ctx, w.Bytes()); err != nil {
		return wire.DigestsResponse{}, err
	}
	respBytes, err := c.receiveMessage(ctx)
	if err != nil {
		return wire.DigestsResponse{}, err
	}
	hdr, rr, err := wire.PeekHeader(respBytes)
	if err != nil {
		return wire.DigestsResponse{}, err
	}
	if hdr.Code != spdmconst.CodeDigests {
		return wire.DigestsResponse{}, unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeDigestsResponse(rr, hdr, c.Negotiate.HashSize())
	if err != nil {
		return wire.DigestsResponse{}, spdmerr.Wrap(spdmerr.DecodeFailure, "decode DIGESTS", err)
	}
	if err := c.Transcripts.MessageB.Append(respBytes); err != nil {
		return wire.DigestsResponse{}, err
	}
	return resp, nil
}

// GetCertificateChain retrieves the full DER cert chain for slotID, paging
// through GET_CERTIFICATE/CERTIFICATE exchanges, and caches the leaf
// certificate for later signature verification.
func (r *Requester) GetCertificateChain(ctx context.Context, slotID uint8) ([]byte, error) {
	c := r.Ctx
	const chunk = 1024
	var chain []byte
	offset := uint16(0)
	for {
		buf := make([]byte, wire.HeaderSize+4)
		w := wire.NewWriter(buf)
		req := wire.GetCertificateRequest{SlotID: slotID, Offset: offset, Length: chunk}
		req.Encode(&c.Negotiate, w)
		if err := c.Transcripts.MessageB.Append(w.Bytes()); err != nil {
			return nil, err
		}
		if err := c.sendMessage(ctx, w.Bytes()); err != nil {
			return nil, err
		}
		respBytes, err := c.receiveMessage(ctx)
		if err != nil {
			return nil, err
		}
		hdr, rr, err := wire.PeekHeader(respBytes)
		if err != nil {
			return nil, err
		}
		if hdr.Code != spdmconst.CodeCertificate {
			return nil, unexpectedCode(hdr.Code)
		}
		resp, err := wire.DecodeCertificateResponse(rr, hdr)
		if err != nil {
			return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode CERTIFICATE", err)
		}
		if err := c.Transcripts.MessageB.Append(respBytes); err != nil {
			return nil, err
		}
		chain = append(chain, resp.CertChain...)
		offset += resp.PortionLength
		if resp.RemainderLength == 0 {
			break
		}
	}
	if off, length, ok := cryptoreg.GetCertOperation().GetCertFromChain(chain, 0); ok {
		c.Trust.PeerLeafCertDer = append([]byte(nil), chain[off:off+length]...)
	}
	return chain, nil
}

// Challenge runs the CHALLENGE/CHALLENGE_AUTH exchange, verifying the
// Responder's signature over message_c: the CHALLENGE request followed by
// the placeholder-free CHALLENGE_AUTH prefix.
func (r *Requester) Challenge(ctx context.Context, slotID uint8, summary spdmconst.MeasurementSummaryHashType) error {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+32)
	w := wire.NewWriter(buf)
	req := wire.ChallengeRequest{SlotID: slotID, MeasurementSummaryHashType: summary, Nonce: randomStruct().Data}
	req.Encode(&c.Negotiate, w)

	c.Transcripts.ResetForNewSession()
	if err := c.Transcripts.MessageC.Append(w.Bytes()); err != nil {
		return err
	}
	if err := c.sendMessage(ctx, w.Bytes()); err != nil {
		return err
	}
	respBytes, err := c.receiveMessage(ctx)
	if err != nil {
		return err
	}
	hdr, rr, err := wire.PeekHeader(respBytes)
	if err != nil {
		return err
	}
	if hdr.Code != spdmconst.CodeChallengeAuth {
		return unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeChallengeAuthResponse(rr, hdr, &c.Negotiate)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decode CHALLENGE_AUTH", err)
	}

	asymSize := c.Negotiate.AsymSize()
	prefix := respBytes[:len(respBytes)-asymSize]
	if err := c.Transcripts.MessageC.Append(prefix); err != nil {
		return err
	}
	prefixHash, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, c.Transcripts.MessageC.Bytes())
	if !ok {
		return spdmerr.New(spdmerr.CryptoFailure, "challenge transcript hash failed")
	}
	if !cryptoreg.GetAsymVerify().Verify(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.leafCert(), prefixHash, resp.Signature.Bytes()) {
		return spdmerr.New(spdmerr.CryptoFailure, "challenge signature verification failed")
	}
	return c.Transcripts.MessageC.Append(resp.Signature.Bytes())
}

// GetMeasurements retrieves the measurement record selected by operation,
// verifying the attached signature when attestation was requested.
func (r *Requester) GetMeasurements(ctx context.Context, slotID uint8, operation uint8, attest bool) (wire.MeasurementsResponse, error) {
	c := r.Ctx
	req := wire.GetMeasurementsRequest{AttestationRequested: attest, Operation: operation, SlotID: slotID}
	if attest {
		req.Nonce = randomStruct().Data
	}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	req.Encode(&c.Negotiate, w)
	if err := c.sendMessage(ctx, w.Bytes()); err != nil {
		return wire.MeasurementsResponse{}, err
	}
	respBytes, err := c.receiveMessage(ctx)
	if err != nil {
		return wire.MeasurementsResponse{}, err
	}
	hdr, rr, err := wire.PeekHeader(respBytes)
	if err != nil {
		return wire.MeasurementsResponse{}, err
	}
	if hdr.Code != spdmconst.CodeMeasurements {
		return wire.MeasurementsResponse{}, unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeMeasurementsResponse(rr, hdr, &c.Negotiate, attest)
	if err != nil {
		return wire.MeasurementsResponse{}, spdmerr.Wrap(spdmerr.DecodeFailure, "decode MEASUREMENTS", err)
	}
	if !attest {
		return resp, nil
	}

	asymSize := c.Negotiate.AsymSize()
	prefix := respBytes[:len(respBytes)-asymSize]
	if err := c.MeasurementTranscript.Append(prefix); err != nil {
		return wire.MeasurementsResponse{}, err
	}
	l2, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, c.MeasurementTranscript.Bytes())
	if !ok {
		return wire.MeasurementsResponse{}, spdmerr.New(spdmerr.CryptoFailure, "measurement transcript hash failed")
	}
	if !cryptoreg.GetAsymVerify().Verify(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.leafCert(), l2, resp.Signature.Bytes()) {
		return wire.MeasurementsResponse{}, spdmerr.New(spdmerr.CryptoFailure, "measurement signature verification failed")
	}
	return resp, nil
}

package engine

import (
	"context"
	crand "crypto/rand"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/session"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
	"github.com/dmtf/spdm-core/wire"
)

func randomStruct() wire.RandomStruct {
	var r wire.RandomStruct
	_, _ = crand.Read(r.Data[:])
	return r
}

// Requester is the verifier role: a blocking orchestration of the
// handshake, driven one step at a time, each step aborting the whole
// sequence on its own failure.
type Requester struct {
	Ctx *Context
}

func NewRequester(c *Context) *Requester { return &Requester{Ctx: c} }

// InitConnection runs Version, Capabilities and Algorithms negotiation in
// order.
func (r *Requester) InitConnection(ctx context.Context, localCaps spdmconst.CapabilityFlags, algReq wire.NegotiateAlgorithmsRequest) error {
	if err := r.negotiateVersion(ctx); err != nil {
		return err
	}
	if err := r.negotiateCapabilities(ctx, localCaps); err != nil {
		return err
	}
	if err := r.negotiateAlgorithms(ctx, algReq); err != nil {
		return err
	}
	return nil
}

func (r *Requester) negotiateVersion(ctx context.Context) error {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+2)
	w := wire.NewWriter(buf)
	wire.GetVersionRequest{}.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
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
	if hdr.Code != spdmconst.CodeVersion {
		return unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeVersionResponse(rr)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decode VERSION", err)
	}
	if err := c.Transcripts.MessageA.Append(respBytes); err != nil {
		return err
	}
	best, ok := resp.Best()
	if !ok {
		return spdmerr.New(spdmerr.InvalidState, "responder advertised no versions")
	}
	c.Negotiate.SpdmVersion = best
	return nil
}

func (r *Requester) negotiateCapabilities(ctx context.Context, localCaps spdmconst.CapabilityFlags) error {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+8)
	w := wire.NewWriter(buf)
	wire.GetCapabilitiesRequest{Flags: localCaps}.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
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
	if hdr.Code != spdmconst.CodeCapabilities {
		return unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeCapabilitiesResponse(rr)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decode CAPABILITIES", err)
	}
	if err := c.Transcripts.MessageA.Append(respBytes); err != nil {
		return err
	}
	c.Negotiate.ReqCapabilitiesSel = localCaps
	c.Negotiate.RspCapabilitiesSel = resp.Flags
	return nil
}

func (r *Requester) negotiateAlgorithms(ctx context.Context, req wire.NegotiateAlgorithmsRequest) error {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+32)
	w := wire.NewWriter(buf)
	req.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
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
	if hdr.Code != spdmconst.CodeAlgorithms {
		return unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeAlgorithmsResponse(rr)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decode ALGORITHMS", err)
	}
	if err := c.Transcripts.MessageA.Append(respBytes); err != nil {
		return err
	}
	c.Negotiate.BaseAsymSel = resp.BaseAsymSel
	c.Negotiate.BaseHashSel = resp.BaseHashSel
	c.Negotiate.DheSel = resp.DheSel
	c.Negotiate.AeadSel = resp.AeadSel
	c.Negotiate.KeyScheduleSel = resp.KeyScheduleSel
	c.Negotiate.MeasurementHash = resp.MeasurementHash
	return nil
}

// StartSession runs either KeyExchange+Finish or PskExchange+PskFinish and
// returns the combined session id on success.
func (r *Requester) StartSession(ctx context.Context, usePsk bool, slotID uint8, summary spdmconst.MeasurementSummaryHashType) (uint32, error) {
	if usePsk {
		return r.pskSession(ctx, summary)
	}
	return r.dheSession(ctx, slotID, summary)
}

func (r *Requester) dheSession(ctx context.Context, slotID uint8, summary spdmconst.MeasurementSummaryHashType) (uint32, error) {
	c := r.Ctx
	slot, ok := c.Sessions.GetNextAvailableSession()
	if !ok {
		return 0, spdmerr.New(spdmerr.SessionExhausted, "no available session slot")
	}
	slot.Crypto = session.CryptoParams{
		HashAlgo: c.Negotiate.BaseHashSel, DheGroup: c.Negotiate.DheSel,
		AeadAlgo: c.Negotiate.AeadSel, KeyScheduleAlgo: c.Negotiate.KeyScheduleSel,
	}
	slot.Transport = session.TransportParams{
		SequenceNumberCount: c.TransportEncap.SequenceNumberCount(),
		MaxRandomCount:      c.TransportEncap.MaxRandomCount(),
	}

	pub, priv, ok := cryptoreg.GetDhe().GenerateKeyPair(c.Negotiate.DheSel)
	if !ok {
		return 0, spdmerr.New(spdmerr.Unsupported, "dhe group unsupported")
	}

	reqSessionID := uint16(0x0001)
	req := wire.KeyExchangeRequest{
		MeasurementSummaryHashType: summary,
		SlotID:                     slotID,
		ReqSessionID:               reqSessionID,
		Random:                     randomStruct(),
		Exchange:                   wire.NewDheExchange(pub),
	}
	reqBuf := make([]byte, c.BufferSize)
	w := wire.NewWriter(reqBuf)
	req.Encode(&c.Negotiate, w)
	if err := slot.Runtime.MessageK.Append(w.Bytes()); err != nil {
		return 0, err
	}
	if err := c.sendMessage(ctx, w.Bytes()); err != nil {
		return 0, err
	}

	respBytes, err := c.receiveMessage(ctx)
	if err != nil {
		return 0, err
	}
	hdr, rr, err := wire.PeekHeader(respBytes)
	if err != nil {
		return 0, err
	}
	if hdr.Code != spdmconst.CodeKeyExchangeRsp {
		return 0, unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodeKeyExchangeRspResponse(rr, hdr, &c.Negotiate)
	if err != nil {
		return 0, spdmerr.Wrap(spdmerr.DecodeFailure, "decode KEY_EXCHANGE_RSP", err)
	}

	finalKey, ok := priv.ComputeFinalKey(resp.Exchange.Bytes())
	if !ok {
		return 0, spdmerr.New(spdmerr.CryptoFailure, "dhe final key computation failed")
	}
	slot.SetDheSecret(finalKey)

	sessionID := (uint32(reqSessionID) << 16) | uint32(resp.RspSessionID)
	if err := slot.Setup(sessionID); err != nil {
		return 0, err
	}

	// message_k = request bytes || response bytes minus signature+HMAC.
	hashSize := c.Negotiate.HashSize()
	asymSize := c.Negotiate.AsymSize()
	trailer := asymSize + hashSize
	if err := slot.Runtime.MessageK.Append(respBytes[:len(respBytes)-trailer]); err != nil {
		return 0, err
	}

	th1, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return 0, err
	}
	if err := slot.GenerateHandshakeSecret(th1); err != nil {
		return 0, err
	}

	if ok := cryptoreg.GetAsymVerify().Verify(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.leafCert(), th1, resp.Signature.Bytes()); !ok {
		slot.Teardown()
		return 0, spdmerr.New(spdmerr.CryptoFailure, "key exchange signature verification failed")
	}
	if err := slot.Runtime.MessageK.Append(resp.Signature.Bytes()); err != nil {
		return 0, err
	}

	th1Finished, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return 0, err
	}
	if !cryptoreg.GetHmac().HmacVerify(c.Negotiate.BaseHashSel, slot.RspHandshakeKeys.FinishedKey, th1Finished, resp.VerifyData.Bytes()) {
		slot.Teardown()
		return 0, spdmerr.New(spdmerr.CryptoFailure, "key exchange HMAC verification failed")
	}
	if err := slot.Runtime.MessageK.Append(resp.VerifyData.Bytes()); err != nil {
		return 0, err
	}

	if err := r.finish(ctx, slot); err != nil {
		slot.Teardown()
		return 0, err
	}
	return sessionID, nil
}

func (r *Requester) finish(ctx context.Context, slot *session.Slot) error {
	c := r.Ctx
	// TH2 for verify_data covers message_f holding the FINISH header, the
	// same prefix the Responder appends before verifying.
	hdrBuf := make([]byte, wire.HeaderSize)
	wire.Header{Version: c.Negotiate.SpdmVersion, Code: spdmconst.CodeFinish}.Encode(wire.NewWriter(hdrBuf))
	th2, err := transcriptFinishHash(c, slot, hdrBuf)
	if err != nil {
		return err
	}
	mac, ok := slot.GenerateHmacWithFinishedKey(th2, true)
	if !ok {
		return spdmerr.New(spdmerr.CryptoFailure, "finish hmac generation failed")
	}
	req := wire.FinishRequest{VerifyData: wire.NewDigest(mac)}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	req.Encode(&c.Negotiate, w)
	if err := slot.Runtime.MessageF.Append(w.Bytes()); err != nil {
		return err
	}
	if err := c.sendSecuredMessage(ctx, slot, w.Bytes(), true); err != nil {
		return err
	}
	plain, err := c.receiveSecuredMessage(ctx, slot, false)
	if err != nil {
		return err
	}
	hdr, _, err := wire.PeekHeader(plain)
	if err != nil {
		return err
	}
	if hdr.Code != spdmconst.CodeFinishRsp {
		return unexpectedCode(hdr.Code)
	}
	if err := slot.Runtime.MessageF.Append(plain); err != nil {
		return err
	}
	return slot.CompleteHandshake()
}

func (r *Requester) pskSession(ctx context.Context, summary spdmconst.MeasurementSummaryHashType) (uint32, error) {
	c := r.Ctx
	slot, ok := c.Sessions.GetNextAvailableSession()
	if !ok {
		return 0, spdmerr.New(spdmerr.SessionExhausted, "no available session slot")
	}
	slot.UsePsk = true
	slot.Crypto = session.CryptoParams{
		HashAlgo: c.Negotiate.BaseHashSel, AeadAlgo: c.Negotiate.AeadSel,
		KeyScheduleAlgo: c.Negotiate.KeyScheduleSel,
	}

	reqSessionID := uint16(0x0001)
	req := wire.PskExchangeRequest{MeasurementSummaryHashType: summary, ReqSessionID: reqSessionID, PskHint: c.PskHint}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	req.Encode(&c.Negotiate, w)
	if err := slot.Runtime.MessageK.Append(w.Bytes()); err != nil {
		return 0, err
	}
	if err := c.sendMessage(ctx, w.Bytes()); err != nil {
		return 0, err
	}
	respBytes, err := c.receiveMessage(ctx)
	if err != nil {
		return 0, err
	}
	hdr, rr, err := wire.PeekHeader(respBytes)
	if err != nil {
		return 0, err
	}
	if hdr.Code != spdmconst.CodePskExchangeRsp {
		return 0, unexpectedCode(hdr.Code)
	}
	resp, err := wire.DecodePskExchangeRspResponse(rr, hdr, &c.Negotiate)
	if err != nil {
		return 0, spdmerr.Wrap(spdmerr.DecodeFailure, "decode PSK_EXCHANGE_RSP", err)
	}
	sessionID := (uint32(reqSessionID) << 16) | uint32(resp.RspSessionID)
	if err := slot.Setup(sessionID); err != nil {
		return 0, err
	}
	slot.SetDheSecret(c.PskKey)

	trailer := c.Negotiate.HashSize()
	if err := slot.Runtime.MessageK.Append(respBytes[:len(respBytes)-trailer]); err != nil {
		return 0, err
	}
	th1, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return 0, err
	}
	if err := slot.GenerateHandshakeSecret(th1); err != nil {
		return 0, err
	}
	if !cryptoreg.GetHmac().HmacVerify(c.Negotiate.BaseHashSel, slot.RspHandshakeKeys.FinishedKey, th1, resp.VerifyData.Bytes()) {
		slot.Teardown()
		return 0, spdmerr.New(spdmerr.CryptoFailure, "psk exchange HMAC verification failed")
	}
	if err := slot.Runtime.MessageK.Append(resp.VerifyData.Bytes()); err != nil {
		return 0, err
	}

	pskFinishReq := wire.PskFinishRequest{}
	buf2 := make([]byte, c.BufferSize)
	w2 := wire.NewWriter(buf2)
	th1Finished, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return 0, err
	}
	mac, ok := slot.GenerateHmacWithFinishedKey(th1Finished, true)
	if !ok {
		return 0, spdmerr.New(spdmerr.CryptoFailure, "psk finish hmac generation failed")
	}
	pskFinishReq.VerifyData = wire.NewDigest(mac)
	pskFinishReq.Encode(&c.Negotiate, w2)
	if err := slot.Runtime.MessageF.Append(w2.Bytes()); err != nil {
		return 0, err
	}
	if err := c.sendSecuredMessage(ctx, slot, w2.Bytes(), true); err != nil {
		return 0, err
	}
	plain, err := c.receiveSecuredMessage(ctx, slot, false)
	if err != nil {
		return 0, err
	}
	phdr, _, err := wire.PeekHeader(plain)
	if err != nil {
		return 0, err
	}
	if phdr.Code != spdmconst.CodePskFinishRsp {
		slot.Teardown()
		return 0, unexpectedCode(phdr.Code)
	}
	if err := slot.Runtime.MessageF.Append(plain); err != nil {
		return 0, err
	}
	if err := slot.CompleteHandshake(); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// EndSession sends END_SESSION best-effort; local state is freed
// regardless of whether the peer acknowledges.
func (r *Requester) EndSession(ctx context.Context, sessionID uint32) {
	c := r.Ctx
	slot, ok := c.Sessions.GetSessionByID(sessionID)
	if !ok {
		return
	}
	buf := make([]byte, wire.HeaderSize+2)
	w := wire.NewWriter(buf)
	wire.EndSessionRequest{}.Encode(&c.Negotiate, w)
	_ = c.sendSecuredMessage(ctx, slot, w.Bytes(), true)
	_, _ = c.receiveSecuredMessage(ctx, slot, false)
	slot.Teardown()
}

// Heartbeat sends HEARTBEAT over the given session and confirms the peer
// answered with HEARTBEAT_ACK.
func (r *Requester) Heartbeat(ctx context.Context, sessionID uint32) error {
	c := r.Ctx
	slot, ok := c.Sessions.GetSessionByID(sessionID)
	if !ok {
		return spdmerr.New(spdmerr.InvalidState, "unknown session id")
	}
	buf := make([]byte, wire.HeaderSize+2)
	w := wire.NewWriter(buf)
	wire.HeartbeatRequest{}.Encode(&c.Negotiate, w)
	if err := c.sendSecuredMessage(ctx, slot, w.Bytes(), true); err != nil {
		return err
	}
	plain, err := c.receiveSecuredMessage(ctx, slot, false)
	if err != nil {
		return err
	}
	hdr, _, err := wire.PeekHeader(plain)
	if err != nil {
		return err
	}
	if hdr.Code != spdmconst.CodeHeartbeatAck {
		return unexpectedCode(hdr.Code)
	}
	return nil
}

// KeyUpdate runs the two-phase response-direction key rotation: an
// UPDATE_KEY (or UPDATE_ALL_KEYS) request, then a VERIFY_NEW_KEY
// confirmation once traffic under the new key is observed to work. The
// local response-direction key rolls forward before UPDATE_KEY is sent, in
// step with the Responder; it is committed after VERIFY_NEW_KEY is
// acknowledged and rolled back if either exchange fails.
func (r *Requester) KeyUpdate(ctx context.Context, sessionID uint32, updateAll bool) error {
	c := r.Ctx
	slot, ok := c.Sessions.GetSessionByID(sessionID)
	if !ok {
		return spdmerr.New(spdmerr.InvalidState, "unknown session id")
	}
	op := uint8(wire.KeyUpdateOperationUpdateKey)
	if updateAll {
		op = wire.KeyUpdateOperationUpdateAllKeys
	}
	tag := randomStruct().Data[0]

	if _, err := slot.BeginKeyUpdate(); err != nil {
		return err
	}
	if err := r.sendKeyUpdate(ctx, slot, op, tag); err != nil {
		slot.RollbackKeyUpdate()
		return err
	}

	if err := r.sendKeyUpdate(ctx, slot, wire.KeyUpdateOperationVerifyNewKey, tag); err != nil {
		slot.RollbackKeyUpdate()
		return err
	}
	slot.CommitKeyUpdate()
	return nil
}

func (r *Requester) sendKeyUpdate(ctx context.Context, slot *session.Slot, operation, tag uint8) error {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize)
	w := wire.NewWriter(buf)
	wire.KeyUpdateRequest{Operation: operation, Tag: tag}.Encode(&c.Negotiate, w)
	if err := c.sendSecuredMessage(ctx, slot, w.Bytes(), true); err != nil {
		return err
	}
	plain, err := c.receiveSecuredMessage(ctx, slot, false)
	if err != nil {
		return err
	}
	hdr, _, err := wire.PeekHeader(plain)
	if err != nil {
		return err
	}
	if hdr.Code != spdmconst.CodeKeyUpdateAck {
		return unexpectedCode(hdr.Code)
	}
	ack := wire.DecodeKeyUpdateRequest(hdr)
	if ack.Operation != operation || ack.Tag != tag {
		return spdmerr.New(spdmerr.InvalidState, "key update ack does not match request")
	}
	return nil
}

func unexpectedCode(code spdmconst.RequestResponseCode) error {
	return spdmerr.New(spdmerr.InvalidState, "unexpected response code "+code.String())
}

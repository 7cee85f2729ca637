package engine

import (
	"context"
	"sync/atomic"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/session"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
	"github.com/dmtf/spdm-core/wire"
)

// Responder is the attester role: Serve is the single entrypoint,
// dispatching each inbound frame to its handler from one of two tables
// depending on whether the frame arrived on the unsecured leg or inside an
// established session.
//
// One Responder serves one peer connection. A connection carries at most
// one session at a time in this implementation: the transport layer here
// does not surface a cleartext session id ahead of decryption, so the
// responder tracks the single most recently established slot as "active"
// rather than demultiplexing by session id. This is a scope simplification,
// not a protocol requirement — a multi-session transport binding would
// thread the session id through TransportEncap.Decap instead.
type Responder struct {
	Ctx              *Context
	active           *session.Slot
	nextRspSessionID uint32
}

func NewResponder(c *Context) *Responder { return &Responder{Ctx: c} }

func (r *Responder) nextSessionID() uint16 {
	n := atomic.AddUint32(&r.nextRspSessionID, 1)
	return uint16(n & 0xffff)
}

// Serve blocks for one inbound transport frame, dispatches it, and sends
// back whatever the handler produced (a response or an ERROR frame).
func (r *Responder) Serve(ctx context.Context) error {
	c := r.Ctx
	raw := make([]byte, c.TransportSize)
	n, err := c.DeviceIo.Receive(ctx, raw)
	if err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "receive", err)
	}
	spdmOut := make([]byte, c.BufferSize)
	used, secured, err := c.TransportEncap.Decap(raw[:n], spdmOut)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decap", err)
	}

	if secured {
		return r.serveSecured(ctx, spdmOut[:used])
	}
	return r.serveUnsecured(ctx, spdmOut[:used])
}

func (r *Responder) serveUnsecured(ctx context.Context, reqBytes []byte) error {
	c := r.Ctx
	respBytes, err := r.dispatchUnsecured(reqBytes)
	if err != nil {
		respBytes = r.errorFrame(err)
	}
	return c.sendMessage(ctx, respBytes)
}

func (r *Responder) serveSecured(ctx context.Context, appFramed []byte) error {
	c := r.Ctx
	if r.active == nil {
		return spdmerr.New(spdmerr.InvalidState, "secured message with no active session")
	}
	slot := r.active
	sealed := make([]byte, c.BufferSize)
	usedApp, err := c.TransportEncap.DecapApp(appFramed, sealed)
	if err != nil {
		return spdmerr.Wrap(spdmerr.DecodeFailure, "decap_app", err)
	}
	sealed = sealed[:usedApp]
	tagSize := 16
	if len(sealed) < tagSize {
		return spdmerr.New(spdmerr.DecodeFailure, "sealed record too short")
	}
	seq, err := slot.NextRequestSeq()
	if err != nil {
		return err
	}
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]
	plain, ok := cryptoreg.GetAead().Decrypt(slot.Crypto.AeadAlgo, slot.ReqDataKeys.AeadKey, slot.RequestIV(seq), sessionIDBytes(slot.SessionID), ct, tag)
	if !ok {
		return spdmerr.WithCode(spdmerr.CryptoFailure, 0x06, "aead open failed")
	}

	respPlain, err := r.dispatchSecured(slot, plain)
	if err != nil {
		respPlain = r.errorFrame(err)
	}
	return c.sendSecuredMessage(ctx, slot, respPlain, false)
}

func (r *Responder) dispatchUnsecured(reqBytes []byte) ([]byte, error) {
	hdr, rr, err := wire.PeekHeader(reqBytes)
	if err != nil {
		return nil, err
	}
	switch hdr.Code {
	case spdmconst.CodeGetVersion:
		return r.handleGetVersion(reqBytes)
	case spdmconst.CodeGetCapabilities:
		return r.handleGetCapabilities(reqBytes, hdr, rr)
	case spdmconst.CodeNegotiateAlgorithms:
		return r.handleNegotiateAlgorithms(reqBytes, rr)
	case spdmconst.CodeGetDigests:
		return r.handleGetDigests(reqBytes)
	case spdmconst.CodeGetCertificate:
		return r.handleGetCertificate(hdr, rr)
	case spdmconst.CodeChallenge:
		return r.handleChallenge(reqBytes, hdr, rr)
	case spdmconst.CodeGetMeasurements:
		return r.handleGetMeasurements(hdr, rr)
	case spdmconst.CodeKeyExchange:
		return r.handleKeyExchange(reqBytes, hdr, rr)
	case spdmconst.CodePskExchange:
		return r.handlePskExchange(reqBytes, hdr, rr)
	default:
		return nil, wire.ErrUnknownCode()
	}
}

func (r *Responder) dispatchSecured(slot *session.Slot, plain []byte) ([]byte, error) {
	hdr, rr, err := wire.PeekHeader(plain)
	if err != nil {
		return nil, err
	}
	switch hdr.Code {
	case spdmconst.CodeFinish:
		return r.handleFinish(slot, plain, hdr, rr)
	case spdmconst.CodePskFinish:
		return r.handlePskFinish(slot, plain, rr)
	case spdmconst.CodeHeartbeat:
		return r.handleHeartbeat()
	case spdmconst.CodeKeyUpdate:
		return r.handleKeyUpdate(slot, hdr)
	case spdmconst.CodeEndSession:
		return r.handleEndSession(slot)
	default:
		return nil, wire.ErrUnknownCode()
	}
}

// errorFrame converts any error into the wire ERROR frame bytes to
// transmit. ResponseNotReady/VendorDefined extension data is never
// synthesized here — those require an explicit caller decision, not a
// generic error mapping.
func (r *Responder) errorFrame(err error) []byte {
	c := r.Ctx
	code := spdmconst.ErrorUnspecified
	if e, ok := err.(interface{ WireCode() spdmconst.ErrorCode }); ok {
		code = e.WireCode()
	}
	buf := make([]byte, wire.HeaderSize)
	w := wire.NewWriter(buf)
	wire.ErrorResponse{Code: code, Ext: wire.NoneExtData{}}.Encode(&c.Negotiate, w)
	return w.Bytes()
}

// --- unsecured handlers ---

func (r *Responder) handleGetVersion(reqBytes []byte) ([]byte, error) {
	c := r.Ctx
	if err := c.Transcripts.MessageA.Append(reqBytes); err != nil {
		return nil, err
	}
	resp := wire.VersionResponse{Entries: []wire.VersionEntry{
		{Version: spdmconst.Version10}, {Version: spdmconst.Version11},
	}}
	buf := make([]byte, wire.HeaderSize+2+2*2)
	w := wire.NewWriter(buf)
	resp.Encode(w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (r *Responder) handleGetCapabilities(reqBytes []byte, hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeGetCapabilitiesRequest(rr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode GET_CAPABILITIES", err)
	}
	c.Negotiate.ReqCapabilitiesSel = req.Flags
	if err := c.Transcripts.MessageA.Append(reqBytes); err != nil {
		return nil, err
	}
	resp := wire.CapabilitiesResponse{Flags: c.Negotiate.RspCapabilitiesSel}
	buf := make([]byte, wire.HeaderSize+4)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (r *Responder) handleNegotiateAlgorithms(reqBytes []byte, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeNegotiateAlgorithmsRequest(rr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode NEGOTIATE_ALGORITHMS", err)
	}
	if err := c.Transcripts.MessageA.Append(reqBytes); err != nil {
		return nil, err
	}
	// Intersection policy: each pick* walks a fixed strongest-first
	// preference list and selects the first entry the requester offered.
	c.Negotiate.BaseHashSel = pickHash(req.BaseHashAlgo)
	c.Negotiate.BaseAsymSel = pickAsym(req.BaseAsymAlgo)
	c.Negotiate.DheSel = pickDhe(req.DheGroups)
	c.Negotiate.AeadSel = pickAead(req.AeadAlgos)
	c.Negotiate.KeyScheduleSel = spdmconst.KeyScheduleSpdm
	c.Negotiate.MeasurementHash = pickMeasurementHash(req.MeasurementHash)

	resp := wire.AlgorithmsResponse{
		MeasurementSpec: req.MeasurementSpec,
		MeasurementHash: c.Negotiate.MeasurementHash,
		BaseAsymSel:     c.Negotiate.BaseAsymSel,
		BaseHashSel:     c.Negotiate.BaseHashSel,
		DheSel:          c.Negotiate.DheSel,
		AeadSel:         c.Negotiate.AeadSel,
		KeyScheduleSel:  c.Negotiate.KeyScheduleSel,
	}
	buf := make([]byte, wire.HeaderSize+32)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageA.Append(w.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func pickHash(offered spdmconst.BaseHashAlgo) spdmconst.BaseHashAlgo {
	for _, a := range []spdmconst.BaseHashAlgo{spdmconst.HashSha512, spdmconst.HashSha384, spdmconst.HashSha256} {
		if offered&a != 0 {
			return a
		}
	}
	return 0
}

func pickAsym(offered spdmconst.BaseAsymAlgo) spdmconst.BaseAsymAlgo {
	for _, a := range []spdmconst.BaseAsymAlgo{spdmconst.AsymEcdsaP521, spdmconst.AsymEcdsaP384, spdmconst.AsymEcdsaP256, spdmconst.AsymRsaSsa4096, spdmconst.AsymRsaSsa3072, spdmconst.AsymRsaSsa2048} {
		if offered&a != 0 {
			return a
		}
	}
	return 0
}

func pickDhe(offered spdmconst.DheGroup) spdmconst.DheGroup {
	for _, g := range []spdmconst.DheGroup{spdmconst.DheSecp521R1, spdmconst.DheSecp384R1, spdmconst.DheSecp256R1} {
		if offered&g != 0 {
			return g
		}
	}
	return 0
}

func pickAead(offered spdmconst.AeadAlgo) spdmconst.AeadAlgo {
	for _, a := range []spdmconst.AeadAlgo{spdmconst.AeadAes256Gcm, spdmconst.AeadChaCha20Poly1305, spdmconst.AeadAes128Gcm} {
		if offered&a != 0 {
			return a
		}
	}
	return 0
}

func pickMeasurementHash(offered spdmconst.MeasurementHashAlgo) spdmconst.MeasurementHashAlgo {
	for _, a := range []spdmconst.MeasurementHashAlgo{spdmconst.MeasurementHashSha512, spdmconst.MeasurementHashSha384, spdmconst.MeasurementHashSha256} {
		if offered&a != 0 {
			return a
		}
	}
	return spdmconst.MeasurementHashRaw
}

func (r *Responder) handleGetDigests(reqBytes []byte) ([]byte, error) {
	c := r.Ctx
	if err := c.Transcripts.MessageB.Append(reqBytes); err != nil {
		return nil, err
	}
	var mask uint8
	digests := make([]wire.DigestStruct, 0, len(c.Trust.SlotCertChains))
	for slot := uint8(0); slot < 8; slot++ {
		chain, ok := c.Trust.SlotCertChains[slot]
		if !ok {
			continue
		}
		digest, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, chain)
		if !ok {
			return nil, spdmerr.New(spdmerr.CryptoFailure, "digest hash failed")
		}
		mask |= 1 << slot
		digests = append(digests, wire.NewDigest(digest))
	}
	resp := wire.DigestsResponse{SlotMask: mask, Digests: digests}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	if err := c.Transcripts.MessageB.Append(w.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (r *Responder) handleGetCertificate(hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeGetCertificateRequest(rr, hdr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode GET_CERTIFICATE", err)
	}
	chain, ok := c.Trust.SlotCertChains[req.SlotID]
	if !ok {
		return nil, spdmerr.New(spdmerr.InvalidParameter, "unprovisioned certificate slot")
	}
	end := int(req.Offset) + int(req.Length)
	if end > len(chain) {
		end = len(chain)
	}
	portion := chain[req.Offset:end]
	resp := wire.CertificateResponse{
		SlotID: req.SlotID, PortionLength: uint16(len(portion)),
		RemainderLength: uint16(len(chain) - end), CertChain: portion,
	}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	return w.Bytes(), nil
}

// handleChallenge implements the side-effect ordering invariant for the
// first of the three signature-bearing responses: encode with a
// placeholder signature, hash the placeholder-free prefix into message_c,
// sign, patch, append the final bytes, then transmit.
func (r *Responder) handleChallenge(reqBytes []byte, hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeChallengeRequest(rr, hdr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode CHALLENGE", err)
	}
	chain, ok := c.Trust.SlotCertChains[req.SlotID]
	if !ok {
		return nil, spdmerr.New(spdmerr.InvalidParameter, "unprovisioned certificate slot")
	}
	certHash, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, chain)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "cert chain hash failed")
	}
	summary := r.measurementSummaryHash(req.MeasurementSummaryHashType)

	c.Transcripts.ResetForNewSession()
	if err := c.Transcripts.MessageC.Append(reqBytes); err != nil {
		return nil, err
	}

	hashSize := c.Negotiate.HashSize()
	asymSize := c.Negotiate.AsymSize()
	resp := wire.ChallengeAuthResponse{
		SlotID: req.SlotID, CertChainHash: wire.NewDigest(certHash), Nonce: randomNonce(),
		MeasurementSummaryHash: wire.NewDigest(summary),
		Signature:              wire.NewSignature(make([]byte, asymSize)),
	}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	full := w.Bytes()

	offSignature := wire.HeaderSize + hashSize + 32 + hashSize + 2 + len(resp.Opaque.Bytes())
	if err := c.Transcripts.MessageC.Append(full[:offSignature]); err != nil {
		return nil, err
	}
	prefixHash, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, c.Transcripts.MessageC.Bytes())
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "challenge transcript hash failed")
	}
	sig, ok := cryptoreg.GetAsymSign().Sign(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.PrivateKey, prefixHash)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "challenge signing failed")
	}
	w.PatchAt(offSignature, sig)
	if err := c.Transcripts.MessageC.Append(sig); err != nil {
		return nil, err
	}
	return full, nil
}

func (r *Responder) measurementSummaryHash(t spdmconst.MeasurementSummaryHashType) []byte {
	c := r.Ctx
	hashSize := c.Negotiate.HashSize()
	if t == spdmconst.SummaryHashNone {
		return make([]byte, hashSize)
	}
	digest, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, []byte{})
	if !ok {
		return make([]byte, hashSize)
	}
	return digest
}

func randomNonce() [32]byte {
	return randomStruct().Data
}

// handleGetMeasurements implements the side-effect ordering invariant for
// the third signature-bearing response, whose signature is present only
// when the request carried an attestation nonce.
func (r *Responder) handleGetMeasurements(hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeGetMeasurementsRequest(rr, hdr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode GET_MEASUREMENTS", err)
	}
	record := c.measurementRecord(req.Operation)
	numberOfBlocks := uint8(len(record.Blocks))
	if req.Operation == wire.MeasurementOperationTotalNumber {
		numberOfBlocks = uint8(len(c.Measurements))
	}

	resp := wire.MeasurementsResponse{
		NumberOfBlocks: numberOfBlocks, Record: record,
		HasSignature: req.AttestationRequested,
	}
	if req.AttestationRequested {
		resp.Nonce = req.Nonce
		resp.Signature = wire.NewSignature(make([]byte, c.Negotiate.AsymSize()))
	}

	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	full := w.Bytes()

	if !req.AttestationRequested {
		return full, nil
	}

	offSignature := len(full) - c.Negotiate.AsymSize()
	if err := c.MeasurementTranscript.Append(full[:offSignature]); err != nil {
		return nil, err
	}
	l2, ok := cryptoreg.GetHash().HashAll(c.Negotiate.BaseHashSel, c.MeasurementTranscript.Bytes())
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "measurement transcript hash failed")
	}
	sig, ok := cryptoreg.GetAsymSign().Sign(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.PrivateKey, l2)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "measurement signing failed")
	}
	w.PatchAt(offSignature, sig)
	return full, nil
}

// handleKeyExchange implements the side-effect ordering invariant for the
// second signature-bearing response, which additionally carries an HMAC:
// the engine patches measurement_summary_hash, signature and verify_data
// in place, in that order, before transmitting.
func (r *Responder) handleKeyExchange(reqBytes []byte, hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeKeyExchangeRequest(rr, hdr, &c.Negotiate)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode KEY_EXCHANGE", err)
	}
	slot, ok := c.Sessions.GetNextAvailableSession()
	if !ok {
		return nil, spdmerr.New(spdmerr.SessionExhausted, "no available session slot")
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
		return nil, spdmerr.New(spdmerr.Unsupported, "dhe group unsupported")
	}
	finalKey, ok := priv.ComputeFinalKey(req.Exchange.Bytes())
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "dhe final key computation failed")
	}
	slot.SetDheSecret(finalKey)

	rspSessionID := r.nextSessionID()
	sessionID := (uint32(req.ReqSessionID) << 16) | uint32(rspSessionID)
	if err := slot.Setup(sessionID); err != nil {
		return nil, err
	}

	hashSize := c.Negotiate.HashSize()
	asymSize := c.Negotiate.AsymSize()
	summary := r.measurementSummaryHash(req.MeasurementSummaryHashType)

	resp := wire.KeyExchangeRspResponse{
		RspSessionID: rspSessionID, ReqSlotID: req.SlotID,
		Random: randomStruct(), Exchange: wire.NewDheExchange(pub),
		MeasurementSummaryHash: wire.NewDigest(make([]byte, hashSize)),
		Signature:              wire.NewSignature(make([]byte, asymSize)),
		VerifyData:             wire.NewDigest(make([]byte, hashSize)),
	}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	full := w.Bytes()

	offSummary := wire.HeaderSize + 4 + 32 + c.Negotiate.DheSize()
	offOpaque := offSummary + hashSize
	offSignature := offOpaque + 2 + len(resp.Opaque.Bytes())
	offVerify := offSignature + asymSize

	w.PatchAt(offSummary, summary)
	if err := slot.Runtime.MessageK.Append(reqBytes); err != nil {
		return nil, err
	}
	if err := slot.Runtime.MessageK.Append(full[:offSignature]); err != nil {
		return nil, err
	}

	th1, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return nil, err
	}
	if err := slot.GenerateHandshakeSecret(th1); err != nil {
		return nil, err
	}

	sig, ok := cryptoreg.GetAsymSign().Sign(c.Negotiate.BaseHashSel, c.Negotiate.BaseAsymSel, c.Trust.PrivateKey, th1)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "key exchange signing failed")
	}
	w.PatchAt(offSignature, sig)
	if err := slot.Runtime.MessageK.Append(sig); err != nil {
		return nil, err
	}

	th1b, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return nil, err
	}
	mac, ok := slot.GenerateHmacWithFinishedKey(th1b, false)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "key exchange hmac generation failed")
	}
	w.PatchAt(offVerify, mac)
	if err := slot.Runtime.MessageK.Append(mac); err != nil {
		return nil, err
	}

	r.active = slot
	return full, nil
}

func (r *Responder) handlePskExchange(reqBytes []byte, hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodePskExchangeRequest(rr, hdr)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode PSK_EXCHANGE", err)
	}
	slot, ok := c.Sessions.GetNextAvailableSession()
	if !ok {
		return nil, spdmerr.New(spdmerr.SessionExhausted, "no available session slot")
	}
	slot.UsePsk = true
	slot.Crypto = session.CryptoParams{HashAlgo: c.Negotiate.BaseHashSel, AeadAlgo: c.Negotiate.AeadSel, KeyScheduleAlgo: c.Negotiate.KeyScheduleSel}

	rspSessionID := r.nextSessionID()
	sessionID := (uint32(req.ReqSessionID) << 16) | uint32(rspSessionID)
	if err := slot.Setup(sessionID); err != nil {
		return nil, err
	}
	slot.SetDheSecret(c.PskKey)

	hashSize := c.Negotiate.HashSize()
	summary := r.measurementSummaryHash(req.MeasurementSummaryHashType)
	resp := wire.PskExchangeRspResponse{
		RspSessionID:           rspSessionID,
		MeasurementSummaryHash: wire.NewDigest(summary),
		VerifyData:             wire.NewDigest(make([]byte, hashSize)),
	}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	full := w.Bytes()
	offVerify := len(full) - hashSize

	if err := slot.Runtime.MessageK.Append(reqBytes); err != nil {
		return nil, err
	}
	if err := slot.Runtime.MessageK.Append(full[:offVerify]); err != nil {
		return nil, err
	}

	th1, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return nil, err
	}
	if err := slot.GenerateHandshakeSecret(th1); err != nil {
		return nil, err
	}
	mac, ok := slot.GenerateHmacWithFinishedKey(th1, false)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "psk exchange hmac generation failed")
	}
	w.PatchAt(offVerify, mac)
	if err := slot.Runtime.MessageK.Append(mac); err != nil {
		return nil, err
	}

	r.active = slot
	return full, nil
}

// --- secured handlers ---

func (r *Responder) handleFinish(slot *session.Slot, plain []byte, hdr wire.Header, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodeFinishRequest(rr, hdr, &c.Negotiate)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode FINISH", err)
	}
	bodyEnd := len(plain) - int(req.VerifyData.DataSize)
	if err := slot.Runtime.MessageF.Append(plain[:bodyEnd]); err != nil {
		return nil, err
	}
	th2, err := transcriptFinishHash(c, slot, nil)
	if err != nil {
		return nil, err
	}
	if !cryptoreg.GetHmac().HmacVerify(c.Negotiate.BaseHashSel, slot.ReqHandshakeKeys.FinishedKey, th2, req.VerifyData.Bytes()) {
		slot.Teardown()
		return nil, spdmerr.New(spdmerr.CryptoFailure, "finish hmac verification failed")
	}
	if err := slot.Runtime.MessageF.Append(req.VerifyData.Bytes()); err != nil {
		return nil, err
	}

	th2b, err := transcriptFinishHash(c, slot, nil)
	if err != nil {
		return nil, err
	}
	mac, ok := slot.GenerateHmacWithFinishedKey(th2b, false)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "finish rsp hmac generation failed")
	}
	resp := wire.FinishRspResponse{HasVerifyData: true, VerifyData: wire.NewDigest(mac)}
	buf := make([]byte, c.BufferSize)
	w := wire.NewWriter(buf)
	resp.Encode(&c.Negotiate, w)
	if err := slot.Runtime.MessageF.Append(w.Bytes()); err != nil {
		return nil, err
	}
	if err := slot.CompleteHandshake(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (r *Responder) handlePskFinish(slot *session.Slot, plain []byte, rr *wire.Reader) ([]byte, error) {
	c := r.Ctx
	req, err := wire.DecodePskFinishRequest(rr, &c.Negotiate)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decode PSK_FINISH", err)
	}
	bodyEnd := len(plain) - int(req.VerifyData.DataSize)
	if err := slot.Runtime.MessageF.Append(plain[:bodyEnd]); err != nil {
		return nil, err
	}
	th1b, err := transcriptHandshakeHash(c, slot)
	if err != nil {
		return nil, err
	}
	if !cryptoreg.GetHmac().HmacVerify(c.Negotiate.BaseHashSel, slot.ReqHandshakeKeys.FinishedKey, th1b, req.VerifyData.Bytes()) {
		slot.Teardown()
		return nil, spdmerr.New(spdmerr.CryptoFailure, "psk finish hmac verification failed")
	}
	if err := slot.Runtime.MessageF.Append(req.VerifyData.Bytes()); err != nil {
		return nil, err
	}
	if err := slot.CompleteHandshake(); err != nil {
		return nil, err
	}
	buf := make([]byte, wire.HeaderSize)
	w := wire.NewWriter(buf)
	wire.PskFinishRspResponse{}.Encode(&c.Negotiate, w)
	return w.Bytes(), nil
}

func (r *Responder) handleHeartbeat() ([]byte, error) {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize+2)
	w := wire.NewWriter(buf)
	wire.HeartbeatAckResponse{}.Encode(&c.Negotiate, w)
	return w.Bytes(), nil
}

func (r *Responder) handleKeyUpdate(slot *session.Slot, hdr wire.Header) ([]byte, error) {
	c := r.Ctx
	req := wire.DecodeKeyUpdateRequest(hdr)
	switch req.Operation {
	case wire.KeyUpdateOperationUpdateKey, wire.KeyUpdateOperationUpdateAllKeys:
		if _, err := slot.BeginKeyUpdate(); err != nil {
			return nil, err
		}
	case wire.KeyUpdateOperationVerifyNewKey:
		slot.CommitKeyUpdate()
	default:
		return nil, spdmerr.New(spdmerr.InvalidParameter, "unknown key update operation")
	}
	buf := make([]byte, wire.HeaderSize)
	w := wire.NewWriter(buf)
	wire.KeyUpdateAckResponse{Operation: req.Operation, Tag: req.Tag}.Encode(&c.Negotiate, w)
	return w.Bytes(), nil
}

func (r *Responder) handleEndSession(slot *session.Slot) ([]byte, error) {
	c := r.Ctx
	buf := make([]byte, wire.HeaderSize)
	w := wire.NewWriter(buf)
	wire.EndSessionAckResponse{}.Encode(&c.Negotiate, w)
	out := w.Bytes()
	slot.Teardown()
	if r.active == slot {
		r.active = nil
	}
	return out, nil
}

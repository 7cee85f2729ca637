package engine

import (
	"context"

	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/session"
	"github.com/dmtf/spdm-core/spdmerr"
)

// sendMessage transport-encapsulates an unsecured SPDM message and writes
// it to the device.
func (c *Context) sendMessage(ctx context.Context, spdmBytes []byte) error {
	out := make([]byte, c.TransportSize)
	used, err := c.TransportEncap.Encap(spdmBytes, out, false)
	if err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "encap", err)
	}
	return c.DeviceIo.Send(ctx, out[:used])
}

// receiveMessage blocks for one transport frame and decapsulates it,
// rejecting frames flagged as secured (callers expecting an unsecured leg
// must not silently accept a secured one).
func (c *Context) receiveMessage(ctx context.Context) ([]byte, error) {
	raw := make([]byte, c.TransportSize)
	n, err := c.DeviceIo.Receive(ctx, raw)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.IoFailure, "receive", err)
	}
	spdmOut := make([]byte, c.BufferSize)
	used, secured, err := c.TransportEncap.Decap(raw[:n], spdmOut)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decap", err)
	}
	if secured {
		return nil, spdmerr.New(spdmerr.InvalidState, "expected unsecured message, got secured")
	}
	return spdmOut[:used], nil
}

// sendSecuredMessage AEAD-seals appBytes under the session's response (or
// request, for the Requester) direction keys, then transport-encapsulates
// with the secured bit set.
func (c *Context) sendSecuredMessage(ctx context.Context, slot *session.Slot, appBytes []byte, isRequestDirection bool) error {
	var seq uint64
	var key, iv []byte
	var err error
	if isRequestDirection {
		seq, err = slot.NextRequestSeq()
		key = slot.ReqDataKeys.AeadKey
		iv = slot.RequestIV(seq)
	} else {
		seq, err = slot.NextResponseSeq()
		key = slot.RspDataKeys.AeadKey
		iv = slot.ResponseIV(seq)
	}
	if err != nil {
		return err
	}
	aad := sessionIDBytes(slot.SessionID)
	ct, tag, ok := cryptoreg.GetAead().Encrypt(slot.Crypto.AeadAlgo, key, iv, aad, appBytes)
	if !ok {
		return spdmerr.WithCode(spdmerr.CryptoFailure, 0x06, "aead seal failed")
	}
	sealed := append(append([]byte(nil), ct...), tag...)

	encapOut := make([]byte, c.TransportSize)
	appOut := make([]byte, c.BufferSize)
	usedApp, err := c.TransportEncap.EncapApp(sealed, appOut)
	if err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "encap_app", err)
	}
	used, err := c.TransportEncap.Encap(appOut[:usedApp], encapOut, true)
	if err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "encap", err)
	}
	return c.DeviceIo.Send(ctx, encapOut[:used])
}

func (c *Context) receiveSecuredMessage(ctx context.Context, slot *session.Slot, isRequestDirection bool) ([]byte, error) {
	raw := make([]byte, c.TransportSize)
	n, err := c.DeviceIo.Receive(ctx, raw)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.IoFailure, "receive", err)
	}
	appFramed := make([]byte, c.BufferSize)
	used, secured, err := c.TransportEncap.Decap(raw[:n], appFramed)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decap", err)
	}
	if !secured {
		return nil, spdmerr.New(spdmerr.InvalidState, "expected secured message, got unsecured")
	}
	sealed := make([]byte, c.BufferSize)
	usedApp, err := c.TransportEncap.DecapApp(appFramed[:used], sealed)
	if err != nil {
		return nil, spdmerr.Wrap(spdmerr.DecodeFailure, "decap_app", err)
	}
	sealed = sealed[:usedApp]

	var seq uint64
	var key, iv []byte
	if isRequestDirection {
		seq, err = slot.NextRequestSeq()
		key = slot.ReqDataKeys.AeadKey
		iv = slot.RequestIV(seq)
	} else {
		seq, err = slot.NextResponseSeq()
		key = slot.RspDataKeys.AeadKey
		iv = slot.ResponseIV(seq)
	}
	if err != nil {
		return nil, err
	}
	tagSize := 16
	if len(sealed) < tagSize {
		return nil, spdmerr.New(spdmerr.DecodeFailure, "sealed record too short")
	}
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]
	aad := sessionIDBytes(slot.SessionID)
	plain, ok := cryptoreg.GetAead().Decrypt(slot.Crypto.AeadAlgo, key, iv, aad, ct, tag)
	if !ok {
		return nil, spdmerr.WithCode(spdmerr.CryptoFailure, 0x06, "aead open failed")
	}
	return plain, nil
}

func sessionIDBytes(id uint32) []byte {
	return []byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
}

package session

import (
	"github.com/dmtf/spdm-core/cryptoreg"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
)

var (
	labelReqHsData    = []byte("req hs data")
	labelRspHsData    = []byte("rsp hs data")
	labelDeriveMaster = []byte("derive master")
	labelReqDataData  = []byte("req app data")
	labelRspDataData  = []byte("rsp app data")
	labelFinished     = []byte("finished")
	labelKeyUpdate    = []byte("key update")
)

func hkdfExpandLabel(hashAlgo spdmconst.BaseHashAlgo, prk, label []byte, outSize int) ([]byte, error) {
	out, ok := cryptoreg.GetHkdf().Expand(hashAlgo, prk, label, outSize)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "hkdf expand failed")
	}
	return out, nil
}

// DeriveHandshakeSecret implements step 2 of the key schedule:
// handshake_secret = HKDF-Extract(salt = th1, dhe_secret).
func DeriveHandshakeSecret(hashAlgo spdmconst.BaseHashAlgo, dheSecret, th1 []byte) ([]byte, error) {
	secret, ok := cryptoreg.GetHkdf().Extract(hashAlgo, th1, dheSecret)
	if !ok {
		return nil, spdmerr.New(spdmerr.CryptoFailure, "hkdf extract failed")
	}
	return secret, nil
}

// DeriveDirectionHandshakeKeys implements step 3: request/response
// handshake keys derive from handshake_secret with direction-specific
// labels, expanded to {aead_key, aead_iv, finished_key}.
func DeriveDirectionHandshakeKeys(hashAlgo spdmconst.BaseHashAlgo, aeadAlgo spdmconst.AeadAlgo, handshakeSecret []byte, isRequest bool) (DirectionKeys, error) {
	label := labelRspHsData
	if isRequest {
		label = labelReqHsData
	}
	directionSecret, err := hkdfExpandLabel(hashAlgo, handshakeSecret, label, hashAlgo.Size())
	if err != nil {
		return DirectionKeys{}, err
	}
	return expandDirectionKeys(hashAlgo, aeadAlgo, directionSecret)
}

func expandDirectionKeys(hashAlgo spdmconst.BaseHashAlgo, aeadAlgo spdmconst.AeadAlgo, directionSecret []byte) (DirectionKeys, error) {
	aeadKey, err := hkdfExpandLabel(hashAlgo, directionSecret, []byte("key"), aeadAlgo.KeySize())
	if err != nil {
		return DirectionKeys{}, err
	}
	aeadIV, err := hkdfExpandLabel(hashAlgo, directionSecret, []byte("iv"), aeadAlgo.IVSize())
	if err != nil {
		return DirectionKeys{}, err
	}
	finishedKey, err := hkdfExpandLabel(hashAlgo, directionSecret, labelFinished, hashAlgo.Size())
	if err != nil {
		return DirectionKeys{}, err
	}
	return DirectionKeys{AeadKey: aeadKey, AeadIV: aeadIV, FinishedKey: finishedKey}, nil
}

// DeriveMasterSecret implements step 4: master_secret = HKDF(handshake_secret, "derive master"),
// computed after Finish succeeds.
func DeriveMasterSecret(hashAlgo spdmconst.BaseHashAlgo, handshakeSecret []byte) ([]byte, error) {
	return hkdfExpandLabel(hashAlgo, handshakeSecret, labelDeriveMaster, hashAlgo.Size())
}

// DeriveDataKeys derives the post-handshake application data keys for one
// direction from master_secret.
func DeriveDataKeys(hashAlgo spdmconst.BaseHashAlgo, aeadAlgo spdmconst.AeadAlgo, masterSecret []byte, isRequest bool) (DirectionKeys, error) {
	label := labelRspDataData
	if isRequest {
		label = labelReqDataData
	}
	directionSecret, err := hkdfExpandLabel(hashAlgo, masterSecret, label, hashAlgo.Size())
	if err != nil {
		return DirectionKeys{}, err
	}
	return expandDirectionKeys(hashAlgo, aeadAlgo, directionSecret)
}

// UpdateKey implements the first phase of KeyUpdate: new = HKDF(current, "key update").
// The caller holds the old key as the rollback value until VerifyNewKey
// commits (see Slot.BeginKeyUpdate/CommitKeyUpdate).
func UpdateKey(hashAlgo spdmconst.BaseHashAlgo, aeadAlgo spdmconst.AeadAlgo, current DirectionKeys) (DirectionKeys, error) {
	newKey, err := hkdfExpandLabel(hashAlgo, current.AeadKey, labelKeyUpdate, aeadAlgo.KeySize())
	if err != nil {
		return DirectionKeys{}, err
	}
	newIV, err := hkdfExpandLabel(hashAlgo, current.AeadIV, labelKeyUpdate, aeadAlgo.IVSize())
	if err != nil {
		return DirectionKeys{}, err
	}
	return DirectionKeys{AeadKey: newKey, AeadIV: newIV}, nil
}

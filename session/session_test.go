package session

import (
	"bytes"
	"testing"

	_ "github.com/dmtf/spdm-core/cryptoreg/stdcrypto"
	"github.com/dmtf/spdm-core/spdmconst"
)

func TestKeyScheduleDerivationChain(t *testing.T) {
	hashAlgo := spdmconst.HashSha256
	aeadAlgo := spdmconst.AeadAes256Gcm
	dheSecret := bytes.Repeat([]byte{0x42}, 32)
	th1 := bytes.Repeat([]byte{0x11}, hashAlgo.Size())

	handshakeSecret, err := DeriveHandshakeSecret(hashAlgo, dheSecret, th1)
	if err != nil {
		t.Fatalf("DeriveHandshakeSecret: %v", err)
	}

	reqHs, err := DeriveDirectionHandshakeKeys(hashAlgo, aeadAlgo, handshakeSecret, true)
	if err != nil {
		t.Fatalf("DeriveDirectionHandshakeKeys(request): %v", err)
	}
	rspHs, err := DeriveDirectionHandshakeKeys(hashAlgo, aeadAlgo, handshakeSecret, false)
	if err != nil {
		t.Fatalf("DeriveDirectionHandshakeKeys(response): %v", err)
	}
	if bytes.Equal(reqHs.AeadKey, rspHs.AeadKey) {
		t.Error("request and response handshake keys must differ")
	}
	if len(reqHs.AeadKey) != aeadAlgo.KeySize() || len(reqHs.AeadIV) != aeadAlgo.IVSize() {
		t.Errorf("handshake key/IV sizes = (%d, %d), want (%d, %d)", len(reqHs.AeadKey), len(reqHs.AeadIV), aeadAlgo.KeySize(), aeadAlgo.IVSize())
	}

	master, err := DeriveMasterSecret(hashAlgo, handshakeSecret)
	if err != nil {
		t.Fatalf("DeriveMasterSecret: %v", err)
	}
	if bytes.Equal(master, handshakeSecret) {
		t.Error("master_secret must differ from handshake_secret")
	}

	reqData, err := DeriveDataKeys(hashAlgo, aeadAlgo, master, true)
	if err != nil {
		t.Fatalf("DeriveDataKeys(request): %v", err)
	}
	rspData, err := DeriveDataKeys(hashAlgo, aeadAlgo, master, false)
	if err != nil {
		t.Fatalf("DeriveDataKeys(response): %v", err)
	}
	if bytes.Equal(reqData.AeadKey, rspData.AeadKey) {
		t.Error("request and response data keys must differ")
	}
	if bytes.Equal(reqData.AeadKey, reqHs.AeadKey) {
		t.Error("data keys must differ from handshake keys")
	}
}

func TestKeyScheduleDerivationDeterministic(t *testing.T) {
	hashAlgo := spdmconst.HashSha384
	dheSecret := bytes.Repeat([]byte{0x07}, 48)
	th1 := bytes.Repeat([]byte{0x09}, hashAlgo.Size())

	a, err := DeriveHandshakeSecret(hashAlgo, dheSecret, th1)
	if err != nil {
		t.Fatalf("DeriveHandshakeSecret: %v", err)
	}
	b, err := DeriveHandshakeSecret(hashAlgo, dheSecret, th1)
	if err != nil {
		t.Fatalf("DeriveHandshakeSecret: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("handshake secret derivation must be deterministic for identical inputs")
	}
}

func TestUpdateKeyChangesKeyAndIV(t *testing.T) {
	hashAlgo := spdmconst.HashSha256
	aeadAlgo := spdmconst.AeadAes128Gcm
	current := DirectionKeys{
		AeadKey: bytes.Repeat([]byte{0xAA}, aeadAlgo.KeySize()),
		AeadIV:  bytes.Repeat([]byte{0xBB}, aeadAlgo.IVSize()),
	}
	next, err := UpdateKey(hashAlgo, aeadAlgo, current)
	if err != nil {
		t.Fatalf("UpdateKey: %v", err)
	}
	if bytes.Equal(next.AeadKey, current.AeadKey) {
		t.Error("UpdateKey must produce a new AEAD key")
	}
	if bytes.Equal(next.AeadIV, current.AeadIV) {
		t.Error("UpdateKey must produce a new AEAD IV")
	}
}

func newTestSlot() *Slot {
	return &Slot{
		State: spdmconst.SessionNotStarted,
		Crypto: CryptoParams{
			HashAlgo: spdmconst.HashSha256,
			AeadAlgo: spdmconst.AeadAes128Gcm,
		},
	}
}

func TestSlotSetupAndTeardown(t *testing.T) {
	s := newTestSlot()
	if err := s.Setup(0x0A0B0C0D); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if s.State != spdmconst.SessionHandshaking {
		t.Errorf("state after Setup = %v, want Handshaking", s.State)
	}
	if err := s.Setup(1); err == nil {
		t.Fatal("Setup on an already-active slot must fail")
	}

	s.Teardown()
	if s.State != spdmconst.SessionNotStarted {
		t.Errorf("state after Teardown = %v, want NotStarted", s.State)
	}
	if s.SessionID != 0 {
		t.Errorf("SessionID after Teardown = %v, want 0", s.SessionID)
	}
	if err := s.Setup(2); err != nil {
		t.Fatalf("Setup after Teardown: %v", err)
	}
}

func TestSlotHandshakeAndDataKeyLifecycle(t *testing.T) {
	s := newTestSlot()
	s.SetDheSecret(bytes.Repeat([]byte{0x05}, 32))

	th1 := bytes.Repeat([]byte{0x01}, s.Crypto.HashAlgo.Size())
	if err := s.GenerateHandshakeSecret(th1); err != nil {
		t.Fatalf("GenerateHandshakeSecret: %v", err)
	}
	if len(s.ReqHandshakeKeys.AeadKey) == 0 || len(s.RspHandshakeKeys.AeadKey) == 0 {
		t.Fatal("GenerateHandshakeSecret must populate both direction key sets")
	}

	mac, ok := s.GenerateHmacWithFinishedKey([]byte("th2"), false)
	if !ok {
		t.Fatal("GenerateHmacWithFinishedKey reported failure")
	}
	if len(mac) != s.Crypto.HashAlgo.Size() {
		t.Errorf("finished MAC size = %d, want %d", len(mac), s.Crypto.HashAlgo.Size())
	}

	if err := s.CompleteHandshake(); err != nil {
		t.Fatalf("CompleteHandshake: %v", err)
	}
	if s.State != spdmconst.SessionEstablished {
		t.Errorf("state after CompleteHandshake = %v, want Established", s.State)
	}
	if len(s.ReqDataKeys.AeadKey) == 0 || len(s.RspDataKeys.AeadKey) == 0 {
		t.Fatal("CompleteHandshake must populate both direction data key sets")
	}
}

func TestSlotKeyUpdateCommitAndRollback(t *testing.T) {
	s := newTestSlot()
	s.RspDataKeys = DirectionKeys{
		AeadKey: bytes.Repeat([]byte{0x01}, s.Crypto.AeadAlgo.KeySize()),
		AeadIV:  bytes.Repeat([]byte{0x02}, s.Crypto.AeadAlgo.IVSize()),
	}
	original := s.RspDataKeys

	next, err := s.BeginKeyUpdate()
	if err != nil {
		t.Fatalf("BeginKeyUpdate: %v", err)
	}
	if !bytes.Equal(s.RspDataKeys.AeadKey, next.AeadKey) {
		t.Fatal("BeginKeyUpdate must install the new key as current")
	}
	s.RollbackKeyUpdate()
	if !bytes.Equal(s.RspDataKeys.AeadKey, original.AeadKey) {
		t.Fatal("RollbackKeyUpdate must restore the pre-update key")
	}

	next2, err := s.BeginKeyUpdate()
	if err != nil {
		t.Fatalf("BeginKeyUpdate: %v", err)
	}
	s.CommitKeyUpdate()
	if !bytes.Equal(s.RspDataKeys.AeadKey, next2.AeadKey) {
		t.Fatal("CommitKeyUpdate must keep the new key installed")
	}
	// A rollback after commit is a no-op: pendingKeyUpdate was cleared.
	s.RollbackKeyUpdate()
	if !bytes.Equal(s.RspDataKeys.AeadKey, next2.AeadKey) {
		t.Fatal("RollbackKeyUpdate after CommitKeyUpdate must be a no-op")
	}
}

func TestSlotSequenceCounters(t *testing.T) {
	s := newTestSlot()
	first, err := s.NextRequestSeq()
	if err != nil {
		t.Fatalf("NextRequestSeq: %v", err)
	}
	second, err := s.NextRequestSeq()
	if err != nil {
		t.Fatalf("NextRequestSeq: %v", err)
	}
	if first != 0 || second != 1 {
		t.Errorf("sequence numbers = (%d, %d), want (0, 1)", first, second)
	}
}

func TestSlotSequenceOverflow(t *testing.T) {
	s := newTestSlot()
	s.reqSeq.Store(^uint64(0))
	if _, err := s.NextRequestSeq(); err == nil {
		t.Fatal("expected an error once the sequence counter wraps")
	}
}

func TestRequestAndResponseIVMixInSequence(t *testing.T) {
	s := newTestSlot()
	s.ReqDataKeys.AeadIV = bytes.Repeat([]byte{0x00}, s.Crypto.AeadAlgo.IVSize())
	s.RspDataKeys.AeadIV = bytes.Repeat([]byte{0x00}, s.Crypto.AeadAlgo.IVSize())

	reqIV0 := s.RequestIV(0)
	reqIV1 := s.RequestIV(1)
	if bytes.Equal(reqIV0, reqIV1) {
		t.Error("RequestIV must vary with the sequence number")
	}
	rspIV0 := s.ResponseIV(0)
	if !bytes.Equal(reqIV0, rspIV0) {
		t.Error("with identical static IVs and seq=0, RequestIV and ResponseIV should match")
	}
}

func TestPoolLifecycle(t *testing.T) {
	p := NewPool(2, 256)

	slot1, ok := p.GetNextAvailableSession()
	if !ok {
		t.Fatal("expected an available slot")
	}
	if err := slot1.Setup(100); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	slot2, ok := p.GetNextAvailableSession()
	if !ok {
		t.Fatal("expected a second available slot")
	}
	if err := slot2.Setup(200); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, ok := p.GetNextAvailableSession(); ok {
		t.Fatal("pool of size 2 must be exhausted after two setups")
	}

	got, ok := p.GetSessionByID(100)
	if !ok || got != slot1 {
		t.Fatal("GetSessionByID(100) did not return the expected slot")
	}
	if _, ok := p.GetSessionByID(999); ok {
		t.Fatal("GetSessionByID must fail for an unknown session id")
	}

	slot1.Teardown()
	if _, ok := p.GetNextAvailableSession(); !ok {
		t.Fatal("slot must become available again after Teardown")
	}
}

package session

import (
	"sync"
	"sync/atomic"

	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/spdmerr"
	"github.com/dmtf/spdm-core/transcript"
)

// CryptoParams pins the algorithm selections a session was established
// with, independent of whatever the Context renegotiates afterward.
type CryptoParams struct {
	HashAlgo       spdmconst.BaseHashAlgo
	DheGroup       spdmconst.DheGroup
	AeadAlgo       spdmconst.AeadAlgo
	KeyScheduleAlgo spdmconst.KeyScheduleAlgo
}

type TransportParams struct {
	SequenceNumberCount uint8
	MaxRandomCount      uint8
}

// Slot is one entry in the fixed session pool.
type Slot struct {
	mu sync.Mutex

	SessionID uint32
	State     spdmconst.SessionState
	UsePsk    bool

	Crypto    CryptoParams
	Transport TransportParams

	dheSecret       []byte
	handshakeSecret []byte
	masterSecret    []byte

	ReqHandshakeKeys DirectionKeys
	RspHandshakeKeys DirectionKeys
	ReqDataKeys      DirectionKeys
	RspDataKeys      DirectionKeys

	pendingKeyUpdate *DirectionKeys // rollback target while a KeyUpdate is in flight

	reqSeq atomic.Uint64
	rspSeq atomic.Uint64

	Runtime *transcript.SessionTranscripts
}

var errSeqOverflow = spdmerr.New(spdmerr.InvalidState, "sequence counter exhausted")

// NextRequestSeq returns the next request-direction sequence number, or an
// error once the 64-bit counter has been exhausted — sequence numbers must
// never wrap.
func (s *Slot) NextRequestSeq() (uint64, error) {
	n := s.reqSeq.Add(1)
	if n == 0 {
		s.reqSeq.Store(^uint64(0))
		return 0, errSeqOverflow
	}
	return n - 1, nil
}

func (s *Slot) NextResponseSeq() (uint64, error) {
	n := s.rspSeq.Add(1)
	if n == 0 {
		s.rspSeq.Store(^uint64(0))
		return 0, errSeqOverflow
	}
	return n - 1, nil
}

// RequestIV/ResponseIV XOR the direction's static IV with the given
// sequence number, as required for every AEAD record.
func (s *Slot) RequestIV(seq uint64) []byte { return xorSeq(s.ReqDataKeys.AeadIV, seq) }
func (s *Slot) ResponseIV(seq uint64) []byte { return xorSeq(s.RspDataKeys.AeadIV, seq) }

func xorSeq(iv []byte, seq uint64) []byte {
	out := append([]byte(nil), iv...)
	for i := 0; i < 8 && i < len(out); i++ {
		out[len(out)-1-i] ^= byte(seq >> (8 * uint(i)))
	}
	return out
}

func (s *Slot) SetDheSecret(secret []byte) { s.dheSecret = append([]byte(nil), secret...) }
func (s *Slot) DheSecret() []byte          { return s.dheSecret }

// GenerateHandshakeSecret runs key-schedule steps 2 and 3 for both
// directions given TH1.
func (s *Slot) GenerateHandshakeSecret(th1 []byte) error {
	secret, err := DeriveHandshakeSecret(s.Crypto.HashAlgo, s.dheSecret, th1)
	if err != nil {
		return err
	}
	s.handshakeSecret = secret
	if s.ReqHandshakeKeys, err = DeriveDirectionHandshakeKeys(s.Crypto.HashAlgo, s.Crypto.AeadAlgo, secret, true); err != nil {
		return err
	}
	if s.RspHandshakeKeys, err = DeriveDirectionHandshakeKeys(s.Crypto.HashAlgo, s.Crypto.AeadAlgo, secret, false); err != nil {
		return err
	}
	return nil
}

// GenerateHmacWithFinishedKey signs transcriptData with the request-direction
// finished key derived above when isRequest is set, else the
// response-direction one.
func (s *Slot) GenerateHmacWithFinishedKey(transcriptData []byte, isRequest bool) ([]byte, bool) {
	key := s.RspHandshakeKeys.FinishedKey
	if isRequest {
		key = s.ReqHandshakeKeys.FinishedKey
	}
	return hmacCompute(s.Crypto.HashAlgo, key, transcriptData)
}

// CompleteHandshake runs key-schedule step 4 after Finish succeeds,
// deriving master_secret and both directions' data_secret keys, and moves
// the slot to Established.
func (s *Slot) CompleteHandshake() error {
	master, err := DeriveMasterSecret(s.Crypto.HashAlgo, s.handshakeSecret)
	if err != nil {
		return err
	}
	s.masterSecret = master
	if s.ReqDataKeys, err = DeriveDataKeys(s.Crypto.HashAlgo, s.Crypto.AeadAlgo, master, true); err != nil {
		return err
	}
	if s.RspDataKeys, err = DeriveDataKeys(s.Crypto.HashAlgo, s.Crypto.AeadAlgo, master, false); err != nil {
		return err
	}
	s.State = spdmconst.SessionEstablished
	return nil
}

// BeginKeyUpdate is the two-phase commit's first phase: derive the new
// direction key but keep the current one live as a rollback target until
// CommitKeyUpdate observes the peer's VerifyNewKey ack.
func (s *Slot) BeginKeyUpdate() (DirectionKeys, error) {
	current := s.RspDataKeys
	next, err := UpdateKey(s.Crypto.HashAlgo, s.Crypto.AeadAlgo, current)
	if err != nil {
		return DirectionKeys{}, err
	}
	s.pendingKeyUpdate = &current
	s.RspDataKeys = next
	return next, nil
}

// CommitKeyUpdate finalizes the pending rotation.
func (s *Slot) CommitKeyUpdate() {
	s.pendingKeyUpdate = nil
}

// RollbackKeyUpdate restores the pre-update key if the peer never
// acknowledged VerifyNewKey.
func (s *Slot) RollbackKeyUpdate() {
	if s.pendingKeyUpdate != nil {
		s.RspDataKeys = *s.pendingKeyUpdate
		s.pendingKeyUpdate = nil
	}
}

// Pool is the fixed-size set of session slots a Context owns exclusively.
type Pool struct {
	mu    sync.Mutex
	slots []*Slot
}

func NewPool(size int, bufferSize int) *Pool {
	p := &Pool{slots: make([]*Slot, size)}
	for i := range p.slots {
		p.slots[i] = &Slot{State: spdmconst.SessionNotStarted, Runtime: transcript.NewSessionTranscripts(bufferSize)}
	}
	return p
}

// GetNextAvailableSession returns the first NotStarted slot, or false if the
// pool is exhausted.
func (p *Pool) GetNextAvailableSession() (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s.State == spdmconst.SessionNotStarted {
			return s, true
		}
	}
	return nil, false
}

func (p *Pool) GetSessionByID(id uint32) (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s.State != spdmconst.SessionNotStarted && s.SessionID == id {
			return s, true
		}
	}
	return nil, false
}

// Setup assigns session_id and moves the slot from NotStarted to
// Handshaking.
func (s *Slot) Setup(sessionID uint32) error {
	if s.State != spdmconst.SessionNotStarted {
		return spdmerr.New(spdmerr.InvalidState, "session slot already in use")
	}
	s.SessionID = sessionID
	s.State = spdmconst.SessionHandshaking
	return nil
}

// Teardown zeroes every secret, resets both sequence counters and the
// runtime transcripts, and returns the slot to NotStarted.
func (s *Slot) Teardown() {
	secureZero(s.dheSecret)
	secureZero(s.handshakeSecret)
	secureZero(s.masterSecret)
	s.ReqHandshakeKeys.Zero()
	s.RspHandshakeKeys.Zero()
	s.ReqDataKeys.Zero()
	s.RspDataKeys.Zero()
	s.pendingKeyUpdate = nil
	s.reqSeq.Store(0)
	s.rspSeq.Store(0)
	s.Runtime.Reset()
	s.SessionID = 0
	s.UsePsk = false
	s.State = spdmconst.SessionNotStarted
}

// Package engine implements the two protocol roles (Requester, Responder)
// that orchestrate the wire codec, transcript manager, crypto registry and
// session pool through one ordered sequence of message exchanges.
package engine

import (
	"github.com/dmtf/spdm-core/logging"
	"github.com/dmtf/spdm-core/replay"
	"github.com/dmtf/spdm-core/session"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/transcript"
	"github.com/dmtf/spdm-core/transport"
	"github.com/dmtf/spdm-core/wire"
)

// TrustMaterial is the Responder-side identity: a certificate chain per
// provisioned slot and the private key used to sign KeyExchangeRsp,
// ChallengeAuth and Measurements.
type TrustMaterial struct {
	SlotCertChains map[uint8][]byte // DER chain, slot 0 required when CERT_CAP is set
	PrivateKey     any              // *ecdsa.PrivateKey or *rsa.PrivateKey

	// PeerLeafCertDer is the Requester-side cache of the Responder's leaf
	// certificate, populated from a prior GetCertificate exchange and
	// consulted when verifying KeyExchangeRsp/ChallengeAuth/Measurements
	// signatures.
	PeerLeafCertDer []byte
}

func (t TrustMaterial) leafCert() []byte { return t.PeerLeafCertDer }

// Context is exclusively owned by one Requester or one Responder; it holds
// the negotiated selections, transcript buffers, session pool, trust
// material and runtime flags for exactly one peer relationship.
type Context struct {
	Negotiate wire.NegotiateInfo

	Transcripts *transcript.Set
	Sessions    *session.Pool

	// MeasurementTranscript backs L2 signing for GET_MEASUREMENTS requests,
	// which are only exchanged outside of a session; no engine code uses a
	// Slot's Runtime.MessageM.
	MeasurementTranscript *transcript.Buffer

	BufferSize    int
	TransportSize int

	DeviceIo       transport.DeviceIo
	TransportEncap transport.TransportEncap

	Trust TrustMaterial

	// ReplayCache is nil unless the embedder opted into cross-restart
	// replay hardening; a single Context's lifetime never needs it.
	ReplayCache *replay.Cache

	Log *logging.Logger

	// NeedMeasurementSummaryHash mirrors the runtime flag the reference
	// responder sets while processing a KeyExchange/PskExchange request
	// that asked for a measurement summary.
	NeedMeasurementSummaryHash bool

	PskHint []byte
	PskKey  []byte

	// Measurements is the full ordered set of measurement blocks this
	// attester can report; GET_MEASUREMENTS selects a subset from it by
	// index or returns all of it.
	Measurements []wire.MeasurementBlock
}

// measurementRecord answers one GET_MEASUREMENTS operation: 0 returns an
// empty record carrying only the block count (TotalNumber), 0xFF returns
// every block, and any other value returns the one block at that index.
func (c *Context) measurementRecord(operation uint8) wire.MeasurementRecord {
	switch operation {
	case wire.MeasurementOperationTotalNumber:
		return wire.MeasurementRecord{}
	case wire.MeasurementOperationAll:
		return wire.MeasurementRecord{Blocks: c.Measurements}
	default:
		for _, b := range c.Measurements {
			if b.Index == operation {
				return wire.MeasurementRecord{Blocks: []wire.MeasurementBlock{b}}
			}
		}
		return wire.MeasurementRecord{}
	}
}

func NewContext(bufferSize, transportSize, sessionPoolSize int, dio transport.DeviceIo, enc transport.TransportEncap) *Context {
	return &Context{
		Negotiate:             wire.NegotiateInfo{SpdmVersion: spdmconst.Version11},
		Transcripts:           transcript.NewSet(bufferSize),
		Sessions:              session.NewPool(sessionPoolSize, bufferSize),
		MeasurementTranscript: transcript.NewBuffer(bufferSize),
		BufferSize:            bufferSize,
		TransportSize:         transportSize,
		DeviceIo:              dio,
		TransportEncap:        enc,
		Log:                   logging.ForComponent("spdm-engine"),
	}
}

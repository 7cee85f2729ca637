package engine

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	_ "github.com/dmtf/spdm-core/cryptoreg/stdcrypto"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/transport"
	"github.com/dmtf/spdm-core/wire"
)

const testBufferSize = 16 * 1024
const testTransportSize = 16 * 1024

func selfSignedLeaf(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "spdm-responder-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatal(err)
	}
	return der, priv
}

// wirePair connects a Requester's Context to a Responder's Context over an
// in-memory duplex pipe, framed the same way the CLI entrypoints frame
// their TCP connections.
func wirePair(t *testing.T, requesterPoolSize, responderPoolSize int) (*Context, *Context) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	reqCtx := NewContext(testBufferSize, testTransportSize, requesterPoolSize, transport.NewPipeDeviceIo(a), transport.NewMctpTransportEncap())
	rspCtx := NewContext(testBufferSize, testTransportSize, responderPoolSize, transport.NewPipeDeviceIo(b), transport.NewMctpTransportEncap())
	return reqCtx, rspCtx
}

func runResponderLoop(t *testing.T, resp *Responder, done <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := resp.Serve(context.Background()); err != nil {
				return
			}
		}
	}()
}

var fullCaps = spdmconst.CapCertCap | spdmconst.CapChalCap | spdmconst.CapMeasCap |
	spdmconst.CapEncryptCap | spdmconst.CapMacCap | spdmconst.CapHbeatCap | spdmconst.CapKeyUpdCap |
	spdmconst.CapKeyExCap | spdmconst.CapPskCap

var fullAlgos = wire.NegotiateAlgorithmsRequest{
	BaseAsymAlgo: spdmconst.AsymEcdsaP256,
	BaseHashAlgo: spdmconst.HashSha256,
	DheGroups:    spdmconst.DheSecp256R1,
	AeadAlgos:    spdmconst.AeadAes128Gcm,
	KeySchedules: spdmconst.KeyScheduleSpdm,
}

func TestDheAttestationAndSessionEndToEnd(t *testing.T) {
	leafDER, leafKey := selfSignedLeaf(t)

	reqCtx, rspCtx := wirePair(t, 2, 2)
	rspCtx.Trust.SlotCertChains = map[uint8][]byte{0: leafDER}
	rspCtx.Trust.PrivateKey = leafKey
	rspCtx.Negotiate.RspCapabilitiesSel = fullCaps
	rspCtx.Measurements = []wire.MeasurementBlock{
		{Index: 1, MeasurementSpec: 1, MeasurementType: 0, Value: []byte("bootloader-hash")},
		{Index: 2, MeasurementSpec: 1, MeasurementType: 1, Value: []byte("firmware-hash")},
	}

	responder := NewResponder(rspCtx)
	done := make(chan struct{})
	defer close(done)
	runResponderLoop(t, responder, done)

	requester := NewRequester(reqCtx)
	ctx := context.Background()

	if err := requester.InitConnection(ctx, fullCaps, fullAlgos); err != nil {
		t.Fatalf("InitConnection: %v", err)
	}
	if reqCtx.Negotiate.BaseHashSel != spdmconst.HashSha256 || reqCtx.Negotiate.BaseAsymSel != spdmconst.AsymEcdsaP256 {
		t.Fatalf("unexpected algorithm selection: %+v", reqCtx.Negotiate)
	}

	digests, err := requester.GetDigests(ctx)
	if err != nil {
		t.Fatalf("GetDigests: %v", err)
	}
	if digests.SlotMask&1 == 0 {
		t.Fatal("expected slot 0 to be reported provisioned")
	}

	chain, err := requester.GetCertificateChain(ctx, 0)
	if err != nil {
		t.Fatalf("GetCertificateChain: %v", err)
	}
	if len(chain) == 0 {
		t.Fatal("expected a non-empty certificate chain")
	}
	if len(reqCtx.Trust.PeerLeafCertDer) == 0 {
		t.Fatal("GetCertificateChain must cache the peer leaf certificate")
	}

	if err := requester.Challenge(ctx, 0, spdmconst.SummaryHashTcb); err != nil {
		t.Fatalf("Challenge: %v", err)
	}

	meas, err := requester.GetMeasurements(ctx, 0, wire.MeasurementOperationAll, true)
	if err != nil {
		t.Fatalf("GetMeasurements: %v", err)
	}
	if len(meas.Record.Blocks) != 2 {
		t.Fatalf("got %d measurement blocks, want 2", len(meas.Record.Blocks))
	}

	sessionID, err := requester.StartSession(ctx, false, 0, spdmconst.SummaryHashNone)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sessionID == 0 {
		t.Fatal("expected a non-zero session id")
	}

	slot, ok := reqCtx.Sessions.GetSessionByID(sessionID)
	if !ok || slot.State != spdmconst.SessionEstablished {
		t.Fatalf("expected an Established session, got ok=%v state=%v", ok, slot.State)
	}

	if err := requester.Heartbeat(ctx, sessionID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	if err := requester.KeyUpdate(ctx, sessionID, false); err != nil {
		t.Fatalf("KeyUpdate: %v", err)
	}
	// A second heartbeat proves traffic under the rotated key still works.
	if err := requester.Heartbeat(ctx, sessionID); err != nil {
		t.Fatalf("Heartbeat after KeyUpdate: %v", err)
	}

	requester.EndSession(ctx, sessionID)
	if _, ok := reqCtx.Sessions.GetSessionByID(sessionID); ok {
		t.Fatal("EndSession must tear down the local session slot")
	}
}

func TestPskSessionEndToEnd(t *testing.T) {
	reqCtx, rspCtx := wirePair(t, 1, 1)
	rspCtx.Negotiate.RspCapabilitiesSel = fullCaps

	psk := []byte("pre-shared-key-material-here!!!")
	reqCtx.PskHint = []byte("device-42")
	reqCtx.PskKey = psk
	rspCtx.PskHint = []byte("device-42")
	rspCtx.PskKey = psk

	responder := NewResponder(rspCtx)
	done := make(chan struct{})
	defer close(done)
	runResponderLoop(t, responder, done)

	requester := NewRequester(reqCtx)
	ctx := context.Background()

	if err := requester.InitConnection(ctx, fullCaps, fullAlgos); err != nil {
		t.Fatalf("InitConnection: %v", err)
	}

	sessionID, err := requester.StartSession(ctx, true, 0, spdmconst.SummaryHashNone)
	if err != nil {
		t.Fatalf("StartSession (PSK): %v", err)
	}

	slot, ok := reqCtx.Sessions.GetSessionByID(sessionID)
	if !ok || slot.State != spdmconst.SessionEstablished {
		t.Fatalf("expected an Established PSK session, got ok=%v state=%v", ok, slot.State)
	}
	if !slot.UsePsk {
		t.Fatal("expected UsePsk to be set on a PSK-established session")
	}

	if err := requester.Heartbeat(ctx, sessionID); err != nil {
		t.Fatalf("Heartbeat over PSK session: %v", err)
	}

	requester.EndSession(ctx, sessionID)
}

func TestChallengeFailsWithoutCertificateChain(t *testing.T) {
	leafDER, leafKey := selfSignedLeaf(t)
	reqCtx, rspCtx := wirePair(t, 1, 1)
	rspCtx.Trust.SlotCertChains = map[uint8][]byte{0: leafDER}
	rspCtx.Trust.PrivateKey = leafKey
	rspCtx.Negotiate.RspCapabilitiesSel = fullCaps

	responder := NewResponder(rspCtx)
	done := make(chan struct{})
	defer close(done)
	runResponderLoop(t, responder, done)

	requester := NewRequester(reqCtx)
	ctx := context.Background()
	if err := requester.InitConnection(ctx, fullCaps, fullAlgos); err != nil {
		t.Fatalf("InitConnection: %v", err)
	}

	// No GetCertificateChain call: the Requester has no leaf certificate to
	// verify against, so signature verification must fail closed rather
	// than silently accept the exchange.
	if err := requester.Challenge(ctx, 0, spdmconst.SummaryHashTcb); err == nil {
		t.Fatal("expected Challenge to fail verification without a cached peer certificate")
	}
}

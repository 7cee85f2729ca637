package main

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmtf/spdm-core/config"
	"github.com/dmtf/spdm-core/engine"
	"github.com/dmtf/spdm-core/logging"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/transport"
	"github.com/dmtf/spdm-core/wire"
)

var (
	attestSlotID   uint8
	attestUsePsk   bool
	attestPskHint  string
	attestPskKey   string
	attestRootPath string
)

var attestCmd = &cobra.Command{
	Use:   "attest",
	Short: "Run one attestation round against an spdm-responder peer",
	RunE:  runAttest,
}

func init() {
	rootCmd.AddCommand(attestCmd)
	attestCmd.Flags().Uint8Var(&attestSlotID, "slot", 0, "certificate slot to authenticate with")
	attestCmd.Flags().BoolVar(&attestUsePsk, "psk", false, "use PSK_EXCHANGE instead of KEY_EXCHANGE")
	attestCmd.Flags().StringVar(&attestPskHint, "psk-hint", "", "PSK hint, for --psk")
	attestCmd.Flags().StringVar(&attestPskKey, "psk-key", "", "hex-encoded PSK key, for --psk")
	attestCmd.Flags().StringVar(&attestRootPath, "trusted-root", "", "PEM file; when set, the peer's leaf cert must chain to it")
}

func runAttest(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return errors.New("--config is required")
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Component)
	if err != nil {
		return err
	}
	defer log.Sync()

	dio, encap, err := dial(cfg)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer dio.(interface{ Close() error }).Close()

	ctx := cmd.Context()
	ectx := engine.NewContext(cfg.Limits.MaxMessageBufferSize, cfg.Limits.MaxTransportSize, cfg.Limits.MaxSessions, dio, encap)
	ectx.Log = log
	if attestUsePsk {
		ectx.PskHint = []byte(attestPskHint)
		pskKey, err := hex.DecodeString(attestPskKey)
		if err != nil {
			return fmt.Errorf("--psk-key: %w", err)
		}
		ectx.PskKey = pskKey
	}

	req := engine.NewRequester(ectx)
	localCaps := spdmconst.CapCertCap | spdmconst.CapChalCap | spdmconst.CapMeasCap |
		spdmconst.CapEncryptCap | spdmconst.CapMacCap | spdmconst.CapHbeatCap | spdmconst.CapKeyUpdCap
	if attestUsePsk {
		localCaps |= spdmconst.CapPskCap
	} else {
		localCaps |= spdmconst.CapKeyExCap
	}
	algReq := wire.NegotiateAlgorithmsRequest{
		BaseAsymAlgo: spdmconst.AsymEcdsaP256 | spdmconst.AsymEcdsaP384 | spdmconst.AsymRsaSsa3072,
		BaseHashAlgo: spdmconst.HashSha256 | spdmconst.HashSha384 | spdmconst.HashSha512,
		DheGroups:    spdmconst.DheSecp256R1 | spdmconst.DheSecp384R1,
		AeadAlgos:    spdmconst.AeadAes128Gcm | spdmconst.AeadAes256Gcm | spdmconst.AeadChaCha20Poly1305,
		KeySchedules: spdmconst.KeyScheduleSpdm,
	}
	if err := req.InitConnection(ctx, localCaps, algReq); err != nil {
		return fmt.Errorf("init connection: %w", err)
	}
	log.Info("negotiated", zap.String("version", ectx.Negotiate.SpdmVersion.String()))

	if !attestUsePsk {
		if _, err := req.GetDigests(ctx); err != nil {
			return fmt.Errorf("get digests: %w", err)
		}
		chain, err := req.GetCertificateChain(ctx, attestSlotID)
		if err != nil {
			return fmt.Errorf("get certificate: %w", err)
		}
		if attestRootPath != "" {
			if err := verifyChainAgainstRoot(chain, attestRootPath); err != nil {
				return fmt.Errorf("verify chain: %w", err)
			}
		}
		if err := req.Challenge(ctx, attestSlotID, spdmconst.SummaryHashTcb); err != nil {
			return fmt.Errorf("challenge: %w", err)
		}
		fmt.Println("challenge-response authentication succeeded")
	}

	meas, err := req.GetMeasurements(ctx, attestSlotID, wire.MeasurementOperationAll, true)
	if err != nil {
		return fmt.Errorf("get measurements: %w", err)
	}
	fmt.Printf("retrieved %d measurement block(s), signature verified\n", len(meas.Record.Blocks))

	sessionID, err := req.StartSession(ctx, attestUsePsk, attestSlotID, spdmconst.SummaryHashNone)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Printf("secure session established: 0x%08x\n", sessionID)

	if err := req.Heartbeat(ctx, sessionID); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	if err := req.KeyUpdate(ctx, sessionID, false); err != nil {
		return fmt.Errorf("key update: %w", err)
	}
	fmt.Println("heartbeat and key update succeeded")

	req.EndSession(ctx, sessionID)
	return nil
}

func dial(cfg *config.Config) (transport.DeviceIo, transport.TransportEncap, error) {
	switch cfg.Transport.Kind {
	case "websocket":
		u := url.URL{Scheme: "ws", Host: cfg.Transport.TargetAddr, Path: "/spdm"}
		conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			return nil, nil, err
		}
		return transport.NewWebSocketDeviceIo(conn), transport.NewMctpTransportEncap(), nil
	default:
		conn, err := net.DialTimeout("tcp", cfg.Transport.TargetAddr, 10*time.Second)
		if err != nil {
			return nil, nil, err
		}
		return transport.NewPipeDeviceIo(conn), transport.NewMctpTransportEncap(), nil
	}
}

func verifyChainAgainstRoot(chain []byte, rootPath string) error {
	rootPEM, err := os.ReadFile(rootPath)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(rootPEM)
	if block == nil {
		return errors.New("no PEM block in trusted root file")
	}
	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse trusted root: %w", err)
	}
	certs, err := x509.ParseCertificates(chain)
	if err != nil || len(certs) == 0 {
		return errors.New("unparseable peer certificate chain")
	}
	if err := certs[len(certs)-1].CheckSignatureFrom(root); err != nil {
		return fmt.Errorf("chain does not anchor to trusted root: %w", err)
	}
	return nil
}

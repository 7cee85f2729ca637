package main

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"go.uber.org/zap"

	"github.com/dmtf/spdm-core/config"
	"github.com/dmtf/spdm-core/engine"
	"github.com/dmtf/spdm-core/logging"
	"github.com/dmtf/spdm-core/replay"
	"github.com/dmtf/spdm-core/spdmconst"
	"github.com/dmtf/spdm-core/transport"
)

// responderCaps are the capabilities this responder advertises in
// CAPABILITIES regardless of what the requester offers; NEGOTIATE_ALGORITHMS
// intersects against whatever the requester separately advertises.
const responderCaps = spdmconst.CapCertCap | spdmconst.CapChalCap | spdmconst.CapMeasCap |
	spdmconst.CapEncryptCap | spdmconst.CapMacCap | spdmconst.CapHbeatCap | spdmconst.CapKeyUpdCap |
	spdmconst.CapKeyExCap | spdmconst.CapPskCap

var (
	certChainPath string
	privateKeyDER string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve SPDM requests on the configured transport",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&certChainPath, "cert-chain", "", "PEM file holding the slot-0 leaf certificate chain")
	serveCmd.Flags().StringVar(&privateKeyDER, "private-key", "", "PEM file holding the slot-0 signing private key")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	var replayCache *replay.Cache
	if cfg.Replay.Enabled {
		replayCache, err = replay.New(cfg.Replay.RedisAddr, 0)
		if err != nil {
			return fmt.Errorf("open replay cache: %w", err)
		}
		defer replayCache.Close()
	}

	slotChains, privKey, err := loadIdentity(certChainPath, privateKeyDER)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	switch cfg.Transport.Kind {
	case "websocket":
		return serveWebsocket(cmd.Context(), cfg, log, replayCache, slotChains, privKey)
	default:
		return serveMctp(cmd.Context(), cfg, log, replayCache, slotChains, privKey)
	}
}

func serveMctp(ctx context.Context, cfg *config.Config, log *logging.Logger, replayCache *replay.Cache, slotChains map[uint8][]byte, privKey any) error {
	ln, err := net.Listen("tcp", cfg.Transport.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	log.Info("spdm-responder listening", zap.String("addr", cfg.Transport.ListenAddr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		peerLog := log.WithPeer(conn.RemoteAddr().String())
		go func() {
			defer conn.Close()
			dio := transport.NewPipeDeviceIo(conn)
			encap := transport.NewMctpTransportEncap()
			runResponder(ctx, cfg, peerLog, dio, encap, replayCache, slotChains, privKey)
		}()
	}
}

var upgrader = websocket.Upgrader{}

func serveWebsocket(ctx context.Context, cfg *config.Config, log *logging.Logger, replayCache *replay.Cache, slotChains map[uint8][]byte, privKey any) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/spdm", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		peerLog := log.WithPeer(req.RemoteAddr)
		go func() {
			defer conn.Close()
			dio := transport.NewWebSocketDeviceIo(conn)
			encap := transport.NewMctpTransportEncap()
			runResponder(ctx, cfg, peerLog, dio, encap, replayCache, slotChains, privKey)
		}()
	})
	log.Info("spdm-responder listening", zap.String("addr", cfg.Transport.ListenAddr))
	return http.ListenAndServe(cfg.Transport.ListenAddr, mux)
}

func runResponder(ctx context.Context, cfg *config.Config, log *logging.Logger, dio transport.DeviceIo, encap transport.TransportEncap, replayCache *replay.Cache, slotChains map[uint8][]byte, privKey any) {
	ectx := engine.NewContext(cfg.Limits.MaxMessageBufferSize, cfg.Limits.MaxTransportSize, cfg.Limits.MaxSessions, dio, encap)
	ectx.Log = log
	ectx.ReplayCache = replayCache
	ectx.Trust.SlotCertChains = slotChains
	ectx.Trust.PrivateKey = privKey
	ectx.Negotiate.RspCapabilitiesSel = responderCaps

	resp := engine.NewResponder(ectx)
	for {
		if err := resp.Serve(ctx); err != nil {
			log.Info("connection closed", zap.Error(err))
			return
		}
	}
}

func loadIdentity(certPath, keyPath string) (map[uint8][]byte, any, error) {
	if certPath == "" || keyPath == "" {
		return nil, nil, nil
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, err
	}
	var chainDER []byte
	for rest := certPEM; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		chainDER = append(chainDER, block.Bytes...)
	}
	if len(chainDER) == 0 {
		return nil, nil, errors.New("no PEM block in cert chain file")
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, err
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, errors.New("no PEM block in private key file")
	}
	priv, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, err
	}
	return map[uint8][]byte{0: chainDER}, priv, nil
}

package main

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmtf/spdm-core/config"
	"github.com/dmtf/spdm-core/trust"
)

var (
	provisionRootPath string
	provisionDesc      string
)

var provisionCmd = &cobra.Command{
	Use:   "provision-root",
	Short: "Record a trusted root certificate's hash in the trust store",
	RunE:  runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&provisionRootPath, "root-cert", "", "PEM file holding the root CA certificate")
	provisionCmd.Flags().StringVar(&provisionDesc, "description", "", "human-readable label for this root")
}

func runProvision(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return errors.New("--config is required")
	}
	if provisionRootPath == "" {
		return errors.New("--root-cert is required")
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Trust.PostgresDSN == "" {
		return errors.New("trust.postgres_dsn is not set in config")
	}

	rootPEM, err := os.ReadFile(provisionRootPath)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(rootPEM)
	if block == nil {
		return errors.New("no PEM block in root cert file")
	}
	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse root cert: %w", err)
	}
	digest := sha256.Sum256(root.Raw)

	store, err := trust.Open(cfg.Trust.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open trust store: %w", err)
	}
	defer store.Close()

	if err := store.ProvisionRoot(cmd.Context(), digest[:], uint8(1), provisionDesc); err != nil {
		return fmt.Errorf("provision root: %w", err)
	}
	fmt.Printf("provisioned root %x\n", digest)
	return nil
}

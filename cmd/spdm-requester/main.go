// Command spdm-requester drives the verifier side of the SPDM attestation
// protocol against one spdm-responder peer: negotiation, certificate
// retrieval, challenge-response authentication, measurement collection and
// secure session establishment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/dmtf/spdm-core/cryptoreg/stdcrypto"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spdm-requester",
	Short: "SPDM requester CLI",
	Long: `spdm-requester drives one attestation round against an spdm-responder
peer: version/capability/algorithm negotiation, certificate retrieval,
challenge-response authentication, measurement collection, and DHE or
PSK-backed secure session establishment.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file (required)")
	// Subcommands are registered in their own files:
	//   - attest.go: attestCmd
}

// Command spdm-responder serves one attested device endpoint: it answers
// the negotiation, authentication, measurement and session-establishment
// exchanges driven by an spdm-requester peer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/dmtf/spdm-core/cryptoreg/stdcrypto"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spdm-responder",
	Short: "SPDM responder daemon",
	Long: `spdm-responder runs the responder side of the SPDM attestation
protocol: version/capability/algorithm negotiation, certificate and
challenge-based authentication, measurement reporting, and DHE or
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
	//   - serve.go: serveCmd
	//   - provision.go: provisionCmd
}

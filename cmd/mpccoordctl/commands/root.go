// Package commands implements the mpccoordctl CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// client is the coordinator connection, initialized in PersistentPreRunE.
	client *Client

	// serverAddr is the coordinator address (host:port) to dial.
	serverAddr string
)

// rootCmd is the top-level cobra command for mpccoordctl.
var rootCmd = &cobra.Command{
	Use:   "mpccoordctl",
	Short: "Debug CLI client for the mpc-coordinator daemon",
	Long:  "mpccoordctl dials the mpc-coordinator's WebSocket endpoint and issues JSON-RPC requests by hand.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		c, err := Dial(serverAddr)
		if err != nil {
			return err
		}
		client = c
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8765",
		"mpc-coordinator daemon address (host:port)")

	rootCmd.AddCommand(groupCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

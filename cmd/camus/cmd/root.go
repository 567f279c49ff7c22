package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "camus",
	Short: "Room presence relay for the Camus video-call product",
	Long: `Camus is the signaling and presence backend of a browser video-call
product. Participants join named rooms over a websocket and receive
user-connected and user-disconnected events as others come and go; the
media streams themselves are negotiated peer-to-peer by the clients.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

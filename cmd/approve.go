package cmd

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <token-address>",
	Short: "Approve the aggregator's router for a token",
	Long: `Check the current allowance for the router serving this token and submit
a max approval when it falls short, waiting for confirmation.

Examples:
  swaphelper approve 0x1234...
  swaphelper approve 0x1234... --chain bsc`,
	Args: cobra.ExactArgs(1),
	Run:  runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) {
	_, orchestrator, chainCtx := mustSession(cmd)

	ok, err := orchestrator.Approve(context.Background(), args[0], chainCtx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !ok {
		color.Red("\nApproval failed.\n\n")
		os.Exit(1)
	}

	color.Green("\nToken approved.\n\n")
}

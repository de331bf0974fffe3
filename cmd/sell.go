package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sky887766/SwapHelper/pkg/types"
)

var (
	sellRatio    string
	sellSlippage string
)

var sellCmd = &cobra.Command{
	Use:   "sell <token-address>",
	Short: "Sell a percentage of a token back to native coin",
	Long: `Sell a token through the aggregator: read the live balance, compute the
sell amount from the ratio, fetch a quote, ensure the router is approved
and submit the swap.

Examples:
  swaphelper sell 0x1234...
  swaphelper sell 0x1234... --ratio 50 --chain bsc`,
	Args: cobra.ExactArgs(1),
	Run:  runSell,
}

func init() {
	rootCmd.AddCommand(sellCmd)

	sellCmd.Flags().StringVar(&sellRatio, "ratio", "", "Percentage of the balance to sell, 1-100 (default from config)")
	sellCmd.Flags().StringVar(&sellSlippage, "slippage", "", "Slippage in percent (default from config)")
}

func runSell(cmd *cobra.Command, args []string) {
	cfg, orchestrator, chainCtx := mustSession(cmd)

	ratio := sellRatio
	if ratio == "" {
		ratio = cfg.SellRatio
	}
	slippage := sellSlippage
	if slippage == "" {
		slippage = cfg.Slippage
	}

	fmt.Printf("\nAccount: %s\n\n", color.CyanString(orchestrator.Address().Hex()))

	result, err := orchestrator.Sell(context.Background(), types.SellParams{
		TokenAddress:    args[0],
		RatioPercent:    ratio,
		SlippagePercent: slippage,
		Chain:           chainCtx,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\nSell complete. Tx: %s\n\n", result.Hash)
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sky887766/SwapHelper/config"
	"github.com/sky887766/SwapHelper/pkg/swap"
	"github.com/sky887766/SwapHelper/pkg/types"
)

var (
	buyAmount   string
	buySlippage string
)

var buyCmd = &cobra.Command{
	Use:   "buy <token-address>",
	Short: "Buy a token with native coin",
	Long: `Buy a token through the aggregator: fetch a quote, build the swap
payload, submit it on-chain and wait for confirmation. On success the
sell-side approval is pre-staged in the background.

Examples:
  swaphelper buy 0x1234... --amount 0.1
  swaphelper buy 0x1234... --amount 0.1 --slippage 1 --chain bsc`,
	Args: cobra.ExactArgs(1),
	Run:  runBuy,
}

func init() {
	rootCmd.AddCommand(buyCmd)

	buyCmd.Flags().StringVar(&buyAmount, "amount", "", "Amount of native coin to spend (default from config)")
	buyCmd.Flags().StringVar(&buySlippage, "slippage", "", "Slippage in percent (default from config)")
}

func runBuy(cmd *cobra.Command, args []string) {
	cfg, orchestrator, chainCtx := mustSession(cmd)

	amount := buyAmount
	if amount == "" {
		amount = cfg.BuyAmount
	}
	slippage := buySlippage
	if slippage == "" {
		slippage = cfg.Slippage
	}

	fmt.Printf("\nAccount: %s\n\n", color.CyanString(orchestrator.Address().Hex()))

	result, err := orchestrator.Buy(context.Background(), types.BuyParams{
		TokenAddress:    args[0],
		AmountNative:    amount,
		SlippagePercent: slippage,
		Chain:           chainCtx,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\nBuy complete. Tx: %s\n\n", result.Hash)
}

// mustSession loads configuration, builds the orchestrator and resolves the
// target chain, exiting on any failure.
func mustSession(cmd *cobra.Command) (*config.Config, *swap.Orchestrator, types.ChainContext) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	orchestrator, err := swap.New(cfg.Credentials(), eventPrinter())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainName, _ := cmd.Flags().GetString("chain")
	chainCtx, err := cfg.Chain(chainName)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	return cfg, orchestrator, chainCtx
}

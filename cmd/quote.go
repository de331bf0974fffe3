package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sky887766/SwapHelper/pkg/types"
)

var (
	quoteAmount   string
	quoteSlippage string
	quoteSell     bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <token-address>",
	Short: "Preview a swap quote without executing it",
	Long: `Fetch the aggregator's current pricing for a buy (native -> token) or,
with --sell, a sell (token -> native) without submitting anything.

Examples:
  swaphelper quote 0x1234... --amount 0.1
  swaphelper quote 0x1234... --amount 1000 --sell`,
	Args: cobra.ExactArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "Amount in whole units (native coin for buys, token for sells)")
	quoteCmd.Flags().StringVar(&quoteSlippage, "slippage", "", "Slippage in percent (default from config)")
	quoteCmd.Flags().BoolVar(&quoteSell, "sell", false, "Quote the sell direction instead of the buy direction")
}

func runQuote(cmd *cobra.Command, args []string) {
	cfg, orchestrator, chainCtx := mustSession(cmd)

	slippage := quoteSlippage
	if slippage == "" {
		slippage = cfg.Slippage
	}
	if quoteAmount == "" {
		printError(fmt.Errorf("--amount is required"))
		os.Exit(1)
	}

	amountFloat, ok := new(big.Float).SetString(quoteAmount)
	if !ok {
		printError(fmt.Errorf("invalid amount: %s", quoteAmount))
		os.Exit(1)
	}
	amountWei := new(big.Int)
	new(big.Float).Mul(amountFloat, new(big.Float).SetInt(big.NewInt(1e18))).Int(amountWei)

	fromToken, toToken := types.NativeTokenAddress, args[0]
	if quoteSell {
		fromToken, toToken = args[0], types.NativeTokenAddress
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()

	quote, err := orchestrator.Quote(context.Background(), fromToken, toToken, slippage, amountWei, chainCtx.ChainID)
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	displayQuote(quote)
}

func displayQuote(quote *types.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:          %s %s\n", quote.FromAmount, color.YellowString(quote.FromTokenSymbol))
	fmt.Printf("  To:            ~%s %s\n", quote.ToAmount, color.YellowString(quote.ToTokenSymbol))
	fmt.Printf("  Price Impact:  %s%%\n", quote.PriceImpactPct)
	fmt.Printf("  DEX:           %s\n", color.CyanString(quote.RouteDexName))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

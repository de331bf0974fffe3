package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sky887766/SwapHelper/pkg/swap"
)

var rootCmd = &cobra.Command{
	Use:   "swaphelper",
	Short: "A CLI for one-shot token swaps through the OKX DEX aggregator",
	Long: `swaphelper buys and sells tokens on EVM-compatible chains through the
OKX DEX aggregator API, handling request signing, token approvals and
on-chain confirmation.

Examples:
  swaphelper buy 0x1234... --amount 0.1
  swaphelper sell 0x1234... --ratio 50
  swaphelper quote 0x1234... --amount 0.1
  swaphelper approve 0x1234...
  swaphelper balance 0x1234...`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("chain", "", "Named chain from the configuration (default: default_chain)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

// eventPrinter renders core events with the same palette the original tool
// used for its log pane.
func eventPrinter() swap.Emitter {
	return swap.EmitterFunc(func(e swap.Event) {
		switch e.Level {
		case swap.LevelSuccess:
			color.Green("  %s", e.Message)
		case swap.LevelWarning:
			color.Yellow("  %s", e.Message)
		case swap.LevelError:
			color.Red("  %s", e.Message)
		default:
			fmt.Printf("  %s\n", e.Message)
		}
	})
}

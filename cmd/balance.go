package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <token-address>",
	Short: "Show the account's balance of a token",
	Long: `Read the live ERC20 balance of the configured account.

Examples:
  swaphelper balance 0x1234...
  swaphelper balance 0x1234... --chain bsc`,
	Args: cobra.ExactArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	_, orchestrator, chainCtx := mustSession(cmd)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Reading balance..."
	s.Start()

	balance, err := orchestrator.TokenBalance(context.Background(), chainCtx.RPCURL, args[0])
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	human := new(big.Float).Quo(new(big.Float).SetInt(balance), new(big.Float).SetInt(big.NewInt(1e18)))
	fmt.Printf("\nAccount: %s\n", color.CyanString(orchestrator.Address().Hex()))
	fmt.Printf("Balance: %s (%s raw)\n\n", color.YellowString(human.Text('f', 8)), balance.String())
}

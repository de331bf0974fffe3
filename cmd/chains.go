package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sky887766/SwapHelper/config"
)

var chainsCmd = &cobra.Command{
	Use:     "list-chains",
	Aliases: []string{"chains"},
	Short:   "List configured RPC networks",
	Run:     runListChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runListChains(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if len(cfg.Networks) == 0 {
		fmt.Println("\nNo networks configured. Add them under 'networks' in .swaphelper.yaml.")
		return
	}

	names := make([]string, 0, len(cfg.Networks))
	for name := range cfg.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     CONFIGURED NETWORKS")
	fmt.Println(strings.Repeat("=", 70))

	for _, name := range names {
		network := cfg.Networks[name]
		marker := "  "
		if name == cfg.DefaultChain {
			marker = color.GreenString("* ")
		}
		fmt.Printf("%s%-12s  chain id %-8d  %s\n", marker, color.YellowString(name), network.ChainID, color.HiBlackString(network.RPCURL))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

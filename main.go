package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sky887766/SwapHelper/cmd"
)

func main() {
	// A .env file is optional; config and flags cover everything.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

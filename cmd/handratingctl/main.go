package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "handratingctl",
		Short:   "Operator tools for the Hand Rating backend",
		Version: Version,
	}

	rootCmd.AddCommand(signEventCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(paymentCmd())
	rootCmd.AddCommand(grantCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

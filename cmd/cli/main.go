package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/korpimaa/nightexpress/cmd/cli/casecheck"
	"github.com/korpimaa/nightexpress/cmd/cli/joincode"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(casecheck.Group)
	rootCmd.AddCommand(casecheck.Validate)
	rootCmd.AddGroup(joincode.Group)
	rootCmd.AddCommand(joincode.Generate)
}

var rootCmd = &cobra.Command{
	Use:  "nightexpress-cli",
	Long: `Command line utilities for Night Express https://github.com/korpimaa/nightexpress`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

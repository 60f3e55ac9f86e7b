package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "v1.0.0"

var rootCmd = &cobra.Command{
	Use:           "tweetduck",
	Short:         "Desktop shell for the TweetDeck web application",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tweetduck: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/config"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
)

var (
	classifyFrame  bool
	classifyFormat string
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyFrame, "frame", false, "Classify as a sub-frame navigation")
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "text", "Output format (text|json)")
}

var classifyCmd = &cobra.Command{
	Use:   "classify <url>...",
	Short: "Show how the shell routes a navigation",
	Long: "Runs each URL through the routing table and prints the decision and\n" +
		"the rule that produced it. Navigations are main-frame unless --frame is set.",
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault()
	classifier, err := policy.New(policyFor(cfg), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, raw := range args {
		d := classifier.ClassifyRaw(raw, !classifyFrame)
		switch classifyFormat {
		case "json":
			b, err := json.Marshal(map[string]any{"url": raw, "main_frame": !classifyFrame, "decision": d})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		default:
			fmt.Fprintf(out, "%s\t%s\n", raw, d)
		}
	}
	return nil
}

func policyFor(cfg *config.Config) policy.Policy {
	return policy.Policy{
		HostDomain:   cfg.App.HostDomain,
		AppHost:      cfg.App.AppHost,
		AppHome:      "https://" + cfg.App.AppHost,
		UpdateScheme: cfg.App.UpdateActionScheme,
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cea",
	Short: "Headless autonomous coding agent core",
	Long: `cea drives a single model-assisted coding turn to completion: it seeds
conversation history with a prompt, streams the model's response, executes
any tool calls the model requests, and re-enters the model until the turn
naturally ends or an outstanding todo list forces a continuation.

Every observable event (user prompt, assistant text, tool call, tool
result, error) is written to stdout as one NDJSON object per line. Human-
readable status goes to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runHeadless(cmd.Context(), opts)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("prompt", "p", "", "prompt to send to the model (required)")
	flags.StringP("model", "m", "", "model id override (defaults to config/env)")
	flags.Bool("think", false, "enable extended thinking")
	flags.Bool("tool-fallback", false, "accepted and ignored; the tool loop always offers tools to the model")
	flags.String("resume", "", "resume a previously persisted session by ID")
	flags.Bool("persist", false, "write session snapshots to SQLite without resuming")
	flags.Float64("max-cost-usd", 0, "hard stop once estimated spend crosses this amount (0 = use config default)")
	flags.Int("max-steps", 0, "override the tool-loop step ceiling (0 = use config default)")
	flags.Bool("restricted", false, "gate shell_execute behind a command-name allowlist")
	rootCmd.MarkFlagRequired("prompt")
}

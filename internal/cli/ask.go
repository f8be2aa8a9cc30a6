/*
PURPOSE:
  Defines the 'ask' subcommand.
  Sends a single question through the same retrying client as 'run'.

REQUIREMENTS:
  User-specified:
  - Check credentials and connectivity before a long batch.

  Implementation-discovered:
  - Useful validation step before full run; prints the first-fragment latency.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Invoker (via NewClientFromConfig)

ERROR HANDLING:
  - Returns the last failure after all attempts.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  sheet-runner ask --bot-id BOT --api-key KEY "What is the capital of France?"

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/sheet-runner/internal/engine"
	"github.com/daryltucker/sheet-runner/internal/model"
)

var askFlags clientFlags

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Send one question and print the streamed answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		askFlags.apply(cmd.Flags(), cfg)
		cfg.Normalize()
		if err := cfg.ValidateClient(); err != nil {
			return err
		}

		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question is empty")
		}

		inv := engine.NewInvoker(engine.NewClientFromConfig(cfg), cfg.MaxRetries, cfg.RetryWait)
		res := inv.Invoke(cmd.Context(), model.CompletionRequest{
			BotID:       cfg.BotID,
			APIKey:      cfg.APIKey,
			Question:    question,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if res.Failed() {
			return fmt.Errorf("after %d attempt(s): %w", res.Attempts, res.Err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Answer)
		latency := res.LatencyCell()
		if latency == "" {
			latency = "n/a (no content received)"
		}
		fmt.Fprintf(out, "first fragment: %s s, attempts: %d\n", latency, res.Attempts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askFlags.register(askCmd.Flags())
}

/*
PURPOSE:
  Defines the 'run' subcommand.
  Processes every question row of a workbook and saves the answers.

REQUIREMENTS:
  User-specified:
  - Flags for bot id, API key, input/output paths, sheet name, columns,
    start row, skip-completed, request interval, retries, retry wait,
    temperature and timeout.
  - Exit 0 when the batch completes, even with failed rows.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config only for flags the user set.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load/validation, workbook open or save fails.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> Engine.Run -> Summary.

USAGE:
  sheet-runner run --bot-id BOT --api-key KEY -i questions.xlsx

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/flags.go
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/sheet-runner/internal/engine"
)

var runFlags batchFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer every question of a workbook",
	Long: `Reads questions from one column of an Excel sheet, sends each to the agent
endpoint with a streaming request and writes the answer and the latency until the
first content fragment into the answer and latency columns.

Rows are processed one at a time. Failed calls are retried with a fixed wait; a row
that fails on every attempt gets "[ERROR] <reason>" in its answer cell and the batch
continues. The result is saved to a new workbook; the input is never modified.`,
	Example: `  # Answer column B and latency column C are derived from question column A
  sheet-runner run --bot-id bot-123 --api-key $KEY -i questions.xlsx

  # Resume a previous run, only filling rows without an answer
  sheet-runner run --config runner.yaml -i questions_processed.xlsx -o questions_processed.xlsx --skip-completed

  # Explicit columns, slower pacing and a per-row report
  sheet-runner run -i q.xlsx --question-column C --answer-column E --request-interval 1 --report-dir ./report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		// 2. Overrides
		runFlags.apply(cmd.Flags(), cfg)
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return err
		}

		// 3. Execution
		summary, err := engine.Run(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %d processed, %d skipped, %d failed. Results written to %s\n",
			summary.Processed, summary.Skipped, summary.Failed, cfg.Output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd.Flags())
}

/*
PURPOSE:
  Flag registration and config overrides shared by run and ask.

REQUIREMENTS:
  Implementation-discovered:
  - Flags override config only when set by the user.
  - Durations are given in seconds on the command line.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli/run.go, internal/cli/ask.go

ERROR HANDLING:
  - Config load errors are returned.

IMPLEMENTATION RULES:
  - Check Flags().Changed before overriding.

USAGE:
    runFlags.register(runCmd.Flags())

SELF-HEALING INSTRUCTIONS:
  - If a flag seems ignored, check apply() handles it.

RELATED FILES:
  - internal/config/config.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/daryltucker/sheet-runner/internal/config"
	"github.com/daryltucker/sheet-runner/internal/output"
)

// clientFlags are the endpoint and retry overrides shared by run and ask.
type clientFlags struct {
	endpoint    string
	auth        string
	botID       string
	apiKey      string
	accessKey   string
	secretKey   string
	maxRetries  int
	retryWait   float64
	temperature float64
	timeout     float64
}

func (f *clientFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.endpoint, "endpoint", "", "Chat completion endpoint URL")
	fs.StringVar(&f.auth, "auth", "", "Authentication mode: apikey or aksk")
	fs.StringVar(&f.botID, "bot-id", "", "Bot (agent) ID")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (bearer token)")
	fs.StringVar(&f.accessKey, "access-key", "", "Access key for aksk auth")
	fs.StringVar(&f.secretKey, "secret-key", "", "Secret key for aksk auth")
	fs.IntVar(&f.maxRetries, "max-retries", 3, "Attempts per row, including the first")
	fs.Float64Var(&f.retryWait, "retry-wait", 2, "Seconds to wait before a retry")
	fs.Float64Var(&f.temperature, "temperature", 0, "Optional temperature passed to the model")
	fs.Float64Var(&f.timeout, "timeout", 60, "HTTP timeout in seconds per attempt")
}

func (f *clientFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	setString(fs, "endpoint", f.endpoint, &cfg.Endpoint)
	setString(fs, "auth", f.auth, &cfg.Auth)
	setString(fs, "bot-id", f.botID, &cfg.BotID)
	setString(fs, "api-key", f.apiKey, &cfg.APIKey)
	setString(fs, "access-key", f.accessKey, &cfg.AccessKey)
	setString(fs, "secret-key", f.secretKey, &cfg.SecretKey)
	if fs.Changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if fs.Changed("retry-wait") {
		cfg.RetryWait = seconds(f.retryWait)
	}
	if fs.Changed("temperature") {
		t := f.temperature
		cfg.Temperature = &t
	}
	if fs.Changed("timeout") {
		cfg.Timeout = seconds(f.timeout)
	}
}

// batchFlags are the workbook overrides of the run command.
type batchFlags struct {
	clientFlags
	input           string
	output          string
	sheet           string
	questionColumn  string
	answerColumn    string
	latencyColumn   string
	startRow        int
	skipCompleted   bool
	requestInterval float64
	reportDir       string
}

func (f *batchFlags) register(fs *pflag.FlagSet) {
	f.clientFlags.register(fs)
	fs.StringVarP(&f.input, "input", "i", "", "Input Excel path")
	fs.StringVarP(&f.output, "output", "o", "", "Output Excel path (default <input>_processed.xlsx)")
	fs.StringVar(&f.sheet, "sheet-name", "", "Sheet to process (default active sheet)")
	fs.StringVar(&f.questionColumn, "question-column", "A", "Column holding questions")
	fs.StringVar(&f.answerColumn, "answer-column", "", "Answer column (default one right of question)")
	fs.StringVar(&f.latencyColumn, "latency-column", "", "Latency column (default one right of answer)")
	fs.IntVar(&f.startRow, "start-row", 2, "First row to process")
	fs.BoolVar(&f.skipCompleted, "skip-completed", false, "Skip rows whose answer cell is already filled")
	fs.Float64Var(&f.requestInterval, "request-interval", 0.2, "Seconds to wait after each row that called the API")
	fs.StringVar(&f.reportDir, "report-dir", "", "Directory for rows.csv / rows.jsonl (disabled when empty)")
}

func (f *batchFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	f.clientFlags.apply(fs, cfg)
	setString(fs, "input", f.input, &cfg.Input)
	setString(fs, "output", f.output, &cfg.Output)
	setString(fs, "sheet-name", f.sheet, &cfg.Sheet)
	setString(fs, "question-column", f.questionColumn, &cfg.QuestionColumn)
	setString(fs, "answer-column", f.answerColumn, &cfg.AnswerColumn)
	setString(fs, "latency-column", f.latencyColumn, &cfg.LatencyColumn)
	setString(fs, "report-dir", f.reportDir, &cfg.ReportDir)
	if fs.Changed("start-row") {
		cfg.StartRow = f.startRow
	}
	if fs.Changed("skip-completed") {
		cfg.SkipCompleted = f.skipCompleted
	}
	if fs.Changed("request-interval") {
		cfg.RequestInterval = seconds(f.requestInterval)
	}
}

func setString(fs *pflag.FlagSet, name, value string, dst *string) {
	if fs.Changed(name) {
		*dst = value
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// loadConfig reads the config file and applies the configured log level
// unless --log-level was given.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if !fs.Changed("log-level") {
		if err := output.SetLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

/*
PURPOSE:
  Defines the configuration structure and loading logic for Sheet Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the agent endpoint, credentials, workbook columns,
    pacing (interval, retries, retry wait) and timeouts.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Credentials may come from environment variables (SHEET_RUNNER_...).
  - The configuration is immutable once a run starts.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config file is not an error (falls back to defaults).
  - Validate() returns every problem joined into one error.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (e.g., 60s timeout, 3 attempts).

USAGE:
  cfg, err := config.Load("sheet_runner.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/config/columns.go
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Authentication modes.
const (
	AuthAPIKey = "apikey"
	AuthAKSK   = "aksk"
)

// DefaultEndpoint is the agent chat completion endpoint for API key auth.
const DefaultEndpoint = "https://open.feedcoopapi.com/agent_api/agent/chat/completion"

// DefaultAKSKEndpoint is the signed OpenAPI gateway used with aksk auth.
const DefaultAKSKEndpoint = "https://mercury.volcengineapi.com/"

// Config represents the full configuration for Sheet Runner.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	Auth      string `yaml:"auth"`
	BotID     string `yaml:"bot_id"`
	APIKey    string `yaml:"api_key"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Service   string `yaml:"service"`

	Input          string `yaml:"input"`
	Output         string `yaml:"output"` // Defaults to <stem>_processed<ext> next to the input.
	Sheet          string `yaml:"sheet"`  // Empty means the active sheet.
	QuestionColumn string `yaml:"question_column"`
	AnswerColumn   string `yaml:"answer_column"`
	LatencyColumn  string `yaml:"latency_column"`
	StartRow       int    `yaml:"start_row"`
	SkipCompleted  bool   `yaml:"skip_completed"`

	RequestInterval time.Duration `yaml:"request_interval"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryWait       time.Duration `yaml:"retry_wait"`
	Temperature     *float64      `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`

	// ReportDir enables the per-row CSV/JSONL report when set.
	ReportDir string `yaml:"report_dir"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        DefaultEndpoint,
		Auth:            AuthAPIKey,
		Region:          "cn-north-1",
		Service:         "volc_torchlight_api",
		QuestionColumn:  "A",
		StartRow:        2,
		RequestInterval: 200 * time.Millisecond,
		MaxRetries:      3,
		RetryWait:       2 * time.Second,
		Timeout:         60 * time.Second,
		LogLevel:        "info",
	}
}

// DefaultFiles are searched in order when no config path is given.
var DefaultFiles = []string{"sheet_runner.yaml", "runner.yaml"}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles in order.
// If no file found, returns default config.
// Environment credentials fill fields the file leaves empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnv()
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("SHEET_RUNNER_API_KEY")
	}
	if c.AccessKey == "" {
		c.AccessKey = os.Getenv("SHEET_RUNNER_ACCESS_KEY")
	}
	if c.SecretKey == "" {
		c.SecretKey = os.Getenv("SHEET_RUNNER_SECRET_KEY")
	}
}

// Normalize clamps tuning values into their valid ranges and fills the default output path.
func (c *Config) Normalize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	c.Auth = strings.ToLower(strings.TrimSpace(c.Auth))
	if c.Auth == "" {
		c.Auth = AuthAPIKey
	}
	if c.Auth == AuthAKSK && (c.Endpoint == "" || c.Endpoint == DefaultEndpoint) {
		c.Endpoint = DefaultAKSKEndpoint
	}
	if c.Output == "" && c.Input != "" {
		c.Output = DefaultOutputPath(c.Input)
	}
}

// ValidateClient checks only what is needed to talk to the endpoint.
func (c *Config) ValidateClient() error {
	var errs []error
	if strings.TrimSpace(c.Endpoint) == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if strings.TrimSpace(c.BotID) == "" {
		errs = append(errs, errors.New("bot id is required"))
	}
	switch c.Auth {
	case AuthAPIKey, "":
		if c.APIKey == "" {
			errs = append(errs, errors.New("api key is required"))
		}
	case AuthAKSK:
		if c.AccessKey == "" || c.SecretKey == "" {
			errs = append(errs, errors.New("access key and secret key are required for aksk auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Validate checks the full batch configuration.
func (c *Config) Validate() error {
	errs := []error{c.ValidateClient()}
	if strings.TrimSpace(c.Input) == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if c.StartRow < 1 {
		errs = append(errs, fmt.Errorf("start row must be >= 1, got %d", c.StartRow))
	}
	if c.RequestInterval < 0 {
		errs = append(errs, errors.New("request interval must not be negative"))
	}
	if c.RetryWait < 0 {
		errs = append(errs, errors.New("retry wait must not be negative"))
	}
	if _, err := c.Columns(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Columns resolves the configured column letters.
func (c *Config) Columns() (Columns, error) {
	return ResolveColumns(c.QuestionColumn, c.AnswerColumn, c.LatencyColumn)
}

// DefaultOutputPath places "<stem>_processed<ext>" next to input.
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), stem+"_processed"+ext)
}

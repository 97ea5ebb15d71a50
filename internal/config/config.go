// Package config provides configuration management for the cost reporter
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Source names accepted for Report.Source
const (
	SourceS3           = "s3"
	SourceCostExplorer = "costexplorer"
	SourceMock         = "mock"
)

// Config holds all configuration
type Config struct {
	AWS       AWSConfig       `yaml:"aws"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Slack     SlackConfig     `yaml:"slack"`
	Report    ReportConfig    `yaml:"report"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// AWSConfig holds AWS-specific configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	RoleARN   string `yaml:"role_arn"`
	AccountID string `yaml:"account_id"`
}

// StorageConfig locates the cost dataset and the report archive
type StorageConfig struct {
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`           // dataset read by the s3 source
	ReportPrefix string `yaml:"report_prefix"` // date-keyed archive prefix
}

// AIConfig configures the text generation endpoint
type AIConfig struct {
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	PromptBudget int           `yaml:"prompt_budget"` // max dataset chars embedded in the prompt
}

// SlackConfig configures chat delivery
type SlackConfig struct {
	WebhookURL   string        `yaml:"webhook_url"`
	Timeout      time.Duration `yaml:"timeout"`
	DashboardURL string        `yaml:"dashboard_url"`
}

// ReportConfig configures the cost analysis
type ReportConfig struct {
	Source          string  `yaml:"source"` // s3, costexplorer, mock
	MonthlyBudget   float64 `yaml:"monthly_budget"`
	IntervalMinutes int     `yaml:"interval_minutes"`
	AlertThreshold  float64 `yaml:"alert_threshold"` // budget usage percent
	LookbackDays    int     `yaml:"lookback_days"`
}

// SchedulerConfig configures the recurring invocation rule
type SchedulerConfig struct {
	RuleName    string `yaml:"rule_name"`
	TargetID    string `yaml:"target_id"`
	FunctionARN string `yaml:"function_arn"`
}

// LogConfig configures logging
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load loads the reporting configuration from a YAML file. An empty path
// skips the file and builds the configuration from the environment alone.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadScheduler loads the configuration checking only what the schedule
// manager needs, so it starts without any reporting settings.
func LoadScheduler(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateScheduler(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds configuration from environment variables, honouring
// COST_REPORT_CONFIG when it names a YAML file.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("COST_REPORT_CONFIG"))
}

// SchedulerFromEnv is FromEnv for the schedule entry point
func SchedulerFromEnv() (*Config, error) {
	return LoadScheduler(os.Getenv("COST_REPORT_CONFIG"))
}

// load starts from Defaults and overlays the file, then the environment.
// Numeric values explicitly set to zero are kept.
func load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	cfg := &Config{}
	cfg.Report.MonthlyBudget = 1000
	cfg.Report.IntervalMinutes = 60
	cfg.Report.AlertThreshold = 70
	cfg.Report.LookbackDays = 30
	cfg.AI.PromptBudget = 15000
	cfg.setDefaults()
	return cfg
}

// applyEnv overrides file values with any environment variables that are set
func (c *Config) applyEnv() error {
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.AWS.RoleARN, "AWS_ROLE_ARN")
	setString(&c.AWS.AccountID, "AWS_ACCOUNT_ID")
	setString(&c.Storage.Bucket, "COST_REPORT_BUCKET")
	setString(&c.Storage.Key, "COST_REPORT_KEY")
	setString(&c.AI.APIKey, "GOOGLE_API_KEY")
	setString(&c.AI.Model, "GOOGLE_MODEL")
	setString(&c.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
	setString(&c.Slack.DashboardURL, "DASHBOARD_URL")
	setString(&c.Report.Source, "COST_SOURCE")
	setString(&c.Scheduler.RuleName, "SCHEDULE_RULE_NAME")
	setString(&c.Scheduler.FunctionARN, "COST_REPORT_LAMBDA_ARN")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("MONTHLY_BUDGET"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid MONTHLY_BUDGET %q: %w", v, err)
		}
		c.Report.MonthlyBudget = f
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid ALERT_THRESHOLD %q: %w", v, err)
		}
		c.Report.AlertThreshold = f
	}
	if v := os.Getenv("REPORT_INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_INTERVAL_MINUTES %q: %w", v, err)
		}
		c.Report.IntervalMinutes = n
	}
	return nil
}

// setDefaults fills values that have no meaningful empty form
func (c *Config) setDefaults() {
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}
	if c.Storage.ReportPrefix == "" {
		c.Storage.ReportPrefix = "reports/"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-1.5-flash"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.Slack.Timeout == 0 {
		c.Slack.Timeout = 10 * time.Second
	}
	if c.Report.Source == "" {
		c.Report.Source = SourceS3
	}
	if c.Scheduler.RuleName == "" {
		c.Scheduler.RuleName = "cost-report-schedule-dynamic"
	}
	if c.Scheduler.TargetID == "" {
		c.Scheduler.TargetID = "cost-report-target"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error

	switch c.Report.Source {
	case SourceS3:
		if c.Storage.Bucket == "" || c.Storage.Key == "" {
			errs = append(errs, errors.New("s3 source requires storage.bucket and storage.key"))
		}
	case SourceCostExplorer, SourceMock:
	default:
		errs = append(errs, fmt.Errorf("unknown report source %q", c.Report.Source))
	}

	if c.Report.IntervalMinutes < 1 {
		errs = append(errs, fmt.Errorf("report interval must be at least 1 minute, got %d", c.Report.IntervalMinutes))
	}
	if c.Report.LookbackDays < 1 {
		errs = append(errs, fmt.Errorf("lookback must be at least 1 day, got %d", c.Report.LookbackDays))
	}

	return errors.Join(errs...)
}

// ValidateScheduler checks only the schedule manager's settings. Storage,
// source and delivery settings are not required.
func (c *Config) ValidateScheduler() error {
	var errs []error

	if c.Scheduler.RuleName == "" {
		errs = append(errs, errors.New("scheduler.rule_name is required"))
	}
	if c.Report.IntervalMinutes < 1 {
		errs = append(errs, fmt.Errorf("default schedule interval must be at least 1 minute, got %d", c.Report.IntervalMinutes))
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default security settings, matching the documented defaults.
const (
	DefaultMaxFailedAttempts = 3
	DefaultLockoutDuration   = 15 * time.Minute
	DefaultFailureWindow     = 15 * time.Minute
	DefaultDeliveryAttempts  = 3
	DefaultBackoffBase       = 2 * time.Second
	DefaultRetentionDays     = 90
)

// Config is the top-level application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracer       TracerConfig       `yaml:"tracer"`
	Security     SecurityConfig     `yaml:"security"`
	Directory    []DirectoryEntry   `yaml:"directory"`
	Audit        AuditConfig        `yaml:"audit"`
	Delivery     DeliveryConfig     `yaml:"delivery"`
	Transport    TransportConfig    `yaml:"transport"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`             // default ":8080"
	RequestsPerMin int    `yaml:"requests_per_min"` // per-IP throttle, default 100
	Burst          int    `yaml:"burst"`            // default 20
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// SecurityConfig holds lockout and rate-limit settings.
type SecurityConfig struct {
	MaxFailedAttempts int                    `yaml:"max_failed_attempts"` // default 3
	LockoutDuration   string                 `yaml:"lockout_duration"`    // default "15m"
	FailureWindow     string                 `yaml:"failure_window"`      // default "15m"
	RateLimits        map[string]RateCeiling `yaml:"rate_limits"`         // keyed by role
}

// RateCeiling is a per-minute / per-hour request ceiling pair.
type RateCeiling struct {
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
}

// DirectoryEntry is one whitelisted caller in the identity directory.
type DirectoryEntry struct {
	Phone            string   `yaml:"phone"`
	Name             string   `yaml:"name"`
	Role             string   `yaml:"role"`
	Permissions      []string `yaml:"permissions"`
	AllowedCampaigns []string `yaml:"allowed_campaigns"`
	CampaignAccess   string   `yaml:"campaign_access"` // all, restricted, none
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	FilePath      string   `yaml:"file_path"`      // JSONL mirror; empty = disabled
	SQLitePath    string   `yaml:"sqlite_path"`    // durable sink; empty = disabled
	QueueSize     int      `yaml:"queue_size"`     // background writer queue, default 256
	RetentionDays int      `yaml:"retention_days"` // default 90
	AlertChannels []string `yaml:"alert_channels"` // "log", "slack"
	SlackWebhook  string   `yaml:"slack_webhook"`  // env ADPILOT_SLACK_WEBHOOK overrides
}

// DeliveryConfig holds outbound delivery retry settings.
type DeliveryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // default 3
	BackoffBase string `yaml:"backoff_base"` // default "2s", doubles per attempt
}

// TransportConfig holds CRM message transport settings.
type TransportConfig struct {
	BaseURL    string        `yaml:"base_url"` // LeadConnector API base
	APIToken   string        `yaml:"api_token"` // env GHL_API_TOKEN overrides
	APIVersion string        `yaml:"api_version"` // default "2021-07-28"
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the transport circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"` // default 5
	Timeout     string `yaml:"timeout"`      // open-state duration, default "30s"
	Interval    string `yaml:"interval"`     // closed-state reset period, default "60s"
}

// CapabilitiesConfig holds downstream capability handler endpoints.
type CapabilitiesConfig struct {
	MetricsURL string `yaml:"metrics_url"`
	CRMURL     string `yaml:"crm_url"`
	Timeout    string `yaml:"timeout"` // default "30s"
}

// Load reads and validates a YAML config file, applying defaults and
// environment overrides for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestsPerMin == 0 {
		c.Server.RequestsPerMin = 100
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 20
	}
	if c.Security.MaxFailedAttempts == 0 {
		c.Security.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if c.Security.RateLimits == nil {
		c.Security.RateLimits = map[string]RateCeiling{
			"super_admin": {PerMinute: 100, PerHour: 1000},
			"admin":       {PerMinute: 100, PerHour: 1000},
			"manager":     {PerMinute: 50, PerHour: 500},
			"viewer":      {PerMinute: 10, PerHour: 100},
		}
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = 256
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = DefaultRetentionDays
	}
	if len(c.Audit.AlertChannels) == 0 {
		c.Audit.AlertChannels = []string{"log"}
	}
	if c.Delivery.MaxAttempts == 0 {
		c.Delivery.MaxAttempts = DefaultDeliveryAttempts
	}
	if c.Transport.APIVersion == "" {
		c.Transport.APIVersion = "2021-07-28"
	}
	if c.Transport.Breaker.MaxFailures == 0 {
		c.Transport.Breaker.MaxFailures = 5
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GHL_API_TOKEN"); v != "" {
		c.Transport.APIToken = v
	}
	if v := os.Getenv("ADPILOT_SLACK_WEBHOOK"); v != "" {
		c.Audit.SlackWebhook = v
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Security.MaxFailedAttempts < 1 {
		return fmt.Errorf("security.max_failed_attempts must be >= 1")
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be >= 1")
	}
	for i, e := range c.Directory {
		if e.Phone == "" {
			return fmt.Errorf("directory[%d]: phone is required", i)
		}
		if e.Role == "" {
			return fmt.Errorf("directory[%d]: role is required", i)
		}
	}
	for _, d := range []struct{ name, val string }{
		{"security.lockout_duration", c.Security.LockoutDuration},
		{"security.failure_window", c.Security.FailureWindow},
		{"delivery.backoff_base", c.Delivery.BackoffBase},
		{"transport.breaker.timeout", c.Transport.Breaker.Timeout},
		{"transport.breaker.interval", c.Transport.Breaker.Interval},
		{"capabilities.timeout", c.Capabilities.Timeout},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// parseDuration returns the parsed duration or fallback when s is empty
// or malformed. Malformed values are caught earlier by Validate.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// LockoutDurationOrDefault returns the configured lockout duration.
func (c *SecurityConfig) LockoutDurationOrDefault() time.Duration {
	return parseDuration(c.LockoutDuration, DefaultLockoutDuration)
}

// FailureWindowOrDefault returns the configured rolling failure window.
func (c *SecurityConfig) FailureWindowOrDefault() time.Duration {
	return parseDuration(c.FailureWindow, DefaultFailureWindow)
}

// BackoffBaseOrDefault returns the configured delivery backoff base delay.
func (c *DeliveryConfig) BackoffBaseOrDefault() time.Duration {
	return parseDuration(c.BackoffBase, DefaultBackoffBase)
}

// TimeoutOrDefault returns the breaker open-state duration.
func (c *BreakerConfig) TimeoutOrDefault() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// IntervalOrDefault returns the breaker closed-state reset period.
func (c *BreakerConfig) IntervalOrDefault() time.Duration {
	return parseDuration(c.Interval, time.Minute)
}

// TimeoutOrDefault returns the capability invocation timeout.
func (c *CapabilitiesConfig) TimeoutOrDefault() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

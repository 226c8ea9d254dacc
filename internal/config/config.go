package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the checklist-gate service
type Config struct {
	// Server settings
	Port int

	// GitHub App settings
	GitHubAppID         string
	GitHubPrivateKey    string
	GitHubWebhookSecret string
	GitHubAPIURL        string  // Optional: GitHub Enterprise API endpoint
	GitHubRateLimit     float64 // requests per second, 0 disables

	// Trigger settings
	TriggerKeyword      string
	CommandRequireWrite bool

	// Gate settings
	GateContexts     []string
	GateFailureState string
	GateHintLabel    string

	// Celebration and UI state
	CelebrationComment string
	SessionTTL         time.Duration
	SessionRearmOnDrop bool
	StateDBPath        string // empty keeps UI state in memory

	// Mergeability watch
	WatchInterval time.Duration
	WatchTimeout  time.Duration

	// Dispatcher settings
	DispatcherWorkers           int
	DispatcherQueueSize         int
	DispatcherWatchWorkers      int
	DispatcherWatchQueueSize    int
	DispatcherMaxAttempts       int
	DispatcherRetryInitial      time.Duration
	DispatcherRetryMax          time.Duration
	DispatcherBackoffMultiplier float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8000)
	v.SetDefault("GITHUB_RATE_LIMIT", 10.0)
	v.SetDefault("TRIGGER_KEYWORD", "/checklist")
	v.SetDefault("COMMAND_REQUIRE_WRITE", true)
	v.SetDefault("GATE_CONTEXTS", "checklist-gate")
	v.SetDefault("GATE_FAILURE_STATE", "pending")
	v.SetDefault("GATE_HINT_LABEL", "checklist-incomplete")
	v.SetDefault("CELEBRATION_COMMENT", "🎉 All checklist items are complete. Ready to merge!")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_REARM_ON_DROP", false)
	v.SetDefault("WATCH_INTERVAL", "5s")
	v.SetDefault("WATCH_TIMEOUT", "2m")
	v.SetDefault("DISPATCHER_WORKERS", 4)
	v.SetDefault("DISPATCHER_QUEUE_SIZE", 16)
	// each watch can hold a watch worker for up to WATCH_TIMEOUT
	v.SetDefault("DISPATCHER_WATCH_WORKERS", 2)
	v.SetDefault("DISPATCHER_WATCH_QUEUE_SIZE", 32)
	v.SetDefault("DISPATCHER_MAX_ATTEMPTS", 3)
	v.SetDefault("DISPATCHER_RETRY_SECONDS", 15)
	v.SetDefault("DISPATCHER_RETRY_MAX_SECONDS", 300)
	v.SetDefault("DISPATCHER_BACKOFF_MULTIPLIER", 2.0)
}

// Load loads configuration from the environment and an optional
// checklist-gate.yaml in the working directory. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("checklist-gate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                        v.GetInt("PORT"),
		GitHubAppID:                 v.GetString("GITHUB_APP_ID"),
		GitHubPrivateKey:            normalizePrivateKey(v.GetString("GITHUB_PRIVATE_KEY")),
		GitHubWebhookSecret:         v.GetString("GITHUB_WEBHOOK_SECRET"),
		GitHubAPIURL:                v.GetString("GITHUB_API_URL"),
		GitHubRateLimit:             v.GetFloat64("GITHUB_RATE_LIMIT"),
		TriggerKeyword:              strings.TrimSpace(v.GetString("TRIGGER_KEYWORD")),
		CommandRequireWrite:         v.GetBool("COMMAND_REQUIRE_WRITE"),
		GateContexts:                splitList(v.GetString("GATE_CONTEXTS")),
		GateFailureState:            strings.ToLower(strings.TrimSpace(v.GetString("GATE_FAILURE_STATE"))),
		GateHintLabel:               strings.TrimSpace(v.GetString("GATE_HINT_LABEL")),
		CelebrationComment:          v.GetString("CELEBRATION_COMMENT"),
		SessionTTL:                  v.GetDuration("SESSION_TTL"),
		SessionRearmOnDrop:          v.GetBool("SESSION_REARM_ON_DROP"),
		StateDBPath:                 v.GetString("STATE_DB_PATH"),
		WatchInterval:               v.GetDuration("WATCH_INTERVAL"),
		WatchTimeout:                v.GetDuration("WATCH_TIMEOUT"),
		DispatcherWorkers:           v.GetInt("DISPATCHER_WORKERS"),
		DispatcherQueueSize:         v.GetInt("DISPATCHER_QUEUE_SIZE"),
		DispatcherWatchWorkers:      v.GetInt("DISPATCHER_WATCH_WORKERS"),
		DispatcherWatchQueueSize:    v.GetInt("DISPATCHER_WATCH_QUEUE_SIZE"),
		DispatcherMaxAttempts:       v.GetInt("DISPATCHER_MAX_ATTEMPTS"),
		DispatcherRetryInitial:      time.Duration(v.GetInt("DISPATCHER_RETRY_SECONDS")) * time.Second,
		DispatcherRetryMax:          time.Duration(v.GetInt("DISPATCHER_RETRY_MAX_SECONDS")) * time.Second,
		DispatcherBackoffMultiplier: v.GetFloat64("DISPATCHER_BACKOFF_MULTIPLIER"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if err := c.validateGitHubCredentials(); err != nil {
		return err
	}

	if err := c.validateGateConfig(); err != nil {
		return err
	}

	c.applyDefaults()
	return c.validateDispatcherConfig()
}

func (c *Config) validateGitHubCredentials() error {
	if c.GitHubAppID == "" {
		return fmt.Errorf("GITHUB_APP_ID is required")
	}
	if c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required")
	}
	if c.GitHubWebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}
	if c.GitHubRateLimit < 0 {
		return fmt.Errorf("GITHUB_RATE_LIMIT must be >= 0")
	}
	return nil
}

func (c *Config) validateGateConfig() error {
	if c.TriggerKeyword == "" || strings.ContainsAny(c.TriggerKeyword, " \t\n") {
		return fmt.Errorf("TRIGGER_KEYWORD must be a single non-empty word")
	}
	switch c.GateFailureState {
	case "", "pending", "failure":
	default:
		return fmt.Errorf("invalid GATE_FAILURE_STATE: %s (must be 'pending' or 'failure')", c.GateFailureState)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8000
	}
	if len(c.GateContexts) == 0 {
		c.GateContexts = []string{"checklist-gate"}
	}
	if c.GateFailureState == "" {
		c.GateFailureState = "pending"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = 5 * time.Second
	}
	if c.WatchTimeout <= 0 {
		c.WatchTimeout = 2 * time.Minute
	}
	if c.DispatcherWorkers <= 0 {
		c.DispatcherWorkers = 4
	}
	if c.DispatcherQueueSize <= 0 {
		c.DispatcherQueueSize = 16
	}
	if c.DispatcherWatchWorkers <= 0 {
		c.DispatcherWatchWorkers = 2
	}
	if c.DispatcherWatchQueueSize <= 0 {
		c.DispatcherWatchQueueSize = 32
	}
	if c.DispatcherMaxAttempts <= 0 {
		c.DispatcherMaxAttempts = 3
	}
	if c.DispatcherRetryInitial <= 0 {
		c.DispatcherRetryInitial = 15 * time.Second
	}
	if c.DispatcherRetryMax <= 0 {
		c.DispatcherRetryMax = 5 * time.Minute
	}
	if c.DispatcherBackoffMultiplier < 1 {
		c.DispatcherBackoffMultiplier = 2
	}
}

func (c *Config) validateDispatcherConfig() error {
	if c.WatchTimeout < c.WatchInterval {
		return fmt.Errorf("WATCH_TIMEOUT must be >= WATCH_INTERVAL")
	}
	if c.DispatcherRetryMax < c.DispatcherRetryInitial {
		return fmt.Errorf("DISPATCHER_RETRY_MAX_SECONDS must be >= DISPATCHER_RETRY_SECONDS")
	}
	return nil
}

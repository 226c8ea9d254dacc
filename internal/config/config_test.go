package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var requiredEnv = map[string]string{
	"GITHUB_APP_ID":         "123456",
	"GITHUB_PRIVATE_KEY":    "test-private-key",
	"GITHUB_WEBHOOK_SECRET": "test-webhook-secret",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 8000 {
					t.Errorf("Port = %d, want 8000", cfg.Port)
				}
				if cfg.TriggerKeyword != "/checklist" || !cfg.CommandRequireWrite {
					t.Errorf("TriggerKeyword = %s, require write = %v", cfg.TriggerKeyword, cfg.CommandRequireWrite)
				}
				if !reflect.DeepEqual(cfg.GateContexts, []string{"checklist-gate"}) {
					t.Errorf("GateContexts = %v", cfg.GateContexts)
				}
				if cfg.GateFailureState != "pending" || cfg.GateHintLabel != "checklist-incomplete" {
					t.Errorf("gate = %s/%s", cfg.GateFailureState, cfg.GateHintLabel)
				}
				if cfg.SessionTTL != 12*time.Hour || cfg.SessionRearmOnDrop {
					t.Errorf("session = %s rearm=%v", cfg.SessionTTL, cfg.SessionRearmOnDrop)
				}
				if cfg.WatchInterval != 5*time.Second || cfg.WatchTimeout != 2*time.Minute {
					t.Errorf("watch = %s/%s", cfg.WatchInterval, cfg.WatchTimeout)
				}
				if cfg.GitHubRateLimit != 10 {
					t.Errorf("GitHubRateLimit = %v, want 10", cfg.GitHubRateLimit)
				}
				if cfg.StateDBPath != "" {
					t.Errorf("StateDBPath = %q, want memory", cfg.StateDBPath)
				}
				if cfg.DispatcherWorkers != 4 || cfg.DispatcherQueueSize != 16 || cfg.DispatcherMaxAttempts != 3 {
					t.Errorf("dispatcher = %d/%d/%d", cfg.DispatcherWorkers, cfg.DispatcherQueueSize, cfg.DispatcherMaxAttempts)
				}
				if cfg.DispatcherWatchWorkers != 2 || cfg.DispatcherWatchQueueSize != 32 {
					t.Errorf("watch pool = %d/%d", cfg.DispatcherWatchWorkers, cfg.DispatcherWatchQueueSize)
				}
				if cfg.DispatcherRetryInitial != 15*time.Second || cfg.DispatcherRetryMax != 300*time.Second {
					t.Errorf("retry = %s/%s", cfg.DispatcherRetryInitial, cfg.DispatcherRetryMax)
				}
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"PORT":                     "8080",
				"TRIGGER_KEYWORD":          "/todo",
				"COMMAND_REQUIRE_WRITE":    "false",
				"GATE_CONTEXTS":            "checklist-gate, checklist/required ,",
				"GATE_FAILURE_STATE":       "FAILURE",
				"GATE_HINT_LABEL":          "",
				"SESSION_TTL":              "30m",
				"SESSION_REARM_ON_DROP":    "true",
				"STATE_DB_PATH":            "/tmp/state.db",
				"WATCH_INTERVAL":           "1s",
				"WATCH_TIMEOUT":            "10s",
				"GITHUB_RATE_LIMIT":        "2.5",
				"GITHUB_API_URL":           "https://ghe.example.com/api/v3/",
				"DISPATCHER_WATCH_WORKERS": "6",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 8080 || cfg.TriggerKeyword != "/todo" || cfg.CommandRequireWrite {
					t.Errorf("Port/TriggerKeyword = %d/%s", cfg.Port, cfg.TriggerKeyword)
				}
				if !reflect.DeepEqual(cfg.GateContexts, []string{"checklist-gate", "checklist/required"}) {
					t.Errorf("GateContexts = %v", cfg.GateContexts)
				}
				if cfg.GateFailureState != "failure" {
					t.Errorf("GateFailureState = %s", cfg.GateFailureState)
				}
				if cfg.SessionTTL != 30*time.Minute || !cfg.SessionRearmOnDrop {
					t.Errorf("session = %s rearm=%v", cfg.SessionTTL, cfg.SessionRearmOnDrop)
				}
				if cfg.StateDBPath != "/tmp/state.db" || cfg.GitHubRateLimit != 2.5 {
					t.Errorf("db/rate = %s/%v", cfg.StateDBPath, cfg.GitHubRateLimit)
				}
				if cfg.GitHubAPIURL != "https://ghe.example.com/api/v3/" {
					t.Errorf("GitHubAPIURL = %s", cfg.GitHubAPIURL)
				}
				if cfg.DispatcherWatchWorkers != 6 {
					t.Errorf("DispatcherWatchWorkers = %d, want 6", cfg.DispatcherWatchWorkers)
				}
			},
		},
		{
			name:    "invalid failure state",
			env:     map[string]string{"GATE_FAILURE_STATE": "error"},
			wantErr: "GATE_FAILURE_STATE",
		},
		{
			name:    "keyword with spaces",
			env:     map[string]string{"TRIGGER_KEYWORD": "/check list"},
			wantErr: "TRIGGER_KEYWORD",
		},
		{
			name:    "watch timeout shorter than interval",
			env:     map[string]string{"WATCH_INTERVAL": "10s", "WATCH_TIMEOUT": "1s"},
			wantErr: "WATCH_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			t.Chdir(t.TempDir())

			for k, v := range requiredEnv {
				t.Setenv(k, v)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "GITHUB_APP_ID: \"42\"\nGITHUB_PRIVATE_KEY: key\nGITHUB_WEBHOOK_SECRET: secret\nGATE_CONTEXTS: ci/checklist\n"
	if err := os.WriteFile(filepath.Join(dir, "checklist-gate.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATE_CONTEXTS", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHubAppID != "42" {
		t.Errorf("GitHubAppID = %s, want 42", cfg.GitHubAppID)
	}
	if !reflect.DeepEqual(cfg.GateContexts, []string{"from-env"}) {
		t.Errorf("environment should override the file, got %v", cfg.GateContexts)
	}
}

func TestConfig_validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *Config
		errMsg string
	}{
		{
			name: "valid config",
			cfg:  &Config{GitHubAppID: "1", GitHubPrivateKey: "k", GitHubWebhookSecret: "s", TriggerKeyword: "/checklist"},
		},
		{
			name:   "missing GitHubAppID",
			cfg:    &Config{GitHubPrivateKey: "k", GitHubWebhookSecret: "s", TriggerKeyword: "/checklist"},
			errMsg: "GITHUB_APP_ID is required",
		},
		{
			name:   "missing GitHubPrivateKey",
			cfg:    &Config{GitHubAppID: "1", GitHubWebhookSecret: "s", TriggerKeyword: "/checklist"},
			errMsg: "GITHUB_PRIVATE_KEY is required",
		},
		{
			name:   "missing GitHubWebhookSecret",
			cfg:    &Config{GitHubAppID: "1", GitHubPrivateKey: "k", TriggerKeyword: "/checklist"},
			errMsg: "GITHUB_WEBHOOK_SECRET is required",
		},
		{
			name:   "negative rate limit",
			cfg:    &Config{GitHubAppID: "1", GitHubPrivateKey: "k", GitHubWebhookSecret: "s", TriggerKeyword: "/checklist", GitHubRateLimit: -1},
			errMsg: "GITHUB_RATE_LIMIT",
		},
		{
			name:   "empty keyword",
			cfg:    &Config{GitHubAppID: "1", GitHubPrivateKey: "k", GitHubWebhookSecret: "s"},
			errMsg: "TRIGGER_KEYWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("validate() error = %v, want %q", err, tt.errMsg)
			}
		})
	}
}

func TestConfigValidateDefaultsApplied(t *testing.T) {
	cfg := &Config{
		GitHubAppID:                 "app",
		GitHubPrivateKey:            "key",
		GitHubWebhookSecret:         "secret",
		TriggerKeyword:              "/checklist",
		DispatcherBackoffMultiplier: 0.5,
	}

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}

	if cfg.DispatcherWorkers != 4 || cfg.DispatcherQueueSize != 16 {
		t.Fatalf("dispatcher defaults = %d/%d", cfg.DispatcherWorkers, cfg.DispatcherQueueSize)
	}
	if cfg.DispatcherWatchWorkers != 2 || cfg.DispatcherWatchQueueSize != 32 {
		t.Fatalf("watch pool defaults = %d/%d", cfg.DispatcherWatchWorkers, cfg.DispatcherWatchQueueSize)
	}
	if cfg.DispatcherRetryInitial != 15*time.Second || cfg.DispatcherRetryMax != 5*time.Minute {
		t.Fatalf("retry defaults = %s/%s", cfg.DispatcherRetryInitial, cfg.DispatcherRetryMax)
	}
	if cfg.DispatcherBackoffMultiplier != 2 {
		t.Fatalf("DispatcherBackoffMultiplier default = %f, want 2", cfg.DispatcherBackoffMultiplier)
	}
	if cfg.GateFailureState != "pending" || len(cfg.GateContexts) != 1 {
		t.Fatalf("gate defaults = %s %v", cfg.GateFailureState, cfg.GateContexts)
	}
}

func TestConfigValidateRetryWindow(t *testing.T) {
	cfg := &Config{
		GitHubAppID:            "app",
		GitHubPrivateKey:       "key",
		GitHubWebhookSecret:    "secret",
		TriggerKeyword:         "/checklist",
		DispatcherRetryInitial: 10 * time.Second,
		DispatcherRetryMax:     5 * time.Second,
	}

	err := cfg.validate()
	if err == nil || !strings.Contains(err.Error(), "DISPATCHER_RETRY_MAX_SECONDS") {
		t.Fatalf("expected retry window error, got %v", err)
	}
}

func TestNormalizePrivateKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "  ", ""},
		{"double quoted", `"abc"`, "abc"},
		{"single quoted", `'abc'`, "abc"},
		{"escaped newlines", `line1\nline2`, "line1\nline2"},
		{"crlf", "line1\r\nline2", "line1\nline2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePrivateKey(tt.input); got != tt.want {
				t.Errorf("normalizePrivateKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

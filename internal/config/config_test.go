package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopost/gopost/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  host: localhost
  dbname: gopost
twitter:
  bearer_token: tok
openai:
  api_key: key
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Monitor.Interval != 10*time.Minute {
		t.Errorf("Monitor.Interval = %v, want 10m", cfg.Monitor.Interval)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Errorf("Scheduler.Interval = %v, want 1m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.MonthlyLimit != 500 {
		t.Errorf("Scheduler.MonthlyLimit = %d, want 500", cfg.Scheduler.MonthlyLimit)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Database.Port != "5432" {
		t.Errorf("Database.Port = %q, want 5432", cfg.Database.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("TWITTER_BEARER_TOKEN", "env-token")
	t.Setenv("GOPOST_PORT", "9090")

	cfg, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, env should win", cfg.Database.Host)
	}
	if cfg.Twitter.BearerToken != "env-token" {
		t.Errorf("Twitter.BearerToken = %q", cfg.Twitter.BearerToken)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q, want :9090", cfg.Server.Address)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name: "missing twitter token",
			content: `
database:
  host: localhost
  dbname: gopost
openai:
  api_key: key
`,
		},
		{
			name: "missing database host",
			content: `
database:
  dbname: gopost
twitter:
  bearer_token: tok
openai:
  api_key: key
`,
		},
		{
			name: "bad topic seed kind",
			content: minimalConfig + `
topics:
  - query: golang
    source_kind: rss_feed
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.Load(writeConfig(t, tc.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_TopicSeeds(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig+`
topics:
  - query: golang releases
    source_kind: web_search
    interval_minutes: 30
  - query: "https://blog.example.com"
    source_kind: specific_url
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Topics) != 2 {
		t.Fatalf("got %d topic seeds, want 2", len(cfg.Topics))
	}
	if cfg.Topics[0].IntervalMinutes != 30 {
		t.Errorf("Topics[0].IntervalMinutes = %d", cfg.Topics[0].IntervalMinutes)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

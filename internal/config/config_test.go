package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listingopt.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("LLM.Provider = %q, want groq", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 2048 {
		t.Errorf("LLM tuning = %v/%d, want 0.7/2048", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.Scraper.NavTimeout != 30*time.Second {
		t.Errorf("Scraper.NavTimeout = %v, want 30s", cfg.Scraper.NavTimeout)
	}
	if cfg.Scraper.SettleDelay != 3*time.Second {
		t.Errorf("Scraper.SettleDelay = %v, want 3s", cfg.Scraper.SettleDelay)
	}
	if cfg.Scraper.DefaultRegion != "IN" {
		t.Errorf("Scraper.DefaultRegion = %q, want IN", cfg.Scraper.DefaultRegion)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LISTINGOPT_LLM_API_KEY", "")
	cfg, err := Load(writeConfig(t, "llm:\n  provider: groq\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey = %q, want empty", cfg.LLM.APIKey)
	}
}

func TestLoad_ProviderEnvKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg, err := Load(writeConfig(t, "llm:\n  provider: Anthropic\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-ant-test" {
		t.Errorf("LLM.APIKey = %q, want sk-ant-test", cfg.LLM.APIKey)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LISTINGOPT_SERVER_PORT", "9090")
	t.Setenv("LISTINGOPT_SCRAPER_SETTLE_DELAY", "500ms")
	cfg, err := Load(writeConfig(t, "server:\n  port: \"7070\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Scraper.SettleDelay != 500*time.Millisecond {
		t.Errorf("Scraper.SettleDelay = %v, want 500ms", cfg.Scraper.SettleDelay)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"provider", "llm:\n  provider: gemini\n", "llm.provider"},
		{"fetch mode", "scraper:\n  fetch_mode: curl\n", "fetch_mode"},
		{"solver without url", "scraper:\n  fetch_mode: solver\n", "solver_url"},
		{"driver", "store:\n  driver: mysql\n", "store.driver"},
		{"max tokens", "llm:\n  max_tokens: 0\n", "max_tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.CacheSize != 256 {
		t.Errorf("Store.CacheSize = %d, want 256", cfg.Store.CacheSize)
	}
	if !cfg.Scraper.Headless {
		t.Error("Scraper.Headless should default to true")
	}
}

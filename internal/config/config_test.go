package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"admin_password": "s3cret"},
		"providers": {"claude": {"model": "claude-sonnet-4-20250514", "api_key": "k"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":8000" {
		t.Errorf("server address default: %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("max file size default: %d", cfg.BasicConfig.MaxFileSize)
	}
	if cfg.Timeout() != DefaultProcessingTimeout {
		t.Errorf("timeout default: %s", cfg.Timeout())
	}
	if cfg.BasicConfig.LLMProvider != "claude" {
		t.Errorf("provider default: %q", cfg.BasicConfig.LLMProvider)
	}
	if !filepath.IsAbs(cfg.BasicConfig.StagingDir) {
		t.Errorf("staging dir should resolve to an absolute path: %q", cfg.BasicConfig.StagingDir)
	}
}

func TestLoadRejectsMissingAdminPassword(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {},
		"providers": {"claude": {"model": "m", "api_key": "k"}}
	}`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "admin_password") {
		t.Fatalf("expected admin_password error, got %v", err)
	}
}

func TestLoadRejectsUnconfiguredProvider(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"admin_password": "s3cret", "llm_provider": "gemini"},
		"providers": {"claude": {"model": "m", "api_key": "k"}}
	}`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "gemini") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"admin_password": "s3cret", "staging_dir": "stage"},
		"databases": {"sqlite3": {"dsn": "data/app.db"}},
		"providers": {"claude": {"model": "m", "api_key": "k"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.BasicConfig.StagingDir != filepath.Join(base, "stage") {
		t.Errorf("staging dir: %q", cfg.BasicConfig.StagingDir)
	}
	if cfg.Databases["sqlite3"].DSN != filepath.Join(base, "data/app.db") {
		t.Errorf("sqlite dsn: %q", cfg.Databases["sqlite3"].DSN)
	}
}

func TestLoadKeepsExplicitSettings(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {
			"admin_password": "s3cret",
			"server_address": ":9100",
			"max_file_size": 1048576,
			"processing_timeout": 30
		},
		"providers": {"claude": {"model": "m", "api_key": "k"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9100" {
		t.Errorf("server address: %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.MaxFileSize != 1048576 {
		t.Errorf("max file size: %d", cfg.BasicConfig.MaxFileSize)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout: %s", cfg.Timeout())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

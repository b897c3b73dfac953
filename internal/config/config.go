package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultMaxFileSize       = 52428800 // 50 MiB
	DefaultProcessingTimeout = 90 * time.Second
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Redis       RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	AdminPassword string `json:"admin_password"`

	MaxFileSize       int64 `json:"max_file_size"`
	ProcessingTimeout int   `json:"processing_timeout"` // seconds

	StagingDir          string `json:"staging_dir"`
	StagingTTLMinutes   int    `json:"staging_ttl_minutes"`
	StagingSweepMinutes int    `json:"staging_sweep_minutes"`

	LLMProvider string `json:"llm_provider"`

	OCR OCRConfig `json:"ocr"`
}

// OCRConfig selects the external binaries used for text extraction.
type OCRConfig struct {
	Pdftotext string `json:"pdftotext"`
	Pdftoppm  string `json:"pdftoppm"`
	Tesseract string `json:"tesseract"`
	Language  string `json:"language"`
	DPI       int    `json:"dpi"`
	MaxPages  int    `json:"max_pages"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Load reads configuration from the provided path (defaults to config.json).
// Relative paths inside the file resolve against the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()

	if cfg.BasicConfig.AdminPassword == "" {
		return nil, fmt.Errorf("admin_password must be configured")
	}
	provider := cfg.BasicConfig.LLMProvider
	if _, ok := cfg.Providers[provider]; !ok {
		return nil, fmt.Errorf("provider %q not configured", provider)
	}

	baseDir := filepath.Dir(absPath)
	if !filepath.IsAbs(cfg.BasicConfig.StagingDir) {
		cfg.BasicConfig.StagingDir = filepath.Join(baseDir, cfg.BasicConfig.StagingDir)
	}
	for name, db := range cfg.Databases {
		if db.DSN != "" && db.DSN != ":memory:" && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(baseDir, db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}

// ApplyDefaults fills zero-valued settings with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8000"
	}
	if c.BasicConfig.MaxFileSize <= 0 {
		c.BasicConfig.MaxFileSize = DefaultMaxFileSize
	}
	if c.BasicConfig.ProcessingTimeout <= 0 {
		c.BasicConfig.ProcessingTimeout = int(DefaultProcessingTimeout / time.Second)
	}
	if c.BasicConfig.StagingDir == "" {
		c.BasicConfig.StagingDir = "./data/staging"
	}
	if c.BasicConfig.StagingTTLMinutes <= 0 {
		c.BasicConfig.StagingTTLMinutes = 60
	}
	if c.BasicConfig.StagingSweepMinutes <= 0 {
		c.BasicConfig.StagingSweepMinutes = 10
	}
	if c.BasicConfig.LLMProvider == "" {
		c.BasicConfig.LLMProvider = "claude"
	}
}

// Timeout returns the processing budget as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.BasicConfig.ProcessingTimeout) * time.Second
}

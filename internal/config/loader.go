package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Load reads and parses the configuration file
// It also supports environment variable overrides with BS_ prefix
func Load(configPath string) (*types.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so omitted sections stay usable
	cfg := GetDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDefault builds the default configuration without a file. A non-empty
// dataDir relocates storage and the database under it. Environment
// overrides still apply.
func LoadDefault(dataDir string) (*types.Config, error) {
	cfg := GetDefault()
	if dataDir != "" {
		cfg.Storage.Local.BasePath = filepath.Join(dataDir, "storage")
		cfg.Database.Path = filepath.Join(dataDir, "library.db")
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid and fills in defaults for
// unset tuning values
func Validate(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 100
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" {
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch cfg.Parser.MOBIEngine {
	case "":
		cfg.Parser.MOBIEngine = "text"
	case "text", "fitz":
	default:
		return fmt.Errorf("invalid mobi engine: %s (must be 'text' or 'fitz')", cfg.Parser.MOBIEngine)
	}

	s := &cfg.Session
	if s.IdleTimeoutMinutes < 0 || s.SweepIntervalMinutes < 0 {
		return fmt.Errorf("session idle timeout and sweep interval must not be negative")
	}
	defaults := GetDefault().Session
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&s.ParseTimeoutMs, defaults.ParseTimeoutMs)
	fill(&s.ChapterTimeoutMs, defaults.ChapterTimeoutMs)
	fill(&s.EPUBReadyTimeoutMs, defaults.EPUBReadyTimeoutMs)
	fill(&s.EPUBMetaTimeoutMs, defaults.EPUBMetaTimeoutMs)
	fill(&s.EPUBNavTimeoutMs, defaults.EPUBNavTimeoutMs)
	fill(&s.EPUBRenderTimeoutMs, defaults.EPUBRenderTimeoutMs)
	if s.IdleTimeoutMinutes > 0 && s.SweepIntervalMinutes == 0 {
		s.SweepIntervalMinutes = defaults.SweepIntervalMinutes
	}

	if cfg.Import.DebounceMs <= 0 {
		cfg.Import.DebounceMs = 2000
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
// Environment variables should be prefixed with BS_ (bookshelf)
func applyEnvOverrides(cfg *types.Config) {
	// Server overrides
	if val := os.Getenv("BS_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("BS_SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Server.Port)
	}

	// Storage overrides
	if val := os.Getenv("BS_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("BS_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("BS_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("BS_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("BS_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("BS_STORAGE_S3_PREFIX"); val != "" {
		cfg.Storage.S3.Prefix = val
	}
	if val := os.Getenv("BS_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("BS_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}

	if val := os.Getenv("BS_DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("BS_PARSER_MOBI_ENGINE"); val != "" {
		cfg.Parser.MOBIEngine = val
	}
	if val := os.Getenv("BS_IMPORT_WATCH_DIR"); val != "" {
		cfg.Import.WatchDir = val
	}
	if val := os.Getenv("BS_PREFS_PATH"); val != "" {
		cfg.Prefs.Path = val
	}
	if val := os.Getenv("BS_SESSION_IDLE_TIMEOUT_MINUTES"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Session.IdleTimeoutMinutes)
	}
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 30,
			MaxUploadMB:  100,
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/bookshelf/storage",
			},
		},
		Database: types.DatabaseConfig{
			Path: "/var/lib/bookshelf/library.db",
		},
		Session: types.SessionConfig{
			ParseTimeoutMs:       22000,
			ChapterTimeoutMs:     16000,
			EPUBReadyTimeoutMs:   15000,
			EPUBMetaTimeoutMs:    5000,
			EPUBNavTimeoutMs:     5000,
			EPUBRenderTimeoutMs:  12000,
			IdleTimeoutMinutes:   30,
			SweepIntervalMinutes: 5,
		},
		Parser: types.ParserConfig{
			MOBIEngine: "text",
		},
		Import: types.ImportConfig{
			DebounceMs: 2000,
		},
	}
}

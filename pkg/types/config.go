package types

// Config represents the overall application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Session  SessionConfig  `yaml:"session" json:"session"`
	Parser   ParserConfig   `yaml:"parser" json:"parser"`
	Import   ImportConfig   `yaml:"import" json:"import"`
	Prefs    PrefsConfig    `yaml:"prefs" json:"prefs"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
	MaxUploadMB  int    `yaml:"max_upload_mb" json:"max_upload_mb"`
}

// StorageConfig defines where raw book files are kept
type StorageConfig struct {
	Adapter string           `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local" json:"local"`
	S3      S3StorageOpts    `yaml:"s3" json:"s3"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// DatabaseConfig points at the SQLite library database
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SessionConfig bounds parser work. Durations are in milliseconds.
type SessionConfig struct {
	ParseTimeoutMs       int `yaml:"parse_timeout_ms" json:"parse_timeout_ms"`
	ChapterTimeoutMs     int `yaml:"chapter_timeout_ms" json:"chapter_timeout_ms"`
	EPUBReadyTimeoutMs   int `yaml:"epub_ready_timeout_ms" json:"epub_ready_timeout_ms"`
	EPUBMetaTimeoutMs    int `yaml:"epub_metadata_timeout_ms" json:"epub_metadata_timeout_ms"`
	EPUBNavTimeoutMs     int `yaml:"epub_navigation_timeout_ms" json:"epub_navigation_timeout_ms"`
	EPUBRenderTimeoutMs  int `yaml:"epub_render_timeout_ms" json:"epub_render_timeout_ms"`
	IdleTimeoutMinutes   int `yaml:"idle_timeout_minutes" json:"idle_timeout_minutes"` // 0 disables eviction
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" json:"sweep_interval_minutes"`
}

// ParserConfig selects parser engines
type ParserConfig struct {
	MOBIEngine string `yaml:"mobi_engine" json:"mobi_engine"` // "text" or "fitz"
}

// ImportConfig configures the inbox watcher
type ImportConfig struct {
	WatchDir   string `yaml:"watch_dir" json:"watch_dir"`
	DebounceMs int    `yaml:"debounce_ms" json:"debounce_ms"`
}

// PrefsConfig locates the reader preferences file
type PrefsConfig struct {
	Path string `yaml:"path" json:"path"`
}

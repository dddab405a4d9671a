package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config represents the main configuration for vocab.
type Config struct {
	BaseDir         string `toml:"base_dir" validate:"required"`
	LogDir          string `toml:"log_dir"`
	LogLevel        string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	DefaultPageSize int    `toml:"default_page_size" validate:"min=0,max=100"`

	Storage    StorageConfig    `toml:"storage"`
	Cache      CacheConfig      `toml:"cache"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Snapshots  SnapshotConfig   `toml:"snapshots"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// StorageConfig selects and configures the storage backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type" validate:"required,oneof=filesystem s3 sqlite memory"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" validate:"required_if=Type filesystem"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty" validate:"required_with=S3AccessKeyID"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
	S3BreakerFailures uint32 `toml:"s3_breaker_failures,omitempty"`

	// SQLite-specific fields (only used when Type == "sqlite")
	SQLitePath string `toml:"sqlite_path,omitempty" validate:"required_if=Type sqlite"`
}

// CacheConfig configures the read cache in front of the storage backend.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	SizeMB     int  `toml:"size_mb" validate:"required_if=Enabled true,min=0"`
	TTLSeconds int  `toml:"ttl_seconds" validate:"min=0"`
}

// MetricsConfig configures prometheus metrics. The CLI is short-lived, so
// metrics are written to a node-exporter textfile on exit.
type MetricsConfig struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path" validate:"required_if=Enabled true"`
}

// SnapshotConfig configures snapshot bundles.
type SnapshotConfig struct {
	MaxNoteLength int  `toml:"max_note_length" validate:"min=0,max=500"`
	Compress      bool `toml:"compress"`
	Encrypt       bool `toml:"encrypt"`
}

// EncryptionConfig holds paths to the age key pair used to seal snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type" validate:"omitempty,oneof=age test"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a Config with filesystem storage under baseDir and
// default key paths.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:         baseDir,
		LogDir:          filepath.Join(baseDir, "log"),
		LogLevel:        "info",
		DefaultPageSize: 20,
		Storage: StorageConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "data"),
		},
		Cache: CacheConfig{
			SizeMB:     16,
			TTLSeconds: 60,
		},
		Snapshots: SnapshotConfig{
			MaxNoteLength: 500,
			Compress:      true,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "vocab.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "vocab.key"),
		},
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Snapshots.Encrypt && (c.Encryption.PublicKeyPath == "" || c.Encryption.PrivateKeyPath == "") {
		return fmt.Errorf("invalid config: snapshots.encrypt requires encryption key paths")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init validates cfg and writes it to a new config file at path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Package config loads pf settings from $HOME/.passforge/config.yaml,
// PASSFORGE_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

const (
	EnvPrefix = "PASSFORGE"
	dirName   = ".passforge"
	fileName  = "config.yaml"
)

// Config is the full pf configuration.
type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Engine EngineConfig `mapstructure:"engine"`
	Vault  VaultConfig  `mapstructure:"vault"`
	Log    LogConfig    `mapstructure:"log"`
}

type StoreConfig struct {
	Backend string       `mapstructure:"backend" validate:"oneof=sqlite file http s3"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	File    FileConfig   `mapstructure:"file"`
	HTTP    HTTPConfig   `mapstructure:"http"`
	S3      S3Config     `mapstructure:"s3"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type HTTPConfig struct {
	URL      string        `mapstructure:"url" validate:"omitempty,url"`
	DeleteBy string        `mapstructure:"delete_by" validate:"oneof=id name"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Prefix          string `mapstructure:"prefix"`
}

// EngineConfig is the Argon2id cost for new passwords plus engine runtime settings.
// OutputLen must cover the longest password.
type EngineConfig struct {
	TimeCost    uint32        `mapstructure:"time_cost" validate:"min=1"`
	MemoryKiB   uint32        `mapstructure:"memory_kib" validate:"min=8"`
	Parallelism uint8         `mapstructure:"parallelism" validate:"min=1"`
	OutputLen   uint32        `mapstructure:"output_len" validate:"min=64,max=1024"`
	InitTimeout time.Duration `mapstructure:"init_timeout" validate:"gt=0"`
	Workers     int           `mapstructure:"workers" validate:"min=1,max=64"`
}

type VaultConfig struct {
	PBKDF2Iterations int `mapstructure:"pbkdf2_iterations" validate:"min=1000"`
	MaxSuffix        int `mapstructure:"max_suffix" validate:"min=1,max=10000"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Argon2 returns the configured derivation cost.
func (c EngineConfig) Argon2() krypto.Argon2Params {
	return krypto.Argon2Params{
		TimeCost:    c.TimeCost,
		MemoryKiB:   c.MemoryKiB,
		Parallelism: c.Parallelism,
		OutputLen:   c.OutputLen,
	}
}

// Dir returns $HOME/.passforge.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath returns $HOME/.passforge/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.sqlite.path", filepath.Join(dir, "vault.db"))
	v.SetDefault("store.file.dir", dir)
	v.SetDefault("store.http.url", "")
	v.SetDefault("store.http.delete_by", "id")
	v.SetDefault("store.http.timeout", "10s")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.access_key_id", "")
	v.SetDefault("store.s3.secret_access_key", "")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.use_ssl", false)
	v.SetDefault("store.s3.prefix", "")

	def := krypto.DefaultArgon2Params()
	v.SetDefault("engine.time_cost", def.TimeCost)
	v.SetDefault("engine.memory_kib", def.MemoryKiB)
	v.SetDefault("engine.parallelism", def.Parallelism)
	v.SetDefault("engine.output_len", def.OutputLen)
	v.SetDefault("engine.init_timeout", "10s")
	v.SetDefault("engine.workers", 1)

	v.SetDefault("vault.pbkdf2_iterations", krypto.DefaultPBKDF2Iterations)
	v.SetDefault("vault.max_suffix", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. With an empty path it looks for config.yaml in
// $HOME/.passforge and the working directory and falls back to defaults when
// neither exists; an explicit path must exist. flags maps config keys such as
// "store.backend" to command-line flags that override them when set.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, f := range flags {
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.expandPaths()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expandPaths() {
	c.Store.SQLite.Path = expand(c.Store.SQLite.Path)
	c.Store.File.Dir = expand(c.Store.File.Dir)
}

func expand(p string) string {
	if p == "" {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return os.ExpandEnv(p)
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

// Validate checks field constraints and backend-specific requirements.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	var msgs []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, e := range verrs {
			msgs = append(msgs, formatFieldError(e))
		}
	}

	switch cfg.Store.Backend {
	case "sqlite":
		if cfg.Store.SQLite.Path == "" {
			msgs = append(msgs, "store.sqlite.path is required for the sqlite backend")
		}
	case "file":
		if cfg.Store.File.Dir == "" {
			msgs = append(msgs, "store.file.dir is required for the file backend")
		}
	case "http":
		if cfg.Store.HTTP.URL == "" {
			msgs = append(msgs, "store.http.url is required for the http backend")
		}
	case "s3":
		if cfg.Store.S3.Endpoint == "" || cfg.Store.S3.Bucket == "" {
			msgs = append(msgs, "store.s3.endpoint and store.s3.bucket are required for the s3 backend")
		}
	}
	if cfg.Engine.MemoryKiB < 8*uint32(cfg.Engine.Parallelism) {
		msgs = append(msgs, fmt.Sprintf("engine.memory_kib must be at least 8*parallelism (%d)", 8*uint32(cfg.Engine.Parallelism)))
	}

	if len(msgs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL (got: %v)", field, e.Value())
	}
	return fmt.Sprintf("%s failed %s validation", field, e.Tag())
}

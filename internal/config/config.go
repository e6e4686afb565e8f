package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Forms           FormsConfig           `mapstructure:"forms"`
	Auth            AuthConfig            `mapstructure:"auth"`
	Log             LogConfig             `mapstructure:"log"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig selects the blob store that holds saved forms:
// "sqlite" or "postgres" (via Database), "local" (one file per key) or
// "memory".
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	LocalPath string `mapstructure:"local_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"` // directory for the SQLite file
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN returns the data source name for driver.
func (d DatabaseConfig) DSN(driver string) string {
	if driver == "sqlite" {
		return filepath.Join(d.Path, d.Name+".db")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type FormsConfig struct {
	StorageKey string `mapstructure:"storage_key"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password_hash"` // bcrypt
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// InstrumentationConfig controls request tracing. Sink is "log" or
// "database"; the database sink needs a sqlite or postgres storage driver.
type InstrumentationConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	BufferSize      int     `mapstructure:"buffer_size"`
	FlushIntervalMs int     `mapstructure:"flush_interval_ms"`
	Sink            string  `mapstructure:"sink"`
	RetentionDays   int     `mapstructure:"retention_days"`
}

const DefaultStorageKey = "formBuilder_savedForms"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.local_path", "./data/blobs")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "formcraft")
	v.SetDefault("database.name", "formcraft")
	v.SetDefault("database.path", "./data")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("forms.storage_key", DefaultStorageKey)
	v.SetDefault("auth.jwt_secret", "changeme-secret")
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("instrumentation.enabled", true)
	v.SetDefault("instrumentation.sampling_rate", 1.0)
	v.SetDefault("instrumentation.buffer_size", 500)
	v.SetDefault("instrumentation.flush_interval_ms", 1000)
	v.SetDefault("instrumentation.sink", "log")
	v.SetDefault("instrumentation.retention_days", 7)
}

// Load reads configuration from file (or app.yaml in the usual search
// paths when file is empty) and FORMCRAFT_* environment variables. A
// missing app.yaml is not an error; a missing explicit file is.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FORMCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/interaction-log/internal/infra/db/mysql"
	"github.com/bryanwahyu/interaction-log/internal/infra/db/postgres"
)

const (
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	TargetLocal = "local"
	TargetMinio = "minio"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`

	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"` // sqlite file or badger directory
		Key    string `yaml:"key"`
	} `yaml:"storage"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		Prefix     string `yaml:"prefix"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Export struct {
		Target   string `yaml:"target"`
		Dir      string `yaml:"dir"`
		Timezone string `yaml:"timezone"`
	} `yaml:"export"`

	OpenAI struct {
		APIKey  string        `yaml:"apiKey"`
		BaseURL string        `yaml:"baseURL"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"openai"`

	// Auth maps tenant name to API key. Empty disables auth.
	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int `yaml:"capacity"`
		RefillPerSecond int `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`
}

// Default returns a config that runs with no external services: sqlite log,
// local export directory, offline classifier.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Storage.Driver = DriverSQLite
	c.Storage.Path = "data/sentinel.db"
	c.Database.Host = "127.0.0.1"
	c.Database.Port = 3306
	c.Export.Target = TargetLocal
	c.Export.Dir = "exports"
	c.Export.Timezone = "UTC"
	c.OpenAI.Model = "gpt-4o-mini"
	c.OpenAI.Timeout = 60 * time.Second
	c.RateLimit.Capacity = 60
	c.RateLimit.RefillPerSecond = 1
	return &c
}

// Load baca file config.yaml di atas default. File yang tidak ada bukan error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OpenAI.APIKey = getenv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.Storage.Driver = getenv("SENTINEL_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getenv("SENTINEL_STORAGE_PATH", c.Storage.Path)
	c.Export.Dir = getenv("SENTINEL_EXPORT_DIR", c.Export.Dir)
	c.Log.Level = getenv("SENTINEL_LOG_LEVEL", c.Log.Level)
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger:
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for %s", c.Storage.Driver)
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("config: database.host and database.name are required for %s", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Export.Target {
	case TargetLocal:
		if c.Export.Dir == "" {
			return errors.New("config: export.dir is required")
		}
	case TargetMinio:
		if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
			return errors.New("config: minio.endpoint and minio.bucketName are required")
		}
	default:
		return fmt.Errorf("config: unknown export target %q", c.Export.Target)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Location is the timezone used for dates in exports.
func (c *Config) Location() (*time.Location, error) {
	if c.Export.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: export.timezone: %w", err)
	}
	return loc, nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return mysql.Options{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
	}.DSN()
}

func (c *Config) PostgresDSN() string {
	return postgres.Options{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}.DSN()
}

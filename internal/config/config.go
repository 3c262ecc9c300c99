// Package config loads runtime settings for the server and the stand-alone
// tools. Values are layered: built-in defaults, then an optional YAML file
// (CONFIG_FILE), then the process environment, which may itself be seeded
// from a .env file (ENV_FILE, default ".env").
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type Config struct {
	Port     string `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	StoreBackend  string `yaml:"store_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	DatabaseURL   string `yaml:"database_url"`

	SessionSecret string `yaml:"session_secret"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	PasswordHash  string `yaml:"password_hash"`
	TOTPSecret    string `yaml:"totp_secret"`

	VAPIDPrivateKeyFile string        `yaml:"vapid_private_key_file"`
	VAPIDPublicKeyFile  string        `yaml:"vapid_public_key_file"`
	VAPIDClaimsEmail    string        `yaml:"vapid_claims_email"`
	PushTTL             int           `yaml:"push_ttl"`
	PushTimeout         time.Duration `yaml:"push_timeout"`

	PageSize int `yaml:"page_size"`

	ImageBackend    string   `yaml:"image_backend"`
	UploadDir       string   `yaml:"upload_dir"`
	UploadURLPrefix string   `yaml:"upload_url_prefix"`
	ImageMaxWidth   int      `yaml:"image_max_width"`
	S3              S3Config `yaml:"s3"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Port:             "8080",
		DataDir:          "data",
		LogLevel:         "info",
		StoreBackend:     BackendFile,
		RedisAddr:        "localhost:6379",
		Username:         "admin",
		VAPIDClaimsEmail: "mailto:your-email@example.com",
		PushTTL:          24 * 60 * 60,
		PushTimeout:      10 * time.Second,
		PageSize:         10,
		ImageBackend:     ImageBackendLocal,
		UploadURLPrefix:  "/uploads/",
		ImageMaxWidth:    1080,
		S3:               S3Config{Region: "auto"},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment. It does not validate; callers that need a complete server
// configuration call Validate.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.Username = getEnv("APP_USERNAME", c.Username)
	c.Password = getEnv("APP_PASSWORD", c.Password)
	c.PasswordHash = getEnv("APP_PASSWORD_HASH", c.PasswordHash)
	c.TOTPSecret = getEnv("APP_TOTP_SECRET", c.TOTPSecret)

	c.VAPIDPrivateKeyFile = getEnv("VAPID_PRIVATE_KEY_FILE", c.VAPIDPrivateKeyFile)
	c.VAPIDPublicKeyFile = getEnv("VAPID_PUBLIC_KEY_FILE", c.VAPIDPublicKeyFile)
	c.VAPIDClaimsEmail = getEnv("VAPID_CLAIMS_EMAIL", c.VAPIDClaimsEmail)

	c.ImageBackend = getEnv("IMAGE_BACKEND", c.ImageBackend)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.UploadURLPrefix = getEnv("UPLOAD_URL_PREFIX", c.UploadURLPrefix)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.S3.AccessKeyID)
	c.S3.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.S3.SecretAccessKey)
	c.S3.PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", c.S3.PublicBaseURL)

	return errors.Join(
		envInt("REDIS_DB", &c.RedisDB),
		envInt("PUSH_TTL", &c.PushTTL),
		envDuration("PUSH_TIMEOUT", &c.PushTimeout),
		envInt("PAGE_SIZE", &c.PageSize),
		envInt("IMAGE_MAX_WIDTH", &c.ImageMaxWidth),
	)
}

// fillDerived places unset file locations under DataDir.
func (c *Config) fillDerived() {
	if c.VAPIDPrivateKeyFile == "" {
		c.VAPIDPrivateKeyFile = filepath.Join(c.DataDir, "vapid_private.pem")
	}
	if c.VAPIDPublicKeyFile == "" {
		c.VAPIDPublicKeyFile = filepath.Join(c.DataDir, "vapid_public.txt")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
}

// Validate checks the settings the web server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}
	switch c.ImageBackend {
	case ImageBackendLocal:
	case ImageBackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 image backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown image backend %q", c.ImageBackend))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("APP_USERNAME must not be empty"))
	}
	if c.Password == "" && c.PasswordHash == "" {
		errs = append(errs, errors.New("one of APP_PASSWORD or APP_PASSWORD_HASH is required"))
	}
	return errors.Join(errs...)
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

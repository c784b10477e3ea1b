package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	DatabaseURL              string   `yaml:"databaseURL"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	SessionBackend           string   `yaml:"sessionBackend"` // redis | jwt
	SessionTTL               string   `yaml:"sessionTTL"`
	JWTSecret                string   `yaml:"jwtSecret"`
	StorageBackend           string   `yaml:"storageBackend"` // minio | fs
	MinioEndpoint            string   `yaml:"minioEndpoint"`
	MinioAccessKey           string   `yaml:"minioAccessKey"`
	MinioSecretKey           string   `yaml:"minioSecretKey"`
	MinioUseSSL              bool     `yaml:"minioUseSSL"`
	PDFBucket                string   `yaml:"pdfBucket"`
	ImageBucket              string   `yaml:"imageBucket"`
	FileStoragePath          string   `yaml:"fileStoragePath"`
	PublicBaseURL            string   `yaml:"publicBaseURL"`
	MaxUploadBytes           int64    `yaml:"maxUploadBytes"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TESEBOOK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("TESEBOOK_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("TESEBOOK_PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = strings.TrimSpace(v)
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = "redis"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "minio"
	}
	if cfg.PDFBucket == "" {
		cfg.PDFBucket = "pdfs"
	}
	if cfg.ImageBucket == "" {
		cfg.ImageBucket = "images"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	switch cfg.SessionBackend {
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis session backend")
		}
	case "jwt":
		if cfg.JWTSecret == "" {
			return errors.New("config: jwtSecret is required for the jwt session backend")
		}
	default:
		return fmt.Errorf("config: unknown sessionBackend %q", cfg.SessionBackend)
	}
	switch cfg.StorageBackend {
	case "minio":
		if cfg.MinioEndpoint == "" {
			return errors.New("config: minioEndpoint is required (set in config.yaml or MINIO_ENDPOINT)")
		}
		if cfg.MinioAccessKey == "" {
			return errors.New("config: minioAccessKey is required (set in config.yaml or MINIO_ACCESS_KEY)")
		}
		if cfg.MinioSecretKey == "" {
			return errors.New("config: minioSecretKey is required (set in config.yaml or MINIO_SECRET_KEY)")
		}
	case "fs":
		if cfg.FileStoragePath == "" {
			return errors.New("config: fileStoragePath is required for the fs storage backend")
		}
		if cfg.PublicBaseURL == "" {
			return errors.New("config: publicBaseURL is required for the fs storage backend")
		}
	default:
		return fmt.Errorf("config: unknown storageBackend %q", cfg.StorageBackend)
	}
	return nil
}

// ParseSessionTTL parses the sessionTTL duration, defaulting to 24h.
func ParseSessionTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse sessionTTL: %w", err)
	}
	if ttl <= 0 {
		return 0, errors.New("sessionTTL must be positive")
	}
	return ttl, nil
}

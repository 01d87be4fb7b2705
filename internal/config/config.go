package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Chat     ChatConfig     `yaml:"chat"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// AllowedOrigins is used by CORS and by the websocket origin check. "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig for the optional async task queue and shared token revocation.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"` // local, minio
	UploadsDir    string `yaml:"uploads_dir"`
	PublicPrefix  string `yaml:"public_prefix"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
}

type ChatConfig struct {
	MaxMessageLength   int           `yaml:"max_message_length"`
	HistoryDefault     int           `yaml:"history_default"`
	HistoryMax         int           `yaml:"history_max"`
	SendPerSecond      float64       `yaml:"send_per_second"`
	SendBurst          int           `yaml:"send_burst"`
	TypingPerSecond    float64       `yaml:"typing_per_second"`
	RevalidateInterval time.Duration `yaml:"revalidate_interval"` // 0 disables
}

type CleanupConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ImageTTLDays int    `yaml:"image_ttl_days"`
	Schedule     string `yaml:"schedule"` // cron spec
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Unmarshal over the defaults so omitted keys keep their default values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "3000",
			Mode:           "debug",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "ideaforge.db",
		},
		JWT: JWTConfig{
			Secret:     "ideaforge-secret-key-change-in-production",
			ExpireHour: 7 * 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Storage: StorageConfig{
			Driver:        "local",
			UploadsDir:    "uploads",
			PublicPrefix:  "/uploads",
			MaxImageBytes: 5 << 20,
			MinioBucket:   "ideaforge",
		},
		Chat: ChatConfig{
			MaxMessageLength:   1000,
			HistoryDefault:     50,
			HistoryMax:         100,
			SendPerSecond:      5,
			SendBurst:          10,
			TypingPerSecond:    2,
			RevalidateInterval: time.Minute,
		},
		Cleanup: CleanupConfig{
			Enabled:      true,
			ImageTTLDays: 1,
			Schedule:     "@daily",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		c.Storage.UploadsDir = dir
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		c.Storage.MinioEndpoint = endpoint
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		c.Storage.MinioAccessKey = key
	}
	if secret := os.Getenv("MINIO_SECRET_KEY"); secret != "" {
		c.Storage.MinioSecretKey = secret
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		c.Storage.MinioBucket = bucket
	}
	if days := os.Getenv("IMAGE_TTL_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			c.Cleanup.ImageTTLDays = n
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TokenTTL returns the access token lifetime.
func (c *JWTConfig) TokenTTL() time.Duration {
	if c.ExpireHour <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.ExpireHour) * time.Hour
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

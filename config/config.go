package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported values for AppConfig.DBDriver.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// AppConfig holds environment driven configuration values.
// Credentials have no defaults in code and must come from config.json, .env or the environment.
type AppConfig struct {
	AppPort            string
	AllowedOrigins     []string
	RateLimitPerMinute int
	MetricsEnabled     bool
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis backs idempotent creates; empty host disables it
	RedisHost             string
	RedisPort             int
	RedisDB               int
	RedisPassword         string
	IdempotencyTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// fileConfig mirrors config/config.json. Every section is optional.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		MetricsEnabled     *bool    `json:"MetricsEnabled"`
	} `json:"app"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
		SSLMode     string `json:"SSLMode"`
	} `json:"database"`
	Redis struct {
		RedisHost             string `json:"RedisHost"`
		RedisPort             int    `json:"RedisPort"`
		RedisDB               int    `json:"RedisDB"`
		RedisPassword         string `json:"RedisPassword"`
		IdempotencyTTLSeconds int    `json:"IdempotencyTTLSeconds"`
	} `json:"redis"`
	Gin struct {
		Mode    string `json:"Mode"`
		LogPath string `json:"LogPath"`
	} `json:"gin"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
}

// DefaultPath is where Load looks for the JSON config file.
var DefaultPath = filepath.Join("config", "config.json")

// Load builds the configuration. It should be called once during boot.
//
// Precedence: config.json -> defaults -> environment (including .env).
func Load() (AppConfig, error) {
	return LoadFrom(DefaultPath)
}

// LoadFrom is Load with an explicit JSON config path.
func LoadFrom(path string) (AppConfig, error) {
	cfg := AppConfig{MetricsEnabled: true}

	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := loadJSONConfig(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at connect time.
func (c AppConfig) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL:
		if c.DatabaseURI == "" && (c.DBHost == "" || c.DBName == "") {
			return fmt.Errorf("database: DATABASE_URL or DB_HOST and DB_NAME must be set for driver %q", c.DBDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database: unsupported driver %q", c.DBDriver)
	}
	if _, err := strconv.Atoi(c.AppPort); err != nil {
		return fmt.Errorf("app: invalid port %q", c.AppPort)
	}
	return nil
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	if fc.App.MetricsEnabled != nil {
		out.MetricsEnabled = *fc.App.MetricsEnabled
	}

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.DBSSLMode = fc.Database.SSLMode

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword
	out.IdempotencyTTLSeconds = fc.Redis.IdempotencyTTLSeconds

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "2022"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.DBDriver == "" {
		c.DBDriver = DriverPostgres
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.IdempotencyTTLSeconds == 0 {
		c.IdempotencyTTLSeconds = 86400
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvOverrides(c *AppConfig) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	var firstErr error
	setInt := func(dst *int, key string) {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("env %s: %w", key, err)
			}
			return
		}
		*dst = n
	}
	setBool := func(dst *bool, key string) {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("env %s: %w", key, err)
			}
			return
		}
		*dst = b
	}

	setString(&c.AppPort, "SERVER_PORT", "APP_PORT")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = splitCSV(v)
	}
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setBool(&c.MetricsEnabled, "METRICS_ENABLED")

	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DatabaseURI, "DATABASE_URL", "DATABASE_URI")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBSSLMode, "DB_SSLMODE")

	setString(&c.GinMode, "GIN_MODE")
	setString(&c.GinPath, "GIN_LOG_PATH")

	setString(&c.RedisHost, "REDIS_HOST")
	setInt(&c.RedisPort, "REDIS_PORT")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.IdempotencyTTLSeconds, "IDEMPOTENCY_TTL_SECONDS")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogPath, "LOG_PATH")
	setInt(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	setInt(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	setInt(&c.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	setBool(&c.LogCompress, "LOG_COMPRESS")

	c.DBDriver = strings.ToLower(c.DBDriver)
	// port default depends on the final driver
	if c.DBPort == "" {
		if c.DBDriver == DriverMySQL {
			c.DBPort = "3306"
		} else {
			c.DBPort = "5432"
		}
	}
	return firstErr
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		AdminAPIKey        string   `yaml:"admin_api_key"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer    string `yaml:"issuer"`
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	SCIM struct {
		BulkMaxOperations int `yaml:"bulk_max_operations"`
	} `yaml:"scim"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Notify struct {
		// Recipients for account and security audit notifications. Empty
		// disables mail delivery; events still reach the log sink.
		AdminRecipients []string `yaml:"admin_recipients"`
	} `yaml:"notify"`
}

func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		// no file: run on defaults plus environment overrides
	default:
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "https://iam.local"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if c.SCIM.BulkMaxOperations == 0 {
		c.SCIM.BulkMaxOperations = 50
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that would otherwise fail deep inside wiring.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn is required for the postgres driver")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	if c.SCIM.BulkMaxOperations < 1 {
		return fmt.Errorf("config: scim.bulk_max_operations must be positive")
	}
	// validate string durations
	for _, d := range []string{
		c.Storage.Postgres.ConnMaxLifetime,
		c.Cache.Memory.DefaultTTL,
		c.JWT.AccessTTL,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// AccessTTL returns the parsed access token lifetime. Call after Validate.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTTL)
	return d
}

// CacheDefaultTTL returns the parsed memory cache TTL. Call after Validate.
func (c *Config) CacheDefaultTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.Memory.DefaultTTL)
	return d
}

// applyEnvOverrides lets environment variables win over the YAML file.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}

	// SCIM
	if v, ok := getEnvInt("SCIM_BULK_MAX_OPERATIONS"); ok {
		c.SCIM.BulkMaxOperations = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// NOTIFY
	if v, ok := getEnvCSV("NOTIFY_ADMIN_RECIPIENTS"); ok {
		c.Notify.AdminRecipients = v
	}
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

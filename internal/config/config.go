package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Auth   AuthConfig
	S3     S3Config
	Log    LogConfig
	CORS   CORSConfig
	Email  EmailConfig
	Verify VerifyConfig
}

// VerifyConfig holds the defaults applied to every verification run.
type VerifyConfig struct {
	Title            string        `mapstructure:"title"`
	ExpectedVersion  string        `mapstructure:"expected_version"`
	VersionCell      string        `mapstructure:"version_cell"`
	SpotCheckIDs     []string      `mapstructure:"spot_check_ids"`
	NotifyEmail      string        `mapstructure:"notify_email"`
	MaxUploadMB      int64         `mapstructure:"max_upload_mb"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	AppURL      string `mapstructure:"app_url"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AuthConfig holds API token signing settings.
type AuthConfig struct {
	Secret      string        `mapstructure:"secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Disabled    bool          `mapstructure:"disabled"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the REPORTVERIFY_
// prefix, layered over an optional file named by REPORTVERIFY_CONFIG.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("REPORTVERIFY_CONFIG"))
}

// LoadFile is Load with an explicit config file. An empty path reads only
// defaults and the environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REPORTVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "reportverify")
	v.SetDefault("db.password", "reportverify_secret")
	v.SetDefault("db.name", "reportverify_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Auth defaults
	v.SetDefault("auth.secret", "change-me-in-production")
	v.SetDefault("auth.issuer", "reportverify")
	v.SetDefault("auth.token_expiry", "720h")
	v.SetDefault("auth.disabled", false)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "reportverify-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "verifications")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@reportverify.local")
	v.SetDefault("email.from_name", "Report Verification")
	v.SetDefault("email.app_url", "http://localhost:8080")

	// Verification defaults
	v.SetDefault("verify.title", "CQ091 - QIP 9, 11 - KS2 - Kinship Service/Child in Care")
	v.SetDefault("verify.expected_version", "1.3")
	v.SetDefault("verify.version_cell", "")
	v.SetDefault("verify.spot_check_ids", "12891050,13141575,11739608,13038729,13155126")
	v.SetDefault("verify.notify_email", "")
	v.SetDefault("verify.max_upload_mb", 25)
	v.SetDefault("verify.fetch_timeout", "60s")
	v.SetDefault("verify.batch_concurrency", 4)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "REPORTVERIFY_SERVER_PORT",
		"server.read_timeout":      "REPORTVERIFY_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "REPORTVERIFY_SERVER_WRITE_TIMEOUT",
		"server.environment":       "REPORTVERIFY_SERVER_ENVIRONMENT",
		"db.host":                  "REPORTVERIFY_DB_HOST",
		"db.port":                  "REPORTVERIFY_DB_PORT",
		"db.user":                  "REPORTVERIFY_DB_USER",
		"db.password":              "REPORTVERIFY_DB_PASSWORD",
		"db.name":                  "REPORTVERIFY_DB_NAME",
		"db.sslmode":               "REPORTVERIFY_DB_SSLMODE",
		"db.max_open":              "REPORTVERIFY_DB_MAX_OPEN",
		"db.max_idle":              "REPORTVERIFY_DB_MAX_IDLE",
		"auth.secret":              "REPORTVERIFY_AUTH_SECRET",
		"auth.issuer":              "REPORTVERIFY_AUTH_ISSUER",
		"auth.token_expiry":        "REPORTVERIFY_AUTH_TOKEN_EXPIRY",
		"auth.disabled":            "REPORTVERIFY_AUTH_DISABLED",
		"s3.region":                "REPORTVERIFY_S3_REGION",
		"s3.bucket":                "REPORTVERIFY_S3_BUCKET",
		"s3.endpoint":              "REPORTVERIFY_S3_ENDPOINT",
		"s3.access_key":            "REPORTVERIFY_S3_ACCESS_KEY",
		"s3.secret_key":            "REPORTVERIFY_S3_SECRET_KEY",
		"s3.prefix":                "REPORTVERIFY_S3_PREFIX",
		"s3.presign_expiry":        "REPORTVERIFY_S3_PRESIGN_EXPIRY",
		"log.level":                "REPORTVERIFY_LOG_LEVEL",
		"log.format":               "REPORTVERIFY_LOG_FORMAT",
		"cors.allowed_origins":     "REPORTVERIFY_CORS_ALLOWED_ORIGINS",
		"email.provider":           "REPORTVERIFY_EMAIL_PROVIDER",
		"email.region":             "REPORTVERIFY_EMAIL_REGION",
		"email.from_address":       "REPORTVERIFY_EMAIL_FROM_ADDRESS",
		"email.from_name":          "REPORTVERIFY_EMAIL_FROM_NAME",
		"email.app_url":            "REPORTVERIFY_EMAIL_APP_URL",
		"verify.title":             "REPORTVERIFY_VERIFY_TITLE",
		"verify.expected_version":  "REPORTVERIFY_VERIFY_EXPECTED_VERSION",
		"verify.version_cell":      "REPORTVERIFY_VERIFY_VERSION_CELL",
		"verify.spot_check_ids":    "REPORTVERIFY_VERIFY_SPOT_CHECK_IDS",
		"verify.notify_email":      "REPORTVERIFY_VERIFY_NOTIFY_EMAIL",
		"verify.max_upload_mb":     "REPORTVERIFY_VERIFY_MAX_UPLOAD_MB",
		"verify.fetch_timeout":     "REPORTVERIFY_VERIFY_FETCH_TIMEOUT",
		"verify.batch_concurrency": "REPORTVERIFY_VERIFY_BATCH_CONCURRENCY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set a PORT env var. Use it if REPORTVERIFY_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("REPORTVERIFY_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Auth = AuthConfig{
		Secret:      v.GetString("auth.secret"),
		Issuer:      v.GetString("auth.issuer"),
		TokenExpiry: v.GetDuration("auth.token_expiry"),
		Disabled:    v.GetBool("auth.disabled"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		Prefix:        v.GetString("s3.prefix"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: stringList(v, "cors.allowed_origins"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		AppURL:      v.GetString("email.app_url"),
	}
	cfg.Verify = VerifyConfig{
		Title:            v.GetString("verify.title"),
		ExpectedVersion:  v.GetString("verify.expected_version"),
		VersionCell:      v.GetString("verify.version_cell"),
		SpotCheckIDs:     stringList(v, "verify.spot_check_ids"),
		NotifyEmail:      v.GetString("verify.notify_email"),
		MaxUploadMB:      v.GetInt64("verify.max_upload_mb"),
		FetchTimeout:     v.GetDuration("verify.fetch_timeout"),
		BatchConcurrency: v.GetInt("verify.batch_concurrency"),
	}

	return cfg, nil
}

// stringList reads a key that is either a list (config file) or a
// comma-separated string (environment).
func stringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out
	default:
		return splitList(v.GetString(key))
	}
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

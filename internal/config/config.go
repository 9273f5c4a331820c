package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	S3     S3Config
	Log    LogConfig
	CORS   CORSConfig
	Email  EmailConfig
	Recon  ReconConfig
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url"`
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

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds object storage settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReconConfig holds reconciliation engine settings.
type ReconConfig struct {
	Tolerance         decimal.Decimal
	CriticalThreshold decimal.Decimal
	Region            string
	PreviewLimit      int
}

var envBindings = map[string]string{
	"server.port":                  "RECONTAB_SERVER_PORT",
	"server.read_timeout":          "RECONTAB_SERVER_READ_TIMEOUT",
	"server.write_timeout":         "RECONTAB_SERVER_WRITE_TIMEOUT",
	"server.environment":           "RECONTAB_SERVER_ENVIRONMENT",
	"db.host":                      "RECONTAB_DB_HOST",
	"db.port":                      "RECONTAB_DB_PORT",
	"db.user":                      "RECONTAB_DB_USER",
	"db.password":                  "RECONTAB_DB_PASSWORD",
	"db.name":                      "RECONTAB_DB_NAME",
	"db.sslmode":                   "RECONTAB_DB_SSLMODE",
	"db.max_open":                  "RECONTAB_DB_MAX_OPEN",
	"db.max_idle":                  "RECONTAB_DB_MAX_IDLE",
	"jwt.secret":                   "RECONTAB_JWT_SECRET",
	"jwt.access_expiry":            "RECONTAB_JWT_ACCESS_EXPIRY",
	"jwt.refresh_expiry":           "RECONTAB_JWT_REFRESH_EXPIRY",
	"jwt.issuer":                   "RECONTAB_JWT_ISSUER",
	"s3.region":                    "RECONTAB_S3_REGION",
	"s3.bucket":                    "RECONTAB_S3_BUCKET",
	"s3.endpoint":                  "RECONTAB_S3_ENDPOINT",
	"s3.access_key":                "RECONTAB_S3_ACCESS_KEY",
	"s3.secret_key":                "RECONTAB_S3_SECRET_KEY",
	"s3.max_file_size_mb":          "RECONTAB_S3_MAX_FILE_SIZE_MB",
	"s3.presign_expiry":            "RECONTAB_S3_PRESIGN_EXPIRY",
	"log.level":                    "RECONTAB_LOG_LEVEL",
	"log.format":                   "RECONTAB_LOG_FORMAT",
	"cors.allowed_origins":         "RECONTAB_CORS_ALLOWED_ORIGINS",
	"email.provider":               "RECONTAB_EMAIL_PROVIDER",
	"email.region":                 "RECONTAB_EMAIL_REGION",
	"email.from_address":           "RECONTAB_EMAIL_FROM_ADDRESS",
	"email.from_name":              "RECONTAB_EMAIL_FROM_NAME",
	"email.frontend_url":           "RECONTAB_EMAIL_FRONTEND_URL",
	"reconciliation.tolerance":     "RECONTAB_RECONCILIATION_TOLERANCE",
	"reconciliation.critical":      "RECONTAB_RECONCILIATION_CRITICAL",
	"reconciliation.region":        "RECONTAB_RECONCILIATION_REGION",
	"reconciliation.preview_limit": "RECONTAB_RECONCILIATION_PREVIEW_LIMIT",
}

// Load reads configuration from environment variables with the RECONTAB_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECONTAB")
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
	v.SetDefault("db.user", "recontab")
	v.SetDefault("db.password", "recontab_secret")
	v.SetDefault("db.name", "recontab_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "recontab")

	// S3 defaults
	v.SetDefault("s3.region", "eu-west-1")
	v.SetDefault("s3.bucket", "recontab-files")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 20)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-west-1")
	v.SetDefault("email.from_address", "noreply@recontab.pt")
	v.SetDefault("email.from_name", "Recontab")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// Reconciliation defaults
	v.SetDefault("reconciliation.tolerance", "0.01")
	v.SetDefault("reconciliation.critical", "1.00")
	v.SetDefault("reconciliation.region", "continente")
	v.SetDefault("reconciliation.preview_limit", 20)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if RECONTAB_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RECONTAB_SERVER_PORT") == "" {
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
	cfg.JWT = JWTConfig{
		Secret:             v.GetString("jwt.secret"),
		AccessTokenExpiry:  v.GetDuration("jwt.access_expiry"),
		RefreshTokenExpiry: v.GetDuration("jwt.refresh_expiry"),
		Issuer:             v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		FrontendURL: v.GetString("email.frontend_url"),
	}

	tolerance, err := decimal.NewFromString(strings.TrimSpace(v.GetString("reconciliation.tolerance")))
	if err != nil {
		return nil, fmt.Errorf("config: reconciliation.tolerance: %w", err)
	}
	critical, err := decimal.NewFromString(strings.TrimSpace(v.GetString("reconciliation.critical")))
	if err != nil {
		return nil, fmt.Errorf("config: reconciliation.critical: %w", err)
	}
	cfg.Recon = ReconConfig{
		Tolerance:         tolerance,
		CriticalThreshold: critical,
		Region:            v.GetString("reconciliation.region"),
		PreviewLimit:      v.GetInt("reconciliation.preview_limit"),
	}

	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chowfast/chowfast-api/internal/logger"
)

// Config holds every runtime setting of the API.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Signup    SignupConfig    `mapstructure:"signup"`
	Email     EmailConfig     `mapstructure:"email"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig supports the single, sentinel and cluster modes.
type RedisConfig struct {
	// Mode is one of "single", "sentinel", "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs lists host:port pairs. In single mode the first one is used.
	Addrs []string `mapstructure:"addrs"`

	// Addr is used in single mode when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName is required in sentinel mode.
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // milliseconds
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // milliseconds
}

// JWTConfig configures access and refresh token issuance.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// SignupConfig is the policy applied by the signup and verification workflow.
type SignupConfig struct {
	// AllowedEmailDomains is the allow-list of mailbox providers, matched
	// against the second-level label ("gmail" for "x@gmail.com").
	// Empty means any domain.
	AllowedEmailDomains []string `mapstructure:"allowed_email_domains"`
	// RequiredEmailTLD restricts the top-level domain, e.g. ".com". Empty means any.
	RequiredEmailTLD  string        `mapstructure:"required_email_tld"`
	PasswordMinLength int           `mapstructure:"password_min_length"`
	PasswordMaxLength int           `mapstructure:"password_max_length"`
	OTPLength         int           `mapstructure:"otp_length"`
	OTPValidity       time.Duration `mapstructure:"otp_validity"`
	SessionTokenTTL   time.Duration `mapstructure:"session_token_ttl"`
	// MaxOTPAttempts is the number of failed OTP checks tolerated per
	// OTPAttemptWindow. Zero disables throttling.
	MaxOTPAttempts   int           `mapstructure:"max_otp_attempts"`
	OTPAttemptWindow time.Duration `mapstructure:"otp_attempt_window"`
}

// EmailConfig selects and configures the outbound mail provider.
type EmailConfig struct {
	// Provider is "resend" or "noop".
	Provider     string        `mapstructure:"provider"`
	ResendAPIKey string        `mapstructure:"resend_api_key"`
	From         string        `mapstructure:"from"`
	ReplyTo      string        `mapstructure:"reply_to"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the Redis-backed per-IP limiter for public
// auth endpoints.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Signup  int           `mapstructure:"signup"`
	Login   int           `mapstructure:"login"`
	Verify  int           `mapstructure:"verify"`
	Resend  int           `mapstructure:"resend"`
	Window  time.Duration `mapstructure:"window"`
}

// CleanupConfig schedules pruning of dead credentials.
type CleanupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Spec      string        `mapstructure:"spec"`
	Retention time.Duration `mapstructure:"retention"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PostgresConnectionString builds a libpq-style DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL builds a postgres:// URL for the standalone migrate tool.
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// DefaultSignupConfig returns the signup policy used when nothing is configured.
func DefaultSignupConfig() SignupConfig {
	return SignupConfig{
		AllowedEmailDomains: []string{"gmail", "email", "icloud", "yopmail", "yahoo"},
		RequiredEmailTLD:    ".com",
		PasswordMinLength:   8,
		PasswordMaxLength:   75,
		OTPLength:           6,
		OTPValidity:         10 * time.Minute,
		SessionTokenTTL:     12 * time.Hour,
		MaxOTPAttempts:      5,
		OTPAttemptWindow:    10 * time.Minute,
	}
}

func setDefaults(vip *viper.Viper) {
	signup := DefaultSignupConfig()

	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.issuer", "chowfast-api")
	vip.SetDefault("jwt.access_ttl", 3*time.Hour)
	vip.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	vip.SetDefault("signup.allowed_email_domains", signup.AllowedEmailDomains)
	vip.SetDefault("signup.required_email_tld", signup.RequiredEmailTLD)
	vip.SetDefault("signup.password_min_length", signup.PasswordMinLength)
	vip.SetDefault("signup.password_max_length", signup.PasswordMaxLength)
	vip.SetDefault("signup.otp_length", signup.OTPLength)
	vip.SetDefault("signup.otp_validity", signup.OTPValidity)
	vip.SetDefault("signup.session_token_ttl", signup.SessionTokenTTL)
	vip.SetDefault("signup.max_otp_attempts", signup.MaxOTPAttempts)
	vip.SetDefault("signup.otp_attempt_window", signup.OTPAttemptWindow)
	vip.SetDefault("email.provider", "noop")
	vip.SetDefault("email.from", "ChowFast <no-reply@chowfast.app>")
	vip.SetDefault("email.send_timeout", 10*time.Second)
	vip.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.signup", 10)
	vip.SetDefault("rate_limit.login", 20)
	vip.SetDefault("rate_limit.verify", 20)
	vip.SetDefault("rate_limit.resend", 5)
	vip.SetDefault("rate_limit.window", time.Minute)
	vip.SetDefault("cleanup.enabled", true)
	vip.SetDefault("cleanup.spec", "@every 30m")
	vip.SetDefault("cleanup.retention", 24*time.Hour)
	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")
}

// Load reads the optional .env file, the YAML config at configPath and the
// bound environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warnf("config: failed to read .env: %v", err)
	}

	vip := viper.New()
	setDefaults(vip)

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.access_ttl", "JWT_ACCESS_TTL")
	vip.BindEnv("jwt.refresh_ttl", "JWT_REFRESH_TTL")

	vip.BindEnv("signup.allowed_email_domains", "SIGNUP_ALLOWED_EMAIL_DOMAINS")
	vip.BindEnv("signup.otp_validity", "SIGNUP_OTP_VALIDITY")
	vip.BindEnv("signup.session_token_ttl", "SIGNUP_SESSION_TOKEN_TTL")
	vip.BindEnv("signup.max_otp_attempts", "SIGNUP_MAX_OTP_ATTEMPTS")

	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	vip.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	vip.BindEnv("cleanup.spec", "CLEANUP_SPEC")
	vip.BindEnv("log.level", "LOG_LEVEL")
	vip.BindEnv("log.format", "LOG_FORMAT")
	vip.BindEnv("server.port", "SERVER_PORT")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				logger.Log.Infof("config file '%s' not found, using environment and defaults", configPath)
			} else {
				logger.Log.Warnf("failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalizeLists(&cfg)

	if os.Getenv("GIN_MODE") != "release" {
		logger.Log.WithFields(map[string]interface{}{
			"database_host":  cfg.Database.Host,
			"database_name":  cfg.Database.DBName,
			"redis_mode":     cfg.Redis.Mode,
			"redis_addr":     cfg.Redis.Addr,
			"server_port":    cfg.Server.Port,
			"email_provider": cfg.Email.Provider,
			"jwt_secret_set": cfg.JWT.Secret != "",
		}).Debug("configuration loaded")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (check JWT_SECRET env var)")
	}
	if len(c.JWT.Secret) < 32 && os.Getenv("GIN_MODE") == "release" {
		return fmt.Errorf("jwt secret must be at least 32 characters in release mode")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("jwt access_ttl and refresh_ttl must be positive")
	}
	if c.Signup.OTPLength <= 0 || c.Signup.OTPValidity <= 0 || c.Signup.SessionTokenTTL <= 0 {
		return fmt.Errorf("signup otp_length, otp_validity and session_token_ttl must be positive")
	}
	if c.Signup.PasswordMinLength > c.Signup.PasswordMaxLength {
		return fmt.Errorf("signup password_min_length exceeds password_max_length")
	}
	if c.Email.Provider == "resend" && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("email provider resend requires RESEND_API_KEY")
	}
	return nil
}

// normalizeLists splits comma-separated values that arrive through env vars
// as a single element.
func normalizeLists(cfg *Config) {
	cfg.Signup.AllowedEmailDomains = splitList(cfg.Signup.AllowedEmailDomains)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	for i, d := range cfg.Signup.AllowedEmailDomains {
		cfg.Signup.AllowedEmailDomains[i] = strings.ToLower(d)
	}
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

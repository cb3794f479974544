package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by the process runner).
// Handlers receive the relevant sections at construction; no business logic
// reads raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Vapi      VapiConfig
	Paystack  PaystackConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string

	// CORSAllowedOrigins defaults to "*".
	CORSAllowedOrigins []string
}

// DBConfig is the elevated (service role) data-store credential.
// It is optional: with an empty Host the process runs without a privileged store.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	// JWTSecret verifies end-user session tokens issued by the auth backend.
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// AdminEmails is the allow-list for the admin emergency-call view.
	// Empty means any signed-in user with an email.
	AdminEmails []string
}

type VapiConfig struct {
	APIKey string
	// Deployment-wide defaults used when a request does not name them.
	AssistantID   string
	PhoneNumberID string
	PhoneNumber   string
	BaseURL       string
}

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
}

type RateLimitMode string

const (
	RateLimitModeStore RateLimitMode = "store"
	RateLimitModeRedis RateLimitMode = "redis"
)

type RateLimitConfig struct {
	Mode   RateLimitMode
	Max    int
	Window time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	c.App.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("SESSION_JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("SESSION_JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("SESSION_JWT_AUDIENCE"))
	c.Auth.AdminEmails = splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS")))

	// Provider secrets are checked per request, not here.
	c.Vapi.APIKey = strings.TrimSpace(os.Getenv("VAPI_API_KEY"))
	c.Vapi.AssistantID = strings.TrimSpace(os.Getenv("VAPI_ASSISTANT_ID"))
	c.Vapi.PhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER_ID"))
	c.Vapi.PhoneNumber = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER"))
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))

	c.Paystack.SecretKey = strings.TrimSpace(os.Getenv("PAYSTACK_SECRET_KEY"))
	c.Paystack.BaseURL = strings.TrimSpace(os.Getenv("PAYSTACK_BASE_URL"))

	c.RateLimit.Mode = RateLimitMode(strings.ToLower(strings.TrimSpace(os.Getenv("CALL_RATE_LIMIT_MODE"))))
	if v := strings.TrimSpace(os.Getenv("CALL_RATE_LIMIT_MAX")); v != "" {
		n, err := mustInt("CALL_RATE_LIMIT_MAX")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.Max = n
	}
	c.RateLimit.Window = mustDuration("CALL_RATE_LIMIT_WINDOW")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.LogLevel != "" && !isValidLogLevel(c.App.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.App.LogLevel))
	}
	if len(c.App.CORSAllowedOrigins) == 0 {
		c.App.CORSAllowedOrigins = []string{"*"}
	}

	if c.HasDatabase() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.HasRedis() && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("SESSION_JWT_SECRET is required in production"))
	}

	switch c.RateLimit.Mode {
	case "":
		c.RateLimit.Mode = RateLimitModeStore
	case RateLimitModeStore:
	case RateLimitModeRedis:
		if !c.HasRedis() {
			errs = append(errs, errors.New("CALL_RATE_LIMIT_MODE=redis requires REDIS_HOST"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALL_RATE_LIMIT_MODE must be one of store, redis, got %q", c.RateLimit.Mode))
	}
	if c.RateLimit.Max < 0 {
		errs = append(errs, fmt.Errorf("CALL_RATE_LIMIT_MAX must be positive, got %d", c.RateLimit.Max))
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 3
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 5 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HasDatabase() bool { return c.DB.Host != "" }

func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains the service role password.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch v {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

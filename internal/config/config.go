package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API and migrate processes.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Plivo PlivoConfig
	LLM   LLMConfig
	Calls CallsConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the externally reachable origin the telephony provider
	// calls back into, e.g. https://voice.example.com
	PublicBaseURL string

	// LogFile enables rotated file output in addition to stdout.
	LogFile string
}

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
	DB       int
	PoolSize int
	Timeout  time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// APIKeyTTL bounds the lifetime of issued tenant API keys.
	APIKeyTTL time.Duration
}

type PlivoConfig struct {
	AuthID    string
	AuthToken string
	AppID     string
	BaseURL   string
	Timeout   time.Duration

	// Sandbox swaps the REST client for the in-process provider.
	Sandbox bool
}

type LLMConfig struct {
	APIKey        string
	BaseURL       string
	ChatModel     string
	ClassifyModel string
	Timeout       time.Duration
}

type CallsConfig struct {
	// MaxInflight caps concurrently open call sessions per tenant. 0 disables the cap.
	MaxInflight int
	SlotTTL     time.Duration

	TombstoneTTL time.Duration
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
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")
	c.App.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		n, err := mustInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_POOL_SIZE")); v != "" {
		n, err := mustInt("REDIS_POOL_SIZE")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.PoolSize = n
	}
	c.Redis.Timeout = mustDuration("REDIS_TIMEOUT")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.APIKeyTTL = mustDuration("API_KEY_TTL")

	c.Plivo.AuthID = strings.TrimSpace(os.Getenv("PLIVO_AUTH_ID"))
	c.Plivo.AuthToken = os.Getenv("PLIVO_AUTH_TOKEN")
	c.Plivo.AppID = strings.TrimSpace(os.Getenv("PLIVO_APP_ID"))
	c.Plivo.BaseURL = strings.TrimSpace(os.Getenv("PLIVO_BASE_URL"))
	c.Plivo.Timeout = mustDuration("PLIVO_TIMEOUT")
	c.Plivo.Sandbox = mustBool("PLIVO_SANDBOX")

	c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	c.LLM.ChatModel = strings.TrimSpace(os.Getenv("LLM_CHAT_MODEL"))
	c.LLM.ClassifyModel = strings.TrimSpace(os.Getenv("LLM_CLASSIFY_MODEL"))
	c.LLM.Timeout = mustDuration("LLM_TIMEOUT")

	if v := strings.TrimSpace(os.Getenv("CALLS_MAX_INFLIGHT")); v != "" {
		n, err := mustInt("CALLS_MAX_INFLIGHT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Calls.MaxInflight = n
	}
	c.Calls.SlotTTL = mustDuration("CALLS_SLOT_TTL")
	c.Calls.TombstoneTTL = mustDuration("TRANSCRIPT_TOMBSTONE_TTL")

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
	if c.App.PublicBaseURL == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required in production"))
		} else {
			c.App.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.App.Port)
		}
	} else if u, err := url.Parse(c.App.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.App.PublicBaseURL))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
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

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.Redis.DB))
	}
	if c.Redis.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("REDIS_POOL_SIZE must not be negative, got %d", c.Redis.PoolSize))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if c.Auth.APIKeyTTL <= 0 {
		c.Auth.APIKeyTTL = 3 * time.Hour
	}

	if c.Plivo.BaseURL == "" {
		c.Plivo.BaseURL = "https://api.plivo.com"
	}
	if c.Plivo.Timeout <= 0 {
		c.Plivo.Timeout = 10 * time.Second
	}
	if !c.Plivo.Sandbox {
		if c.Plivo.AuthID == "" {
			errs = append(errs, errors.New("PLIVO_AUTH_ID is required unless PLIVO_SANDBOX=true"))
		}
		if c.Plivo.AuthToken == "" {
			errs = append(errs, errors.New("PLIVO_AUTH_TOKEN is required unless PLIVO_SANDBOX=true"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("PLIVO_SANDBOX must not be enabled in production"))
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "llama-3.1-8b-instant"
	}
	if c.LLM.ClassifyModel == "" {
		c.LLM.ClassifyModel = c.LLM.ChatModel
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 20 * time.Second
	}

	if c.Calls.MaxInflight < 0 {
		errs = append(errs, fmt.Errorf("CALLS_MAX_INFLIGHT must be >= 0, got %d", c.Calls.MaxInflight))
	}
	if c.Calls.SlotTTL <= 0 {
		c.Calls.SlotTTL = time.Hour
	}
	if c.Calls.TombstoneTTL <= 0 {
		c.Calls.TombstoneTTL = 30 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
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

// PostgresURL is the URL form required by the migration runner.
func (c Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     "/" + c.DB.Name,
		RawQuery: url.Values{"sslmode": []string{c.DB.SSLMode}}.Encode(),
	}
	return u.String()
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

func mustBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
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

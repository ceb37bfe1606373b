package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voice"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Plivo: PlivoConfig{Sandbox: true},
		LLM:   LLMConfig{APIKey: "k"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.PublicBaseURL = "https://voice.example.com"
	c.Plivo = PlivoConfig{AuthID: "id", AuthToken: "tok"}
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	if !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected DB_SSLMODE error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.App.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected public base url %q", c.App.PublicBaseURL)
	}
	if c.Auth.APIKeyTTL != 3*time.Hour {
		t.Fatalf("expected 3h api key ttl, got %v", c.Auth.APIKeyTTL)
	}
	if c.Plivo.Timeout <= 0 || c.LLM.Timeout <= 0 {
		t.Fatalf("expected provider timeouts defaulted")
	}
	if c.LLM.ClassifyModel != c.LLM.ChatModel {
		t.Fatalf("classify model should default to chat model")
	}
}

func TestValidate_RedisBounds(t *testing.T) {
	c := validLocal()
	c.Redis.DB = 16
	c.Redis.PoolSize = -1
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected redis errors")
	}
	if !strings.Contains(err.Error(), "REDIS_DB") || !strings.Contains(err.Error(), "REDIS_POOL_SIZE") {
		t.Fatalf("expected REDIS_DB and REDIS_POOL_SIZE errors, got %v", err)
	}
}

func TestValidate_PlivoCredentialsRequiredOutsideSandbox(t *testing.T) {
	c := validLocal()
	c.Plivo.Sandbox = false
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "PLIVO_AUTH_ID") {
		t.Fatalf("expected plivo credential error, got %v", err)
	}
}

func TestValidate_SandboxRejectedInProduction(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.PublicBaseURL = "https://voice.example.com"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "PLIVO_SANDBOX") {
		t.Fatalf("expected sandbox error, got %v", err)
	}
}

func TestPostgresURL(t *testing.T) {
	c := validLocal()
	c.DB.SSLMode = "disable"
	got := c.PostgresURL()
	want := "postgres://postgres:x@localhost:5432/voice?sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

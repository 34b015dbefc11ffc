package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"nara.app/nara-gateway/internal/dust"
)

const (
	AgentGuardians = "guardians"
	AgentCashflow  = "cashflow"
)

type Config struct {
	HTTPPort string
	LogLevel string

	DustBaseURL         string
	DustWorkspaceID     string
	DustAPIKey          string
	DustAgentID         string
	DustCashflowAgentID string
	DustTimezone        string
	DustUploadMode      dust.UploadMode
	AttachmentPrompt    string

	ContractWebhookURL string

	DatabaseURL string
	CacheTTL    time.Duration

	JWTSecret     string
	AllowedOrigin string
	MaxBodyBytes  int64
}

// Load reads the configuration from the environment, after loading a .env
// file when one exists. Missing credentials and invalid values are reported
// together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "INFO"),
		DustBaseURL:         getEnv("DUST_BASE_URL", dust.DefaultBaseURL),
		DustWorkspaceID:     getEnv("DUST_WORKSPACE_ID", ""),
		DustAPIKey:          getEnv("DUST_API_KEY", ""),
		DustAgentID:         getEnv("DUST_AGENT_ID", ""),
		DustCashflowAgentID: getEnv("DUST_CASHFLOW_AGENT_ID", ""),
		DustTimezone:        getEnv("DUST_TIMEZONE", "Europe/Paris"),
		AttachmentPrompt:    getEnv("DUST_ATTACHMENT_PROMPT", "Analyse ce document"),
		ContractWebhookURL:  getEnv("CONTRACT_WEBHOOK_URL", ""),
		DatabaseURL:         getEnv("DATABASE_URL", "nara.db"),
		CacheTTL:            getEnvAsDuration("CACHE_TTL", 30*time.Second),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AllowedOrigin:       getEnv("ALLOWED_ORIGIN", "*"),
		MaxBodyBytes:        int64(getEnvAsInt("MAX_BODY_BYTES", 20<<20)),
	}

	var errs []error
	for _, env := range []struct{ key, value string }{
		{"DUST_WORKSPACE_ID", cfg.DustWorkspaceID},
		{"DUST_API_KEY", cfg.DustAPIKey},
		{"DUST_AGENT_ID", cfg.DustAgentID},
	} {
		if env.value == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", env.key))
		}
	}

	mode, err := dust.ParseUploadMode(getEnv("DUST_UPLOAD_MODE", ""))
	if err != nil {
		errs = append(errs, fmt.Errorf("DUST_UPLOAD_MODE: %w", err))
	}
	cfg.DustUploadMode = mode

	if _, err := time.LoadLocation(cfg.DustTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DUST_TIMEZONE: %w", err))
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Agents maps agent route names to upstream agent configuration ids.
func (c *Config) Agents() map[string]string {
	agents := map[string]string{AgentGuardians: c.DustAgentID}
	if c.DustCashflowAgentID != "" {
		agents[AgentCashflow] = c.DustCashflowAgentID
	}
	return agents
}

// Location is the timezone used for agent context and date-based views.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DustTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

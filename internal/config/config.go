// Package config provides configuration for the support desk service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort    int      `yaml:"http_port"`
	AppEnv      string   `yaml:"app_env"`
	CORSOrigins []string `yaml:"cors_origins"`

	// Database
	DatabaseURL  string `yaml:"database_url"`
	SeedDemoData bool   `yaml:"seed_demo_data"`

	// Model gateway
	Mode         string        `yaml:"mode"`
	LiteLLMURL   string        `yaml:"litellm_url"`
	LiteLLMKey   string        `yaml:"litellm_api_key"`
	Model        string        `yaml:"llm_model"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	MaxAgentStep int           `yaml:"max_agent_steps"`

	// Conversation budget
	MaxContextTokens     int `yaml:"max_context_tokens"`
	RecentMessagesToKeep int `yaml:"recent_messages_to_keep"`
	RoutingWindow        int `yaml:"routing_window"`

	// Rate limiting
	RateLimitDriver      string        `yaml:"rate_limit_driver"`
	RateLimitWindow      time.Duration `yaml:"rate_limit_window"`
	RateLimitMaxRequests int           `yaml:"rate_limit_max_requests"`
	RedisURL             string        `yaml:"redis_url"`

	// Background work
	WorkerCount     int    `yaml:"worker_count"`
	WorkerQueueSize int    `yaml:"worker_queue_size"`
	MaintenanceCron string `yaml:"maintenance_cron"`

	// Users
	DefaultUserID string `yaml:"default_user_id"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTPPort:             3001,
		AppEnv:               "development",
		CORSOrigins:          []string{"http://localhost:3000", "http://localhost:5173"},
		DatabaseURL:          "file:supportdesk.db?cache=shared&mode=rwc&_busy_timeout=5000&_foreign_keys=1",
		SeedDemoData:         true,
		LiteLLMURL:           "http://localhost:4000",
		Model:                "gemini-2.5-pro",
		LLMTimeout:           120 * time.Second,
		MaxAgentStep:         5,
		MaxContextTokens:     8000,
		RecentMessagesToKeep: 10,
		RoutingWindow:        6,
		RateLimitDriver:      "memory",
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 100,
		RedisURL:             "redis://localhost:6379/0",
		WorkerCount:          4,
		WorkerQueueSize:      256,
		MaintenanceCron:      "*/5 * * * *",
		DefaultUserID:        "user_1",
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load reads .env, applies defaults, overlays the YAML file named by
// CONFIG_FILE, then applies environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SeedDemoData = getEnvBool("SEED_DEMO_DATA", c.SeedDemoData)
	c.Mode = getEnv(llm.EnvGogoMode, c.Mode)
	c.LiteLLMURL = getEnv("LITELLM_URL", c.LiteLLMURL)
	c.LiteLLMKey = getEnv("LITELLM_API_KEY", c.LiteLLMKey)
	c.Model = getEnv("LLM_MODEL", c.Model)
	c.LLMTimeout = getEnvMillis("LLM_TIMEOUT_MS", c.LLMTimeout)
	c.MaxAgentStep = getEnvInt("MAX_AGENT_STEPS", c.MaxAgentStep)
	c.MaxContextTokens = getEnvInt("MAX_CONTEXT_TOKENS", c.MaxContextTokens)
	c.RecentMessagesToKeep = getEnvInt("RECENT_MESSAGES_TO_KEEP", c.RecentMessagesToKeep)
	c.RoutingWindow = getEnvInt("ROUTING_WINDOW", c.RoutingWindow)
	c.RateLimitDriver = getEnv("RATE_LIMIT_DRIVER", c.RateLimitDriver)
	c.RateLimitWindow = getEnvMillis("RATE_LIMIT_WINDOW_MS", c.RateLimitWindow)
	c.RateLimitMaxRequests = getEnvInt("RATE_LIMIT_MAX_REQUESTS", c.RateLimitMaxRequests)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.WorkerQueueSize = getEnvInt("WORKER_QUEUE_SIZE", c.WorkerQueueSize)
	c.MaintenanceCron = getEnv("MAINTENANCE_CRON", c.MaintenanceCron)
	c.DefaultUserID = getEnv("DEFAULT_USER_ID", c.DefaultUserID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTPPort <= 0:
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	case c.MaxContextTokens <= 0:
		return fmt.Errorf("max context tokens must be positive")
	case c.RecentMessagesToKeep <= 0:
		return fmt.Errorf("recent messages to keep must be positive")
	case c.RoutingWindow <= 0:
		return fmt.Errorf("routing window must be positive")
	case c.MaxAgentStep <= 0:
		return fmt.Errorf("max agent steps must be positive")
	case c.RateLimitMaxRequests <= 0 || c.RateLimitWindow <= 0:
		return fmt.Errorf("rate limit needs a positive window and request budget")
	case c.RateLimitDriver != "memory" && c.RateLimitDriver != "redis":
		return fmt.Errorf("unknown rate limit driver %q", c.RateLimitDriver)
	case c.MaintenanceCron != "" && !gronx.New().IsValid(c.MaintenanceCron):
		return fmt.Errorf("invalid maintenance cron %q", c.MaintenanceCron)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Application configuration
	App AppConfig `json:"app"`

	// Live poll configuration
	Poll PollConfig `json:"poll"`

	// Websocket heartbeat configuration
	Heartbeat WebsocketHeartbeatConfig `json:"heartbeat"`

	// Google OAuth configuration
	OAuth OAuthConfig `json:"google_oauth"`

	// Janitor configuration
	Janitor JanitorConfig `json:"janitor"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `json:"level"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
}

// PollConfig holds live poll session configuration
type PollConfig struct {
	DefaultTimeLimit time.Duration `json:"default_time_limit"` // Used when a question comes in without a time limit
	MaxTimeLimit     time.Duration `json:"max_time_limit"`     // Upper bound for a single question countdown
	MinOptions       int           `json:"min_options"`        // Minimum number of answer options per question
	MaxOptions       int           `json:"max_options"`        // Maximum number of answer options per question
}

// WebsocketHeartbeatConfig holds websocket heartbeat-specific configuration
type WebsocketHeartbeatConfig struct {
	CheckInterval time.Duration `json:"check_interval"` // Interval at which heartbeat times are checked
	Delay         time.Duration `json:"delay"`          // Time after last message before triggering first heartbeat
	Interval      time.Duration `json:"interval"`       // Time between heartbeats
	KillDelay     time.Duration `json:"kill_delay"`     // Time after last message before killing connection
}

type OAuthConfig struct {
	ClientId        string        `json:"client_id"`
	ClientSecret    string        // ENV only
	SessionDuration time.Duration `json:"session_duration"` // for how long is an authenticated session valid
}

// JanitorConfig holds cleanup scheduling configuration
type JanitorConfig struct {
	ShortCleanInterval time.Duration `json:"short_clean_interval"`
	FullCleanInterval  time.Duration `json:"full_clean_interval"`
	RecordRetention    time.Duration `json:"record_retention"` // How long archived poll records are kept
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// Get returns the singleton configuration instance
func Get() *Config {
	mu.RLock()
	if instance != nil {
		defer mu.RUnlock()
		return instance
	}
	mu.RUnlock()

	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		instance = loadConfig()
	})
	return instance
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "pollroom-backend"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("ENV", "development"),
			Debug:       getEnvAsBool("DEBUG", false),
		},
		Poll: PollConfig{
			DefaultTimeLimit: getEnvAsDuration("POLL_DEFAULT_TIME_LIMIT", 60*time.Second),
			MaxTimeLimit:     getEnvAsDuration("POLL_MAX_TIME_LIMIT", 10*time.Minute),
			MinOptions:       getEnvAsInt("POLL_MIN_OPTIONS", 2),
			MaxOptions:       getEnvAsInt("POLL_MAX_OPTIONS", 10),
		},
		Heartbeat: WebsocketHeartbeatConfig{
			CheckInterval: getEnvAsDuration("HEARTBEAT_CHECK_INTERVAL", 2*time.Second),
			Delay:         getEnvAsDuration("HEARTBEAT_DELAY", 30*time.Second),
			Interval:      getEnvAsDuration("HEARTBEAT_INTERVAL", 10*time.Second),
			KillDelay:     getEnvAsDuration("HEARTBEAT_KILL_DELAY", 60*time.Second),
		},
		OAuth: OAuthConfig{
			ClientId:        getEnv("GOOGLE_CLIENT_ID", "123456789012-abcdefg1234567890hijklmnop.apps.googleusercontent.com"),
			ClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
			SessionDuration: getEnvAsDuration("AUTH_SESSION_DURATION", 24*time.Hour),
		},
		Janitor: JanitorConfig{
			ShortCleanInterval: getEnvAsDuration("JANITOR_SHORT_CLEAN_INTERVAL", 15*time.Minute),
			FullCleanInterval:  getEnvAsDuration("JANITOR_FULL_CLEAN_INTERVAL", 24*time.Hour),
			RecordRetention:    getEnvAsDuration("JANITOR_RECORD_RETENTION", 30*24*time.Hour),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	return cfg
}

// validate validates the configuration
func (c *Config) validate() error {
	// Validate server port
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be one of: %s)",
			c.App.Environment, strings.Join(validEnvs, ", "))
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLevels, ", "))
	}

	// Validate poll bounds
	if c.Poll.MinOptions < 2 {
		return fmt.Errorf("invalid POLL_MIN_OPTIONS: %d (a question needs at least 2 options)", c.Poll.MinOptions)
	}
	if c.Poll.MaxOptions < c.Poll.MinOptions {
		return fmt.Errorf("invalid POLL_MAX_OPTIONS: %d (must be >= POLL_MIN_OPTIONS)", c.Poll.MaxOptions)
	}
	if c.Poll.DefaultTimeLimit <= 0 || c.Poll.DefaultTimeLimit > c.Poll.MaxTimeLimit {
		return fmt.Errorf("invalid POLL_DEFAULT_TIME_LIMIT: %s (must be positive and <= POLL_MAX_TIME_LIMIT)", c.Poll.DefaultTimeLimit)
	}

	// Validate OAuth info
	if ok, err := regexp.Match(`^\d{12}-[A-Za-z0-9_-]+\.apps\.googleusercontent\.com$`, []byte(c.OAuth.ClientId)); !ok || err != nil {
		if err != nil {
			return fmt.Errorf("invalid GOOGLE_CLIENT_ID: %s. %s", c.OAuth.ClientId, err.Error())
		}
		return fmt.Errorf("invalid GOOGLE_CLIENT_ID: %s", c.OAuth.ClientId)
	}
	if c.OAuth.ClientSecret != "" {
		if ok, err := regexp.Match(`^GOCSPX-[A-Za-z0-9_-]+$`, []byte(c.OAuth.ClientSecret)); !ok || err != nil {
			return fmt.Errorf("invalid GOOGLE_CLIENT_SECRET: %s", c.OAuth.ClientSecret)
		}
	}

	return nil
}

// IsDevelopment returns true if the app is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the app is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetServerAddress returns the server address in the format "host:port"
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Reload reloads the configuration (useful for testing or after loading .env files)
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	instance = nil
}

// ForceReload forces an immediate reload of the configuration
func ForceReload() {
	mu.Lock()
	defer mu.Unlock()
	instance = loadConfig()
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsBool gets an environment variable as boolean with a fallback value
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvAsInt gets an environment variable as int with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvAsDuration gets an environment variable as duration with a fallback value
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

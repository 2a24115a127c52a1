// Package config loads the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Deployment environments
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	ExtractionAPIKey  string
	ExtractionBaseURL string
	ExtractionModel   string
	ExtractionTimeout time.Duration
	ExtractionRate    float64 // Outbound extraction calls per second
	ExtractionBurst   int64

	SpeechProvider     string // browser, deepgram or none
	SpeechLanguage     string
	DeepgramAPIKey     string
	DeepgramURL        string
	DeepgramModel      string
	DeepgramEncoding   string
	DeepgramSampleRate int

	WorkspaceIdleTTL      time.Duration
	WorkspaceReapInterval time.Duration
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		ExtractionAPIKey:  os.Getenv("EXTRACTION_API_KEY"),
		ExtractionBaseURL: getEnvWithDefault("EXTRACTION_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		ExtractionModel:   getEnvWithDefault("EXTRACTION_MODEL", "gemini-2.5-flash"),
		ExtractionTimeout: getDurationEnvWithDefault("EXTRACTION_TIMEOUT", 30*time.Second),
		ExtractionRate:    getFloatEnvWithDefault("EXTRACTION_RATE", 1),
		ExtractionBurst:   getInt64EnvWithDefault("EXTRACTION_BURST", 5),

		SpeechProvider:     strings.ToLower(getEnvWithDefault("SPEECH_PROVIDER", "browser")),
		SpeechLanguage:     getEnvWithDefault("SPEECH_LANGUAGE", "fr"),
		DeepgramAPIKey:     os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramURL:        getEnvWithDefault("DEEPGRAM_URL", "wss://api.deepgram.com/v1/listen"),
		DeepgramModel:      getEnvWithDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramEncoding:   os.Getenv("DEEPGRAM_ENCODING"),
		DeepgramSampleRate: getIntEnvWithDefault("DEEPGRAM_SAMPLE_RATE", 0),

		WorkspaceIdleTTL:      getDurationEnvWithDefault("WORKSPACE_IDLE_TTL", 2*time.Hour),
		WorkspaceReapInterval: getDurationEnvWithDefault("WORKSPACE_REAP_INTERVAL", 5*time.Minute),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateOneOf(cfg.Env, "ENV", []string{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateOneOf(cfg.LogLevel, "LOG_LEVEL", []string{"debug", "info", "warn", "error"}); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if cfg.LogDir == "" {
		return fmt.Errorf("invalid LOG_DIR: LOG_DIR cannot be empty")
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateExtraction(cfg); err != nil {
		return err
	}

	if err := validateSpeech(cfg); err != nil {
		return err
	}

	if cfg.WorkspaceIdleTTL < time.Minute {
		return fmt.Errorf("invalid WORKSPACE_IDLE_TTL: must be at least 1m, got: %s", cfg.WorkspaceIdleTTL)
	}
	if cfg.WorkspaceReapInterval < time.Second {
		return fmt.Errorf("invalid WORKSPACE_REAP_INTERVAL: must be at least 1s, got: %s", cfg.WorkspaceReapInterval)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Prescriptions carry patient data, keep the listener off public interfaces
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

func validateOneOf(value, name string, valid []string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !slices.Contains(valid, value) {
		return fmt.Errorf("%s must be one of: %v, got: %s", name, valid, value)
	}
	return nil
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

func validateExtraction(cfg *Config) error {
	if cfg.ExtractionAPIKey == "" && cfg.Env != EnvTest {
		return fmt.Errorf("missing EXTRACTION_API_KEY")
	}

	u, err := url.Parse(cfg.ExtractionBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid EXTRACTION_BASE_URL: must be an http(s) URL, got: %s", cfg.ExtractionBaseURL)
	}

	if cfg.ExtractionModel == "" {
		return fmt.Errorf("invalid EXTRACTION_MODEL: cannot be empty")
	}

	if cfg.ExtractionTimeout < time.Second || cfg.ExtractionTimeout > 5*time.Minute {
		return fmt.Errorf("invalid EXTRACTION_TIMEOUT: must be between 1s and 5m, got: %s", cfg.ExtractionTimeout)
	}

	if cfg.ExtractionRate < 0 {
		return fmt.Errorf("invalid EXTRACTION_RATE: must not be negative, got: %g", cfg.ExtractionRate)
	}

	if cfg.ExtractionRate > 0 && cfg.ExtractionBurst < 1 {
		return fmt.Errorf("invalid EXTRACTION_BURST: must be at least 1, got: %d", cfg.ExtractionBurst)
	}

	return nil
}

func validateSpeech(cfg *Config) error {
	if err := validateOneOf(cfg.SpeechProvider, "SPEECH_PROVIDER", []string{"browser", "deepgram", "none"}); err != nil {
		return fmt.Errorf("invalid SPEECH_PROVIDER: %w", err)
	}

	if cfg.SpeechLanguage == "" {
		return fmt.Errorf("invalid SPEECH_LANGUAGE: cannot be empty")
	}

	if cfg.SpeechProvider != "deepgram" {
		return nil
	}

	if cfg.DeepgramAPIKey == "" {
		return fmt.Errorf("missing DEEPGRAM_API_KEY for the deepgram speech provider")
	}

	u, err := url.Parse(cfg.DeepgramURL)
	if err != nil || u.Host == "" || (u.Scheme != "wss" && u.Scheme != "ws") {
		return fmt.Errorf("invalid DEEPGRAM_URL: must be a ws(s) URL, got: %s", cfg.DeepgramURL)
	}

	if cfg.DeepgramSampleRate < 0 {
		return fmt.Errorf("invalid DEEPGRAM_SAMPLE_RATE: must not be negative, got: %d", cfg.DeepgramSampleRate)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnvWithDefault gets an environment variable as float64 with a default value
func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault gets an environment variable as a duration ("30s", "2h") with a default value
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"EXTRACTION_API_KEY",
		"EXTRACTION_BASE_URL",
		"EXTRACTION_MODEL",
		"EXTRACTION_TIMEOUT",
		"EXTRACTION_RATE",
		"EXTRACTION_BURST",
		"SPEECH_PROVIDER",
		"SPEECH_LANGUAGE",
		"DEEPGRAM_API_KEY",
		"DEEPGRAM_URL",
		"DEEPGRAM_MODEL",
		"DEEPGRAM_ENCODING",
		"DEEPGRAM_SAMPLE_RATE",
		"WORKSPACE_IDLE_TTL",
		"WORKSPACE_REAP_INTERVAL",
	}
}

// SetEnvVars returns the expected environment variables that carry a value.
// Only names are returned so the result is safe to log.
func SetEnvVars() []string {
	var set []string
	for _, key := range GetEnvVars() {
		if os.Getenv(key) != "" {
			set = append(set, key)
		}
	}
	return set
}

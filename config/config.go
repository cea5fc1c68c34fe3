// Package config loads the service configuration from environment variables
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment is the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short names and their long aliases
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Search modes accepted by SEARCH_MODE
const (
	SearchModeToken  = "token"
	SearchModeSimple = "simple"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	CatalogFile          string // Empty selects the embedded catalog
	OpioidsFile          string // Empty selects the embedded reference table
	CatalogReloadMinutes int    // 0 disables reloading
	SearchMode           string
	MaxSuggestions       int
	CORSOrigins          []string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		CatalogFile:          os.Getenv("CATALOG_FILE"),
		OpioidsFile:          os.Getenv("OPIOIDS_FILE"),
		CatalogReloadMinutes: getIntEnvWithDefault("CATALOG_RELOAD_MINUTES", 0),
		SearchMode:           strings.ToLower(getEnvWithDefault("SEARCH_MODE", SearchModeToken)),
		MaxSuggestions:       getIntEnvWithDefault("MAX_SUGGESTIONS", 50),
		CORSOrigins:          splitList(getEnvWithDefault("CORS_ORIGINS", "*")),
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

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
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

	if err := validateDataFile(cfg.CatalogFile, "CATALOG_FILE"); err != nil {
		return fmt.Errorf("invalid CATALOG_FILE: %w", err)
	}

	if err := validateDataFile(cfg.OpioidsFile, "OPIOIDS_FILE"); err != nil {
		return fmt.Errorf("invalid OPIOIDS_FILE: %w", err)
	}

	if err := validateReloadMinutes(cfg.CatalogReloadMinutes, cfg.CatalogFile); err != nil {
		return fmt.Errorf("invalid CATALOG_RELOAD_MINUTES: %w", err)
	}

	if err := validateSearchMode(cfg.SearchMode); err != nil {
		return fmt.Errorf("invalid SEARCH_MODE: %w", err)
	}

	if err := validateMaxSuggestions(cfg.MaxSuggestions); err != nil {
		return fmt.Errorf("invalid MAX_SUGGESTIONS: %w", err)
	}

	if err := validateCORSOrigins(cfg.CORSOrigins); err != nil {
		return fmt.Errorf("invalid CORS_ORIGINS: %w", err)
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

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// 0.0.0.0 is allowed for containers
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
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
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateDataFile checks an optional JSON data file
func validateDataFile(path, configName string) error {
	if path == "" {
		return nil
	}

	if filepath.Ext(path) != ".json" {
		return fmt.Errorf("%s must be a .json file, got: %s", configName, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", configName, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %s", configName, path)
	}

	return nil
}

// validateReloadMinutes validates the CATALOG_RELOAD_MINUTES environment variable
func validateReloadMinutes(minutes int, catalogFile string) error {
	if minutes < 0 {
		return fmt.Errorf("CATALOG_RELOAD_MINUTES must not be negative, got: %d", minutes)
	}

	if minutes > 24*60 {
		return fmt.Errorf("CATALOG_RELOAD_MINUTES is too large (max 1440), got: %d", minutes)
	}

	// The embedded catalog never changes
	if minutes > 0 && catalogFile == "" {
		return fmt.Errorf("CATALOG_RELOAD_MINUTES requires CATALOG_FILE")
	}

	return nil
}

// validateSearchMode validates the SEARCH_MODE environment variable
func validateSearchMode(mode string) error {
	if mode != SearchModeToken && mode != SearchModeSimple {
		return fmt.Errorf("SEARCH_MODE must be one of: [%s %s], got: %s", SearchModeToken, SearchModeSimple, mode)
	}
	return nil
}

// validateMaxSuggestions validates the MAX_SUGGESTIONS environment variable
func validateMaxSuggestions(n int) error {
	if n < 1 || n > 200 {
		return fmt.Errorf("MAX_SUGGESTIONS must be between 1 and 200, got: %d", n)
	}
	return nil
}

// validateCORSOrigins validates the CORS_ORIGINS environment variable
func validateCORSOrigins(origins []string) error {
	if len(origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS cannot be empty")
	}

	for _, origin := range origins {
		if origin == "*" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS origin must start with http:// or https://, got: %s", origin)
		}
	}

	return nil
}

// splitList splits a comma separated value and drops empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
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
		"CATALOG_FILE",
		"OPIOIDS_FILE",
		"CATALOG_RELOAD_MINUTES",
		"SEARCH_MODE",
		"MAX_SUGGESTIONS",
		"CORS_ORIGINS",
	}
}

// ValidateAllEnvVars checks if all required environment variables are set
func ValidateAllEnvVars() error {
	requiredVars := []string{"PORT"} // Only PORT is truly required
	missingVars := []string{}

	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

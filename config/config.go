// Package config loads the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment the service runs in
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

// ParseEnvironment accepts the short and long spellings of every environment
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

// MatchOptions are the matching options as plain strings, before they are checked against the
// allowed values of the matching engine.
type MatchOptions struct {
	GenericCountBasis string  `yaml:"generic_count_basis"`
	GenericDefinition string  `yaml:"generic_definition"`
	CancelFilter      string  `yaml:"cancel_filter"`
	ReviewThreshold   float64 `yaml:"review_threshold"`
}

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
	MaxHeaderSize     int64 // Maximum total header size in bytes

	CatalogPath  string
	CatalogURL   string // when set, the catalog is downloaded to CatalogPath before each load
	ReloadTimes  string // gocron At() list, e.g. "06:00;18:00"
	MatchWorkers int    // 0 means one worker per CPU
	Match        MatchOptions
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
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 10485760),   // 10MB, match payloads carry whole source lists
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB
		CatalogPath:       getEnvWithDefault("CATALOG_PATH", "data/mfds_catalog.csv"),
		CatalogURL:        os.Getenv("CATALOG_URL"),
		ReloadTimes:       getEnvWithDefault("RELOAD_TIMES", "06:00;18:00"),
		MatchWorkers:      getIntEnvWithDefault("MATCH_WORKERS", 0),
		Match: MatchOptions{
			GenericCountBasis: getEnvWithDefault("GENERIC_COUNT_BASIS", "base"),
			GenericDefinition: getEnvWithDefault("GENERIC_DEFINITION", "excl_original"),
			CancelFilter:      getEnvWithDefault("CANCEL_FILTER", "active_only"),
			ReviewThreshold:   getFloatEnvWithDefault("REVIEW_THRESHOLD", 0.9),
		},
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

	if cfg.CatalogPath == "" {
		return fmt.Errorf("invalid CATALOG_PATH: cannot be empty")
	}

	if err := validateCatalogURL(cfg.CatalogURL); err != nil {
		return fmt.Errorf("invalid CATALOG_URL: %w", err)
	}

	if err := validateReloadTimes(cfg.ReloadTimes); err != nil {
		return fmt.Errorf("invalid RELOAD_TIMES: %w", err)
	}

	if cfg.MatchWorkers < 0 || cfg.MatchWorkers > 256 {
		return fmt.Errorf("invalid MATCH_WORKERS: must be between 0 and 256, got: %d", cfg.MatchWorkers)
	}

	if err := validateMatchOptions(cfg.Match); err != nil {
		return err
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

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress accepts loopback and private addresses only
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

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	switch strings.ToLower(logLevel) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	case "":
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}
	return fmt.Errorf("LOG_LEVEL must be one of: [debug info warn error], got: %s", logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize keeps the size between 1MB and 1GB
func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateReloadTimes checks a ';' separated list of HH:MM times
func validateReloadTimes(times string) error {
	if strings.TrimSpace(times) == "" {
		return fmt.Errorf("RELOAD_TIMES cannot be empty")
	}
	for t := range strings.SplitSeq(times, ";") {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("RELOAD_TIMES entries must be HH:MM, got: %q", t)
		}
	}
	return nil
}

func validateCatalogURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("CATALOG_URL must be a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CATALOG_URL must be an http or https URL, got: %s", raw)
	}
	return nil
}

func validateMatchOptions(m MatchOptions) error {
	if !oneOf(m.GenericCountBasis, "base", "base_form") {
		return fmt.Errorf("invalid GENERIC_COUNT_BASIS: must be one of [base base_form], got: %s", m.GenericCountBasis)
	}
	if !oneOf(m.GenericDefinition, "excl_original", "total_minus_original") {
		return fmt.Errorf("invalid GENERIC_DEFINITION: must be one of [excl_original total_minus_original], got: %s", m.GenericDefinition)
	}
	if !oneOf(m.CancelFilter, "active_only", "all") {
		return fmt.Errorf("invalid CANCEL_FILTER: must be one of [active_only all], got: %s", m.CancelFilter)
	}
	if !(m.ReviewThreshold >= 0 && m.ReviewThreshold <= 1) {
		return fmt.Errorf("invalid REVIEW_THRESHOLD: must be between 0 and 1, got: %v", m.ReviewThreshold)
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// LoadOptionsFile reads matching options from a YAML file. Keys missing from the file keep the
// values of base.
func LoadOptionsFile(path string, base MatchOptions) (MatchOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read options file: %w", err)
	}

	opts := base
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return base, fmt.Errorf("failed to parse options file %s: %w", path, err)
	}

	if err := validateMatchOptions(opts); err != nil {
		return base, fmt.Errorf("options file %s: %w", path, err)
	}
	return opts, nil
}

// DefaultMatchOptions are the options used when neither the environment nor a file sets them
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		GenericCountBasis: "base",
		GenericDefinition: "excl_original",
		CancelFilter:      "active_only",
		ReviewThreshold:   0.9,
	}
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnvWithDefault returns -1 for unparsable values so validation rejects them
func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return -1
		}
		return f
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
		"CATALOG_PATH",
		"CATALOG_URL",
		"RELOAD_TIMES",
		"MATCH_WORKERS",
		"GENERIC_COUNT_BASIS",
		"GENERIC_DEFINITION",
		"CANCEL_FILTER",
		"REVIEW_THRESHOLD",
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ModeMock     = "mock"
	ModeLive     = "live"
	ModeFallback = "fallback"
)

const defaultConfigPath = "config.toml"

// Config stores runtime configuration for the dashboard service.
type Config struct {
	BaseURL            string
	APIToken           string
	Mode               string
	MockForced         bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	HTTPListenAddr     string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	PageTitle          string
	AgentsInterval     time.Duration
	JobsInterval       time.Duration
	InfoInterval       time.Duration
	MockDBPath         string
	LogLevel           string
	LogFile            string
}

// fileConfig mirrors the optional TOML file. Every value can be overridden
// by the matching environment variable.
type fileConfig struct {
	BaseURL            string `toml:"base_url"`
	APIToken           string `toml:"api_token"`
	MockMode           *bool  `toml:"mock_mode"`
	FallbackOnError    *bool  `toml:"fallback_on_error"`
	InsecureSkipVerify *bool  `toml:"insecure_skip_verify"`
	Timeout            string `toml:"timeout"`
	ListenAddr         string `toml:"listen_addr"`
	ReadTimeout        string `toml:"read_timeout"`
	WriteTimeout       string `toml:"write_timeout"`
	Title              string `toml:"title"`
	AgentsInterval     string `toml:"agents_interval"`
	JobsInterval       string `toml:"jobs_interval"`
	InfoInterval       string `toml:"info_interval"`
	MockDBPath         string `toml:"mock_db_path"`
	LogLevel           string `toml:"log_level"`
	LogFile            string `toml:"log_file"`
}

// Load reads the optional TOML file, then environment variables, and
// validates required settings.
func Load() (Config, error) {
	file, err := loadFile()
	if err != nil {
		return Config{}, err
	}

	baseURL := stringFromEnv("RESILIO_BASE_URL", file.BaseURL)
	mockMode := boolFromEnv("RESILIO_MOCK_MODE", boolOr(file.MockMode, false))
	fallback := boolFromEnv("RESILIO_FALLBACK_ON_ERROR", boolOr(file.FallbackOnError, true))

	cfg := Config{
		InsecureSkipVerify: boolFromEnv("RESILIO_INSECURE_SKIP_VERIFY", boolOr(file.InsecureSkipVerify, false)),
		Timeout:            durationFromEnv("RESILIO_TIMEOUT", durationOr(file.Timeout, 8*time.Second)),
		HTTPListenAddr:     stringFromEnv("RESILIO_DASHBOARD_LISTEN_ADDRESS", stringOr(file.ListenAddr, ":8080")),
		HTTPReadTimeout:    durationFromEnv("RESILIO_DASHBOARD_READ_TIMEOUT", durationOr(file.ReadTimeout, 10*time.Second)),
		HTTPWriteTimeout:   durationFromEnv("RESILIO_DASHBOARD_WRITE_TIMEOUT", durationOr(file.WriteTimeout, 10*time.Second)),
		PageTitle:          stringFromEnv("RESILIO_DASHBOARD_TITLE", stringOr(file.Title, "Resilio Sync Dashboard")),
		AgentsInterval:     durationFromEnv("RESILIO_AGENTS_INTERVAL", durationOr(file.AgentsInterval, 30*time.Second)),
		JobsInterval:       durationFromEnv("RESILIO_JOBS_INTERVAL", durationOr(file.JobsInterval, 10*time.Second)),
		InfoInterval:       durationFromEnv("RESILIO_INFO_INTERVAL", durationOr(file.InfoInterval, 60*time.Second)),
		MockDBPath:         stringFromEnv("RESILIO_MOCK_DB_PATH", file.MockDBPath),
		LogLevel:           stringFromEnv("RESILIO_LOG_LEVEL", stringOr(file.LogLevel, "info")),
		LogFile:            stringFromEnv("RESILIO_LOG_FILE", file.LogFile),
	}

	for name, interval := range map[string]time.Duration{
		"RESILIO_AGENTS_INTERVAL": cfg.AgentsInterval,
		"RESILIO_JOBS_INTERVAL":   cfg.JobsInterval,
		"RESILIO_INFO_INTERVAL":   cfg.InfoInterval,
	} {
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", name)
		}
	}

	switch {
	case mockMode:
		cfg.Mode = ModeMock
	case baseURL == "":
		cfg.Mode = ModeMock
		cfg.MockForced = true
	case fallback:
		cfg.Mode = ModeFallback
	default:
		cfg.Mode = ModeLive
	}

	if baseURL == "" {
		return cfg, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Config{}, fmt.Errorf("RESILIO_BASE_URL must be a valid absolute URL")
	}
	cfg.BaseURL = strings.TrimRight(parsedURL.String(), "/")

	if cfg.Mode == ModeMock {
		return cfg, nil
	}

	token, err := loadAPIToken(file.APIToken)
	if err != nil {
		return Config{}, err
	}
	cfg.APIToken = token

	return cfg, nil
}

func loadFile() (fileConfig, error) {
	var file fileConfig

	path := strings.TrimSpace(os.Getenv("RESILIO_DASHBOARD_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &file); err != nil {
		return file, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return file, nil
}

func loadAPIToken(fromFile string) (string, error) {
	if token := strings.TrimSpace(os.Getenv("RESILIO_API_TOKEN")); token != "" {
		return token, nil
	}

	secretPath := strings.TrimSpace(os.Getenv("RESILIO_API_TOKEN_FILE"))
	if secretPath == "" {
		if token := strings.TrimSpace(fromFile); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("either RESILIO_API_TOKEN or RESILIO_API_TOKEN_FILE must be set")
	}

	secretData, err := os.ReadFile(secretPath)
	if err != nil {
		return "", fmt.Errorf("failed to read RESILIO_API_TOKEN_FILE: %w", err)
	}

	token := strings.TrimSpace(string(secretData))
	if token == "" {
		return "", fmt.Errorf("RESILIO_API_TOKEN_FILE is empty")
	}

	return token, nil
}

func durationFromEnv(name string, fallback time.Duration) time.Duration {
	return durationOr(os.Getenv(name), fallback)
}

// durationOr accepts Go duration syntax or plain integers as seconds
// (e.g. "2" => 2s).
func durationOr(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err == nil {
		return parsed
	}

	if seconds, parseErr := strconv.Atoi(value); parseErr == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	return fallback
}

func boolFromEnv(name string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func stringFromEnv(name, fallback string) string {
	return stringOr(os.Getenv(name), fallback)
}

func stringOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	return value
}

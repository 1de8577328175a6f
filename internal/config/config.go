package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Host           string
	Username       string
	Password       string
	Token          string
	InsecureTLS    bool
	RequestTimeout time.Duration

	ListenPort  int
	ServerURL   string
	CORSOrigins []string
	RateLimit   int

	LogLevel         string
	LogFormat        string
	TelemetryEnabled bool
}

// Load reads configuration from VERGE_* environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("host", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("token", "")
	v.SetDefault("insecure_tls", false)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("listen_port", 3001)
	v.SetDefault("server_url", "")
	v.SetDefault("cors_origins", "")
	v.SetDefault("rate_limit", 120)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("telemetry_enabled", false)

	v.SetEnvPrefix("verge")
	v.AutomaticEnv()

	cfg := &Config{
		Host:             strings.TrimSpace(v.GetString("host")),
		Username:         v.GetString("username"),
		Password:         v.GetString("password"),
		Token:            v.GetString("token"),
		InsecureTLS:      v.GetBool("insecure_tls"),
		RequestTimeout:   v.GetDuration("request_timeout"),
		ListenPort:       v.GetInt("listen_port"),
		ServerURL:        strings.TrimRight(v.GetString("server_url"), "/"),
		CORSOrigins:      splitList(v.GetString("cors_origins")),
		RateLimit:        v.GetInt("rate_limit"),
		LogLevel:         strings.ToLower(v.GetString("log_level")),
		LogFormat:        strings.ToLower(v.GetString("log_format")),
		TelemetryEnabled: v.GetBool("telemetry_enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("VERGE_HOST is required")
	}
	if _, err := url.Parse(c.BaseURL()); err != nil {
		return fmt.Errorf("invalid VERGE_HOST %q: %w", c.Host, err)
	}

	hasPair := c.Username != "" && c.Password != ""
	if !hasPair && c.Token == "" {
		return errors.New("credentials required: set VERGE_USERNAME and VERGE_PASSWORD, or VERGE_TOKEN")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout: %s", c.RequestTimeout)
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port: %d", c.ListenPort)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", c.RateLimit)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.LogFormat)
	}

	return nil
}

// BaseURL is the backend address. A bare host gets an https scheme.
func (c *Config) BaseURL() string {
	host := strings.TrimRight(c.Host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// SSEBaseURL is the externally reachable address announced to SSE clients.
func (c *Config) SSEBaseURL() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return fmt.Sprintf("http://localhost:%d", c.ListenPort)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VERGE_HOST", "verge.example.com")
	t.Setenv("VERGE_TOKEN", "tok")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL() != "https://verge.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.ListenPort != 3001 || cfg.RateLimit != 120 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.SSEBaseURL() != "http://localhost:3001" {
		t.Errorf("SSEBaseURL = %q", cfg.SSEBaseURL())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VERGE_HOST", "http://10.0.0.5/")
	t.Setenv("VERGE_USERNAME", "admin")
	t.Setenv("VERGE_PASSWORD", "secret")
	t.Setenv("VERGE_REQUEST_TIMEOUT", "45s")
	t.Setenv("VERGE_LISTEN_PORT", "8081")
	t.Setenv("VERGE_SERVER_URL", "https://mcp.example.com/")
	t.Setenv("VERGE_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("VERGE_LOG_LEVEL", "DEBUG")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL() != "http://10.0.0.5" {
		t.Errorf("BaseURL = %q", cfg.BaseURL())
	}
	if cfg.RequestTimeout != 45*time.Second || cfg.ListenPort != 8081 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SSEBaseURL() != "https://mcp.example.com" {
		t.Errorf("SSEBaseURL = %q", cfg.SSEBaseURL())
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing host", map[string]string{"VERGE_TOKEN": "tok"}, "VERGE_HOST"},
		{"missing credentials", map[string]string{"VERGE_HOST": "h"}, "credentials"},
		{"half pair", map[string]string{"VERGE_HOST": "h", "VERGE_USERNAME": "admin"}, "credentials"},
		{"bad port", map[string]string{"VERGE_HOST": "h", "VERGE_TOKEN": "t", "VERGE_LISTEN_PORT": "70000"}, "listen port"},
		{"bad level", map[string]string{"VERGE_HOST": "h", "VERGE_TOKEN": "t", "VERGE_LOG_LEVEL": "loud"}, "log level"},
		{"bad format", map[string]string{"VERGE_HOST": "h", "VERGE_TOKEN": "t", "VERGE_LOG_FORMAT": "xml"}, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"VERGE_HOST", "VERGE_USERNAME", "VERGE_PASSWORD", "VERGE_TOKEN"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

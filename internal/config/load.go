package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{ID: "main"},
		},
		Dispatch: DispatchConfig{
			RateLimitPerMinute: 30,
		},
		Sessions: SessionsConfig{
			Storage: "~/.clawroute/sessions",
			Backend: "file",
		},
		Cron: CronConfig{
			Storage: "~/.clawroute/cron/jobs.json",
		},
		Telemetry: TelemetryConfig{
			Protocol: "http",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file yields the defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides overlays CLAWROUTE_* env vars onto the config.
// Env vars win over file values; secrets are expected here rather than
// in the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CLAWROUTE_TELEGRAM_TOKEN"); v != "" {
		c.Channels.Telegram.Token = v
	}
	if v := os.Getenv("CLAWROUTE_DISCORD_TOKEN"); v != "" {
		c.Channels.Discord.Token = v
	}
	if v := os.Getenv("CLAWROUTE_MATRIX_ACCESS_TOKEN"); v != "" {
		c.Channels.Matrix.AccessToken = v
	}
	if v := os.Getenv("CLAWROUTE_FEISHU_APP_SECRET"); v != "" {
		c.Channels.Feishu.AppSecret = v
	}
	if v := os.Getenv("CLAWROUTE_DEFAULT_CHANNEL"); v != "" {
		c.Routing.DefaultChannel = v
	}
	if v := os.Getenv("CLAWROUTE_SESSIONS_STORAGE"); v != "" {
		c.Sessions.Storage = v
	}
	if v := os.Getenv("CLAWROUTE_DISPATCH_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Dispatch.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CLAWROUTE_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	}
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Package config defines the routing configuration for the ClawRoute core:
// which channels exist, which bot accounts serve which agents, and the
// defaults the resolver falls back to when a session carries no history.
package config

import (
	"errors"
	"strings"
)

// Config is the root configuration.
type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Routing   RoutingConfig   `json:"routing"`
	Dispatch  DispatchConfig  `json:"dispatch,omitempty"`
	Sessions  SessionsConfig  `json:"sessions"`
	Cron      CronConfig      `json:"cron,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Bindings  []AgentBinding  `json:"bindings,omitempty"`
}

// AgentsConfig lists known agents. The defaults block names the agent used
// when a caller supplies no agent id.
type AgentsConfig struct {
	Defaults AgentDefaults        `json:"defaults"`
	List     map[string]AgentSpec `json:"list,omitempty"`
}

// AgentDefaults are settings applied to every agent unless overridden.
type AgentDefaults struct {
	ID string `json:"id,omitempty"` // default agent id (default "main")
}

// AgentSpec is a per-agent override block.
type AgentSpec struct {
	Name string `json:"name,omitempty"`
}

// RoutingConfig controls resolver fallbacks.
type RoutingConfig struct {
	// DefaultChannel is consulted when neither the job payload, the
	// origin, nor session history yields a channel.
	DefaultChannel string `json:"default_channel,omitempty"`
}

// DispatchConfig controls the action dispatcher.
type DispatchConfig struct {
	// RateLimitPerMinute caps tool-context dispatches per requester.
	// 0 disables the limiter.
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty"`
}

// SessionsConfig locates the session store snapshot.
type SessionsConfig struct {
	Storage string `json:"storage"`           // directory (file) or db path (sqlite)
	Backend string `json:"backend,omitempty"` // "file" (default) or "sqlite"
}

// CronConfig locates the job store.
type CronConfig struct {
	Storage string `json:"storage,omitempty"` // jobs.json path
}

// TelemetryConfig configures the optional OTLP trace exporter.
// Only honored when built with -tags otel.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // host:port of the collector
	Protocol string `json:"protocol,omitempty"` // "http" (default) or "grpc"
	Insecure bool   `json:"insecure,omitempty"`
}

// AgentBinding pins an agent to a bot account on one channel. Bindings take
// precedence over the per-channel accounts list when building the
// channel → agent → accounts map.
type AgentBinding struct {
	AgentID string       `json:"agentId"`
	Match   BindingMatch `json:"match"`
}

// BindingMatch specifies which channel/account the binding applies to.
type BindingMatch struct {
	Channel   string `json:"channel"`
	AccountID string `json:"accountId,omitempty"`
}

// AccountConfig describes one bot account on a channel. Agents lists the
// agent ids this account serves; empty means the default agent. Order in
// config is preserved; the first account bound to an agent is its default.
type AccountConfig struct {
	ID     string   `json:"id"`
	Agents []string `json:"agents,omitempty"`
}

// ChannelsConfig contains per-channel configuration.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Matrix   MatrixConfig   `json:"matrix"`
	Feishu   FeishuConfig   `json:"feishu"`
	X        XConfig        `json:"x"`
}

type TelegramConfig struct {
	Enabled  bool            `json:"enabled"`
	Token    string          `json:"token"`
	Accounts []AccountConfig `json:"accounts,omitempty"`
}

type DiscordConfig struct {
	Enabled  bool            `json:"enabled"`
	Token    string          `json:"token"`
	GuildID  string          `json:"guild_id,omitempty"` // default guild for moderation actions
	Accounts []AccountConfig `json:"accounts,omitempty"`
}

type MatrixConfig struct {
	Enabled     bool            `json:"enabled"`
	Homeserver  string          `json:"homeserver"`
	UserID      string          `json:"user_id"`
	AccessToken string          `json:"access_token"`
	Accounts    []AccountConfig `json:"accounts,omitempty"`
}

type FeishuConfig struct {
	Enabled   bool            `json:"enabled"`
	AppID     string          `json:"app_id"`
	AppSecret string          `json:"app_secret"`
	Accounts  []AccountConfig `json:"accounts,omitempty"`
}

// XConfig exists for account bindings and recipient normalization only;
// no plugin ships for it.
type XConfig struct {
	Enabled  bool            `json:"enabled"`
	Accounts []AccountConfig `json:"accounts,omitempty"`
}

// ChannelOrder is the deterministic iteration order for per-channel maps.
var ChannelOrder = []string{"telegram", "discord", "matrix", "feishu", "x"}

// ChannelAccounts returns the configured accounts for a channel id.
func (c *Config) ChannelAccounts(channel string) []AccountConfig {
	switch channel {
	case "telegram":
		return c.Channels.Telegram.Accounts
	case "discord":
		return c.Channels.Discord.Accounts
	case "matrix":
		return c.Channels.Matrix.Accounts
	case "feishu":
		return c.Channels.Feishu.Accounts
	case "x":
		return c.Channels.X.Accounts
	}
	return nil
}

// ChannelEnabled reports whether a channel is switched on in config.
func (c *Config) ChannelEnabled(channel string) bool {
	switch channel {
	case "telegram":
		return c.Channels.Telegram.Enabled
	case "discord":
		return c.Channels.Discord.Enabled
	case "matrix":
		return c.Channels.Matrix.Enabled
	case "feishu":
		return c.Channels.Feishu.Enabled
	case "x":
		return c.Channels.X.Enabled
	}
	return false
}

// NormalizeAgentID canonicalizes an agent id: trimmed, lowercased,
// empty falls back to the configured default.
func (c *Config) NormalizeAgentID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return c.ResolveDefaultAgentID()
	}
	return id
}

// ResolveDefaultAgentID returns the default agent id ("main" when unset).
func (c *Config) ResolveDefaultAgentID() string {
	if id := strings.ToLower(strings.TrimSpace(c.Agents.Defaults.ID)); id != "" {
		return id
	}
	return "main"
}

// ErrNoDefaultChannel is returned when config names no usable default.
var ErrNoDefaultChannel = errors.New("no default channel configured")

// ResolveDefaultChannelSelection returns the configured default channel.
// Failure is ordinary: the resolver treats it as "no fallback from config"
// and moves to the next tier.
func ResolveDefaultChannelSelection(cfg *Config) (string, error) {
	ch := strings.TrimSpace(cfg.Routing.DefaultChannel)
	if ch == "" {
		return "", ErrNoDefaultChannel
	}
	if !cfg.ChannelEnabled(ch) {
		return "", ErrNoDefaultChannel
	}
	return ch, nil
}

// Package config loads wishbot configuration from a JSON file with an
// environment-variable overlay (WISHBOT_* vars win over file values).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/tinyland-inc/wishbot/pkg/bus"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers, so
// chat-id lists can contain both "427656853" and 427656853.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Store    StoreConfig    `json:"store"`
	Session  SessionConfig  `json:"session"`
	Digest   DigestConfig   `json:"digest"`
	Gateway  GatewayConfig  `json:"gateway"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
	Console  ConsoleConfig  `json:"console"`
}

type TelegramConfig struct {
	Enabled bool                `env:"WISHBOT_CHANNELS_TELEGRAM_ENABLED"  json:"enabled"`
	Token   string              `env:"WISHBOT_CHANNELS_TELEGRAM_TOKEN"    json:"token"`
	ChatIDs FlexibleStringSlice `env:"WISHBOT_CHANNELS_TELEGRAM_CHAT_IDS" json:"chat_ids"`
}

type DiscordConfig struct {
	Enabled    bool                `env:"WISHBOT_CHANNELS_DISCORD_ENABLED"     json:"enabled"`
	Token      string              `env:"WISHBOT_CHANNELS_DISCORD_TOKEN"       json:"token"`
	ChannelIDs FlexibleStringSlice `env:"WISHBOT_CHANNELS_DISCORD_CHANNEL_IDS" json:"channel_ids"`
}

type SlackConfig struct {
	Enabled    bool                `env:"WISHBOT_CHANNELS_SLACK_ENABLED"     json:"enabled"`
	BotToken   string              `env:"WISHBOT_CHANNELS_SLACK_BOT_TOKEN"   json:"bot_token"`
	AppToken   string              `env:"WISHBOT_CHANNELS_SLACK_APP_TOKEN"   json:"app_token"`
	ChannelIDs FlexibleStringSlice `env:"WISHBOT_CHANNELS_SLACK_CHANNEL_IDS" json:"channel_ids"`
}

type ConsoleConfig struct {
	Enabled bool `env:"WISHBOT_CHANNELS_CONSOLE_ENABLED" json:"enabled"`
}

type StoreConfig struct {
	Path string `env:"WISHBOT_STORE_PATH" json:"path"`
}

type SessionConfig struct {
	TTLMinutes int `env:"WISHBOT_SESSION_TTL_MINUTES" json:"ttl_minutes"`
}

type DigestConfig struct {
	Enabled  bool   `env:"WISHBOT_DIGEST_ENABLED"  json:"enabled"`
	Schedule string `env:"WISHBOT_DIGEST_SCHEDULE" json:"schedule"` // cron expression
}

type GatewayConfig struct {
	Host string `env:"WISHBOT_GATEWAY_HOST" json:"host"`
	Port int    `env:"WISHBOT_GATEWAY_PORT" json:"port"`
}

// DefaultConfig returns the built-in defaults applied before the config
// file and environment overlay.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Path: filepath.Join(home, ".wishbot", "wishlist.db"),
		},
		Session: SessionConfig{
			TTLMinutes: 10,
		},
		Digest: DigestConfig{
			Enabled:  false,
			Schedule: "0 9 * * *",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8088,
		},
	}
}

// LoadConfig reads the config file at path, falling back to defaults
// when it does not exist, then applies the environment overlay.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
// The file holds the bot token, hence 0600.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Endpoints assembles the immutable endpoint set every broadcast fans
// out to. The order follows the config file.
func (c *Config) Endpoints() []bus.Endpoint {
	var endpoints []bus.Endpoint
	if c.Channels.Telegram.Enabled {
		for _, id := range c.Channels.Telegram.ChatIDs {
			endpoints = append(endpoints, bus.Endpoint{Channel: "telegram", ChatID: id})
		}
	}
	if c.Channels.Discord.Enabled {
		for _, id := range c.Channels.Discord.ChannelIDs {
			endpoints = append(endpoints, bus.Endpoint{Channel: "discord", ChatID: id})
		}
	}
	if c.Channels.Slack.Enabled {
		for _, id := range c.Channels.Slack.ChannelIDs {
			endpoints = append(endpoints, bus.Endpoint{Channel: "slack", ChatID: id})
		}
	}
	if c.Channels.Console.Enabled {
		endpoints = append(endpoints, bus.Endpoint{Channel: "console", ChatID: "direct"})
	}
	return endpoints
}

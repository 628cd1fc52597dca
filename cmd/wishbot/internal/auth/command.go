package auth

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal"
	"github.com/tinyland-inc/wishbot/pkg/config"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "auth <channel>",
		Short:     "Store a chat channel token in the config",
		Example:   "wishbot auth telegram",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"telegram", "discord", "slack"},
		RunE: func(_ *cobra.Command, args []string) error {
			return authCmd(args[0])
		},
	}
	return cmd
}

func authCmd(channel string) error {
	path := internal.GetConfigPath()
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	switch channel {
	case "telegram":
		token, err := readToken("Paste your Telegram bot token (from @BotFather):", os.Stdin)
		if err != nil {
			return err
		}
		cfg.Channels.Telegram.Token = token
		cfg.Channels.Telegram.Enabled = true

	case "discord":
		token, err := readToken("Paste your Discord bot token:", os.Stdin)
		if err != nil {
			return err
		}
		cfg.Channels.Discord.Token = token
		cfg.Channels.Discord.Enabled = true

	case "slack":
		botToken, err := readToken("Paste your Slack bot token (xoxb-...):", os.Stdin)
		if err != nil {
			return err
		}
		appToken, err := readToken("Paste your Slack app-level token (xapp-...):", os.Stdin)
		if err != nil {
			return err
		}
		cfg.Channels.Slack.BotToken = botToken
		cfg.Channels.Slack.AppToken = appToken
		cfg.Channels.Slack.Enabled = true

	default:
		return fmt.Errorf("unknown channel %q (telegram, discord or slack)", channel)
	}

	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	fmt.Printf("✓ %s credentials saved to %s\n", channel, path)
	return nil
}

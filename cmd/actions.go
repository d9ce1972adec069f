package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawroute/internal/channels/discord"
	"github.com/nextlevelbuilder/clawroute/internal/channels/feishu"
	"github.com/nextlevelbuilder/clawroute/internal/channels/matrix"
	"github.com/nextlevelbuilder/clawroute/internal/channels/telegram"
	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
)

// buildRegistry instantiates a plugin for every enabled channel, in the
// deterministic channel order that also fixes cross-channel fallback order.
func buildRegistry(cfg *config.Config) (*dispatch.Registry, error) {
	reg := dispatch.NewRegistry()
	for _, ch := range config.ChannelOrder {
		if !cfg.ChannelEnabled(ch) {
			continue
		}
		switch ch {
		case "telegram":
			p, err := telegram.New(cfg.Channels.Telegram)
			if err != nil {
				return nil, err
			}
			reg.Register(p)
		case "discord":
			p, err := discord.New(cfg.Channels.Discord)
			if err != nil {
				return nil, err
			}
			reg.Register(p)
		case "matrix":
			p, err := matrix.New(cfg.Channels.Matrix)
			if err != nil {
				return nil, err
			}
			reg.Register(p)
		case "feishu":
			reg.Register(feishu.New(cfg.Channels.Feishu))
		}
	}
	return reg, nil
}

// actionsCmd prints the capability matrix of configured channel plugins.
func actionsCmd() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Show the action/button/card capabilities of configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			d := dispatch.NewDispatcher(reg, cfg.Dispatch.RateLimitPerMinute)

			if channel != "" {
				acts := d.ChannelActions(channel)
				if acts == nil {
					return fmt.Errorf("channel %q has no plugin loaded", channel)
				}
				printChannel(d, channel, acts)
				return nil
			}

			for _, id := range reg.IDs() {
				printChannel(d, id, d.ChannelActions(id))
			}
			if len(reg.IDs()) == 0 {
				fmt.Println("no channels enabled")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "limit output to one channel")
	return cmd
}

func printChannel(d *dispatch.Dispatcher, id string, acts []string) {
	var extras []string
	if d.SupportsButtons(id) {
		extras = append(extras, "buttons")
	}
	if d.SupportsCards(id) {
		extras = append(extras, "cards")
	}
	suffix := ""
	if len(extras) > 0 {
		suffix = " [" + strings.Join(extras, ", ") + "]"
	}
	fmt.Printf("%-10s %s%s\n", id, strings.Join(acts, ", "), suffix)
}

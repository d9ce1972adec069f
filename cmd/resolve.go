package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawroute/internal/routing"
	"github.com/nextlevelbuilder/clawroute/internal/store"
)

// resolveCmd exposes the resolver as a debugging surface: load the session
// snapshot, compute the target, print it as JSON.
func resolveCmd() *cobra.Command {
	var (
		agentID    string
		channel    string
		to         string
		sessionKey string
		mode       string

		originChannel string
		originTo      string
		originAccount string
		originThread  string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the delivery target for an outbound message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			snapshot, err := store.ForConfig(cfg).Load(ctx)
			if err != nil {
				return fmt.Errorf("load session snapshot: %w", err)
			}

			var origin *routing.Origin
			if originChannel != "" || originTo != "" {
				origin = &routing.Origin{
					Channel:   originChannel,
					To:        originTo,
					AccountID: originAccount,
					ThreadID:  originThread,
				}
			}

			target := routing.Resolve(ctx, cfg, snapshot, agentID,
				routing.JobPayload{Channel: channel, To: to, SessionKey: sessionKey},
				routing.Options{Origin: origin, Mode: mode})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(target)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (default: configured default agent)")
	cmd.Flags().StringVar(&channel, "channel", "", `requested channel, or "last"`)
	cmd.Flags().StringVar(&to, "to", "", "requested recipient")
	cmd.Flags().StringVar(&sessionKey, "session-key", "", "session key to resolve against")
	cmd.Flags().StringVar(&mode, "mode", "", `delivery mode: "origin" (default) or "current"`)
	cmd.Flags().StringVar(&originChannel, "origin-channel", "", "channel the job was registered from")
	cmd.Flags().StringVar(&originTo, "origin-to", "", "recipient the job was registered from")
	cmd.Flags().StringVar(&originAccount, "origin-account", "", "account id captured at registration")
	cmd.Flags().StringVar(&originThread, "origin-thread", "", "thread id captured at registration")

	return cmd
}

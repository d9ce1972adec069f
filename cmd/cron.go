package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/cron"
	"github.com/nextlevelbuilder/clawroute/internal/routing"
	"github.com/nextlevelbuilder/clawroute/internal/store"
)

func cronService() (*cron.Service, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc := cron.NewService(config.ExpandHome(cfg.Cron.Storage))
	if err := svc.Load(); err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(cronListCmd())
	cmd.AddCommand(cronAddCmd())
	cmd.AddCommand(cronRemoveCmd())
	cmd.AddCommand(cronEnableCmd(true))
	cmd.AddCommand(cronEnableCmd(false))
	cmd.AddCommand(cronResolveCmd())
	return cmd
}

func cronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := cronService()
			if err != nil {
				return err
			}
			jobs := svc.List()
			if len(jobs) == 0 {
				fmt.Println("no jobs")
				return nil
			}
			now := time.Now()
			for _, j := range jobs {
				state := "enabled"
				if !j.Enabled {
					state = "disabled"
				}
				next := "-"
				if j.Enabled {
					if t, err := j.NextRun(now); err == nil {
						next = t.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-36s %-20s %-14s %-8s next=%s\n", j.ID, j.Name, j.Schedule, state, next)
			}
			return nil
		},
	}
}

func cronAddCmd() *cobra.Command {
	var (
		name     string
		schedule string
		message  string
		channel  string
		to       string
		session  string
		deliver  bool
		agentID  string

		originChannel string
		originTo      string
		originAccount string
		originThread  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a scheduled job",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := cronService()
			if err != nil {
				return err
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
			job, err := svc.Add(name, schedule, cron.Payload{
				Message:    message,
				Channel:    channel,
				To:         to,
				SessionKey: session,
				Deliver:    deliver,
			}, agentID, origin)
			if err != nil {
				return err
			}
			fmt.Printf("added job %s (%s)\n", job.Name, job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "job name (required)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "5-field cron expression (required)")
	cmd.Flags().StringVar(&message, "message", "", "message the job delivers")
	cmd.Flags().StringVar(&channel, "channel", "", `delivery channel, or "last"`)
	cmd.Flags().StringVar(&to, "to", "", "delivery recipient")
	cmd.Flags().StringVar(&session, "session-key", "", "session key the delivery resolves against")
	cmd.Flags().BoolVar(&deliver, "deliver", true, "deliver the job output to a channel")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent the job runs as")
	cmd.Flags().StringVar(&originChannel, "origin-channel", "", "channel the job is registered from")
	cmd.Flags().StringVar(&originTo, "origin-to", "", "recipient the job is registered from")
	cmd.Flags().StringVar(&originAccount, "origin-account", "", "account id at registration")
	cmd.Flags().StringVar(&originThread, "origin-thread", "", "thread id at registration")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("schedule")
	return cmd
}

func cronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id|name>",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := cronService()
			if err != nil {
				return err
			}
			if err := svc.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("removed job %s\n", args[0])
			return nil
		},
	}
}

func cronEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <id|name>", "Enable a scheduled job"
	if !enable {
		use, short = "disable <id|name>", "Disable a scheduled job"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := cronService()
			if err != nil {
				return err
			}
			job, err := svc.SetEnabled(args[0], enable)
			if err != nil {
				return err
			}
			state := "disabled"
			if job.Enabled {
				state = "enabled"
			}
			fmt.Printf("job %s %s\n", job.Name, state)
			return nil
		},
	}
}

// cronResolveCmd previews where a job's output would be delivered right now.
func cronResolveCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "resolve <id|name>",
		Short: "Preview a job's delivery target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := cronService()
			if err != nil {
				return err
			}
			job, ok := svc.Get(args[0])
			if !ok {
				return fmt.Errorf("no cron job %q", args[0])
			}

			ctx := context.Background()
			snapshot, err := store.ForConfig(cfg).Load(ctx)
			if err != nil {
				return fmt.Errorf("load session snapshot: %w", err)
			}
			target := cron.ResolveTarget(ctx, cfg, snapshot, job, mode)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(target)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", `delivery mode: "origin" (default) or "current"`)
	return cmd
}

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/cron"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/internal/store"
	"github.com/nextlevelbuilder/clawroute/internal/tracing"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

// runCmd is the long-running delivery loop: it ticks the cron schedules,
// resolves each due job's target, and dispatches the delivery through the
// loaded channel plugins. Config changes are picked up without a restart.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled-delivery loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := tracing.Init(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())

			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			if err := reg.StartAll(ctx); err != nil {
				return err
			}
			defer reg.StopAll(context.Background())

			d := dispatch.NewDispatcher(reg, cfg.Dispatch.RateLimitPerMinute)

			svc := cron.NewService(config.ExpandHome(cfg.Cron.Storage))
			if err := svc.Load(); err != nil {
				return err
			}

			var mu sync.Mutex
			current := cfg
			go config.Watch(ctx, resolveConfigPath(), func(next *config.Config) {
				mu.Lock()
				current = next
				mu.Unlock()
			})

			slog.Info("delivery loop started", "channels", reg.IDs(), "jobs", len(svc.List()))

			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			checker := gronx.New()
			for {
				select {
				case <-ctx.Done():
					slog.Info("delivery loop stopping")
					return nil
				case now := <-ticker.C:
					mu.Lock()
					active := current
					mu.Unlock()
					runDue(ctx, active, svc, d, checker, now)
				}
			}
		},
	}
}

func runDue(ctx context.Context, cfg *config.Config, svc *cron.Service, d *dispatch.Dispatcher, checker *gronx.Gronx, now time.Time) {
	for _, job := range svc.List() {
		if !job.Enabled {
			continue
		}
		due, err := checker.IsDue(job.Schedule, now)
		if err != nil || !due {
			continue
		}

		runID := uuid.NewString()
		log := slog.With("job", job.Name, "run", runID,
			"session", cron.RunSessionKey(cfg, job, runID))

		if !job.Payload.Deliver {
			log.Info("job due, delivery disabled")
			if err := svc.MarkRun(job.ID, now); err != nil {
				log.Warn("mark run failed", "error", err)
			}
			continue
		}

		snap, err := store.ForConfig(cfg).Load(ctx)
		if err != nil {
			log.Warn("session snapshot failed", "error", err)
			continue
		}
		target := cron.ResolveTarget(ctx, cfg, snap, job, protocol.DeliveryOrigin)
		if target.Err != nil {
			log.Warn("target rejected", "error", target.Err)
			continue
		}
		if target.To == "" {
			log.Info("no known recipient yet, skipping delivery")
			continue
		}

		res, err := d.Dispatch(ctx, &dispatch.ActionContext{
			Channel: target.Channel,
			Action:  protocol.ActionSend,
			To:      target.To,
			Content: job.Payload.Message,
		})
		switch {
		case err != nil:
			log.Error("delivery failed", "channel", target.Channel, "error", err)
		case res == nil:
			log.Warn("no plugin can deliver", "channel", target.Channel)
		default:
			log.Info("delivered", "channel", res.Channel, "to", target.To, "dispatch", res.ID)
		}
		if err := svc.MarkRun(job.ID, now); err != nil {
			log.Warn("mark run failed", "error", err)
		}
	}
}

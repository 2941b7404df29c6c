package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advertile/campwatch/internal/server"
	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/checker"
	"github.com/advertile/campwatch/pkg/history"
	"github.com/advertile/campwatch/pkg/schedule"
	"github.com/advertile/campwatch/pkg/telegram"
)

// watchCmd runs the monitoring daemon: a minute ticker drives the scheduler,
// the Telegram bot accepts manual triggers, and an optional status API serves
// run history.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the monitoring daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

		tz, err := time.LoadLocation(viper.GetString("redtrack.timezone"))
		if err != nil {
			utils.Log.WithField("timezone", viper.GetString("redtrack.timezone")).Warn("bad timezone, using UTC")
			tz = time.UTC
		}

		env := newJobEnv()
		cfgPath := schedulerConfigPath()
		latch := &utils.RunLatch{}

		runFromConfig := func(ctx context.Context, kind string) (history.Record, error) {
			cfg, err := schedule.Load(cfgPath)
			if err != nil {
				return history.Record{}, err
			}
			return env.execute(ctx, kind, checker.RunOptions{
				DateFrom:     cfg.DateFrom,
				DateTo:       cfg.DateTo,
				DaysLookback: cfg.DaysLookback,
				Concurrency:  viper.GetInt("check.concurrency"),
			})
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		bot := &telegram.Bot{
			Client: env.tg,
			Latch:  latch,
			RunCheck: func() (history.Record, error) {
				return runFromConfig(ctx, "telegram")
			},
			StatusText: func() string { return statusText(cfgPath) },
		}
		bot.Start()
		defer bot.Stop()

		if listenAddr != "" {
			api := server.New(env.hist, cfgPath, latch, func() (history.Record, error) {
				return runFromConfig(ctx, "api")
			}, viper.GetString("server.username"), viper.GetString("server.password"))
			go func() {
				if err := api.Start(listenAddr); err != nil {
					utils.Log.WithField("error", err).Error("status API stopped")
				}
			}()
		}

		utils.Log.WithField("config", cfgPath).Info("watch daemon started")
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				utils.Log.Info("watch daemon stopping")
				return nil
			case <-ticker.C:
				tick(ctx, env, cfgPath, tz, latch)
			}
		}
	},
}

// tick is one pass of the scheduling state machine: decide due-ness, take the
// latch, persist the bookkeeping BEFORE running, then run. Persisting first
// guarantees at most one triggered run per interval/day even if the run
// crashes; losing the latch to an in-flight manual run happens before the
// bookkeeping, so the slot stays due for the next tick.
func tick(ctx context.Context, env *jobEnv, cfgPath string, tz *time.Location, latch *utils.RunLatch) {
	now := time.Now()
	cfg, err := schedule.Load(cfgPath)
	if err != nil {
		utils.Log.WithField("error", err).Error("loading scheduler config failed")
		return
	}

	if !cfg.Due(now, tz) {
		utils.Log.WithFields(logrus.Fields{
			"schedule_mode":       cfg.ScheduleMode,
			"last_run_epoch":      cfg.LastRunEpoch,
			"last_run_local_date": cfg.LastRunLocalDate,
		}).Debug("run not due")
		return
	}

	if !latch.TryAcquire() {
		utils.Log.Warn("scheduled run skipped, a check is already in flight")
		return
	}
	defer latch.Release()

	cfg.MarkRun(now, tz)
	if err := schedule.Save(cfgPath, cfg); err != nil {
		utils.Log.WithField("error", err).Error("persisting scheduler state failed")
		return
	}

	rec, err := env.execute(ctx, "scheduled", checker.RunOptions{
		DateFrom:     cfg.DateFrom,
		DateTo:       cfg.DateTo,
		DaysLookback: cfg.DaysLookback,
		Concurrency:  viper.GetInt("check.concurrency"),
	})
	if err != nil {
		// Reported once: the bookkeeping above prevents an immediate retry.
		utils.Log.WithField("error", err).Error("scheduled run failed")
	}
	env.notify(rec, err)
}

func statusText(cfgPath string) string {
	cfg, err := schedule.Load(cfgPath)
	if err != nil {
		return "Could not load scheduler config: " + err.Error()
	}

	when := fmt.Sprintf("Every %d minutes", cfg.IntervalMinutes)
	if cfg.ScheduleMode == schedule.ModeDailyAt {
		when = "Daily at " + cfg.RunAtHHMM
	}
	window := "auto"
	if cfg.DateFrom != "" && cfg.DateTo != "" {
		window = cfg.DateFrom + " to " + cfg.DateTo
	}
	return fmt.Sprintf(`📊 Campaign check status

Schedule: %s (%s)
Days lookback: %d
Date range: %s

Use /check to trigger a manual check
Use /help for more commands`, cfg.ScheduleMode, when, cfg.DaysLookback, window)
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("listen", "", "Status API listen address (e.g. :8080, empty to disable)")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/fittrack/internal/app"
	"example.com/fittrack/internal/config"
	"example.com/fittrack/internal/outbox"
	"example.com/fittrack/internal/reminder"
	"example.com/fittrack/internal/scheduler"
)

const defaultDLQBatchSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	loc := cfg.Location()
	reminderOpts := []reminder.Option{reminder.WithLocation(loc), reminder.WithFirstWeekday(cfg.FirstWeekday())}
	checker := reminder.NewChecker(a.Service, a.Center, reminderOpts...)
	coach := reminder.NewCoach(a.Service, a.Weeks, a.Center, reminderOpts...)

	jobs := []scheduler.Job{
		{
			Name:     "weekly_reports",
			Interval: cfg.ReportCheckInterval,
			Run: func(ctx context.Context, now time.Time) {
				if err := a.Reports.RunOnce(ctx, now.In(loc)); err != nil {
					log.Printf("weekly reports: %v", err)
				}
			},
		},
		{
			Name:     "reminders",
			Interval: cfg.ReminderCheckInterval,
			Run: func(ctx context.Context, now time.Time) {
				if fired := checker.Check(ctx, now); fired > 0 {
					log.Printf("reminders fired: %d", fired)
				}
			},
		},
		{
			Name:     "coach",
			Interval: cfg.CoachCheckInterval,
			Run: func(ctx context.Context, now time.Time) {
				coach.Check(ctx, now)
			},
		},
	}

	if a.Pool != nil {
		manager := outbox.NewDLQManager(a.Pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)
		jobs = append(jobs, scheduler.Job{
			Name:     "outbox_dlq",
			Interval: cfg.DLQPollInterval,
			Run: func(ctx context.Context, _ time.Time) {
				processed, err := manager.RunOnce(ctx, defaultDLQBatchSize)
				if err != nil {
					log.Printf("dlq manager error: %v", err)
				} else if processed > 0 {
					log.Printf("dlq manager processed %d entries", processed)
				}
			},
		})
	}
	if a.Outbox != nil {
		go a.Outbox.Start(ctx)
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.Printf("scheduler metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	sched := scheduler.New(jobs)
	sched.Start(ctx)
	log.Printf("scheduler started (jobs=%d, timezone=%s, report window=%s %02d:00)", len(jobs), loc, cfg.ReportWeekday(), cfg.ReportSendHour)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("scheduler shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	sched.Wait()
	if a.Outbox != nil {
		a.Outbox.Wait()
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/fittrack/internal/api"
	"example.com/fittrack/internal/app"
	"example.com/fittrack/internal/auth"
	"example.com/fittrack/internal/config"
	"example.com/fittrack/internal/consumer"
	httptransport "example.com/fittrack/internal/transport/http"
)

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

	var wg sync.WaitGroup
	if a.Outbox != nil {
		go a.Outbox.Start(ctx)
	}
	if a.LiveRelay {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runRelay(ctx, cfg, a)
		}()
	}

	handler := api.NewHandler(a.Service,
		api.WithWeeks(a.Weeks),
		api.WithReports(a.Reports),
		api.WithNotificationStream(a.Hub),
		api.WithCalendar(cfg.Location(), cfg.FirstWeekday(), a.Keyer),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.SkipProbes)
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.CORS(cfg.CORSOrigin),
		httptransport.RequestLogger(nil),
		authMiddleware.Wrap,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("fittrack api listening on %s (store=%s, markers=%s, email=%s)", cfg.HTTPAddress, cfg.StoreDriver, cfg.MarkerDriver, cfg.EmailDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if a.Outbox != nil {
		a.Outbox.Wait()
	}
	wg.Wait()
}

// runRelay feeds notification.created events to this instance's websocket clients. Each
// instance reads the whole topic under its own consumer group.
func runRelay(ctx context.Context, cfg config.Config, a *app.App) {
	host, err := os.Hostname()
	if err != nil {
		host = "api"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroupID + "-live-" + host,
		Topic:          cfg.Routes().Notifications,
		StartOffset:    kafka.LastOffset,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	proc := consumer.NewProcessor(reader, consumer.NewNotificationRelay(a.Hub, nil))
	log.Printf("live notification relay started (topic=%s)", cfg.Routes().Notifications)
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("live notification relay stopped: %v", err)
	}
}

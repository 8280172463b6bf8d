// Package app assembles the fittrack components from configuration. Every binary builds
// the same graph and starts the parts it serves.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/config"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/email"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/notify"
	"example.com/fittrack/internal/outbox"
	"example.com/fittrack/internal/persistence/memory"
	"example.com/fittrack/internal/persistence/postgres"
	"example.com/fittrack/internal/persistence/sqlite"
	"example.com/fittrack/internal/report"
	"example.com/fittrack/internal/weekly"
)

// App holds the wired components.
type App struct {
	Config  config.Config
	Service *domain.Service
	Weeks   *weekly.Aggregator
	Keyer   weekly.Keyer
	Hub     *notify.Hub
	Center  *notify.Center
	Reports *report.Runner

	// Pool is nil with STORE_DRIVER=memory.
	Pool *pgxpool.Pool
	// Outbox relays stored events to Kafka; nil unless events go through the outbox.
	Outbox *outbox.Dispatcher
	// LiveRelay is true when notifications reach websocket clients through Kafka rather
	// than straight from the Center.
	LiveRelay bool

	closers []func() error
}

// Build wires every component. Close releases what Build opened.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg, Hub: notify.NewHub(nil, cfg.CORSOrigin)}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	keyer, err := weekly.KeyerFor(cfg.WeekNumbering)
	if err != nil {
		return err
	}
	a.Keyer = keyer

	if err := a.openStores(ctx); err != nil {
		return err
	}
	a.Weeks = weekly.NewAggregator(a.Service)

	publisher := a.publisher()
	centerOpts := []notify.Option{}
	if publisher != nil {
		centerOpts = append(centerOpts, notify.WithPublisher(publisher))
		a.LiveRelay = true
	} else {
		centerOpts = append(centerOpts, notify.WithBroadcaster(a.Hub))
	}
	a.Center = notify.NewCenter(a.Service, centerOpts...)

	sender, err := NewSender(ctx, cfg)
	if err != nil {
		return err
	}
	markers, err := a.openMarkers()
	if err != nil {
		return err
	}

	opts := []report.Option{
		report.WithSendTimeout(cfg.EmailSendTimeout),
		report.WithNotifier(a.Center),
		report.WithFirstWeekday(cfg.FirstWeekday()),
	}
	if publisher != nil {
		opts = append(opts, report.WithPublisher(publisher))
	}
	var dispatchers []*report.Dispatcher
	for _, stream := range Streams(cfg) {
		dispatchers = append(dispatchers, report.NewDispatcher(stream, a.Weeks, sender, markers, keyer, opts...))
	}
	a.Reports = report.NewRunner(a.Service, dispatchers, nil)
	return nil
}

func (a *App) openStores(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case config.DriverMemory:
		a.Service = domain.NewService(memory.NewActivityRepository(), memory.NewUserRepository(), memory.NewReminderRepository(), memory.NewNotificationRepository())
		return nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, a.Config.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.Pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Service = domain.NewService(postgres.NewActivityRepository(pool), postgres.NewUserRepository(pool), postgres.NewReminderRepository(pool), postgres.NewNotificationRepository(pool))
		return nil
	default:
		return fmt.Errorf("unsupported store driver %q", a.Config.StoreDriver)
	}
}

// publisher picks the event path: the transactional outbox when Postgres is available,
// direct Kafka writes otherwise, nothing when publishing is off.
func (a *App) publisher() events.Publisher {
	cfg := a.Config
	if !cfg.PublishEvents || len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	a.closers = append(a.closers, producer.Close)
	if a.Pool != nil {
		a.Outbox = outbox.NewDispatcher(a.Pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		return outbox.NewStore(a.Pool, cfg.Routes())
	}
	return notify.NewKafkaPublisher(producer, cfg.Routes())
}

func (a *App) openMarkers() (domain.MarkerStore, error) {
	switch a.Config.MarkerDriver {
	case config.DriverPostgres:
		if a.Pool == nil {
			return nil, errors.New("postgres markers need the postgres store")
		}
		return postgres.NewMarkerStore(a.Pool), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(a.Config.MarkerSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open marker db: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.DriverMemory:
		return memory.NewMarkerStore(), nil
	default:
		return nil, fmt.Errorf("unsupported marker driver %q", a.Config.MarkerDriver)
	}
}

// NewSender selects the Email Delivery collaborator.
func NewSender(ctx context.Context, cfg config.Config) (email.Sender, error) {
	switch cfg.EmailDriver {
	case config.EmailDriverEmailJS:
		return email.NewEmailJSClient(email.EmailJSConfig{
			Endpoint:       cfg.EmailJSEndpoint,
			ServiceID:      cfg.EmailJSServiceID,
			PublicKey:      cfg.EmailJSPublicKey,
			WeeklyTemplate: cfg.EmailJSTemplateWeekly,
			AITemplate:     cfg.EmailJSTemplateAI,
			Timeout:        cfg.EmailSendTimeout,
		}), nil
	case config.EmailDriverSES:
		return email.NewSESSender(ctx, cfg.AWSRegion, cfg.SESSender)
	case config.EmailDriverLog:
		return email.NewLogSender(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unsupported email driver %q", cfg.EmailDriver)
	}
}

// Streams returns the built-in report streams with the configured send window.
func Streams(cfg config.Config) []report.Stream {
	plain := report.Weekly
	plain.Window.Weekday = cfg.ReportWeekday()

	ai := report.AIWeekly
	ai.Window = report.Window{Weekday: cfg.ReportWeekday(), FromHour: cfg.ReportSendHour}
	if cfg.ReportResetAfter > 0 {
		ai.ResetAfter = cfg.ReportResetAfter
	}
	return []report.Stream{plain, ai}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		log.Printf("close app: %v", err)
		return err
	}
	return nil
}

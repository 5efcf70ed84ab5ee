// Package app provides the bootstrap and runtime orchestration of the
// moderator bot.
//
// The App type wires the storage backend, chat buffers, escalation ledger,
// Telegram transport and tool server together, and runs the background
// loops that keep them healthy:
//
//   - journal flush: pushes buffered-message writes to durable storage
//   - threshold check: asks the reviewer to drain growing or stale buffers
//   - retention: drops buffered messages nobody drained in time
//   - chat sweep: forgets idle per-chat workers
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/chat-moderator-bot/internal/bot"
	"github.com/lueurxax/chat-moderator-bot/internal/buffer"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
	"github.com/lueurxax/chat-moderator-bot/internal/escalation"
	"github.com/lueurxax/chat-moderator-bot/internal/mcpserver"
	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/config"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/worker"
	"github.com/lueurxax/chat-moderator-bot/internal/process/filters"
	db "github.com/lueurxax/chat-moderator-bot/internal/storage"
	"github.com/lueurxax/chat-moderator-bot/internal/storage/sqlitestore"
)

const (
	retentionInterval = time.Hour
	restoreTimeout    = time.Minute
	lockReleaseTime   = 5 * time.Second

	logFieldDriver = "driver"
	logFieldCount  = "count"

	pendingInsert = "insert"
	pendingDelete = "delete"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	store  ports.Store
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, store ports.Store, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// OpenStore connects to the configured storage backend. PostgreSQL schemas
// are migrated here; SQLite applies its schema on open.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (ports.Store, error) {
	logger.Info().Str(logFieldDriver, cfg.StorageDriver).Msg("Opening store")

	if cfg.StorageDriver == config.DriverSQLite {
		store, err := sqlitestore.Open(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}

		return store, nil
	}

	database, err := db.NewWithOptions(ctx, cfg.Database.PostgresDSN, db.PoolOptions{
		MaxConns:          cfg.Database.MaxConnections,
		MinConns:          cfg.Database.MinConnections,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(ctx); err != nil {
		database.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

// runtime is the wired object graph of one bot process.
type runtime struct {
	journal   *buffer.Journal
	buffers   *buffer.Store
	service   *moderation.Service
	bot       *bot.Bot
	tools     *mcpserver.Server
	retention ports.BufferRetention
}

func (a *App) newRuntime(api bot.API) *runtime {
	journal := buffer.NewJournal(a.store, a.logger)
	buffers := buffer.NewStore(journal, a.cfg.Buffer.MessageMaxChars)

	ledger := escalation.New(a.store, a.cfg.EscalationPolicy(), escalation.Options{
		HistoryLimit: a.cfg.Escalation.HistoryLimit,
		StatsLimit:   a.cfg.Escalation.StatsLimit,
	}, a.logger)

	service := moderation.New(moderation.Deps{
		Filter:    filters.New(a.cfg.ContentFilter()),
		Store:     buffers,
		Scheduler: buffer.NewScheduler(buffers, a.cfg.SizeStepBytes(), a.cfg.Buffer.TimeStep),
		Ledger:    ledger,
		Gateway:   bot.NewGateway(api, a.cfg.Telegram.GatewayRPS, a.logger),
		Reviews:   bot.NewReviewNotifier(api, a.cfg.Telegram.ReviewChatID, a.logger),
	}, moderation.Limits{
		DrainMaxTotalBytes:   a.cfg.DrainMaxTotalBytes(),
		DrainMaxMessageBytes: a.cfg.Buffer.DrainMaxMessageBytes,
		DefaultMute:          a.cfg.DefaultMute(),
	}, a.logger)

	return &runtime{
		journal:   journal,
		buffers:   buffers,
		service:   service,
		bot:       bot.New(a.cfg.Telegram, api, service, a.logger),
		tools:     mcpserver.New(service, a.logger),
		retention: a.store,
	}
}

// restore reloads durable buffers. It must finish before updates are consumed.
func (a *App) restore(ctx context.Context, rt *runtime) error {
	return worker.RunWithTimeout(ctx, restoreTimeout, func(ctx context.Context) error {
		records, err := a.store.LoadBufferedMessages(ctx)
		if err != nil {
			return fmt.Errorf("load buffered messages: %w", err)
		}

		n := rt.buffers.Restore(records)
		a.logger.Info().Int(logFieldCount, n).Msg("Restored buffered messages")

		return nil
	})
}

// RunBot runs the moderator until ctx is canceled. On the way out the
// journal gets one final flush with a fresh deadline.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	release, err := a.acquireInstance(ctx)
	if err != nil {
		return err
	}
	defer release()

	api, err := bot.NewAPI(a.cfg.Telegram)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	rt := a.newRuntime(api)

	if err := a.restore(ctx, rt); err != nil {
		return err
	}

	runErr := a.run(ctx, rt)

	//nolint:contextcheck // the parent context is already canceled at shutdown
	if err := worker.RunWithTimeout(context.Background(), a.cfg.Buffer.ShutdownFlushTimeout, rt.journal.Flush); err != nil {
		inserts, deletes := rt.journal.Pending()
		a.logger.Error().Err(err).Int(pendingInsert, inserts).Int(pendingDelete, deletes).Msg("Final journal flush failed")
	}

	return runErr
}

func (a *App) run(ctx context.Context, rt *runtime) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.healthServer(rt).Start(gctx)
	})

	g.Go(func() error {
		return worker.TickerLoop(gctx, worker.TickerConfig{
			Name:     "journal-flush",
			Interval: a.cfg.Buffer.PersistFlushInterval,
			OnTick:   rt.flush,
			Logger:   a.logger,
		})
	})

	g.Go(func() error {
		return worker.TickerLoop(gctx, worker.TickerConfig{
			Name:     "threshold-check",
			Interval: a.cfg.Buffer.ThresholdTickInterval,
			OnTick: func(ctx context.Context) error {
				rt.service.CheckThresholds(ctx)

				return nil
			},
			Logger: a.logger,
		})
	})

	if a.cfg.Buffer.Retention > 0 {
		g.Go(func() error {
			return worker.TickerLoop(gctx, worker.TickerConfig{
				Name:       "buffer-retention",
				Interval:   retentionInterval,
				RunOnStart: true,
				OnTick: func(ctx context.Context) error {
					return rt.evict(ctx, time.Now().Add(-a.cfg.Buffer.Retention), a.logger)
				},
				Logger: a.logger,
			})
		})
	}

	g.Go(func() error {
		return worker.TickerLoop(gctx, worker.TickerConfig{
			Name:     "chat-sweep",
			Interval: a.cfg.Telegram.ChatIdleTTL,
			OnTick:   rt.bot.SweepIdleChats,
			Logger:   a.logger,
		})
	})

	g.Go(func() error {
		if err := rt.bot.Run(gctx); err != nil {
			return fmt.Errorf("bot run: %w", err)
		}

		return nil
	})

	return g.Wait()
}

func (a *App) healthServer(rt *runtime) *observability.Server {
	var tools http.Handler
	if a.cfg.MCPEnabled {
		tools = rt.tools.Handler()
	}

	return observability.NewServerWithTools(a.store, a.cfg.HealthPort, tools, a.logger)
}

// acquireInstance makes sure only one process owns the PostgreSQL buffers.
// SQLite is single-process by construction.
func (a *App) acquireInstance(ctx context.Context) (func(), error) {
	database, ok := a.store.(*db.DB)
	if !ok {
		return func() {}, nil
	}

	lock, err := database.TryAcquireInstanceLock(ctx, db.InstanceLockID)
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}

	return func() {
		//nolint:contextcheck // runs after the parent context is canceled
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTime)
		defer cancel()

		if err := lock.Release(releaseCtx); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to release instance lock")
		}
	}, nil
}

func (rt *runtime) flush(ctx context.Context) error {
	err := rt.journal.Flush(ctx)

	inserts, deletes := rt.journal.Pending()
	observability.PersistencePending.WithLabelValues(pendingInsert).Set(float64(inserts))
	observability.PersistencePending.WithLabelValues(pendingDelete).Set(float64(deletes))

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// evict drops expired messages from memory, then purges rows the journal
// may have missed, such as ones restored and expired before the next flush.
func (rt *runtime) evict(ctx context.Context, cutoff time.Time, logger *zerolog.Logger) error {
	evicted := rt.buffers.Evict(cutoff)
	observability.BufferEvicted.Add(float64(evicted))

	purged, err := rt.retention.DeleteBufferedMessagesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge expired buffered messages: %w", err)
	}

	if evicted > 0 || purged > 0 {
		logger.Info().Int("evicted", evicted).Int64("purged", purged).Time("cutoff", cutoff).Msg("Buffer retention applied")
	}

	return nil
}

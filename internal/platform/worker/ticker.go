package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFieldWorker = "worker"

	errFmtTickerLoop = "ticker loop %s: %w"
)

var errNonPositiveInterval = errors.New("interval must be positive")

// TickerConfig configures a single fixed-interval loop.
type TickerConfig struct {
	// Name identifies the worker for logging.
	Name string

	// Interval is the ticker interval.
	Interval time.Duration

	// OnTick is called when the ticker fires. Errors are logged and the
	// loop keeps running; a panic is recovered the same way.
	OnTick func(ctx context.Context) error

	// RunOnStart runs OnTick immediately when starting.
	RunOnStart bool

	// OnStop is called once when the loop exits.
	OnStop func()

	// Logger for the worker.
	Logger *zerolog.Logger
}

// TickerLoop runs OnTick every Interval until ctx is canceled. Ticks never
// overlap: a slow tick delays the next one instead of piling up.
// Returns a wrapped context error when the context is canceled.
func TickerLoop(ctx context.Context, cfg TickerConfig) error {
	logger := getLogger(cfg.Logger)

	if cfg.Interval <= 0 {
		return fmt.Errorf(errFmtTickerLoop, cfg.Name, errNonPositiveInterval)
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Dur("interval", cfg.Interval).Msg("starting ticker loop")

	defer func() {
		if cfg.OnStop != nil {
			cfg.OnStop()
		}

		logger.Info().Str(logFieldWorker, cfg.Name).Msg("ticker loop stopped")
	}()

	if cfg.RunOnStart {
		runTick(ctx, cfg, logger)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(errFmtTickerLoop, cfg.Name, ctx.Err())
		case <-ticker.C:
			runTick(ctx, cfg, logger)
		}
	}
}

func runTick(ctx context.Context, cfg TickerConfig, logger *zerolog.Logger) {
	if cfg.OnTick == nil {
		return
	}

	defer RecoverPanic(logger, cfg.Name)

	if err := cfg.OnTick(ctx); err != nil {
		logger.Error().Err(err).Str(logFieldWorker, cfg.Name).Msg("tick failed")
	}
}

// getLogger returns the provided logger or a nop logger if nil.
func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"asyncevent/internal/event"
	"asyncevent/internal/event/dispatcher"
	"asyncevent/internal/event/metrics"
	"asyncevent/internal/event/registry"
	"asyncevent/internal/event/resolver"
	"asyncevent/internal/event/scheduler"
	"asyncevent/internal/event/tracing"
)

type Config struct {
	Bus      dispatcher.Config
	Metrics  metrics.ServerConfig
	Tracing  tracing.Config
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	EventCount     int           `env:"EVENT_COUNT" envDefault:"10"`
	FireRounds     int           `env:"FIRE_ROUNDS" envDefault:"3"`
	FireInterval   time.Duration `env:"FIRE_INTERVAL" envDefault:"500ms"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_PERIOD" envDefault:"5s"`
}

var newEventType = event.NewType("NewEvent", event.Root)

// NewEvent is the demo subtype of the root event.
type NewEvent struct {
	event.Base
	Round int
	Seq   int
}

// counter is the bound handler owner. It is dropped halfway through the run
// to show its subscription being pruned.
type counter struct {
	logger *zap.Logger
	seen   *atomic.Int64
}

func (c *counter) OnNewEvent(ctx context.Context, e event.Event) {
	ne, ok := e.(NewEvent)
	if !ok {
		return
	}
	c.seen.Add(1)
	c.logger.Debug("counter saw event", zap.Int("round", ne.Round), zap.Int("seq", ne.Seq))
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", cfg.LogLevel, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.SetSystemInfo("demo", time.Now().Format(time.RFC3339))
	metricsServer := metrics.NewServer(cfg.Metrics, metricsRegistry, logger)

	tracer := tracing.NewNoop()
	if cfg.Tracing.Enabled {
		t, tracingCleanup, err := tracing.NewTracer(cfg.Tracing)
		if err != nil {
			log.Fatalf("failed to initialize tracing: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
			defer cancel()
			if err := tracingCleanup(shutdownCtx); err != nil {
				logger.Error("failed to cleanup tracing", zap.Error(err))
			}
		}()
		tracer = t

		logger.Info("tracing initialized",
			zap.String("service", cfg.Tracing.ServiceName),
			zap.String("endpoint", cfg.Tracing.Endpoint),
			zap.Float64("sample_rate", cfg.Tracing.SampleRate),
		)
	}

	res, err := resolver.New(cfg.Bus.ResolverCacheSize)
	if err != nil {
		log.Fatalf("failed to create resolver: %v", err)
	}

	pool, err := scheduler.NewPool(cfg.Bus.MaxConcurrency, logger)
	if err != nil {
		log.Fatalf("failed to create scheduler pool: %v", err)
	}
	metricsServer.AddReadyCheck("scheduler", pool.Ready)
	metricsScheduler := scheduler.NewMetricsScheduler(pool, metricsRegistry)
	sched := scheduler.NewTracedScheduler(metricsScheduler, tracer)

	reg := registry.NewMetricsRegistry(registry.New(), metricsRegistry)

	baseBus, err := dispatcher.NewDispatcher(reg, res, sched, logger, cfg.Bus.UnsubscribePolicy)
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}
	metricsBus := dispatcher.NewMetricsDispatcher(baseBus, metricsRegistry)
	bus := dispatcher.NewTracedDispatcher(metricsBus, tracer)

	var total atomic.Int64
	audit, err := event.Listen(bus, "audit", func(ctx context.Context, e event.Event) {
		total.Add(1)
	}, event.Root)
	if err != nil {
		log.Fatalf("failed to subscribe audit listener: %v", err)
	}

	var seen atomic.Int64
	c := &counter{logger: logger.Named("counter"), seen: &seen}
	if err := bus.Subscribe(event.Method(c, (*counter).OnNewEvent), newEventType); err != nil {
		log.Fatalf("failed to subscribe counter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := metricsServer.Start(gctx); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	logger.Info("metrics server started",
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.Metrics.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
	)

	g.Go(func() error {
		defer cancel()

		ticker := time.NewTicker(cfg.FireInterval)
		defer ticker.Stop()

		for round := 1; round <= cfg.FireRounds; round++ {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}

			for i, e := range events(round, cfg.EventCount) {
				bus.Fire(gctx, e)
				if i == 0 {
					// a plain root event only reaches the audit listener
					bus.Fire(gctx, event.NewBase(event.Root))
				}
			}
			logger.Info("fired round", zap.Int("round", round), zap.Int("events", cfg.EventCount+1))

			// halfway through, the counter loses its only owner
			if round == (cfg.FireRounds+1)/2 && c != nil {
				c = nil
				runtime.GC()
				runtime.GC()
				logger.Info("dropped counter, its subscription will be pruned on the next dispatch")
			}
		}

		// give the last round a moment to drain before reporting
		time.Sleep(cfg.FireInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("error in goroutine", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer shutdownCancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down scheduler", zap.Error(err))
	}

	logger.Info("demo complete",
		zap.Int64("audit_events", total.Load()),
		zap.Int64("counter_events", seen.Load()),
		zap.Int("new_event_subscriptions", reg.Len(newEventType)),
		zap.Any("scheduler", pool.Stats()),
		zap.Duration("elapsed", time.Since(now)),
	)

	runtime.KeepAlive(audit)
}

func events(round, count int) []event.Event {
	events := make([]event.Event, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, NewEvent{
			Base:  event.NewBase(newEventType),
			Round: round,
			Seq:   i,
		})
	}
	return events
}
